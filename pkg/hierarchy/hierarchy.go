// Package hierarchy builds the parent/child forest of a task snapshot.
//
// Nodes carry only task identifiers; details are looked up in the
// model.TaskSet the forest was built from. Building never recurses, so
// deep or hostile hierarchies cannot exhaust the stack, and parent
// cycles are cut instead of looping forever.
package hierarchy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vanderheijden86/tasktree/pkg/debug"
	"github.com/vanderheijden86/tasktree/pkg/metrics"
	"github.com/vanderheijden86/tasktree/pkg/model"
)

// ErrCyclicHierarchy is reported (never returned as a failure) when a
// parent cycle had to be cut to build the forest.
var ErrCyclicHierarchy = errors.New("cyclic task hierarchy")

// Node is one task in the forest.
type Node struct {
	ID       uuid.UUID
	Children []*Node
	// Size is the number of descendants, not counting the node itself.
	Size int
}

// HasChildren reports whether the node can be folded.
func (n *Node) HasChildren() bool {
	return len(n.Children) > 0
}

// Cycle describes a parent cycle found while building.
type Cycle struct {
	// Members lists the cycle in parent order starting at CutAt.
	Members []uuid.UUID
	// CutAt is the task that was detached from its parent and made a root.
	CutAt uuid.UUID
}

// Forest is the set of task trees of one snapshot.
type Forest struct {
	Roots []*Node
	// Cycles lists every parent cycle that was cut.
	Cycles []Cycle
	// Dangling lists tasks whose parent is not part of the snapshot.
	// They are roots.
	Dangling []uuid.UUID

	nodes  map[uuid.UUID]*Node
	parent map[uuid.UUID]uuid.UUID
}

// Len returns the number of nodes in the forest.
func (f *Forest) Len() int {
	if f == nil {
		return 0
	}
	return len(f.nodes)
}

// Node returns the node for id.
func (f *Forest) Node(id uuid.UUID) (*Node, bool) {
	if f == nil {
		return nil, false
	}
	n, ok := f.nodes[id]
	return n, ok
}

// Parent returns the parent of id within the forest. Roots, including
// dangling tasks and cut cycle members, have no parent.
func (f *Forest) Parent(id uuid.UUID) (uuid.UUID, bool) {
	if f == nil {
		return uuid.Nil, false
	}
	p, ok := f.parent[id]
	return p, ok
}

// Walk visits every node in pre-order with its depth. Returning false
// from fn skips the node's children.
func (f *Forest) Walk(fn func(n *Node, depth int) bool) {
	if f == nil {
		return
	}
	type frame struct {
		node  *Node
		depth int
	}
	stack := make([]frame, 0, len(f.Roots))
	for i := len(f.Roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{f.Roots[i], 0})
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(top.node, top.depth) {
			continue
		}
		for i := len(top.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{top.node.Children[i], top.depth + 1})
		}
	}
}

// Err returns a non-nil error wrapping ErrCyclicHierarchy when cycles
// were cut. The forest is complete and usable either way.
func (f *Forest) Err() error {
	if f == nil || len(f.Cycles) == 0 {
		return nil
	}
	parts := make([]string, 0, len(f.Cycles))
	for _, c := range f.Cycles {
		ids := make([]string, len(c.Members))
		for i, m := range c.Members {
			ids[i] = m.String()[:8]
		}
		parts = append(parts, strings.Join(ids, " -> "))
	}
	return fmt.Errorf("%w: cut %d cycle(s): %s", ErrCyclicHierarchy, len(f.Cycles), strings.Join(parts, "; "))
}

// Build converts a snapshot into a forest.
//
// Every task appears exactly once. A task is a root when it has no parent
// or its parent is missing from the snapshot. Children keep snapshot
// order; sorting is left to the linearizer.
func Build(tasks *model.TaskSet) *Forest {
	defer metrics.Timer(metrics.HierarchyBuild)()

	n := tasks.Len()
	f := &Forest{
		nodes:  make(map[uuid.UUID]*Node, n),
		parent: make(map[uuid.UUID]uuid.UUID, n),
	}
	if n == 0 {
		return f
	}

	// Step 1: adjacency map and roots in one pass.
	children := make(map[uuid.UUID][]uuid.UUID, n)
	var roots []uuid.UUID
	tasks.Each(func(t *model.Task) bool {
		switch {
		case t.Parent == nil:
			roots = append(roots, t.UUID)
		case !tasks.Has(*t.Parent):
			roots = append(roots, t.UUID)
			f.Dangling = append(f.Dangling, t.UUID)
		default:
			children[*t.Parent] = append(children[*t.Parent], t.UUID)
		}
		return true
	})

	// Step 2: materialize each root's subtree.
	for _, id := range roots {
		f.Roots = append(f.Roots, f.materialize(id, children))
	}

	// Step 3: anything unreached sits on or below a parent cycle.
	if len(f.nodes) < n {
		f.cutCycles(tasks, children)
	}

	// Step 4: descendant counts.
	for _, root := range f.Roots {
		computeSizes(root)
	}

	if len(f.Dangling) > 0 {
		debug.Log("hierarchy: %d task(s) with missing parent promoted to root", len(f.Dangling))
	}
	debug.Assert(len(f.nodes) == n, "hierarchy: every task must be materialized exactly once")
	return f
}

// materialize builds the subtree under id with an explicit stack.
// Ids that are already part of the forest are skipped, which is what
// stops a walk around a cycle.
func (f *Forest) materialize(id uuid.UUID, children map[uuid.UUID][]uuid.UUID) *Node {
	root := &Node{ID: id}
	f.nodes[id] = root
	stack := []*Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, childID := range children[node.ID] {
			if _, seen := f.nodes[childID]; seen {
				continue
			}
			child := &Node{ID: childID}
			f.nodes[childID] = child
			f.parent[childID] = node.ID
			node.Children = append(node.Children, child)
			stack = append(stack, child)
		}
	}
	return root
}

// cutCycles turns one member of every unreached parent cycle into a root.
func (f *Forest) cutCycles(tasks *model.TaskSet, children map[uuid.UUID][]uuid.UUID) {
	tasks.Each(func(t *model.Task) bool {
		if _, done := f.nodes[t.UUID]; done {
			return true
		}

		// Follow parents until an id repeats. The chain cannot reach a
		// materialized task: its subtree would already contain t.
		pos := make(map[uuid.UUID]int)
		var chain []uuid.UUID
		cur := t.UUID
		for {
			if i, ok := pos[cur]; ok {
				chain = chain[i:]
				break
			}
			pos[cur] = len(chain)
			chain = append(chain, cur)
			next, _ := tasks.Get(cur)
			cur = *next.Parent
		}

		// chain now holds the cycle in child-to-parent order; the repeated
		// id (its first element) is the one cut loose.
		cut := chain[0]
		members := make([]uuid.UUID, len(chain))
		copy(members, chain)
		f.Cycles = append(f.Cycles, Cycle{Members: members, CutAt: cut})
		f.Roots = append(f.Roots, f.materialize(cut, children))
		debug.Log("hierarchy: cut parent cycle of %d task(s) at %s", len(members), cut)
		return true
	})
}

// computeSizes fills Size for the subtree with an iterative post-order.
func computeSizes(root *Node) {
	type frame struct {
		node *Node
		next int
	}
	stack := []frame{{node: root}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.node.Children) {
			child := top.node.Children[top.next]
			top.next++
			stack = append(stack, frame{node: child})
			continue
		}
		size := 0
		for _, c := range top.node.Children {
			size += 1 + c.Size
		}
		top.node.Size = size
		stack = stack[:len(stack)-1]
	}
}
