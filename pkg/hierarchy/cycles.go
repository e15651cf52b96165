package hierarchy

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/tasktree/pkg/model"
)

// FindCycles reports every parent cycle in the snapshot, independent of
// how Build cuts them. Each cycle is sorted by UUID; cycles are ordered
// by their first member. Used by `tt check`.
func FindCycles(tasks *model.TaskSet) [][]uuid.UUID {
	g := simple.NewDirectedGraph()
	idToNode := make(map[uuid.UUID]int64, tasks.Len())
	nodeToID := make(map[int64]uuid.UUID, tasks.Len())

	// 1. Nodes
	tasks.Each(func(t *model.Task) bool {
		n := g.NewNode()
		g.AddNode(n)
		idToNode[t.UUID] = n.ID()
		nodeToID[n.ID()] = t.UUID
		return true
	})

	// 2. Edges child -> parent. A self-parented task is a cycle on its
	// own; simple graphs reject self edges.
	var cycles [][]uuid.UUID
	tasks.Each(func(t *model.Task) bool {
		if t.Parent == nil {
			return true
		}
		if *t.Parent == t.UUID {
			cycles = append(cycles, []uuid.UUID{t.UUID})
			return true
		}
		v, ok := idToNode[*t.Parent]
		if !ok {
			return true
		}
		u := idToNode[t.UUID]
		g.SetEdge(g.NewEdge(g.Node(u), g.Node(v)))
		return true
	})

	// 3. Strongly connected components larger than one node.
	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) < 2 {
			continue
		}
		ids := make([]uuid.UUID, len(scc))
		for i, n := range scc {
			ids[i] = nodeToID[n.ID()]
		}
		sortIDs(ids)
		cycles = append(cycles, ids)
	}

	sort.Slice(cycles, func(i, j int) bool {
		return bytes.Compare(cycles[i][0][:], cycles[j][0][:]) < 0
	})
	return cycles
}

func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
}
