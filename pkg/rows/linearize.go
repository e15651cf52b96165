package rows

import (
	"slices"

	"github.com/vanderheijden86/tasktree/pkg/hierarchy"
	"github.com/vanderheijden86/tasktree/pkg/metrics"
	"github.com/vanderheijden86/tasktree/pkg/model"
)

// item is one entry of the traversal stack: a task node, or a status
// group header owning its bucket of root tasks.
type item struct {
	node *hierarchy.Node
	task *model.Task

	header bool
	status model.Status
	kids   []item
	size   int
}

func (it item) childCount() int {
	if it.header {
		return len(it.kids)
	}
	return len(it.node.Children)
}

func (it item) row(index, depth int) Row {
	if it.header {
		return Row{
			Index:  index,
			Depth:  depth,
			Kind:   KindText,
			Label:  it.status.Title(),
			Status: it.status,
			Size:   it.size,
		}
	}
	return Row{
		Index:  index,
		Depth:  depth,
		Kind:   KindTask,
		TaskID: it.node.ID,
		Status: it.task.Status,
		Size:   it.node.Size,
	}
}

type linearizer struct {
	tasks   *model.TaskSet
	compare Comparator
}

// sorted pairs nodes with their tasks and orders them.
func (l *linearizer) sorted(nodes []*hierarchy.Node) []item {
	items := make([]item, len(nodes))
	for i, n := range nodes {
		t, ok := l.tasks.Get(n.ID)
		if !ok {
			t = &model.Task{UUID: n.ID}
		}
		items[i] = item{node: n, task: t}
	}
	slices.SortFunc(items, func(a, b item) int {
		return l.compare(a.task, b.task)
	})
	return items
}

func (l *linearizer) children(it item) []item {
	if it.header {
		return it.kids
	}
	return l.sorted(it.node.Children)
}

// topLevel returns the sorted root sequence, wrapped in one header per
// non-empty status bucket when grouping.
func (l *linearizer) topLevel(f *hierarchy.Forest, group GroupMode) []item {
	roots := l.sorted(f.Roots)
	if group != GroupByStatus {
		return roots
	}

	buckets := make(map[model.Status][]item)
	for _, r := range roots {
		buckets[r.task.Status] = append(buckets[r.task.Status], r)
	}
	var out []item
	for _, s := range model.AllStatuses() {
		kids := buckets[s]
		if len(kids) == 0 {
			continue
		}
		size := 0
		for _, k := range kids {
			size += 1 + k.node.Size
		}
		out = append(out, item{header: true, status: s, kids: kids, size: size})
	}
	return out
}

// Linearize flattens the forest into rows in depth-first pre-order.
//
// Siblings are sorted with opts.Compare at every level. Folded rows are
// emitted but their descendants are not; the running index still
// advances past them, so indices match the fully expanded sequence.
// The traversal uses an explicit stack plus a stack of remaining-children
// counters (one per open ancestor, its length is the current depth), so
// hierarchy depth never touches the goroutine stack.
func Linearize(f *hierarchy.Forest, tasks *model.TaskSet, folds FoldSet, opts Options) []Row {
	defer metrics.Timer(metrics.Linearize)()

	l := &linearizer{tasks: tasks, compare: opts.comparator()}
	top := l.topLevel(f, opts.Group)

	out := make([]Row, 0, f.Len()+len(top))
	stack := make([]item, 0, len(top))
	for i := len(top) - 1; i >= 0; i-- {
		stack = append(stack, top[i])
	}
	var remaining []int
	index := 0

	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		row := it.row(index, len(remaining))
		switch {
		case it.childCount() == 0:
			row.Fold = NoChildren
			index++
		case folds.Has(index):
			row.Fold = Folded
			index += 1 + row.Size
		default:
			row.Fold = Open
			index++
		}
		out = append(out, row)

		if row.Fold == Open {
			kids := l.children(it)
			for i := len(kids) - 1; i >= 0; i-- {
				stack = append(stack, kids[i])
			}
			remaining = append(remaining, len(kids))
			continue
		}

		// A finished subtree completes one child of the nearest open
		// ancestor; an exhausted ancestor completes one of its own parent's.
		for len(remaining) > 0 {
			last := len(remaining) - 1
			remaining[last]--
			if remaining[last] > 0 {
				break
			}
			remaining = remaining[:last]
		}
	}
	return out
}

// Expanded is Linearize with nothing folded.
func Expanded(f *hierarchy.Forest, tasks *model.TaskSet, opts Options) []Row {
	return Linearize(f, tasks, nil, opts)
}
