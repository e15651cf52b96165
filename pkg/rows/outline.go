package rows

import (
	"sort"

	"github.com/vanderheijden86/tasktree/pkg/metrics"
)

// Outline is the fold state manager. It keeps the fully expanded row
// sequence fixed and derives the visible rows from the fold set, skipping
// each folded subtree with one jump of Size rows.
type Outline struct {
	all   []Row
	folds FoldSet

	visible []Row // nil when stale
}

// NewOutline takes ownership of a fully expanded sequence, as returned by
// Expanded. Row i must have Index i.
func NewOutline(rows []Row) *Outline {
	o := &Outline{all: rows, folds: make(FoldSet)}
	for i := range o.all {
		if o.all[i].Fold == Folded {
			o.folds[i] = struct{}{}
		}
	}
	return o
}

// All returns the fully expanded rows, with fold states reflecting the
// current fold set. The slice must not be modified.
func (o *Outline) All() []Row {
	return o.all
}

// Len returns the number of rows when fully expanded.
func (o *Outline) Len() int {
	return len(o.all)
}

// Folds returns a copy of the fold set.
func (o *Outline) Folds() FoldSet {
	return o.folds.Clone()
}

// SetFolds replaces the fold set. Indices of rows that cannot fold are
// dropped.
func (o *Outline) SetFolds(folds FoldSet) {
	o.folds = make(FoldSet, len(folds))
	for i := range o.all {
		r := &o.all[i]
		if !r.Foldable() {
			continue
		}
		if folds.Has(i) {
			o.folds[i] = struct{}{}
			r.Fold = Folded
		} else {
			r.Fold = Open
		}
	}
	o.visible = nil
}

// Toggle folds or unfolds the row with the given index. Rows without
// children and out-of-range indices are ignored. It reports whether the
// visible rows changed.
func (o *Outline) Toggle(index int) bool {
	if index < 0 || index >= len(o.all) {
		return false
	}
	r := &o.all[index]
	if !r.Foldable() {
		return false
	}
	defer metrics.Timer(metrics.FoldToggle)()

	if o.folds.Toggle(index) {
		r.Fold = Folded
	} else {
		r.Fold = Open
	}
	o.visible = nil
	return true
}

// Visible returns the rows not hidden under a folded ancestor. The slice
// is cached until the next toggle and must not be modified.
func (o *Outline) Visible() []Row {
	if o.visible != nil {
		return o.visible
	}
	out := make([]Row, 0, len(o.all))
	for i := 0; i < len(o.all); {
		r := o.all[i]
		out = append(out, r)
		if r.Fold == Folded {
			i += 1 + r.Size
		} else {
			i++
		}
	}
	o.visible = out
	return out
}

// VisibleLen returns the number of visible rows.
func (o *Outline) VisibleLen() int {
	return len(o.Visible())
}

// At returns the visible row at position pos.
func (o *Outline) At(pos int) (Row, bool) {
	vis := o.Visible()
	if pos < 0 || pos >= len(vis) {
		return Row{}, false
	}
	return vis[pos], true
}

// PositionOf returns the visible position of the row with the given
// index, or false when it is hidden or out of range.
func (o *Outline) PositionOf(index int) (int, bool) {
	vis := o.Visible()
	pos := sort.Search(len(vis), func(i int) bool { return vis[i].Index >= index })
	if pos < len(vis) && vis[pos].Index == index {
		return pos, true
	}
	return 0, false
}

// Advance walks steps visible rows from the row with the given index
// (backward when steps is negative) and returns the index reached. Each
// folded subtree counts as one step. The walk stops at the first or last
// visible row. index must be visible.
func (o *Outline) Advance(index, steps int) int {
	if len(o.all) == 0 {
		return 0
	}
	for ; steps > 0; steps-- {
		next := index + 1
		if o.all[index].Fold == Folded {
			next = index + 1 + o.all[index].Size
		}
		if next >= len(o.all) {
			break
		}
		index = next
	}
	for ; steps < 0; steps++ {
		if index == 0 {
			break
		}
		index = o.visibleBefore(index)
	}
	return index
}

// visibleBefore returns the visible row preceding index. Row index-1 is
// visible unless one of its ancestors is folded, in which case the
// outermost folded ancestor is the row shown in its place. Ancestors are
// found by scanning back for rows of decreasing depth.
func (o *Outline) visibleBefore(index int) int {
	target := index - 1
	depth := o.all[target].Depth
	for j := target - 1; j >= 0 && depth > 0; j-- {
		r := o.all[j]
		if r.Depth >= depth {
			continue
		}
		depth = r.Depth
		if r.Fold == Folded {
			target = j
		}
	}
	return target
}
