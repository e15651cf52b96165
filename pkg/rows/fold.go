package rows

import (
	"slices"

	"github.com/vanderheijden86/tasktree/pkg/model"
)

// FoldSet holds the indices of collapsed rows. The zero value (nil) is an
// empty set for reading; use NewFoldSet before toggling.
type FoldSet map[int]struct{}

// NewFoldSet returns a set containing indices.
func NewFoldSet(indices ...int) FoldSet {
	s := make(FoldSet, len(indices))
	for _, i := range indices {
		s[i] = struct{}{}
	}
	return s
}

// Has reports whether index is folded.
func (s FoldSet) Has(index int) bool {
	_, ok := s[index]
	return ok
}

// Toggle flips index and reports whether it is now folded.
func (s FoldSet) Toggle(index int) bool {
	if _, ok := s[index]; ok {
		delete(s, index)
		return false
	}
	s[index] = struct{}{}
	return true
}

// Len returns the number of folded rows.
func (s FoldSet) Len() int {
	return len(s)
}

// Indices returns the folded indices in ascending order.
func (s FoldSet) Indices() []int {
	out := make([]int, 0, len(s))
	for i := range s {
		out = append(out, i)
	}
	slices.Sort(out)
	return out
}

// Clone returns an independent copy.
func (s FoldSet) Clone() FoldSet {
	out := make(FoldSet, len(s))
	for i := range s {
		out[i] = struct{}{}
	}
	return out
}

// DefaultFolds returns the indices of the group headers whose status is
// listed, e.g. to start with the Deleted group collapsed.
func DefaultFolds(rows []Row, statuses []model.Status) FoldSet {
	out := make(FoldSet)
	if len(statuses) == 0 {
		return out
	}
	for _, r := range rows {
		if r.Kind == KindText && r.Foldable() && slices.Contains(statuses, r.Status) {
			out[r.Index] = struct{}{}
		}
	}
	return out
}
