// Package rows flattens a task forest into index-stable display rows and
// tracks which rows are folded.
//
// Every row's Index is its pre-order position in the fully expanded
// linearization. Folding hides rows but never renumbers them, so the
// cursor can skip a folded subtree by jumping Size+1 indices.
package rows

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vanderheijden86/tasktree/pkg/model"
)

// Kind distinguishes task rows from synthetic label rows.
type Kind int

const (
	KindTask Kind = iota
	KindText
)

// FoldState classifies a row for folding.
type FoldState int

const (
	NoChildren FoldState = iota
	Open
	Folded
)

func (s FoldState) String() string {
	switch s {
	case NoChildren:
		return "no-children"
	case Open:
		return "open"
	case Folded:
		return "folded"
	default:
		return fmt.Sprintf("fold(%d)", int(s))
	}
}

// Row is one line of the flattened forest.
type Row struct {
	Index int
	Depth int
	Fold  FoldState
	Kind  Kind

	// TaskID is set for KindTask rows.
	TaskID uuid.UUID
	// Label is set for KindText rows (status group headers).
	Label string
	// Status is the task's status, or the group's for a header.
	Status model.Status

	// Size is the number of rows below this one when fully expanded.
	Size int
}

// IsTask reports whether the row shows a task.
func (r Row) IsTask() bool {
	return r.Kind == KindTask
}

// Foldable reports whether toggling the row has any effect.
func (r Row) Foldable() bool {
	return r.Fold != NoChildren
}

// GroupMode selects how root-level tasks are grouped.
type GroupMode int

const (
	GroupNone GroupMode = iota
	GroupByStatus
)

func (g GroupMode) String() string {
	if g == GroupByStatus {
		return "status"
	}
	return "none"
}

// ParseGroupMode accepts "status" and "none" (or empty).
func ParseGroupMode(s string) (GroupMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return GroupNone, nil
	case "status":
		return GroupByStatus, nil
	default:
		return GroupNone, fmt.Errorf("unknown group mode %q (want status or none)", s)
	}
}

// Options controls linearization.
type Options struct {
	Group   GroupMode
	Compare Comparator // nil means ByStatusUrgency
}

func (o Options) comparator() Comparator {
	if o.Compare == nil {
		return ByStatusUrgency
	}
	return o.Compare
}
