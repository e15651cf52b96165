package datasource

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/vanderheijden86/tasktree/pkg/model"
)

// SnapshotDiff represents differences between two task snapshots, either
// two sources read side by side or one source before and after a refresh.
type SnapshotDiff struct {
	// SourceA is the name of the first snapshot
	SourceA string
	// SourceB is the name of the second snapshot
	SourceB string
	// Added contains tasks present in B but not in A
	Added []uuid.UUID
	// Removed contains tasks present in A but not in B
	Removed []uuid.UUID
	// StatusChanged contains tasks with different status between snapshots
	StatusChanged []StatusDifference
	// Reparented contains tasks whose parent link differs
	Reparented []uuid.UUID
	// CountA is the number of tasks in snapshot A
	CountA int
	// CountB is the number of tasks in snapshot B
	CountB int
}

// StatusDifference represents a status mismatch for a single task
type StatusDifference struct {
	UUID    uuid.UUID    `json:"uuid"`
	StatusA model.Status `json:"status_a"`
	StatusB model.Status `json:"status_b"`
}

// HasChanges returns true if there are any differences between snapshots
func (d SnapshotDiff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.StatusChanged) > 0 || len(d.Reparented) > 0
}

// Short returns a one-line summary for the status bar, e.g.
// "+2 -1 ~3".
func (d SnapshotDiff) Short() string {
	if !d.HasChanges() {
		return "no changes"
	}
	var parts []string
	if n := len(d.Added); n > 0 {
		parts = append(parts, fmt.Sprintf("+%d", n))
	}
	if n := len(d.Removed); n > 0 {
		parts = append(parts, fmt.Sprintf("-%d", n))
	}
	if n := len(d.StatusChanged) + len(d.Reparented); n > 0 {
		parts = append(parts, fmt.Sprintf("~%d", n))
	}
	return strings.Join(parts, " ")
}

// Summary returns a human-readable summary of the differences
func (d SnapshotDiff) Summary() string {
	if !d.HasChanges() {
		return fmt.Sprintf("Snapshots match (%d tasks each)", d.CountA)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Differences between %s and %s:\n", d.SourceA, d.SourceB)
	if d.CountA != d.CountB {
		fmt.Fprintf(&b, "  - Count mismatch: %d vs %d\n", d.CountA, d.CountB)
	}
	writeIDs(&b, fmt.Sprintf("%d tasks in %s but not %s", len(d.Added), d.SourceB, d.SourceA), d.Added)
	writeIDs(&b, fmt.Sprintf("%d tasks in %s but not %s", len(d.Removed), d.SourceA, d.SourceB), d.Removed)
	if len(d.StatusChanged) > 0 {
		fmt.Fprintf(&b, "  - %d tasks with different status\n", len(d.StatusChanged))
		if len(d.StatusChanged) <= 5 {
			for _, m := range d.StatusChanged {
				fmt.Fprintf(&b, "    - %s: %s vs %s\n", m.UUID.String()[:8], m.StatusA, m.StatusB)
			}
		}
	}
	writeIDs(&b, fmt.Sprintf("%d tasks with a different parent", len(d.Reparented)), d.Reparented)
	return b.String()
}

func writeIDs(b *strings.Builder, heading string, ids []uuid.UUID) {
	if len(ids) == 0 {
		return
	}
	fmt.Fprintf(b, "  - %s\n", heading)
	if len(ids) <= 5 {
		for _, id := range ids {
			fmt.Fprintf(b, "    - %s\n", id.String()[:8])
		}
	}
}

// DiffOptions configures the diff operation
type DiffOptions struct {
	// IncludeClosed includes completed and deleted tasks in the comparison
	IncludeClosed bool
	// MaxDifferences limits the number of differences tracked per kind (0 = unlimited)
	MaxDifferences int
}

// DefaultDiffOptions returns sensible default diff options
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{IncludeClosed: true, MaxDifferences: 100}
}

// DiffSnapshots compares two snapshots. Result lists follow the order of
// the snapshot they come from.
func DiffSnapshots(tasksA, tasksB []model.Task, sourceA, sourceB string, opts DiffOptions) SnapshotDiff {
	diff := SnapshotDiff{SourceA: sourceA, SourceB: sourceB}
	room := func(n int) bool { return opts.MaxDifferences == 0 || n < opts.MaxDifferences }

	keep := func(t *model.Task) bool { return opts.IncludeClosed || !t.Status.IsClosed() }
	mapA := make(map[uuid.UUID]*model.Task, len(tasksA))
	for i := range tasksA {
		if keep(&tasksA[i]) {
			mapA[tasksA[i].UUID] = &tasksA[i]
		}
	}
	mapB := make(map[uuid.UUID]*model.Task, len(tasksB))
	for i := range tasksB {
		if keep(&tasksB[i]) {
			mapB[tasksB[i].UUID] = &tasksB[i]
		}
	}
	diff.CountA = len(mapA)
	diff.CountB = len(mapB)

	for i := range tasksA {
		id := tasksA[i].UUID
		if _, ok := mapA[id]; !ok {
			continue
		}
		if _, ok := mapB[id]; !ok && room(len(diff.Removed)) && !slices.Contains(diff.Removed, id) {
			diff.Removed = append(diff.Removed, id)
		}
	}

	for i := range tasksB {
		b := &tasksB[i]
		if mapB[b.UUID] != b {
			continue // filtered, or an earlier duplicate
		}
		a, ok := mapA[b.UUID]
		if !ok {
			if room(len(diff.Added)) {
				diff.Added = append(diff.Added, b.UUID)
			}
			continue
		}
		if a.Status != b.Status && room(len(diff.StatusChanged)) {
			diff.StatusChanged = append(diff.StatusChanged, StatusDifference{UUID: b.UUID, StatusA: a.Status, StatusB: b.Status})
		}
		if !sameParent(a.Parent, b.Parent) && room(len(diff.Reparented)) {
			diff.Reparented = append(diff.Reparented, b.UUID)
		}
	}

	return diff
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// CompareSources fetches from two sources and compares them
func CompareSources(ctx context.Context, a, b Source, opts DiffOptions) (*SnapshotDiff, error) {
	tasksA, err := a.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", a.Describe(), err)
	}
	tasksB, err := b.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", b.Describe(), err)
	}
	diff := DiffSnapshots(tasksA, tasksB, a.Describe(), b.Describe(), opts)
	return &diff, nil
}
