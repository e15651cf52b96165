// Package tasklist ties the pipeline together: one snapshot of tasks,
// its forest, its rows and the navigation state.
//
// A List only changes through MoveCursor, ToggleFold and Refresh. All
// three run on the UI goroutine; fetching happens elsewhere and hands a
// finished snapshot to Refresh.
package tasklist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vanderheijden86/tasktree/pkg/cursor"
	"github.com/vanderheijden86/tasktree/pkg/debug"
	"github.com/vanderheijden86/tasktree/pkg/hierarchy"
	"github.com/vanderheijden86/tasktree/pkg/metrics"
	"github.com/vanderheijden86/tasktree/pkg/model"
	"github.com/vanderheijden86/tasktree/pkg/rows"
)

// ErrInvalidRowAccess is returned when a visible position outside the
// visible rows is requested.
var ErrInvalidRowAccess = errors.New("row position out of range")

// Fetcher produces task snapshots.
type Fetcher interface {
	Fetch(ctx context.Context) ([]model.Task, error)
}

// Options configures a List.
type Options struct {
	Group        rows.GroupMode
	Compare      rows.Comparator
	Padding      int
	Height       int
	FoldedGroups []model.Status // status groups folded after each refresh
}

// DefaultOptions groups by status, folds the Deleted group and uses the
// default padding.
func DefaultOptions() Options {
	return Options{
		Group:        rows.GroupByStatus,
		Padding:      cursor.DefaultPadding,
		FoldedGroups: []model.Status{model.StatusDeleted},
	}
}

// snapshot is everything derived from one task collection. It is
// replaced as a whole on refresh.
type snapshot struct {
	tasks   *model.TaskSet
	forest  *hierarchy.Forest
	outline *rows.Outline
	loaded  time.Time
}

// List is the navigable, foldable view over one task snapshot.
type List struct {
	opts Options
	snap snapshot
	view cursor.Viewport
}

// New returns an empty list.
func New(opts Options) *List {
	if opts.Padding < 0 {
		opts.Padding = 0
	}
	return &List{
		opts: opts,
		snap: snapshot{
			tasks:   model.NewTaskSet(nil),
			forest:  hierarchy.Build(model.NewTaskSet(nil)),
			outline: rows.NewOutline(nil),
		},
		view: cursor.NewViewport(opts.Height, opts.Padding),
	}
}

// Refresh replaces the snapshot with tasks. Cursor and focus return to the
// top and folds reset to the configured default groups.
//
// The returned error is non-nil only for a cut parent cycle
// (hierarchy.ErrCyclicHierarchy); the new snapshot is installed
// regardless.
func (l *List) Refresh(tasks []model.Task) error {
	defer debug.LogEnterExit("tasklist.Refresh")()

	next, err := l.build(tasks)
	if err != nil {
		return err
	}
	l.snap = next
	l.view.Reset()
	l.view.Resize(l.view.Height, l.snap.outline.VisibleLen())
	return next.forest.Err()
}

// build derives a full snapshot without touching l.
func (l *List) build(tasks []model.Task) (snap snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("building rows: %v", r)
		}
	}()

	set := model.NewTaskSet(tasks)
	forest := hierarchy.Build(set)
	all := rows.Expanded(forest, set, rows.Options{Group: l.opts.Group, Compare: l.opts.Compare})
	outline := rows.NewOutline(all)
	outline.SetFolds(rows.DefaultFolds(all, l.opts.FoldedGroups))

	debug.Log("tasklist: %d tasks, %d roots, %d rows (%d visible)",
		set.Len(), len(forest.Roots), outline.Len(), outline.VisibleLen())
	return snapshot{tasks: set, forest: forest, outline: outline, loaded: time.Now()}, nil
}

// RefreshFrom fetches a snapshot and refreshes with it. A fetch error is
// returned and the current snapshot stays in place.
func (l *List) RefreshFrom(ctx context.Context, src Fetcher) error {
	done := metrics.TimerWithCallback(metrics.Fetch, func(d time.Duration) {
		debug.LogTiming("fetch", d)
	})
	tasks, err := src.Fetch(ctx)
	done()
	if err != nil {
		return err
	}
	return l.Refresh(tasks)
}

// MoveCursor moves the selection by delta visible rows, clamped to the
// visible range, and scrolls as needed.
func (l *List) MoveCursor(delta int) {
	before := l.view.Cursor
	l.view.Move(delta, l.snap.outline.VisibleLen())
	if debug.Enabled() {
		l.checkAdvance(before, delta)
	}
}

// checkAdvance cross-checks the visible-position move against the
// index-space walk over the expanded rows.
func (l *List) checkAdvance(before, delta int) {
	from, ok := l.snap.outline.At(before)
	if !ok {
		return
	}
	to, _ := l.snap.outline.At(l.view.Cursor)
	got := l.snap.outline.Advance(from.Index, delta)
	debug.Assert(got == to.Index, fmt.Sprintf("cursor move from index %d by %d: visible walk reached %d, index walk %d",
		from.Index, delta, to.Index, got))
}

// MoveTo selects the visible position pos (clamped).
func (l *List) MoveTo(pos int) {
	l.view.MoveTo(pos, l.snap.outline.VisibleLen())
}

// ToggleFold folds or unfolds the row under the cursor. Rows without
// children are left alone. It reports whether anything changed.
func (l *List) ToggleFold() bool {
	row, ok := l.snap.outline.At(l.view.Cursor)
	if !ok {
		return false
	}
	if !l.snap.outline.Toggle(row.Index) {
		return false
	}
	// The toggled row keeps its position; rows below it moved.
	l.view.Resize(l.view.Height, l.snap.outline.VisibleLen())
	return true
}

// SetHeight sets the number of rows the viewport shows.
func (l *List) SetHeight(height int) {
	l.view.Resize(height, l.snap.outline.VisibleLen())
}

// Visible returns the rows not hidden by folds. Do not modify the slice.
func (l *List) Visible() []rows.Row {
	return l.snap.outline.Visible()
}

// All returns every row as if nothing were folded, with current fold
// states.
func (l *List) All() []rows.Row {
	return l.snap.outline.All()
}

// Window returns the visible rows on screen, starting at the focus, and
// the cursor's offset within them.
func (l *List) Window() ([]rows.Row, int) {
	vis := l.Visible()
	start, end := l.view.Window(len(vis))
	return vis[start:end], l.view.Cursor - start
}

// Cursor returns the selected visible position.
func (l *List) Cursor() int {
	return l.view.Cursor
}

// Focus returns the first visible position on screen.
func (l *List) Focus() int {
	return l.view.Focus
}

// Height returns the viewport height.
func (l *List) Height() int {
	return l.view.Height
}

// Len returns the number of visible rows.
func (l *List) Len() int {
	return l.snap.outline.VisibleLen()
}

// Row returns the visible row at pos. Positions outside the visible rows
// are a caller bug: with debug logging on it panics, otherwise the
// position is clamped and ErrInvalidRowAccess is returned with the
// clamped row.
func (l *List) Row(pos int) (rows.Row, error) {
	n := l.snap.outline.VisibleLen()
	if pos >= 0 && pos < n {
		r, _ := l.snap.outline.At(pos)
		return r, nil
	}
	debug.Assert(false, fmt.Sprintf("row position %d outside [0, %d)", pos, n))
	err := fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidRowAccess, pos, n)
	if n == 0 {
		return rows.Row{}, err
	}
	r, _ := l.snap.outline.At(cursor.Move(0, pos, n))
	return r, err
}

// Selected returns the row under the cursor and, for task rows, its task.
func (l *List) Selected() (rows.Row, *model.Task, bool) {
	row, ok := l.snap.outline.At(l.view.Cursor)
	if !ok {
		return rows.Row{}, nil, false
	}
	if row.Kind != rows.KindTask {
		return row, nil, true
	}
	t, _ := l.snap.tasks.Get(row.TaskID)
	return row, t, true
}

// Task looks up a task of the current snapshot.
func (l *List) Task(id uuid.UUID) (*model.Task, bool) {
	return l.snap.tasks.Get(id)
}

// Tasks returns the current snapshot.
func (l *List) Tasks() *model.TaskSet {
	return l.snap.tasks
}

// Forest returns the current forest.
func (l *List) Forest() *hierarchy.Forest {
	return l.snap.forest
}

// Stats summarizes the current snapshot.
type Stats struct {
	Tasks    int
	Roots    int
	Rows     int
	Visible  int
	Folded   int
	Cycles   int
	Dangling int
	ByStatus map[model.Status]int
	Loaded   time.Time
}

// Stats returns counts for the status bar.
func (l *List) Stats() Stats {
	s := Stats{
		Tasks:    l.snap.tasks.Len(),
		Roots:    len(l.snap.forest.Roots),
		Rows:     l.snap.outline.Len(),
		Visible:  l.snap.outline.VisibleLen(),
		Folded:   l.snap.outline.Folds().Len(),
		Cycles:   len(l.snap.forest.Cycles),
		Dangling: len(l.snap.forest.Dangling),
		ByStatus: make(map[model.Status]int),
		Loaded:   l.snap.loaded,
	}
	l.snap.tasks.Each(func(t *model.Task) bool {
		s.ByStatus[t.Status]++
		return true
	})
	return s
}
