package tasklist

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/vanderheijden86/tasktree/pkg/hierarchy"
	"github.com/vanderheijden86/tasktree/pkg/model"
	"github.com/vanderheijden86/tasktree/pkg/rows"
	"github.com/vanderheijden86/tasktree/pkg/testutil"
)

type fetchFunc func(ctx context.Context) ([]model.Task, error)

func (f fetchFunc) Fetch(ctx context.Context) ([]model.Task, error) { return f(ctx) }

func abcde() []model.Task {
	return []model.Task{
		testutil.Task("A", testutil.WithUrgency(10)),
		testutil.Task("B", testutil.Under("A"), testutil.WithUrgency(5)),
		testutil.Task("C", testutil.Under("A"), testutil.WithUrgency(4)),
		testutil.Task("D", testutil.Under("C")),
		testutil.Task("E", testutil.Under("D")),
		testutil.Task("F", testutil.WithUrgency(1)),
	}
}

func flat(n int) []model.Task {
	tasks := make([]model.Task, n)
	for i := range tasks {
		// Descending urgency keeps input order.
		tasks[i] = testutil.Task(fmt.Sprintf("t%02d", i), testutil.WithUrgency(float64(n-i)))
	}
	return tasks
}

func newList(t *testing.T, opts Options, tasks []model.Task) *List {
	t.Helper()
	l := New(opts)
	if err := l.Refresh(tasks); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	return l
}

func selectedName(t *testing.T, l *List) string {
	t.Helper()
	_, task, ok := l.Selected()
	if !ok || task == nil {
		t.Fatalf("expected a selected task at cursor %d", l.Cursor())
	}
	return task.Description
}

func TestFoldThenMoveLandsOnNextRootSibling(t *testing.T) {
	l := newList(t, Options{Height: 20}, abcde())

	if got := selectedName(t, l); got != "A" {
		t.Fatalf("expected cursor on A, got %q", got)
	}
	if !l.ToggleFold() {
		t.Fatal("expected folding A to change the list")
	}
	l.MoveCursor(1)
	if got := selectedName(t, l); got != "F" {
		t.Errorf("expected cursor on F after folding A, got %q", got)
	}
	row, _, _ := l.Selected()
	if row.Index != 5 {
		t.Errorf("expected F at expanded index 5, got %d", row.Index)
	}
	if l.Len() != 2 {
		t.Errorf("expected 2 visible rows, got %d", l.Len())
	}

	l.MoveCursor(-1)
	if !l.ToggleFold() {
		t.Fatal("expected unfolding A to change the list")
	}
	if l.Len() != 6 {
		t.Errorf("expected 6 visible rows after unfold, got %d", l.Len())
	}
}

func TestToggleFoldOnLeafIsNoop(t *testing.T) {
	l := newList(t, Options{Height: 20}, abcde())
	l.MoveCursor(1) // B
	if l.ToggleFold() {
		t.Error("expected toggling a leaf to do nothing")
	}
	if l.Len() != 6 {
		t.Errorf("expected 6 visible rows, got %d", l.Len())
	}
}

func TestRefreshResetsViewportAndFolds(t *testing.T) {
	l := newList(t, Options{Height: 4, Padding: 1}, flat(20))
	l.MoveCursor(12)
	if l.Focus() == 0 {
		t.Fatal("expected the window to scroll")
	}

	if err := l.Refresh(flat(20)); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if l.Cursor() != 0 || l.Focus() != 0 {
		t.Errorf("expected (0, 0) after refresh, got (%d, %d)", l.Cursor(), l.Focus())
	}
}

func TestRefreshFoldsDefaultGroups(t *testing.T) {
	opts := DefaultOptions()
	opts.Height = 20
	l := newList(t, opts, []model.Task{
		testutil.Task("p"),
		testutil.Task("d1", testutil.WithStatus(model.StatusDeleted)),
		testutil.Task("d2", testutil.WithStatus(model.StatusDeleted)),
	})

	vis := l.Visible()
	if len(vis) != 3 {
		t.Fatalf("expected 3 visible rows, got %d: %+v", len(vis), vis)
	}
	last := vis[2]
	if last.Kind != rows.KindText || last.Status != model.StatusDeleted || last.Fold != rows.Folded {
		t.Errorf("expected a folded Deleted header, got %+v", last)
	}
	if s := l.Stats(); s.Folded != 1 || s.Rows != 5 || s.ByStatus[model.StatusDeleted] != 2 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestRefreshReportsCycleButInstallsSnapshot(t *testing.T) {
	l := newList(t, Options{Height: 10}, abcde())
	cyclic := []model.Task{
		testutil.Task("x", testutil.Under("y")),
		testutil.Task("y", testutil.Under("x")),
	}
	err := l.Refresh(cyclic)
	if !errors.Is(err, hierarchy.ErrCyclicHierarchy) {
		t.Fatalf("expected ErrCyclicHierarchy, got %v", err)
	}
	if l.Len() != 2 || l.Tasks().Len() != 2 {
		t.Errorf("expected the cyclic snapshot installed, got %d rows", l.Len())
	}
	if s := l.Stats(); s.Cycles != 1 {
		t.Errorf("expected 1 cycle in stats, got %d", s.Cycles)
	}
}

func TestRefreshFromKeepsSnapshotOnError(t *testing.T) {
	l := newList(t, Options{Height: 10}, abcde())
	l.MoveCursor(2)

	boom := model.NewSourceError(model.ProcessInvocationFailed, "task export", errors.New("exit status 2"))
	err := l.RefreshFrom(context.Background(), fetchFunc(func(context.Context) ([]model.Task, error) {
		return nil, boom
	}))
	if !errors.Is(err, model.ErrProcessInvocationFailed) {
		t.Fatalf("expected process failure, got %v", err)
	}
	if l.Len() != 6 || l.Cursor() != 2 {
		t.Errorf("expected the old snapshot untouched, got %d rows, cursor %d", l.Len(), l.Cursor())
	}

	err = l.RefreshFrom(context.Background(), fetchFunc(func(context.Context) ([]model.Task, error) {
		return flat(3), nil
	}))
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if l.Len() != 3 || l.Cursor() != 0 {
		t.Errorf("expected new snapshot at the top, got %d rows, cursor %d", l.Len(), l.Cursor())
	}
}

func TestWindow(t *testing.T) {
	l := newList(t, Options{Height: 10, Padding: 2}, flat(30))
	l.MoveCursor(9)

	win, offset := l.Window()
	if len(win) != 10 {
		t.Fatalf("expected 10 rows on screen, got %d", len(win))
	}
	if l.Focus() != 2 || offset != 7 {
		t.Errorf("expected focus 2 and offset 7, got %d and %d", l.Focus(), offset)
	}
	if got := selectedName(t, l); got != "t09" {
		t.Errorf("expected t09 selected, got %q", got)
	}

	l.SetHeight(40)
	l.MoveCursor(-9)
	if win, _ := l.Window(); len(win) != 30 {
		t.Errorf("expected all 30 rows on a tall screen, got %d", len(win))
	}
}

func TestRowOutOfRangeClamps(t *testing.T) {
	l := newList(t, Options{Height: 10}, abcde())

	r, err := l.Row(3)
	if err != nil || r.Index != 3 {
		t.Fatalf("expected row 3, got %+v, %v", r, err)
	}

	r, err = l.Row(42)
	if !errors.Is(err, ErrInvalidRowAccess) {
		t.Fatalf("expected ErrInvalidRowAccess, got %v", err)
	}
	if r.Index != 5 {
		t.Errorf("expected clamp to the last row, got index %d", r.Index)
	}

	if r, err = l.Row(-1); !errors.Is(err, ErrInvalidRowAccess) || r.Index != 0 {
		t.Errorf("expected clamp to the first row, got %+v, %v", r, err)
	}

	empty := New(Options{})
	if _, err := empty.Row(0); !errors.Is(err, ErrInvalidRowAccess) {
		t.Errorf("expected ErrInvalidRowAccess on an empty list, got %v", err)
	}
}

func TestEmptyList(t *testing.T) {
	l := New(DefaultOptions())
	l.MoveCursor(5)
	if l.ToggleFold() {
		t.Error("expected nothing to fold")
	}
	if _, _, ok := l.Selected(); ok {
		t.Error("expected no selection")
	}
	if win, off := l.Window(); len(win) != 0 || off != 0 {
		t.Errorf("expected empty window, got %d rows, offset %d", len(win), off)
	}
}

func TestSelectedHeaderHasNoTask(t *testing.T) {
	opts := DefaultOptions()
	opts.Height = 10
	l := newList(t, opts, abcde())
	row, task, ok := l.Selected()
	if !ok || row.Kind != rows.KindText || task != nil {
		t.Errorf("expected the Pending header selected, got %+v %v", row, task)
	}
	if p, ok := l.Forest().Parent(testutil.ID("E")); !ok || p != testutil.ID("D") {
		t.Errorf("expected E under D, got %v %v", p, ok)
	}
	if task, ok := l.Task(testutil.ID("C")); !ok || task.Description != "C" {
		t.Errorf("expected to look up C, got %v", task)
	}
}
