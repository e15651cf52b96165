package rows

import (
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/vanderheijden86/tasktree/pkg/hierarchy"
	"github.com/vanderheijden86/tasktree/pkg/model"
	"github.com/vanderheijden86/tasktree/pkg/testutil"
)

type fixture struct {
	tasks  []model.Task
	set    *model.TaskSet
	forest *hierarchy.Forest
}

func newFixture(tasks ...model.Task) fixture {
	set := model.NewTaskSet(tasks)
	return fixture{tasks: tasks, set: set, forest: hierarchy.Build(set)}
}

func (f fixture) linearize(folds FoldSet, group GroupMode) []Row {
	return Linearize(f.forest, f.set, folds, Options{Group: group})
}

func (f fixture) names(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		if r.Kind == KindText {
			out[i] = "#" + r.Label
			continue
		}
		t, _ := f.set.Get(r.TaskID)
		out[i] = t.Description
	}
	return out
}

func assertNames(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func indices(rows []Row) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r.Index
	}
	return out
}

func TestLinearizeUrgencyOrder(t *testing.T) {
	f := newFixture(
		testutil.Task("u1", testutil.WithUrgency(1)),
		testutil.Task("u5", testutil.WithUrgency(5)),
		testutil.Task("u3", testutil.WithUrgency(3)),
		testutil.Task("u9", testutil.WithUrgency(9)),
		testutil.Task("u2", testutil.WithUrgency(2)),
	)
	rows := f.linearize(nil, GroupNone)
	assertNames(t, f.names(rows), []string{"u9", "u5", "u3", "u2", "u1"})
	testutil.AssertContiguous(t, indices(rows))
	for _, r := range rows {
		if r.Depth != 0 || r.Fold != NoChildren {
			t.Errorf("expected flat leaf rows, got %+v", r)
		}
	}
}

func TestLinearizeNestedPreOrder(t *testing.T) {
	// A -> {B, C}, C -> D, D -> E, plus sibling root F.
	f := newFixture(
		testutil.Task("A", testutil.WithUrgency(10)),
		testutil.Task("B", testutil.Under("A"), testutil.WithUrgency(5)),
		testutil.Task("C", testutil.Under("A"), testutil.WithUrgency(4)),
		testutil.Task("D", testutil.Under("C")),
		testutil.Task("E", testutil.Under("D")),
		testutil.Task("F", testutil.WithUrgency(1)),
	)
	rows := f.linearize(nil, GroupNone)
	assertNames(t, f.names(rows), []string{"A", "B", "C", "D", "E", "F"})
	wantDepth := []int{0, 1, 1, 2, 3, 0}
	wantFold := []FoldState{Open, NoChildren, Open, Open, NoChildren, NoChildren}
	wantSize := []int{4, 0, 2, 1, 0, 0}
	for i, r := range rows {
		if r.Depth != wantDepth[i] || r.Fold != wantFold[i] || r.Size != wantSize[i] {
			t.Errorf("row %d: expected depth=%d fold=%v size=%d, got %+v", i, wantDepth[i], wantFold[i], wantSize[i], r)
		}
	}
	testutil.AssertContiguous(t, indices(rows))
}

func TestLinearizeFoldedKeepsIndices(t *testing.T) {
	f := newFixture(
		testutil.Task("A", testutil.WithUrgency(10)),
		testutil.Task("B", testutil.Under("A"), testutil.WithUrgency(5)),
		testutil.Task("C", testutil.Under("A"), testutil.WithUrgency(4)),
		testutil.Task("D", testutil.Under("C")),
		testutil.Task("E", testutil.Under("D")),
		testutil.Task("F", testutil.WithUrgency(1)),
	)

	rows := f.linearize(NewFoldSet(2), GroupNone) // fold C
	assertNames(t, f.names(rows), []string{"A", "B", "C", "F"})
	if got := indices(rows); got[3] != 5 {
		t.Errorf("expected F to keep index 5, got %v", got)
	}
	if rows[2].Fold != Folded {
		t.Errorf("expected C folded, got %v", rows[2].Fold)
	}

	rows = f.linearize(NewFoldSet(0), GroupNone) // fold A
	assertNames(t, f.names(rows), []string{"A", "F"})
	if rows[1].Index != 5 || rows[1].Depth != 0 {
		t.Errorf("expected F at index 5 depth 0, got %+v", rows[1])
	}
}

func TestLinearizeFoldOnLeafIgnored(t *testing.T) {
	f := newFixture(testutil.Task("A"), testutil.Task("B"))
	rows := f.linearize(NewFoldSet(0, 1), GroupNone)
	for _, r := range rows {
		if r.Fold != NoChildren {
			t.Errorf("expected leaves to stay NoChildren, got %v", r.Fold)
		}
	}
}

func TestLinearizeGroupByStatus(t *testing.T) {
	f := newFixture(
		testutil.Task("done", testutil.WithStatus(model.StatusCompleted)),
		testutil.Task("p1", testutil.WithUrgency(2)),
		testutil.Task("p2", testutil.WithUrgency(8)),
		testutil.Task("wait", testutil.WithStatus(model.StatusWaiting)),
		// A completed child of a pending task stays with its parent.
		testutil.Task("p2child", testutil.Under("p2"), testutil.WithStatus(model.StatusCompleted)),
	)
	rows := f.linearize(nil, GroupByStatus)
	assertNames(t, f.names(rows), []string{
		"#Pending", "p2", "p2child", "p1",
		"#Waiting", "wait",
		"#Completed", "done",
	})
	testutil.AssertContiguous(t, indices(rows))

	wantDepth := []int{0, 1, 2, 1, 0, 1, 0, 1}
	for i, r := range rows {
		if r.Depth != wantDepth[i] {
			t.Errorf("row %d: expected depth %d, got %d", i, wantDepth[i], r.Depth)
		}
	}
	if rows[0].Size != 3 || rows[0].Fold != Open || rows[0].Status != model.StatusPending {
		t.Errorf("unexpected pending header %+v", rows[0])
	}
}

func TestLinearizeGroupFolded(t *testing.T) {
	f := newFixture(
		testutil.Task("p"),
		testutil.Task("d1", testutil.WithStatus(model.StatusDeleted)),
		testutil.Task("d2", testutil.WithStatus(model.StatusDeleted)),
	)
	all := f.linearize(nil, GroupByStatus)
	folds := DefaultFolds(all, []model.Status{model.StatusDeleted})
	if !folds.Has(2) || folds.Len() != 1 {
		t.Fatalf("expected the Deleted header (index 2) folded, got %v", folds.Indices())
	}
	rows := f.linearize(folds, GroupByStatus)
	assertNames(t, f.names(rows), []string{"#Pending", "p", "#Deleted"})
}

func TestLinearizeCycleTerminates(t *testing.T) {
	f := newFixture(
		testutil.Task("A", testutil.Under("B")),
		testutil.Task("B", testutil.Under("A")),
	)
	rows := f.linearize(nil, GroupNone)
	assertNames(t, f.names(rows), []string{"A", "B"})
	ids := []uuid.UUID{rows[0].TaskID, rows[1].TaskID}
	testutil.AssertExactlyOnce(t, f.tasks, ids)
}

func TestLinearizeDeepChainNoRecursion(t *testing.T) {
	tasks := testutil.NewDefault().Chain(20000)
	f := newFixture(tasks...)
	rows := f.linearize(nil, GroupNone)
	if len(rows) != 20000 {
		t.Fatalf("expected 20000 rows, got %d", len(rows))
	}
	if rows[19999].Depth != 19999 {
		t.Errorf("expected last depth 19999, got %d", rows[19999].Depth)
	}
}

func TestLinearizeEmpty(t *testing.T) {
	f := newFixture()
	if rows := f.linearize(nil, GroupByStatus); len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
}

func TestComparator(t *testing.T) {
	mk := func(desc string, s model.Status, u float64) *model.Task {
		task := testutil.Task(desc, testutil.WithStatus(s), testutil.WithUrgency(u))
		return &task
	}
	tests := []struct {
		name string
		a, b *model.Task
		want int
	}{
		{"status first", mk("x", model.StatusPending, 0), mk("y", model.StatusBlocked, 50), -1},
		{"deleted last", mk("x", model.StatusDeleted, 9), mk("y", model.StatusCompleted, 0), 1},
		{"urgency desc", mk("x", model.StatusPending, 9), mk("y", model.StatusPending, 1), -1},
		{"nan lowest", mk("x", model.StatusPending, math.NaN()), mk("y", model.StatusPending, -100), 1},
		{"nan vs nan by description", mk("b", model.StatusPending, math.NaN()), mk("a", model.StatusPending, math.NaN()), -1},
		{"description desc", mk("alpha", model.StatusPending, 1), mk("beta", model.StatusPending, 1), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ByStatusUrgency(tt.a, tt.b)
			if sign(got) != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
			if sign(ByStatusUrgency(tt.b, tt.a)) != -tt.want {
				t.Errorf("expected antisymmetric result")
			}
		})
	}
}

func TestComparatorTotalOnIdenticalKeys(t *testing.T) {
	a := testutil.Task("same", testutil.WithDescription("dup"))
	b := testutil.Task("other", testutil.WithDescription("dup"))
	if ByStatusUrgency(&a, &b) == 0 {
		t.Error("expected distinct tasks to never compare equal")
	}
	if ByStatusUrgency(&a, &a) != 0 {
		t.Error("expected a task to equal itself")
	}
}

func TestParseGroupMode(t *testing.T) {
	for in, want := range map[string]GroupMode{"": GroupNone, "none": GroupNone, "Status": GroupByStatus} {
		got, err := ParseGroupMode(in)
		if err != nil || got != want {
			t.Errorf("ParseGroupMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseGroupMode("project"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
