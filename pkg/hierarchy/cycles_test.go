package hierarchy

import (
	"testing"

	"github.com/vanderheijden86/tasktree/pkg/model"
	"github.com/vanderheijden86/tasktree/pkg/testutil"
)

func TestFindCyclesNone(t *testing.T) {
	set := model.NewTaskSet(testutil.NewDefault().Tree(3, 3))
	if cycles := FindCycles(set); len(cycles) != 0 {
		t.Errorf("expected no cycles, got %v", cycles)
	}
}

func TestFindCyclesMatchesBuild(t *testing.T) {
	tasks := []model.Task{
		testutil.Task("A", testutil.Under("B")),
		testutil.Task("B", testutil.Under("A")),
		testutil.Task("C", testutil.Under("D")),
		testutil.Task("D", testutil.Under("E")),
		testutil.Task("E", testutil.Under("C")),
		testutil.Task("self", testutil.Under("self")),
		testutil.Task("below", testutil.Under("A")),
		testutil.Task("fine"),
	}
	set := model.NewTaskSet(tasks)

	cycles := FindCycles(set)
	if len(cycles) != 3 {
		t.Fatalf("expected 3 cycles, got %d: %v", len(cycles), cycles)
	}
	sizes := map[int]int{}
	for _, c := range cycles {
		sizes[len(c)]++
	}
	if sizes[1] != 1 || sizes[2] != 1 || sizes[3] != 1 {
		t.Errorf("expected cycles of size 1, 2 and 3, got %v", sizes)
	}

	f := Build(set)
	if len(f.Cycles) != len(cycles) {
		t.Errorf("expected Build to cut %d cycles, cut %d", len(cycles), len(f.Cycles))
	}
}
