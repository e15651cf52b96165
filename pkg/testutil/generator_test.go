package testutil

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/tasktree/pkg/model"
)

func TestChain(t *testing.T) {
	gen := NewDefault()
	tasks := gen.Chain(5)
	AssertTaskCount(t, tasks, 5)
	if tasks[0].Parent != nil {
		t.Error("expected chain head to have no parent")
	}
	for i := 1; i < len(tasks); i++ {
		if tasks[i].Parent == nil || *tasks[i].Parent != tasks[i-1].UUID {
			t.Errorf("expected task %d under task %d", i, i-1)
		}
	}
}

func TestTreeSize(t *testing.T) {
	tests := []struct {
		depth, breadth, want int
	}{
		{1, 1, 2},
		{1, 3, 4},
		{2, 2, 7},
		{3, 2, 15},
	}
	for _, tt := range tests {
		tasks := NewDefault().Tree(tt.depth, tt.breadth)
		if len(tasks) != tt.want {
			t.Errorf("Tree(%d, %d): expected %d tasks, got %d", tt.depth, tt.breadth, tt.want, len(tasks))
		}
	}
}

func TestCycleEveryTaskHasParent(t *testing.T) {
	tasks := NewDefault().Cycle(3)
	for _, task := range tasks {
		if task.Parent == nil {
			t.Fatalf("expected every cycle member to have a parent")
		}
	}
	if *tasks[2].Parent != tasks[0].UUID {
		t.Error("expected the last task to point back to the first")
	}
}

func TestForestParentsPrecedeChildren(t *testing.T) {
	tasks := New(GeneratorConfig{Seed: 7, ParentProb: 0.9}).Forest(50)
	pos := make(map[string]int)
	for i, task := range tasks {
		pos[task.UUID.String()] = i
	}
	for i, task := range tasks {
		if task.Parent == nil {
			continue
		}
		if p := pos[task.Parent.String()]; p >= i {
			t.Errorf("task %d has parent at %d", i, p)
		}
	}
}

func TestDeterministic(t *testing.T) {
	a := New(GeneratorConfig{Seed: 3}).Forest(20)
	b := New(GeneratorConfig{Seed: 3}).Forest(20)
	for i := range a {
		if a[i].Description != b[i].Description || a[i].Urgency != b[i].Urgency {
			t.Fatalf("expected identical output for the same seed at %d", i)
		}
	}
}

func TestToExportJSON(t *testing.T) {
	tasks := []model.Task{
		Task("root"),
		Task("child", Under("root"), WithStatus(model.StatusBlocked)),
	}
	out := ToExportJSON(tasks, "sub_of")
	if !strings.HasPrefix(out, "[") {
		t.Fatalf("expected a JSON array, got %s", out)
	}
	if !strings.Contains(out, `"sub_of":"`+ID("root").String()+`"`) {
		t.Errorf("expected parent link in sub_of, got %s", out)
	}
	if strings.Contains(out, "blocked") {
		t.Errorf("expected blocked to export as pending, got %s", out)
	}
}
