package testutil

import (
	"testing"

	"github.com/google/uuid"

	"github.com/vanderheijden86/tasktree/pkg/model"
)

// AssertTaskCount fails if len(tasks) != expected.
func AssertTaskCount(t *testing.T, tasks []model.Task, expected int) {
	t.Helper()
	if len(tasks) != expected {
		t.Errorf("expected %d tasks, got %d", expected, len(tasks))
	}
}

// AssertExactlyOnce fails unless seen contains every task UUID once and
// nothing else.
func AssertExactlyOnce(t *testing.T, tasks []model.Task, seen []uuid.UUID) {
	t.Helper()
	count := make(map[uuid.UUID]int, len(seen))
	for _, id := range seen {
		count[id]++
	}
	for _, task := range tasks {
		switch c := count[task.UUID]; c {
		case 1:
		case 0:
			t.Errorf("task %s (%s) missing", task.Description, task.UUID)
		default:
			t.Errorf("task %s (%s) seen %d times", task.Description, task.UUID, c)
		}
		delete(count, task.UUID)
	}
	for id := range count {
		t.Errorf("unexpected id %s", id)
	}
}

// AssertContiguous fails unless indices are exactly 0..len-1 in order.
func AssertContiguous(t *testing.T, indices []int) {
	t.Helper()
	for i, idx := range indices {
		if idx != i {
			t.Fatalf("expected index %d at position %d, got %d (all: %v)", i, i, idx, indices)
		}
	}
}

// DescriptionsOf resolves ids to descriptions, for readable failures.
func DescriptionsOf(tasks []model.Task, ids []uuid.UUID) []string {
	byID := make(map[uuid.UUID]string, len(tasks))
	for _, t := range tasks {
		byID[t.UUID] = t.Description
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = byID[id]
	}
	return out
}
