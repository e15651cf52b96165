package model

import (
	"errors"
	"fmt"
	"math"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func id(name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name))
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"pending", StatusPending, false},
		{"Completed", StatusCompleted, false},
		{"  deleted ", StatusDeleted, false},
		{"recurring", StatusRecurring, false},
		{"waiting", StatusWaiting, false},
		{"blocked", StatusBlocked, false},
		{"open", StatusPending, true},
		{"", StatusPending, true},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStatus(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStatus(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStatusOrder(t *testing.T) {
	all := AllStatuses()
	for i := 1; i < len(all); i++ {
		if all[i-1] >= all[i] {
			t.Fatalf("statuses out of order: %v before %v", all[i-1], all[i])
		}
	}
	if StatusDeleted.Title() != "Deleted" {
		t.Errorf("expected Deleted, got %q", StatusDeleted.Title())
	}
	if Status(42).IsValid() {
		t.Error("expected status 42 to be invalid")
	}
}

func TestTaskSetDuplicatesKeepPosition(t *testing.T) {
	a, b := id("a"), id("b")
	set := NewTaskSet([]Task{
		{UUID: a, Description: "first"},
		{UUID: b, Description: "b"},
		{UUID: a, Description: "second"},
	})
	if set.Len() != 2 {
		t.Fatalf("expected 2 tasks, got %d", set.Len())
	}
	if set.At(0).UUID != a || set.At(0).Description != "second" {
		t.Errorf("expected later duplicate to replace earlier in place, got %+v", set.At(0))
	}
	if _, ok := set.Get(id("missing")); ok {
		t.Error("expected lookup of missing id to fail")
	}
}

func TestTaskSetNilSafe(t *testing.T) {
	var set *TaskSet
	if set.Len() != 0 || set.Has(id("a")) {
		t.Error("nil set should be empty")
	}
	if set.Tasks() != nil {
		t.Error("nil set should return nil tasks")
	}
}

func TestResolveBlocked(t *testing.T) {
	a, b, c := id("a"), id("b"), id("c")
	tasks := []Task{
		{UUID: a, Status: StatusPending, Depends: []uuid.UUID{b}},
		{UUID: b, Status: StatusPending},
		{UUID: c, Status: StatusPending, Depends: []uuid.UUID{id("gone")}},
	}
	ResolveBlocked(tasks)
	if tasks[0].Status != StatusBlocked {
		t.Errorf("expected a blocked, got %v", tasks[0].Status)
	}
	if tasks[2].Status != StatusPending {
		t.Errorf("expected dependency outside the snapshot to be ignored, got %v", tasks[2].Status)
	}

	tasks[1].Status = StatusCompleted
	tasks[0].Status = StatusPending
	ResolveBlocked(tasks)
	if tasks[0].Status != StatusPending {
		t.Errorf("expected completed dependency not to block, got %v", tasks[0].Status)
	}
}

func TestEstimateUrgency(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	overdue := now.Add(-10 * 24 * time.Hour)

	plain := &Task{Status: StatusPending, Entry: now}
	if got := EstimateUrgency(plain, false, now); got != 0 {
		t.Errorf("expected 0 for a fresh plain task, got %v", got)
	}

	busy := &Task{
		Status:   StatusPending,
		Entry:    now,
		Due:      &overdue,
		Priority: "H",
		Tags:     []string{"next"},
		Project:  "home",
	}
	// next 15 + due 12 + H 6 + one tag 0.8 + project 1
	if got := EstimateUrgency(busy, false, now); math.Abs(got-34.8) > 0.001 {
		t.Errorf("expected 34.8, got %v", got)
	}
	if got := EstimateUrgency(busy, true, now); math.Abs(got-42.8) > 0.001 {
		t.Errorf("expected blocking to add 8, got %v", got)
	}

	done := &Task{Status: StatusCompleted, Priority: "H"}
	if got := EstimateUrgency(done, false, now); got != 0 {
		t.Errorf("expected closed task to have 0 urgency, got %v", got)
	}
}

func TestSourceErrorMatching(t *testing.T) {
	cause := os.ErrNotExist
	err := fmt.Errorf("refresh: %w", NewSourceError(ProcessInvocationFailed, "task export", cause))

	if !errors.Is(err, ErrProcessInvocationFailed) {
		t.Error("expected ErrProcessInvocationFailed to match")
	}
	if errors.Is(err, ErrMalformedPayload) {
		t.Error("did not expect ErrMalformedPayload to match")
	}
	var se *SourceError
	if !errors.As(err, &se) || se.Op != "task export" {
		t.Fatalf("expected *SourceError with op, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("expected the cause to stay reachable")
	}

	bad := NewSourceError(MalformedPayload, "parse export", nil)
	if !errors.Is(bad, ErrMalformedPayload) {
		t.Error("expected ErrMalformedPayload to match")
	}
	if bad.Error() != "parse export: malformed payload" {
		t.Errorf("unexpected message %q", bad.Error())
	}
}
