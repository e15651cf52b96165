// Package model defines the task records shown by tt.
//
// Records mirror Taskwarrior's export format. They are read-only: every
// source produces a fresh snapshot and nothing in tt writes back.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is a task's lifecycle state. The numeric order is the display
// order used when grouping and sorting.
type Status int

const (
	StatusPending Status = iota
	StatusBlocked
	StatusWaiting
	StatusRecurring
	StatusCompleted
	StatusDeleted
)

var statusNames = [...]string{
	StatusPending:   "pending",
	StatusBlocked:   "blocked",
	StatusWaiting:   "waiting",
	StatusRecurring: "recurring",
	StatusCompleted: "completed",
	StatusDeleted:   "deleted",
}

// AllStatuses returns every status in display order.
func AllStatuses() []Status {
	return []Status{
		StatusPending,
		StatusBlocked,
		StatusWaiting,
		StatusRecurring,
		StatusCompleted,
		StatusDeleted,
	}
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

// Title returns the capitalized name used for group headers.
func (s Status) Title() string {
	name := s.String()
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	return s >= StatusPending && s <= StatusDeleted
}

// IsClosed reports whether the task no longer needs work.
func (s Status) IsClosed() bool {
	return s == StatusCompleted || s == StatusDeleted
}

// ParseStatus maps a Taskwarrior status name to a Status.
func ParseStatus(name string) (Status, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return StatusPending, fmt.Errorf("unknown status %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("invalid status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Annotation is a timestamped note attached to a task.
type Annotation struct {
	Entry       time.Time `json:"entry"`
	Description string    `json:"description"`
}

// Task is one Taskwarrior task.
type Task struct {
	ID          int         `json:"id"` // working-set id, 0 for closed tasks
	UUID        uuid.UUID   `json:"uuid"`
	Description string      `json:"description"`
	Status      Status      `json:"status"`
	Urgency     float64     `json:"urgency"`
	Entry       time.Time   `json:"entry"`
	Modified    time.Time   `json:"modified"`
	Due         *time.Time  `json:"due,omitempty"`
	Start       *time.Time  `json:"start,omitempty"`
	End         *time.Time  `json:"end,omitempty"`
	Wait        *time.Time  `json:"wait,omitempty"`
	Project     string      `json:"project,omitempty"`
	Priority    string      `json:"priority,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	Depends     []uuid.UUID `json:"depends,omitempty"`

	// Parent links the task into the hierarchy. It is read from the
	// configured parent attribute (sub_of by default), not from
	// Taskwarrior's recurrence parent.
	Parent *uuid.UUID `json:"parent,omitempty"`

	// Recur is the recurrence template this task was generated from.
	Recur *uuid.UUID `json:"recur,omitempty"`

	Annotations []Annotation   `json:"annotations,omitempty"`
	UDAs        map[string]any `json:"udas,omitempty"`
}

// ShortUUID returns the first eight characters of the UUID, the form
// Taskwarrior prints in reports.
func (t *Task) ShortUUID() string {
	return t.UUID.String()[:8]
}

// HasTag reports whether the task carries tag.
func (t *Task) HasTag(tag string) bool {
	for _, existing := range t.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}

// IsActive reports whether the task has been started and not finished.
func (t *Task) IsActive() bool {
	return t.Start != nil && t.End == nil && !t.Status.IsClosed()
}
