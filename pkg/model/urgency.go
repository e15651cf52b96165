package model

import (
	"math"
	"time"
)

// Urgency coefficients, taken from Taskwarrior's defaults
// (rc.urgency.*.coefficient).
const (
	urgencyNext        = 15.0
	urgencyDue         = 12.0
	urgencyBlocking    = 8.0
	urgencyPriorityH   = 6.0
	urgencyPriorityM   = 3.9
	urgencyPriorityL   = 1.8
	urgencyScheduled   = 5.0
	urgencyActive      = 4.0
	urgencyAge         = 2.0
	urgencyAnnotations = 1.0
	urgencyTags        = 1.0
	urgencyProject     = 1.0
	urgencyWaiting     = -3.0
	urgencyBlocked     = -5.0

	urgencyAgeMax = 365.0 // days
)

// EstimateUrgency computes the Taskwarrior urgency of t as of now.
// Sources that already carry urgency (task export) do not need it; the
// sqlite replica stores no urgency at all.
func EstimateUrgency(t *Task, blocking bool, now time.Time) float64 {
	if t.Status.IsClosed() {
		return 0
	}

	u := 0.0
	if t.HasTag("next") {
		u += urgencyNext
	}
	if t.Due != nil {
		u += urgencyDue * dueFactor(*t.Due, now)
	}
	if blocking {
		u += urgencyBlocking
	}
	switch t.Priority {
	case "H":
		u += urgencyPriorityH
	case "M":
		u += urgencyPriorityM
	case "L":
		u += urgencyPriorityL
	}
	if _, ok := t.UDAs["scheduled"]; ok {
		u += urgencyScheduled
	}
	if t.IsActive() {
		u += urgencyActive
	}
	if !t.Entry.IsZero() {
		age := now.Sub(t.Entry).Hours() / 24
		u += urgencyAge * math.Min(math.Max(age, 0)/urgencyAgeMax, 1)
	}
	u += urgencyAnnotations * countFactor(len(t.Annotations))
	u += urgencyTags * countFactor(len(t.Tags))
	if t.Project != "" {
		u += urgencyProject
	}
	if t.Status == StatusWaiting {
		u += urgencyWaiting
	}
	if t.Status == StatusBlocked {
		u += urgencyBlocked
	}
	return math.Round(u*1000) / 1000
}

// dueFactor maps the distance to the due date onto [0.2, 1.0]: overdue
// by a week or more is 1.0, due in two weeks or more is 0.2.
func dueFactor(due, now time.Time) float64 {
	days := now.Sub(due).Hours() / 24
	switch {
	case days >= 7:
		return 1.0
	case days >= -14:
		return ((days+14)*0.8)/21 + 0.2
	default:
		return 0.2
	}
}

func countFactor(n int) float64 {
	switch {
	case n >= 3:
		return 1.0
	case n == 2:
		return 0.9
	case n == 1:
		return 0.8
	default:
		return 0
	}
}
