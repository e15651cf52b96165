package ui

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/tasktree/pkg/model"
)

// now is swapped out in tests.
var now = time.Now

// FormatTimeRel returns a relative time such as "3 days ago" or
// "2 hours from now".
func FormatTimeRel(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return humanize.RelTime(t, now(), "ago", "from now")
}

// truncateRunesHelper truncates s to maxWidth terminal cells, adding
// suffix when something was cut. Wide characters count as two cells.
func truncateRunesHelper(s string, maxWidth int, suffix string) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	suffixWidth := runewidth.StringWidth(suffix)
	if suffixWidth > maxWidth {
		return runewidth.Truncate(suffix, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth-suffixWidth, "") + suffix
}

// padRight pads s with spaces to width cells.
func padRight(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// Urgency thresholds for the block column.
const (
	urgencyHigh = 9.0
	urgencyMid  = 6.0
	urgencyLow  = 3.0
)

// urgencyBlocks returns ◼◼◼, ◼◼, ◼ or "" for an urgency score.
func urgencyBlocks(u float64) string {
	switch {
	case u > urgencyHigh:
		return "◼◼◼"
	case u > urgencyMid:
		return "◼◼"
	case u > urgencyLow:
		return "◼"
	default:
		return ""
	}
}

// statusMark is the single-cell marker shown for tasks that are not
// pending.
func statusMark(s model.Status) string {
	switch s {
	case model.StatusBlocked:
		return "⊘"
	case model.StatusWaiting:
		return "…"
	case model.StatusRecurring:
		return "↻"
	case model.StatusCompleted:
		return "✓"
	case model.StatusDeleted:
		return "✗"
	default:
		return ""
	}
}
