package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/tasktree/pkg/config"
	"github.com/vanderheijden86/tasktree/pkg/model"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// Theme holds the dashboard colors and the styles built from them.
type Theme struct {
	Renderer *lipgloss.Renderer

	// Roles
	Border lipgloss.AdaptiveColor
	Text   lipgloss.AdaptiveColor
	Fold   lipgloss.AdaptiveColor
	Cursor lipgloss.AdaptiveColor
	Muted  lipgloss.AdaptiveColor
	Error  lipgloss.AdaptiveColor

	// Status
	Pending   lipgloss.AdaptiveColor
	Blocked   lipgloss.AdaptiveColor
	Waiting   lipgloss.AdaptiveColor
	Recurring lipgloss.AdaptiveColor
	Completed lipgloss.AdaptiveColor
	Deleted   lipgloss.AdaptiveColor

	// Urgency blocks
	UrgencyHigh lipgloss.AdaptiveColor
	UrgencyMid  lipgloss.AdaptiveColor
	UrgencyLow  lipgloss.AdaptiveColor

	// Styles, rebuilt by build() whenever colors change.
	Base      lipgloss.Style
	Selected  lipgloss.Style
	Header    lipgloss.Style
	GroupRow  lipgloss.Style
	Glyph     lipgloss.Style
	MutedText lipgloss.Style
	ErrorText lipgloss.Style
	Pane      lipgloss.Style
}

// DefaultTheme returns the built-in adaptive theme.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Border: lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Text:   lipgloss.AdaptiveColor{Light: "#1F1F1F", Dark: "#F8F8F2"},
		Fold:   lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"},
		Cursor: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:  lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Error:  lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},

		Pending:   lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"},
		Blocked:   lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},
		Waiting:   lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"},
		Recurring: lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Completed: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Deleted:   lipgloss.AdaptiveColor{Light: "#888888", Dark: "#44475A"},

		UrgencyHigh: lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},
		UrgencyMid:  lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"},
		UrgencyLow:  lipgloss.AdaptiveColor{Light: "#7A5600", Dark: "#F1FA8C"},
	}
	t.build()
	return t
}

// WithFile returns a copy of t with the colors set in tf. A file color is
// used for both light and dark backgrounds.
func (t Theme) WithFile(tf config.ThemeFile) Theme {
	set := func(dst *lipgloss.AdaptiveColor, hex string) {
		if hex != "" {
			*dst = lipgloss.AdaptiveColor{Light: hex, Dark: hex}
		}
	}
	set(&t.Border, tf.Border)
	set(&t.Text, tf.Text)
	set(&t.Fold, tf.Fold)
	set(&t.Cursor, tf.Cursor)
	set(&t.Pending, tf.Status.Pending)
	set(&t.Blocked, tf.Status.Blocked)
	set(&t.Waiting, tf.Status.Waiting)
	set(&t.Recurring, tf.Status.Recurring)
	set(&t.Completed, tf.Status.Completed)
	set(&t.Deleted, tf.Status.Deleted)
	t.build()
	return t
}

func (t *Theme) build() {
	r := t.Renderer
	t.Base = r.NewStyle().Foreground(t.Text)
	t.Selected = r.NewStyle().Bold(true)
	if TermProfile < colorprofile.ANSI256 {
		// A 16-color cursor background is usually unreadable.
		t.Selected = t.Selected.Reverse(true)
	} else {
		t.Selected = t.Selected.Background(t.Cursor)
	}
	t.Header = r.NewStyle().
		Foreground(t.Fold).
		Bold(true).
		Padding(0, 1)
	t.GroupRow = r.NewStyle().Foreground(t.Fold).Bold(true)
	t.Glyph = r.NewStyle().Foreground(t.Fold)
	t.MutedText = r.NewStyle().Foreground(t.Muted)
	t.ErrorText = r.NewStyle().Foreground(t.Error).Bold(true)
	t.Pane = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border)
}

// StatusColor returns the color for a task status.
func (t Theme) StatusColor(s model.Status) lipgloss.AdaptiveColor {
	switch s {
	case model.StatusPending:
		return t.Pending
	case model.StatusBlocked:
		return t.Blocked
	case model.StatusWaiting:
		return t.Waiting
	case model.StatusRecurring:
		return t.Recurring
	case model.StatusCompleted:
		return t.Completed
	case model.StatusDeleted:
		return t.Deleted
	default:
		return t.Muted
	}
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
