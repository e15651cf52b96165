package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/tasktree/pkg/model"
	"github.com/vanderheijden86/tasktree/pkg/rows"
)

// Row layout: [indent][glyph][mark] [id] [description] ... [project]
const (
	indentWidth  = 2
	markWidth    = 3
	idWidth      = 4
	projectWidth = 16
)

// Fold glyphs.
const (
	glyphFolded = "▸ "
	glyphOpen   = "▾ "
	glyphLeaf   = "  "
)

func foldGlyph(s rows.FoldState) string {
	switch s {
	case rows.Folded:
		return glyphFolded
	case rows.Open:
		return glyphOpen
	default:
		return glyphLeaf
	}
}

// rowRenderer draws single rows. The zero width means 80 columns.
type rowRenderer struct {
	theme Theme
	width int
}

// render draws one row. task is nil for group headers.
func (rr rowRenderer) render(row rows.Row, task *model.Task, selected bool) string {
	width := rr.width
	if width <= 0 {
		width = 80
	}
	// One cell short of the edge so the terminal never wraps.
	width--

	var left strings.Builder
	left.WriteString(strings.Repeat(" ", row.Depth*indentWidth))
	left.WriteString(rr.theme.Glyph.Render(foldGlyph(row.Fold)))
	used := row.Depth*indentWidth + lipgloss.Width(glyphLeaf)

	if !row.IsTask() {
		label := fmt.Sprintf("%s (%d)", row.Label, row.Size)
		left.WriteString(rr.theme.GroupRow.Render(truncateRunesHelper(label, width-used, "…")))
		return rr.finish(left.String(), "", width, selected)
	}

	if task == nil {
		left.WriteString(rr.theme.MutedText.Render("?"))
		return rr.finish(left.String(), "", width, selected)
	}

	left.WriteString(rr.mark(task))
	left.WriteString(" ")
	id := ""
	if task.ID > 0 {
		id = strconv.Itoa(task.ID)
	}
	left.WriteString(rr.theme.MutedText.Render(fmt.Sprintf("%*s", idWidth, id)))
	left.WriteString(" ")
	used += markWidth + 1 + idWidth + 1

	right := ""
	rightWidth := 0
	if width > 60 && task.Project != "" {
		right = truncateRunesHelper(task.Project, projectWidth, "…")
		rightWidth = lipgloss.Width(right) + 1
		right = rr.theme.MutedText.Render(right)
	}

	descWidth := width - used - rightWidth
	desc := truncateRunesHelper(task.Description, descWidth, "…")
	descStyle := rr.theme.Base
	if task.Status.IsClosed() {
		descStyle = descStyle.Foreground(rr.theme.StatusColor(task.Status))
	}
	left.WriteString(descStyle.Render(desc))

	return rr.finish(left.String(), right, width, selected)
}

// mark returns the three-cell status column.
func (rr rowRenderer) mark(task *model.Task) string {
	if task.Status != model.StatusPending {
		m := statusMark(task.Status)
		return rr.theme.Renderer.NewStyle().
			Foreground(rr.theme.StatusColor(task.Status)).
			Render(padRight(m, markWidth))
	}
	blocks := urgencyBlocks(task.Urgency)
	color := rr.theme.UrgencyLow
	switch {
	case task.Urgency > urgencyHigh:
		color = rr.theme.UrgencyHigh
	case task.Urgency > urgencyMid:
		color = rr.theme.UrgencyMid
	}
	return rr.theme.Renderer.NewStyle().Foreground(color).Render(padRight(blocks, markWidth))
}

func (rr rowRenderer) finish(left, right string, width int, selected bool) string {
	pad := width - lipgloss.Width(left) - lipgloss.Width(right)
	if pad < 0 {
		pad = 0
	}
	line := left + strings.Repeat(" ", pad) + right
	// MaxWidth cuts instead of wrapping when cell widths disagree.
	style := rr.theme.Renderer.NewStyle().MaxWidth(width)
	if selected {
		style = rr.theme.Selected.MaxWidth(width)
	}
	return style.Render(line)
}

// renderPositionIndicator shows "start-end of total" for scrolled lists.
func (rr rowRenderer) renderPositionIndicator(start, end, total int) string {
	return rr.theme.MutedText.Render(fmt.Sprintf(" %d-%d of %d", start+1, end, total))
}

// renderEmptyState is shown when the snapshot has no rows.
func (rr rowRenderer) renderEmptyState(source string) string {
	var sb strings.Builder
	sb.WriteString(rr.theme.GroupRow.Render("No tasks"))
	sb.WriteString("\n\n")
	if source != "" {
		sb.WriteString(rr.theme.MutedText.Render("Source: " + source))
		sb.WriteString("\n")
	}
	sb.WriteString(rr.theme.MutedText.Render("Add one with `task add`, or press r to reload."))
	return sb.String()
}
