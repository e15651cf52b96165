package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/vanderheijden86/tasktree/pkg/model"
)

// lookupFunc resolves a UUID to a task of the current snapshot.
type lookupFunc func(id uuid.UUID) (*model.Task, bool)

// TaskMarkdown renders a task as markdown for the detail pane.
func TaskMarkdown(t *model.Task, lookup lookupFunc) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", escapeMD(t.Description))

	sb.WriteString("| UUID | Status | Urgency | Entry |\n|---|---|---|---|\n")
	fmt.Fprintf(&sb, "| `%s` | **%s** | %s | %s |\n\n",
		t.ShortUUID(),
		strings.ToUpper(t.Status.String()),
		humanize.FtoaWithDigits(t.Urgency, 2),
		FormatTimeRel(t.Entry),
	)

	if t.ID > 0 {
		fmt.Fprintf(&sb, "**ID:** %d  \n", t.ID)
	}
	if t.Project != "" {
		fmt.Fprintf(&sb, "**Project:** %s  \n", escapeMD(t.Project))
	}
	if t.Priority != "" {
		fmt.Fprintf(&sb, "**Priority:** %s  \n", t.Priority)
	}
	if len(t.Tags) > 0 {
		tags := make([]string, len(t.Tags))
		for i, tag := range t.Tags {
			tags[i] = "+" + tag
		}
		fmt.Fprintf(&sb, "**Tags:** %s  \n", strings.Join(tags, " "))
	}
	writeDate(&sb, "Due", t.Due)
	writeDate(&sb, "Wait", t.Wait)
	writeDate(&sb, "Started", t.Start)
	writeDate(&sb, "Ended", t.End)
	if !t.Modified.IsZero() {
		fmt.Fprintf(&sb, "**Modified:** %s  \n", FormatTimeRel(t.Modified))
	}

	if t.Parent != nil {
		sb.WriteString("\n### Parent\n")
		sb.WriteString(taskRef(*t.Parent, lookup))
	}

	if len(t.Depends) > 0 {
		fmt.Fprintf(&sb, "\n### Depends on (%d)\n", len(t.Depends))
		for _, dep := range t.Depends {
			sb.WriteString(taskRef(dep, lookup))
		}
	}

	if len(t.Annotations) > 0 {
		fmt.Fprintf(&sb, "\n### Annotations (%d)\n", len(t.Annotations))
		for _, a := range t.Annotations {
			fmt.Fprintf(&sb, "> **%s**  \n> %s\n\n",
				FormatTimeRel(a.Entry),
				strings.ReplaceAll(a.Description, "\n", "\n> "))
		}
	}

	if len(t.UDAs) > 0 {
		keys := make([]string, 0, len(t.UDAs))
		for k := range t.UDAs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("\n### Attributes\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "- `%s`: %v\n", k, t.UDAs[k])
		}
	}

	return sb.String()
}

func writeDate(sb *strings.Builder, label string, ts *time.Time) {
	if ts == nil {
		return
	}
	fmt.Fprintf(sb, "**%s:** %s (%s)  \n", label, ts.Local().Format("2006-01-02 15:04"), FormatTimeRel(*ts))
}

func taskRef(id uuid.UUID, lookup lookupFunc) string {
	if lookup != nil {
		if t, ok := lookup(id); ok {
			return fmt.Sprintf("- `%s` %s (%s)\n", t.ShortUUID(), escapeMD(t.Description), t.Status)
		}
	}
	return fmt.Sprintf("- `%s` (not loaded)\n", id.String()[:8])
}

var mdEscaper = strings.NewReplacer(`|`, `\|`, "`", "\\`", `*`, `\*`, `_`, `\_`)

func escapeMD(s string) string {
	return mdEscaper.Replace(s)
}

// newMarkdownRenderer returns a glamour renderer wrapped at width.
func newMarkdownRenderer(width int) (*glamour.TermRenderer, error) {
	if width < 20 {
		width = 20
	}
	return glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
}
