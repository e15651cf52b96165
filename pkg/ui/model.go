// Package ui is the terminal dashboard: a Bubble Tea model that shows a
// tasklist.List, refreshes it from a task source and reacts to keys.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/tasktree/internal/datasource"
	"github.com/vanderheijden86/tasktree/pkg/debug"
	"github.com/vanderheijden86/tasktree/pkg/hierarchy"
	"github.com/vanderheijden86/tasktree/pkg/metrics"
	"github.com/vanderheijden86/tasktree/pkg/model"
	"github.com/vanderheijden86/tasktree/pkg/tasklist"
	"github.com/vanderheijden86/tasktree/pkg/watcher"
)

// TasksLoadedMsg carries the result of one fetch.
type TasksLoadedMsg struct {
	Tasks []model.Task
	Err   error
	Took  time.Duration
}

// FileChangedMsg is sent when the task data changes on disk.
type FileChangedMsg struct{}

// FetchCmd fetches a snapshot off the UI goroutine.
func FetchCmd(ctx context.Context, src datasource.Source) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		done := metrics.TimerWithCallback(metrics.Fetch, func(d time.Duration) {
			debug.LogTiming("fetch", d)
		})
		tasks, err := src.Fetch(ctx)
		done()
		return TasksLoadedMsg{Tasks: tasks, Err: err, Took: time.Since(start)}
	}
}

// WatchFileCmd waits for the next change notification.
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

// Options configures the dashboard.
type Options struct {
	List       tasklist.Options
	Watcher    *watcher.Watcher // nil disables automatic refresh
	Theme      *Theme           // nil means DefaultTheme
	ShowDetail bool
}

// Model is the dashboard's Bubble Tea model.
type Model struct {
	ctx     context.Context
	src     datasource.Source
	list    *tasklist.List
	watcher *watcher.Watcher

	// all is the last fetched snapshot before the text filter.
	all   []model.Task
	query string

	keys      KeyMap
	help      help.Model
	filter    textinput.Model
	filtering bool
	showHelp  bool

	showDetail bool
	detail     viewport.Model
	md         *glamour.TermRenderer
	mdWidth    int

	theme  Theme
	width  int
	height int

	loading       bool
	loadedOnce    bool
	statusMsg     string
	statusIsError bool
	cycleWarned   bool

	copyText func(string) error
}

// NewModel returns a dashboard reading from src. The first fetch starts
// in Init.
func NewModel(ctx context.Context, src datasource.Source, opts Options) Model {
	theme := DefaultTheme(lipgloss.DefaultRenderer())
	if opts.Theme != nil {
		theme = *opts.Theme
	}

	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "words in description, project or tags"
	ti.CharLimit = 200

	h := help.New()
	h.Styles.ShortKey = theme.GroupRow
	h.Styles.FullKey = theme.GroupRow

	m := Model{
		ctx:        ctx,
		src:        src,
		list:       tasklist.New(opts.List),
		watcher:    opts.Watcher,
		keys:       DefaultKeyMap(),
		help:       h,
		filter:     ti,
		showDetail: opts.ShowDetail,
		detail:     viewport.New(0, 0),
		theme:      theme,
		width:      80,
		height:     24,
		loading:    true,
		copyText:   clipboard.WriteAll,
	}
	m.layout()
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{FetchCmd(m.ctx, m.src)}
	if m.watcher != nil {
		cmds = append(cmds, WatchFileCmd(m.watcher))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.syncDetail()
		return m, nil

	case TasksLoadedMsg:
		m.applyLoaded(msg)
		return m, nil

	case FileChangedMsg:
		debug.Log("ui: data changed, refreshing")
		m.loading = true
		cmds := []tea.Cmd{FetchCmd(m.ctx, m.src)}
		if m.watcher != nil {
			cmds = append(cmds, WatchFileCmd(m.watcher))
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		if m.filtering {
			return m.handleFilterKeys(msg)
		}
		return m.handleKeys(msg)
	}

	if m.showDetail {
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) applyLoaded(msg TasksLoadedMsg) {
	m.loading = false
	if msg.Err != nil {
		// The previous rows stay on screen.
		m.setError(fmt.Sprintf("refresh failed: %v", msg.Err))
		return
	}

	if m.loadedOnce {
		diff := datasource.DiffSnapshots(m.all, msg.Tasks, "before", "after", datasource.DefaultDiffOptions())
		m.setStatus(fmt.Sprintf("Reloaded in %s: %s", formatReloadDuration(msg.Took), diff.Short()))
	} else {
		m.setStatus(fmt.Sprintf("Loaded %d tasks from %s", len(msg.Tasks), m.src.Describe()))
	}
	m.all = msg.Tasks
	m.loadedOnce = true
	m.rebuild()
}

// rebuild refreshes the list from the filtered snapshot.
func (m *Model) rebuild() {
	err := m.list.Refresh(filterTasks(m.all, m.query))
	if err != nil {
		if !errors.Is(err, hierarchy.ErrCyclicHierarchy) {
			m.setError(err.Error())
		} else if !m.cycleWarned {
			m.cycleWarned = true
			m.setError(fmt.Sprintf("%v (%d cut, see `tt check`)", err, len(m.list.Forest().Cycles)))
		}
	}
	m.layout()
	m.syncDetail()
}

func (m Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	h := m.list.Height()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Escape):
		switch {
		case m.showHelp:
			m.showHelp = false
			m.layout()
		case m.query != "":
			m.query = ""
			m.rebuild()
		case m.showDetail:
			m.showDetail = false
			m.layout()
		}
		return m, nil
	case key.Matches(msg, m.keys.Up):
		m.list.MoveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.list.MoveCursor(1)
	case key.Matches(msg, m.keys.HalfDown):
		m.list.MoveCursor(max(1, h/2))
	case key.Matches(msg, m.keys.HalfUp):
		m.list.MoveCursor(-max(1, h/2))
	case key.Matches(msg, m.keys.PageDown):
		m.list.MoveCursor(max(1, h))
	case key.Matches(msg, m.keys.PageUp):
		m.list.MoveCursor(-max(1, h))
	case key.Matches(msg, m.keys.Top):
		m.list.MoveTo(0)
	case key.Matches(msg, m.keys.Bottom):
		m.list.MoveTo(m.list.Len() - 1)
	case key.Matches(msg, m.keys.Toggle):
		m.list.ToggleFold()
	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		m.setStatus("Refreshing…")
		return m, FetchCmd(m.ctx, m.src)
	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		m.filter.SetValue(m.query)
		m.filter.CursorEnd()
		cmd := m.filter.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.Detail):
		m.showDetail = !m.showDetail
		m.layout()
	case key.Matches(msg, m.keys.Yank):
		m.yankSelected()
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		m.layout()
		return m, nil
	default:
		if m.showDetail {
			var cmd tea.Cmd
			m.detail, cmd = m.detail.Update(msg)
			return m, cmd
		}
		return m, nil
	}
	m.syncDetail()
	return m, nil
}

func (m Model) handleFilterKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.filtering = false
		m.filter.Blur()
		m.query = strings.TrimSpace(m.filter.Value())
		m.rebuild()
		return m, nil
	case tea.KeyEsc:
		m.filtering = false
		m.filter.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	return m, cmd
}

func (m *Model) yankSelected() {
	_, task, ok := m.list.Selected()
	if !ok || task == nil {
		m.setError("No task selected")
		return
	}
	if err := m.copyText(task.UUID.String()); err != nil {
		m.setError(fmt.Sprintf("Clipboard error: %v", err))
		return
	}
	m.setStatus(fmt.Sprintf("Copied %s to clipboard", task.UUID))
}

func (m *Model) setStatus(s string) {
	m.statusMsg = s
	m.statusIsError = false
}

func (m *Model) setError(s string) {
	m.statusMsg = s
	m.statusIsError = true
}

// footerHeight is the number of lines below the rows.
func (m Model) footerHeight() int {
	if m.showHelp {
		return 1 + lipgloss.Height(m.help.View(m.keys))
	}
	return 1
}

// listWidth is the width of the row column.
func (m Model) listWidth() int {
	if m.showDetail && m.width >= 60 {
		return m.width * 3 / 5
	}
	return m.width
}

// bodyHeight is the number of task rows on screen.
func (m Model) bodyHeight() int {
	return max(1, m.height-1-m.footerHeight())
}

// layout pushes the current size into the list, the viewport and the
// markdown renderer.
func (m *Model) layout() {
	m.list.SetHeight(m.bodyHeight())
	m.help.Width = m.width
	m.filter.Width = max(10, m.width-4)

	dw := m.width - m.listWidth() - 2
	if !m.showDetail || dw < 10 {
		return
	}
	m.detail.Width = dw
	m.detail.Height = max(1, m.bodyHeight()-2)
	if m.md == nil || m.mdWidth != dw {
		r, err := newMarkdownRenderer(dw - 2)
		if err != nil {
			debug.Log("ui: markdown renderer: %v", err)
			r = nil
		}
		m.md, m.mdWidth = r, dw
	}
}

// syncDetail renders the selected row into the detail viewport.
func (m *Model) syncDetail() {
	if !m.showDetail {
		return
	}
	row, task, ok := m.list.Selected()
	var md string
	switch {
	case !ok:
		md = "No task selected"
	case task == nil:
		md = fmt.Sprintf("# %s\n\n%d tasks", row.Label, row.Size)
	default:
		md = TaskMarkdown(task, m.list.Task)
	}
	content := md
	if m.md != nil {
		if rendered, err := m.md.Render(md); err == nil {
			content = rendered
		}
	}
	m.detail.SetContent(content)
	m.detail.GotoTop()
}

func (m Model) View() string {
	defer metrics.Timer(metrics.UIRender)()

	body := m.renderList()
	if m.showDetail && m.width-m.listWidth()-2 >= 10 {
		pane := m.theme.Pane.
			Width(m.detail.Width).
			Height(m.detail.Height).
			Render(m.detail.View())
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, pane)
	}

	var sb strings.Builder
	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")
	sb.WriteString(body)
	sb.WriteString("\n")
	sb.WriteString(m.renderFooter())
	return sb.String()
}

func (m Model) renderHeader() string {
	st := m.list.Stats()
	left := fmt.Sprintf("tasktree · %s · %d tasks", m.src.Describe(), st.Tasks)
	if m.query != "" {
		left += fmt.Sprintf(" · filter %q", m.query)
	}
	right := ""
	if n := m.list.Len(); n > m.list.Height() {
		start := m.list.Focus()
		end := min(n, start+m.list.Height())
		right = rowRenderer{theme: m.theme}.renderPositionIndicator(start, end, n)
	}
	width := m.width - lipgloss.Width(right)
	return m.theme.Header.Render(truncateRunesHelper(left, max(1, width-2), "…")) + right
}

func (m Model) renderList() string {
	rr := rowRenderer{theme: m.theme, width: m.listWidth()}
	h := m.bodyHeight()

	if m.list.Len() == 0 {
		var s string
		if m.loading && !m.loadedOnce {
			s = m.theme.MutedText.Render("Loading tasks…")
		} else {
			s = rr.renderEmptyState(m.src.Describe())
		}
		return lipgloss.NewStyle().Width(m.listWidth()).Height(h).Render(s)
	}

	window, off := m.list.Window()
	lines := make([]string, 0, h)
	for i, row := range window {
		var task *model.Task
		if row.IsTask() {
			task, _ = m.list.Task(row.TaskID)
		}
		lines = append(lines, rr.render(row, task, i == off))
	}
	for len(lines) < h {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderFooter() string {
	if m.filtering {
		return m.filter.View()
	}
	var status string
	switch {
	case m.statusMsg == "":
	case m.statusIsError:
		status = m.theme.ErrorText.Render(m.statusMsg)
	default:
		status = m.theme.MutedText.Render(m.statusMsg)
	}
	if m.showHelp {
		return status + "\n" + m.help.View(m.keys)
	}
	hint := m.help.ShortHelpView(m.keys.ShortHelp())
	if status == "" {
		return hint
	}
	if lipgloss.Width(status)+lipgloss.Width(hint)+2 > m.width {
		return status
	}
	return status + "  " + hint
}

// SelectedTask returns the task under the cursor, nil for headers.
func (m Model) SelectedTask() *model.Task {
	_, t, _ := m.list.Selected()
	return t
}

// List exposes the underlying list.
func (m Model) List() *tasklist.List {
	return m.list
}

// Status returns the status bar message and whether it is an error.
func (m Model) Status() (string, bool) {
	return m.statusMsg, m.statusIsError
}

// Stop stops the watcher, if any.
func (m *Model) Stop() {
	if m.watcher != nil {
		m.watcher.Stop()
	}
}

func formatReloadDuration(d time.Duration) string {
	if d < time.Millisecond {
		return "<1ms"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
