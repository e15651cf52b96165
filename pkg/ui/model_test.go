package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/tasktree/pkg/model"
	"github.com/vanderheijden86/tasktree/pkg/rows"
	"github.com/vanderheijden86/tasktree/pkg/tasklist"
	"github.com/vanderheijden86/tasktree/pkg/testutil"
)

type fakeSource struct {
	tasks []model.Task
	err   error
	calls int
}

func (s *fakeSource) Fetch(context.Context) ([]model.Task, error) {
	s.calls++
	return s.tasks, s.err
}

func (s *fakeSource) Describe() string  { return "fake" }
func (s *fakeSource) WatchPath() string { return "" }

func abcde() []model.Task {
	return []model.Task{
		testutil.Task("A", testutil.WithUrgency(10)),
		testutil.Task("B", testutil.Under("A"), testutil.WithUrgency(5)),
		testutil.Task("C", testutil.Under("A"), testutil.WithUrgency(4)),
		testutil.Task("D", testutil.Under("C")),
		testutil.Task("E", testutil.Under("D")),
		testutil.Task("F", testutil.WithUrgency(1)),
	}
}

func ungrouped() Options {
	return Options{List: tasklist.Options{Group: rows.GroupNone, Padding: 1}}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("expected Model, got %T", next)
	}
	return nm, cmd
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "ctrl+d":
			msg = tea.KeyMsg{Type: tea.KeyCtrlD}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, _ = update(t, m, msg)
	}
	return m
}

func loadedModel(t *testing.T, tasks []model.Task, opts Options) (Model, *fakeSource) {
	t.Helper()
	src := &fakeSource{tasks: tasks}
	m := NewModel(context.Background(), src, opts)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 12})
	m, _ = update(t, m, TasksLoadedMsg{Tasks: tasks})
	return m, src
}

// runCmd executes cmd and flattens batches.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for _, c := range batch {
		out = append(out, runCmd(c)...)
	}
	return out
}

func selected(t *testing.T, m Model) string {
	t.Helper()
	task := m.SelectedTask()
	if task == nil {
		t.Fatalf("expected a task under the cursor at %d", m.List().Cursor())
	}
	return task.Description
}

func TestInitFetches(t *testing.T) {
	src := &fakeSource{tasks: abcde()}
	m := NewModel(context.Background(), src, ungrouped())

	msgs := runCmd(m.Init())
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message without a watcher, got %d", len(msgs))
	}
	loaded, ok := msgs[0].(TasksLoadedMsg)
	if !ok {
		t.Fatalf("expected TasksLoadedMsg, got %T", msgs[0])
	}
	if len(loaded.Tasks) != 6 || loaded.Err != nil {
		t.Errorf("expected 6 tasks and no error, got %d, %v", len(loaded.Tasks), loaded.Err)
	}
	if src.calls != 1 {
		t.Errorf("expected 1 fetch, got %d", src.calls)
	}
}

func TestLoadedViewShowsRows(t *testing.T) {
	m, _ := loadedModel(t, abcde(), ungrouped())

	view := m.View()
	for _, want := range []string{"▾ ", "A", "F", "tasktree · fake · 6 tasks"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
	if msg, isErr := m.Status(); isErr || !strings.Contains(msg, "Loaded 6 tasks from fake") {
		t.Errorf("unexpected status %q (error=%v)", msg, isErr)
	}
}

func TestFoldThenMove(t *testing.T) {
	m, _ := loadedModel(t, abcde(), ungrouped())

	m = press(t, m, "enter", "j")
	if got := selected(t, m); got != "F" {
		t.Errorf("expected F after folding A and moving down, got %s", got)
	}

	m = press(t, m, "k", " ", "j")
	if got := selected(t, m); got != "B" {
		t.Errorf("expected B after unfolding A, got %s", got)
	}
}

func TestJumpKeys(t *testing.T) {
	m, _ := loadedModel(t, abcde(), ungrouped())

	m = press(t, m, "G")
	if got := selected(t, m); got != "F" {
		t.Errorf("expected F at bottom, got %s", got)
	}
	m = press(t, m, "g")
	if got := selected(t, m); got != "A" {
		t.Errorf("expected A at top, got %s", got)
	}
	m = press(t, m, "ctrl+d")
	if m.List().Cursor() == 0 {
		t.Error("expected half page down to move the cursor")
	}
}

func TestRefreshErrorKeepsRows(t *testing.T) {
	m, _ := loadedModel(t, abcde(), ungrouped())

	m, _ = update(t, m, TasksLoadedMsg{Err: errors.New("task: exit status 2")})

	if m.List().Len() != 6 {
		t.Errorf("expected previous 6 rows to stay, got %d", m.List().Len())
	}
	msg, isErr := m.Status()
	if !isErr || !strings.Contains(msg, "exit status 2") {
		t.Errorf("expected error status, got %q (error=%v)", msg, isErr)
	}
}

func TestReloadReportsDiff(t *testing.T) {
	m, _ := loadedModel(t, abcde(), ungrouped())

	next := append(abcde(), testutil.Task("G"))
	m, _ = update(t, m, TasksLoadedMsg{Tasks: next})

	msg, _ := m.Status()
	if !strings.Contains(msg, "+1") {
		t.Errorf("expected +1 in status, got %q", msg)
	}
	if m.List().Tasks().Len() != 7 {
		t.Errorf("expected 7 tasks, got %d", m.List().Tasks().Len())
	}
}

func TestRefreshKeyFetches(t *testing.T) {
	m, src := loadedModel(t, abcde(), ungrouped())

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if cmd == nil {
		t.Fatal("expected a fetch command")
	}
	runCmd(cmd)
	if src.calls != 1 {
		t.Errorf("expected 1 fetch, got %d", src.calls)
	}
	if !m.loading {
		t.Error("expected loading state")
	}
}

func TestFileChangedFetches(t *testing.T) {
	m, src := loadedModel(t, abcde(), ungrouped())

	_, cmd := update(t, m, FileChangedMsg{})
	msgs := runCmd(cmd)
	if src.calls != 1 {
		t.Errorf("expected a fetch after a file change, got %d", src.calls)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(msgs))
	}
	if _, ok := msgs[0].(TasksLoadedMsg); !ok {
		t.Errorf("expected TasksLoadedMsg, got %T", msgs[0])
	}
}

func TestFilterKeepsAncestors(t *testing.T) {
	m, _ := loadedModel(t, abcde(), ungrouped())

	m = press(t, m, "/")
	if !m.filtering {
		t.Fatal("expected filter prompt")
	}
	m = press(t, m, "E", "enter")

	if m.filtering {
		t.Error("expected prompt to close on enter")
	}
	if got := m.List().Tasks().Len(); got != 4 {
		t.Errorf("expected E and its 3 ancestors, got %d tasks", got)
	}
	if !strings.Contains(m.View(), `filter "E"`) {
		t.Error("expected header to show the filter")
	}

	m = press(t, m, "esc")
	if got := m.List().Tasks().Len(); got != 6 {
		t.Errorf("expected esc to clear the filter, got %d tasks", got)
	}
}

func TestFilterEscapeKeepsQuery(t *testing.T) {
	m, _ := loadedModel(t, abcde(), ungrouped())

	m = press(t, m, "/", "B", "esc")
	if m.filtering {
		t.Error("expected prompt closed")
	}
	if m.query != "" {
		t.Errorf("expected no query after cancel, got %q", m.query)
	}
}

func TestCycleWarnedOnce(t *testing.T) {
	tasks := testutil.NewDefault().Cycle(3)
	m, _ := loadedModel(t, tasks, ungrouped())

	msg, isErr := m.Status()
	if !isErr || !strings.Contains(msg, "cyclic") {
		t.Errorf("expected cycle warning, got %q (error=%v)", msg, isErr)
	}
	if m.List().Len() != 3 {
		t.Errorf("expected all 3 tasks shown, got %d", m.List().Len())
	}

	m, _ = update(t, m, TasksLoadedMsg{Tasks: tasks})
	if msg, isErr := m.Status(); isErr {
		t.Errorf("expected the warning only once, got %q", msg)
	}
}

func TestYank(t *testing.T) {
	m, _ := loadedModel(t, abcde(), ungrouped())
	var copied string
	m.copyText = func(s string) error {
		copied = s
		return nil
	}

	m = press(t, m, "y")
	if copied != testutil.ID("A").String() {
		t.Errorf("expected A's UUID copied, got %q", copied)
	}

	m.copyText = func(string) error { return errors.New("no clipboard") }
	m = press(t, m, "y")
	if msg, isErr := m.Status(); !isErr || !strings.Contains(msg, "no clipboard") {
		t.Errorf("expected clipboard error, got %q", msg)
	}
}

func TestYankOnHeader(t *testing.T) {
	m, _ := loadedModel(t, abcde(), Options{List: tasklist.DefaultOptions()})
	called := false
	m.copyText = func(string) error {
		called = true
		return nil
	}

	m = press(t, m, "y")
	if called {
		t.Error("expected no copy on a group header")
	}
	if _, isErr := m.Status(); !isErr {
		t.Error("expected an error status")
	}
}

func TestDetailToggle(t *testing.T) {
	m, _ := loadedModel(t, abcde(), ungrouped())

	m = press(t, m, "d")
	if !m.showDetail {
		t.Fatal("expected detail pane open")
	}
	if m.listWidth() >= 100 {
		t.Errorf("expected list to narrow, got width %d", m.listWidth())
	}
	if !strings.Contains(m.detail.View(), "A") {
		t.Error("expected detail pane to show the selected task")
	}

	m = press(t, m, "esc")
	if m.showDetail {
		t.Error("expected esc to close the detail pane")
	}
}

func TestHelpToggle(t *testing.T) {
	m, _ := loadedModel(t, abcde(), ungrouped())
	h := m.List().Height()

	m = press(t, m, "?")
	if !strings.Contains(m.View(), "fold/unfold") {
		t.Error("expected full help")
	}
	if m.List().Height() >= h {
		t.Errorf("expected fewer rows with help open, got %d (was %d)", m.List().Height(), h)
	}

	m = press(t, m, "?")
	if m.List().Height() != h {
		t.Errorf("expected height %d restored, got %d", h, m.List().Height())
	}
}

func TestQuit(t *testing.T) {
	m, _ := loadedModel(t, abcde(), ungrouped())
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestEmptyAndLoadingViews(t *testing.T) {
	src := &fakeSource{}
	m := NewModel(context.Background(), src, ungrouped())
	if !strings.Contains(m.View(), "Loading tasks") {
		t.Error("expected loading message before the first fetch")
	}

	m, _ = update(t, m, TasksLoadedMsg{})
	if !strings.Contains(m.View(), "No tasks") {
		t.Error("expected empty state")
	}
}

func TestWindowResizeKeepsCursorVisible(t *testing.T) {
	var tasks []model.Task
	for _, n := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		tasks = append(tasks, testutil.Task(n))
	}
	m, _ := loadedModel(t, tasks, ungrouped())
	m = press(t, m, "G")

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 60, Height: 6})
	l := m.List()
	if l.Cursor() < l.Focus() || l.Cursor() >= l.Focus()+l.Height() {
		t.Errorf("cursor %d outside window [%d, %d)", l.Cursor(), l.Focus(), l.Focus()+l.Height())
	}
}
