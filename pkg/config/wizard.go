package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/vanderheijden86/tasktree/pkg/model"
)

// Wizard walks the user through writing config.yaml.
type Wizard struct {
	cfg  Config
	path string
	out  io.Writer

	// Accessible forces huh's line-based prompts. It defaults to true
	// when stdin is not a terminal.
	Accessible bool
}

// NewWizard starts from the config at path (or the defaults).
func NewWizard(path string, out io.Writer) (*Wizard, error) {
	if path == "" {
		path = ConfigPath()
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		return nil, err
	}
	return &Wizard{
		cfg:        cfg,
		path:       path,
		out:        out,
		Accessible: !term.IsTerminal(int(os.Stdin.Fd())),
	}, nil
}

// Config returns the config being edited.
func (w *Wizard) Config() Config {
	return w.cfg
}

func (w *Wizard) newForm(groups ...*huh.Group) *huh.Form {
	return huh.NewForm(groups...).
		WithTheme(huh.ThemeCharm()).
		WithAccessible(w.Accessible)
}

// Run asks the questions and saves the result.
func (w *Wizard) Run() error {
	fmt.Fprintf(w.out, "Writing %s\n\n", w.path)

	kind := w.cfg.Source.Kind
	if kind == "" {
		kind = "auto"
	}
	filter := strings.Join(w.cfg.Source.Filter, " ")
	dataDir := w.cfg.Source.DataDir
	parentField := w.cfg.Source.ParentField
	group := w.cfg.View.Group
	padding := strconv.Itoa(w.cfg.View.Padding)
	foldDeleted := containsStatus(w.cfg.View.FoldedGroups, model.StatusDeleted)
	foldCompleted := containsStatus(w.cfg.View.FoldedGroups, model.StatusCompleted)
	watch := w.cfg.Watch.Enabled

	form := w.newForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Where should tasks come from?").
				Options(
					huh.NewOption("Pick automatically", "auto"),
					huh.NewOption("Run `task export`", "command"),
					huh.NewOption("Read taskchampion.sqlite3 directly", "replica"),
				).
				Value(&kind),
			huh.NewInput().
				Title("Filter (optional)").
				Description("Taskwarrior filter words, e.g. status:pending project:home").
				Value(&filter),
			huh.NewInput().
				Title("Data directory (optional)").
				Placeholder("~/.task").
				Value(&dataDir),
			huh.NewInput().
				Title("Parent attribute").
				Description("UDA holding the parent task's UUID").
				Placeholder("sub_of").
				Value(&parentField),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Group top-level tasks").
				Options(
					huh.NewOption("By status", "status"),
					huh.NewOption("No grouping", "none"),
				).
				Value(&group),
			huh.NewInput().
				Title("Scroll padding").
				Description("Rows kept visible above and below the cursor").
				Value(&padding).
				Validate(validatePadding),
			huh.NewConfirm().
				Title("Start with the Deleted group folded?").
				Value(&foldDeleted),
			huh.NewConfirm().
				Title("Start with the Completed group folded?").
				Value(&foldCompleted),
			huh.NewConfirm().
				Title("Refresh when the task data changes?").
				Value(&watch),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	w.cfg.Source.Kind = kind
	w.cfg.Source.Filter = strings.Fields(filter)
	w.cfg.Source.DataDir = strings.TrimSpace(dataDir)
	if p := strings.TrimSpace(parentField); p != "" {
		w.cfg.Source.ParentField = p
	}
	w.cfg.View.Group = group
	w.cfg.View.Padding, _ = strconv.Atoi(strings.TrimSpace(padding))
	w.cfg.View.FoldedGroups = nil
	if foldCompleted {
		w.cfg.View.FoldedGroups = append(w.cfg.View.FoldedGroups, model.StatusCompleted)
	}
	if foldDeleted {
		w.cfg.View.FoldedGroups = append(w.cfg.View.FoldedGroups, model.StatusDeleted)
	}
	w.cfg.Watch.Enabled = watch

	if err := SaveTo(w.cfg, w.path); err != nil {
		return err
	}
	fmt.Fprintf(w.out, "\nSaved %s\n", w.path)
	return nil
}

func validatePadding(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("enter a number")
	}
	if n < 0 {
		return fmt.Errorf("padding must not be negative")
	}
	return nil
}

func containsStatus(list []model.Status, s model.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
