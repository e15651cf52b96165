package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/tasktree/internal/datasource"
	"github.com/vanderheijden86/tasktree/pkg/config"
	"github.com/vanderheijden86/tasktree/pkg/debug"
	"github.com/vanderheijden86/tasktree/pkg/metrics"
	"github.com/vanderheijden86/tasktree/pkg/tasklist"
	"github.com/vanderheijden86/tasktree/pkg/ui"
	"github.com/vanderheijden86/tasktree/pkg/version"
	"github.com/vanderheijden86/tasktree/pkg/watcher"
)

// app carries the global flags and the streams commands write to.
type app struct {
	configPath  string
	filter      string
	group       string
	padding     int
	source      string
	file        string
	dataDir     string
	parentField string
	noWatch     bool
	theme       string
	detail      bool
	stats       bool
	debug       bool

	stdin          io.Reader
	stdout, stderr io.Writer
	stdinPiped     func() bool
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{
		stdin:      stdin,
		stdout:     stdout,
		stderr:     stderr,
		stdinPiped: datasource.StdinIsPiped,
	}

	cmd := &cobra.Command{
		Use:           "tt",
		Short:         "Hierarchical terminal dashboard for Taskwarrior",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Open the dashboard on pending work
  tt --filter status:pending

  # Browse a saved export
  task export | tt

  # Report parent cycles and missing parents
  tt check
`),
		Args: cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.debug {
				debug.SetEnabled(true)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDashboard(cmd)
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/tasktree/config.yaml)")
	pf.StringVar(&a.filter, "filter", "", "Taskwarrior filter, e.g. 'project:home status:pending'")
	pf.StringVar(&a.group, "group", "", "Row grouping: status or none")
	pf.IntVar(&a.padding, "padding", 7, "Rows kept visible between the cursor and the window edge")
	pf.StringVar(&a.source, "source", "", "Task source: auto, command, stdin, file or replica")
	pf.StringVar(&a.file, "file", "", "Export file to read (implies --source file)")
	pf.StringVar(&a.dataDir, "data-dir", "", "Taskwarrior data directory")
	pf.StringVar(&a.parentField, "parent-field", "", "Attribute holding the parent task UUID")
	pf.BoolVar(&a.debug, "debug", false, "Write debug logs to stderr")

	cmd.Flags().BoolVar(&a.noWatch, "no-watch", false, "Do not refresh when the task data changes")
	cmd.Flags().StringVar(&a.theme, "theme", "", "Theme file or name under the themes directory")
	cmd.Flags().BoolVar(&a.detail, "detail", false, "Open the detail pane on start")
	cmd.Flags().BoolVar(&a.stats, "stats", false, "Print timing metrics to stderr on exit")

	cmd.AddCommand(newExportCmd(a))
	cmd.AddCommand(newCheckCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newVersionCmd(a))

	return cmd
}

// loadConfig reads the config file and applies the flags that were set
// on the command line. A broken config file is reported and replaced by
// the defaults.
func (a *app) loadConfig(cmd *cobra.Command) (config.Config, error) {
	path := a.configPath
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		fmt.Fprintf(a.stderr, "Warning: %v (using defaults)\n", err)
	}

	flags := cmd.Flags()
	if flags.Changed("filter") {
		cfg.Source.Filter = strings.Fields(a.filter)
	}
	if flags.Changed("source") {
		cfg.Source.Kind = a.source
	}
	if flags.Changed("file") && !flags.Changed("source") {
		cfg.Source.Kind = string(datasource.SourceTypeFile)
	}
	if flags.Changed("data-dir") {
		cfg.Source.DataDir = a.dataDir
	}
	if flags.Changed("parent-field") {
		cfg.Source.ParentField = a.parentField
	}
	if flags.Changed("group") {
		cfg.View.Group = a.group
	}
	if flags.Changed("padding") {
		cfg.View.Padding = a.padding
	}
	if flags.Lookup("detail") != nil && flags.Changed("detail") {
		cfg.View.Detail = a.detail
	}
	if flags.Lookup("no-watch") != nil && flags.Changed("no-watch") {
		cfg.Watch.Enabled = !a.noWatch
	}
	if flags.Lookup("theme") != nil && flags.Changed("theme") {
		cfg.Theme.File = config.ResolveThemePath(a.theme)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (a *app) discoveryOptions(cfg config.Config) (datasource.DiscoveryOptions, error) {
	kind, err := datasource.ParseSourceType(cfg.Source.Kind)
	if err != nil {
		return datasource.DiscoveryOptions{}, err
	}
	return datasource.DiscoveryOptions{
		Kind:        kind,
		Filter:      cfg.Source.Filter,
		Command:     cfg.Source.Command,
		DataDir:     cfg.Source.DataDir,
		File:        a.file,
		ParentField: cfg.Source.ParentField,
		Stdin:       a.stdin,
		StdinPiped:  a.stdinPiped(),
		Logger:      func(msg string) { debug.Log("datasource: %s", msg) },
	}, nil
}

// openSource opens the configured source. Concurrent fetches share one
// run of the underlying source.
func (a *app) openSource(cfg config.Config) (datasource.Source, error) {
	opts, err := a.discoveryOptions(cfg)
	if err != nil {
		return nil, err
	}
	src, err := datasource.Open(opts)
	if err != nil {
		if errors.Is(err, datasource.ErrNoSource) {
			return nil, fmt.Errorf("%w\nInstall Taskwarrior, pipe `task export` into tt, or pass --file", err)
		}
		return nil, err
	}
	debug.Log("opened source %s", src.Describe())
	return datasource.Coalesce(src), nil
}

func listOptions(cfg config.Config) tasklist.Options {
	return tasklist.Options{
		Group:        cfg.GroupMode(),
		Padding:      cfg.View.Padding,
		FoldedGroups: cfg.View.FoldedGroups,
	}
}

func (a *app) loadTheme(cfg config.Config) (ui.Theme, error) {
	theme := ui.DefaultTheme(lipgloss.DefaultRenderer())
	if cfg.Theme.File == "" {
		return theme, nil
	}
	tf, err := config.LoadTheme(cfg.Theme.File)
	if err != nil {
		return theme, err
	}
	return theme.WithFile(tf), nil
}

// startWatcher watches the source's data file. It returns nil when there
// is nothing to watch or watching is off; a watcher that fails to start
// is reported and skipped.
func (a *app) startWatcher(cfg config.Config, src datasource.Source) *watcher.Watcher {
	path := src.WatchPath()
	if !cfg.Watch.Enabled || path == "" {
		return nil
	}
	w, err := watcher.NewWatcher(path,
		watcher.WithDebounceDuration(cfg.Debounce()),
		watcher.WithForcePoll(cfg.Watch.ForcePoll),
		watcher.WithOnError(func(err error) {
			debug.Log("watcher: %v", err)
		}),
	)
	if err == nil {
		err = w.Start()
	}
	if err != nil {
		fmt.Fprintf(a.stderr, "Warning: not watching %s: %v\n", path, err)
		return nil
	}
	return w
}

func (a *app) runDashboard(cmd *cobra.Command) error {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	src, err := a.openSource(cfg)
	if err != nil {
		return err
	}
	theme, err := a.loadTheme(cfg)
	if err != nil {
		fmt.Fprintf(a.stderr, "Warning: %v (using the default theme)\n", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	m := ui.NewModel(ctx, src, ui.Options{
		List:       listOptions(cfg),
		Watcher:    a.startWatcher(cfg, src),
		Theme:      &theme,
		ShowDetail: cfg.View.Detail,
	})
	defer m.Stop()

	// Input comes from the terminal when the export arrives on stdin.
	inputTTY := a.stdinPiped()
	if err := runTUIProgram(m, inputTTY); err != nil {
		return fmt.Errorf("running dashboard: %w", err)
	}

	if a.stats {
		return metrics.WriteSummary(a.stderr)
	}
	return nil
}

func runTUIProgram(m ui.Model, inputTTY bool) error {
	opts := []tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	}
	if inputTTY {
		opts = append(opts, tea.WithInputTTY())
	}
	p := tea.NewProgram(m, opts...)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set TT_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("TT_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				select {
				case <-runDone:
				case <-time.After(time.Duration(ms) * time.Millisecond):
					p.Quit()
				}
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
