package datasource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/vanderheijden86/tasktree/pkg/debug"
	"github.com/vanderheijden86/tasktree/pkg/loader"
	"github.com/vanderheijden86/tasktree/pkg/model"
)

// CommandOptions configures a CommandSource.
type CommandOptions struct {
	Command     string   // binary, default "task"
	Filter      []string // filter words placed before "export"
	DataDir     string   // passed as rc.data.location when set
	ParentField string
	WatchPath   string
}

// CommandSource runs `task export` for every snapshot.
type CommandSource struct {
	opts CommandOptions
}

// NewCommandSource returns a source backed by the Taskwarrior CLI.
func NewCommandSource(opts CommandOptions) *CommandSource {
	if opts.Command == "" {
		opts.Command = DefaultCommand
	}
	return &CommandSource{opts: opts}
}

// Args returns the command line arguments (without the binary).
// Verbosity and hooks are off so stdout carries nothing but the array.
func (s *CommandSource) Args() []string {
	args := []string{"rc.verbose=nothing", "rc.hooks=off", "rc.json.array=on", "rc.confirmation=off"}
	if s.opts.DataDir != "" {
		args = append(args, "rc.data.location="+s.opts.DataDir)
	}
	args = append(args, s.opts.Filter...)
	return append(args, "export")
}

// Fetch runs the command and parses its output.
func (s *CommandSource) Fetch(ctx context.Context) ([]model.Task, error) {
	cmd := exec.CommandContext(ctx, s.opts.Command, s.Args()...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	debug.Log("datasource: running %s %s", s.opts.Command, strings.Join(s.Args(), " "))
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, model.NewSourceError(model.ProcessInvocationFailed, s.opts.Command+" export", err)
	}

	return loader.ParseExport(&stdout, loader.ParseOptions{
		ParentField: s.opts.ParentField,
		WarningHandler: func(msg string) {
			debug.Log("datasource: %s", msg)
		},
	})
}

// Describe implements Source.
func (s *CommandSource) Describe() string {
	if len(s.opts.Filter) == 0 {
		return s.opts.Command + " export"
	}
	return fmt.Sprintf("%s %s export", s.opts.Command, strings.Join(s.opts.Filter, " "))
}

// WatchPath implements Source.
func (s *CommandSource) WatchPath() string {
	return s.opts.WatchPath
}
