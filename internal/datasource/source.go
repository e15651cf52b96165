// Package datasource discovers and reads Taskwarrior task data for tt.
// A snapshot can come from the `task` command, an export piped on stdin
// or a file, or the taskchampion replica database read directly.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vanderheijden86/tasktree/pkg/loader"
	"github.com/vanderheijden86/tasktree/pkg/model"
)

// Source produces task snapshots. Every Fetch returns a fresh, complete
// snapshot.
type Source interface {
	Fetch(ctx context.Context) ([]model.Task, error)
	// Describe names the source for the status bar.
	Describe() string
	// WatchPath is the file whose changes mean a new snapshot is
	// available, or "" when there is nothing to watch.
	WatchPath() string
}

// SourceType identifies the type of data source
type SourceType string

const (
	// SourceTypeAuto picks the best available source
	SourceTypeAuto SourceType = "auto"
	// SourceTypeCommand runs `task export`
	SourceTypeCommand SourceType = "command"
	// SourceTypeStdin reads an export piped on stdin
	SourceTypeStdin SourceType = "stdin"
	// SourceTypeFile reads a saved export file
	SourceTypeFile SourceType = "file"
	// SourceTypeReplica reads taskchampion.sqlite3 directly
	SourceTypeReplica SourceType = "replica"
)

// ParseSourceType accepts the --source flag values.
func ParseSourceType(s string) (SourceType, error) {
	switch t := SourceType(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return SourceTypeAuto, nil
	case SourceTypeAuto, SourceTypeCommand, SourceTypeStdin, SourceTypeFile, SourceTypeReplica:
		return t, nil
	default:
		return "", fmt.Errorf("unknown source %q (want auto, command, stdin, file or replica)", s)
	}
}

// Priority values for source types (higher = preferred)
const (
	PriorityStdin   = 100
	PriorityFile    = 90
	PriorityCommand = 80
	PriorityReplica = 50
)

// DefaultCommand is the Taskwarrior binary looked up on PATH.
const DefaultCommand = "task"

// DataSource describes a candidate source found during discovery
type DataSource struct {
	// Type identifies the source type
	Type SourceType `json:"type"`
	// Path is the binary, file or database behind the source ("-" for stdin)
	Path string `json:"path"`
	// Priority determines preference (higher = preferred)
	Priority int `json:"priority"`
	// ModTime is the last modification time of file sources
	ModTime time.Time `json:"mod_time,omitempty"`
	// Valid indicates whether the source passed validation
	Valid bool `json:"valid"`
	// ValidationError describes why validation failed (if Valid is false)
	ValidationError string `json:"validation_error,omitempty"`
	// TaskCount is the number of tasks seen during validation (replica only)
	TaskCount int `json:"task_count"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, %s)", s.Path, s.Type, s.Priority, status)
}

// DiscoveryOptions configures source discovery and opening
type DiscoveryOptions struct {
	// Kind restricts discovery to one source type (auto = all)
	Kind SourceType
	// Filter is passed to `task` before `export`, or applied by the replica
	Filter []string
	// Command is the Taskwarrior binary (default "task")
	Command string
	// DataDir overrides Taskwarrior's data directory
	DataDir string
	// File is the export file for SourceTypeFile
	File string
	// ParentField names the hierarchy attribute (default sub_of)
	ParentField string
	// Stdin is the piped export, used when StdinPiped is true
	Stdin io.Reader
	// StdinPiped reports whether Stdin carries data
	StdinPiped bool
	// LookPath resolves the command (default exec.LookPath)
	LookPath func(string) (string, error)
	// Logger receives discovery messages when non-nil
	Logger func(msg string)
}

func (o DiscoveryOptions) command() string {
	if o.Command == "" {
		return DefaultCommand
	}
	return o.Command
}

func (o DiscoveryOptions) lookPath(name string) (string, error) {
	if o.LookPath != nil {
		return o.LookPath(name)
	}
	return exec.LookPath(name)
}

func (o DiscoveryOptions) logf(format string, args ...any) {
	if o.Logger != nil {
		o.Logger(fmt.Sprintf(format, args...))
	}
}

func (o DiscoveryOptions) wants(t SourceType) bool {
	return o.Kind == "" || o.Kind == SourceTypeAuto || o.Kind == t
}

// dataDir resolves the Taskwarrior data directory, or "" if there is none.
func (o DiscoveryOptions) dataDir() string {
	if o.DataDir != "" {
		return o.DataDir
	}
	dir, err := loader.GetDataDir()
	if err != nil {
		return ""
	}
	return dir
}

// ErrNoSource is returned when discovery finds nothing usable.
var ErrNoSource = errors.New("no task source available")

// DiscoverSources lists the available sources, best first.
func DiscoverSources(opts DiscoveryOptions) ([]DataSource, error) {
	var sources []DataSource

	if opts.wants(SourceTypeStdin) && opts.StdinPiped && opts.Stdin != nil {
		sources = append(sources, DataSource{Type: SourceTypeStdin, Path: "-", Priority: PriorityStdin, Valid: true})
		opts.logf("Found piped export on stdin")
	}

	if opts.wants(SourceTypeFile) && opts.File != "" {
		sources = append(sources, discoverFile(opts.File))
	}

	if opts.wants(SourceTypeCommand) {
		if path, err := opts.lookPath(opts.command()); err == nil {
			sources = append(sources, DataSource{Type: SourceTypeCommand, Path: path, Priority: PriorityCommand, Valid: true})
			opts.logf("Found task command: %s", path)
		} else {
			opts.logf("task command not found: %v", err)
		}
	}

	if opts.wants(SourceTypeReplica) {
		if dir := opts.dataDir(); dir != "" {
			if path, err := loader.FindReplicaPath(dir); err == nil && filepath.Base(path) == loader.ReplicaFileName {
				src := DataSource{Type: SourceTypeReplica, Path: path, Priority: PriorityReplica}
				ValidateSource(&src)
				sources = append(sources, src)
				opts.logf("Found replica: %s", src)
			}
		}
	}

	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].Valid != sources[j].Valid {
			return sources[i].Valid
		}
		return sources[i].Priority > sources[j].Priority
	})

	opts.logf("Discovered %d sources", len(sources))
	return sources, nil
}

func discoverFile(path string) DataSource {
	src := DataSource{Type: SourceTypeFile, Path: path, Priority: PriorityFile}
	ValidateSource(&src)
	return src
}

// SelectBestSource returns the first valid source.
func SelectBestSource(sources []DataSource) (DataSource, error) {
	for _, s := range sources {
		if s.Valid {
			return s, nil
		}
	}
	if len(sources) > 0 {
		return DataSource{}, fmt.Errorf("%w: %s", ErrNoSource, sources[0].ValidationError)
	}
	return DataSource{}, ErrNoSource
}

// Open discovers sources and opens the best one: an explicit kind first,
// then piped stdin, then `task` on PATH, then the replica database.
func Open(opts DiscoveryOptions) (Source, error) {
	sources, err := DiscoverSources(opts)
	if err != nil {
		return nil, err
	}
	best, err := SelectBestSource(sources)
	if err != nil {
		if opts.Kind != "" && opts.Kind != SourceTypeAuto {
			return nil, fmt.Errorf("source %s: %w", opts.Kind, err)
		}
		return nil, err
	}
	return OpenSource(best, opts)
}

// OpenSource opens a specific discovered source.
func OpenSource(src DataSource, opts DiscoveryOptions) (Source, error) {
	switch src.Type {
	case SourceTypeStdin:
		return NewReaderSource("stdin", opts.Stdin, opts.ParentField), nil
	case SourceTypeFile:
		return NewFileSource(src.Path, opts.ParentField), nil
	case SourceTypeCommand:
		return NewCommandSource(CommandOptions{
			Command:     src.Path,
			Filter:      opts.Filter,
			DataDir:     opts.DataDir,
			ParentField: opts.ParentField,
			WatchPath:   watchPathFor(opts.dataDir()),
		}), nil
	case SourceTypeReplica:
		filter, err := ParseStatusFilter(opts.Filter)
		if err != nil {
			return nil, err
		}
		return NewReplicaSource(src.Path, filter, opts.ParentField), nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", src.Type)
	}
}

func watchPathFor(dataDir string) string {
	if dataDir == "" {
		return ""
	}
	path, err := loader.FindReplicaPath(dataDir)
	if err != nil {
		return ""
	}
	return path
}
