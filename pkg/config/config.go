// Package config handles loading and saving tasktree configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/tasktree/config.yaml
//   - Themes:  ~/.config/tasktree/themes/*.toml
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/tasktree/pkg/model"
	"github.com/vanderheijden86/tasktree/pkg/rows"
)

// AppName names the XDG subdirectories.
const AppName = "tasktree"

// SourceConfig selects where tasks come from.
type SourceConfig struct {
	Kind        string   `yaml:"kind,omitempty"`    // auto, command, stdin, file, replica
	Filter      []string `yaml:"filter,omitempty"`  // Taskwarrior filter words
	Command     string   `yaml:"command,omitempty"` // task binary
	DataDir     string   `yaml:"data_dir,omitempty"`
	ParentField string   `yaml:"parent_field,omitempty"`
}

// ViewConfig holds the row list preferences.
type ViewConfig struct {
	Group        string         `yaml:"group,omitempty"` // status, none
	Padding      int            `yaml:"padding"`
	FoldedGroups []model.Status `yaml:"folded_groups,omitempty"`
	Detail       bool           `yaml:"detail,omitempty"` // open the detail pane on start
}

// WatchConfig controls automatic refresh.
type WatchConfig struct {
	Enabled    bool `yaml:"enabled"`
	DebounceMS int  `yaml:"debounce_ms,omitempty"`
	ForcePoll  bool `yaml:"force_poll,omitempty"`
}

// ThemeConfig points at an optional TOML theme file.
type ThemeConfig struct {
	File string `yaml:"file,omitempty"`
}

// Config is the top-level configuration for tt.
type Config struct {
	Source SourceConfig `yaml:"source"`
	View   ViewConfig   `yaml:"view"`
	Watch  WatchConfig  `yaml:"watch"`
	Theme  ThemeConfig  `yaml:"theme,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Source: SourceConfig{
			Kind:        "auto",
			Command:     "task",
			ParentField: "sub_of",
		},
		View: ViewConfig{
			Group:        rows.GroupByStatus.String(),
			Padding:      7,
			FoldedGroups: []model.Status{model.StatusDeleted},
		},
		Watch: WatchConfig{
			Enabled:    true,
			DebounceMS: 200,
		},
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if _, err := rows.ParseGroupMode(c.View.Group); err != nil {
		return fmt.Errorf("view.group: %w", err)
	}
	if c.View.Padding < 0 {
		return fmt.Errorf("view.padding: must not be negative, got %d", c.View.Padding)
	}
	if c.Watch.DebounceMS < 0 {
		return fmt.Errorf("watch.debounce_ms: must not be negative, got %d", c.Watch.DebounceMS)
	}
	switch strings.ToLower(c.Source.Kind) {
	case "", "auto", "command", "stdin", "file", "replica":
	default:
		return fmt.Errorf("source.kind: unknown kind %q", c.Source.Kind)
	}
	return nil
}

// GroupMode returns the parsed view.group, falling back to status grouping.
func (c Config) GroupMode() rows.GroupMode {
	g, err := rows.ParseGroupMode(c.View.Group)
	if err != nil {
		return rows.GroupByStatus
	}
	return g
}

// Debounce returns watch.debounce_ms as a duration.
func (c Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}

// ConfigDir returns the XDG config directory for tt.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", AppName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path. Keys missing from the file
// keep their default values. Returns DefaultConfig if the file doesn't
// exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), fmt.Errorf("invalid config %s: %w", path, err)
	}

	cfg.Source.DataDir = expandHome(cfg.Source.DataDir)
	cfg.Theme.File = expandHome(cfg.Theme.File)
	if cfg.Theme.File != "" && !filepath.IsAbs(cfg.Theme.File) {
		cfg.Theme.File = filepath.Join(filepath.Dir(path), cfg.Theme.File)
	}

	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
