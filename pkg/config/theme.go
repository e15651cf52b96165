package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/pelletier/go-toml/v2"
)

// ThemeFile is a TOML color override file. Every color is "#rrggbb";
// empty entries keep the built-in color.
//
//	border = "#5f5fd7"
//	text   = "#d0d0d0"
//	fold   = "#ffaf00"
//	cursor = "#303030"
//
//	[status]
//	pending   = "#87d787"
//	completed = "#808080"
type ThemeFile struct {
	Border string       `toml:"border"`
	Text   string       `toml:"text"`
	Fold   string       `toml:"fold"`
	Cursor string       `toml:"cursor"`
	Status StatusColors `toml:"status"`
}

// StatusColors overrides the per-status colors.
type StatusColors struct {
	Pending   string `toml:"pending"`
	Blocked   string `toml:"blocked"`
	Waiting   string `toml:"waiting"`
	Recurring string `toml:"recurring"`
	Completed string `toml:"completed"`
	Deleted   string `toml:"deleted"`
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ThemesDir returns the directory searched for bare theme names.
func ThemesDir() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "themes")
}

// ResolveThemePath turns a bare theme name ("nord") into a path under
// ThemesDir. Anything containing a separator or extension is returned
// unchanged.
func ResolveThemePath(name string) string {
	if name == "" || filepath.Ext(name) != "" || filepath.Base(name) != name {
		return name
	}
	dir := ThemesDir()
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name+".toml")
}

// LoadTheme reads and validates a TOML theme file.
func LoadTheme(path string) (ThemeFile, error) {
	var tf ThemeFile
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return tf, fmt.Errorf("theme %s not found", path)
		}
		return tf, fmt.Errorf("reading theme: %w", err)
	}
	if err := toml.Unmarshal(data, &tf); err != nil {
		return ThemeFile{}, fmt.Errorf("parsing theme %s: %w", path, err)
	}
	if err := tf.Validate(); err != nil {
		return ThemeFile{}, fmt.Errorf("theme %s: %w", path, err)
	}
	return tf, nil
}

// SaveTheme writes tf as TOML.
func SaveTheme(tf ThemeFile, path string) error {
	if err := tf.Validate(); err != nil {
		return err
	}
	data, err := toml.Marshal(tf)
	if err != nil {
		return fmt.Errorf("marshaling theme: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating theme directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks that every set color is #rrggbb.
func (tf ThemeFile) Validate() error {
	fields := []struct{ name, value string }{
		{"border", tf.Border},
		{"text", tf.Text},
		{"fold", tf.Fold},
		{"cursor", tf.Cursor},
		{"status.pending", tf.Status.Pending},
		{"status.blocked", tf.Status.Blocked},
		{"status.waiting", tf.Status.Waiting},
		{"status.recurring", tf.Status.Recurring},
		{"status.completed", tf.Status.Completed},
		{"status.deleted", tf.Status.Deleted},
	}
	for _, f := range fields {
		if f.value != "" && !hexColor.MatchString(f.value) {
			return fmt.Errorf("%s: %q is not a #rrggbb color", f.name, f.value)
		}
	}
	return nil
}
