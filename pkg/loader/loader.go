package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/tasktree/pkg/model"
)

// TaskDataEnvVar is the environment variable Taskwarrior reads its data
// directory from.
const TaskDataEnvVar = "TASKDATA"

// ReplicaFileName is the Taskwarrior 3 (taskchampion) replica database.
const ReplicaFileName = "taskchampion.sqlite3"

// LegacyDataFileName is the Taskwarrior 2 pending task file.
const LegacyDataFileName = "pending.data"

// PreferredDataFiles is the lookup order inside a data directory.
var PreferredDataFiles = []string{ReplicaFileName, LegacyDataFileName}

// GetDataDir returns the Taskwarrior data directory.
// TASKDATA wins when set. Otherwise ~/.task is used if it exists, then
// $XDG_DATA_HOME/task (~/.local/share/task).
func GetDataDir() (string, error) {
	if envDir := os.Getenv(TaskDataEnvVar); envDir != "" {
		return envDir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}

	candidates := []string{filepath.Join(home, ".task")}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "task"))
	} else {
		candidates = append(candidates, filepath.Join(home, ".local", "share", "task"))
	}

	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, nil
		}
	}
	return "", fmt.Errorf("no taskwarrior data directory found (tried %s); set %s", strings.Join(candidates, ", "), TaskDataEnvVar)
}

// FindReplicaPath locates the task data file in dataDir, preferring the
// taskchampion replica over the Taskwarrior 2 pending file. Empty files
// are skipped unless nothing else exists.
func FindReplicaPath(dataDir string) (string, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return "", fmt.Errorf("failed to read task data directory: %w", err)
	}

	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			present[e.Name()] = true
		}
	}

	var fallback string
	for _, name := range PreferredDataFiles {
		if !present[name] {
			continue
		}
		path := filepath.Join(dataDir, name)
		if info, err := os.Stat(path); err == nil && info.Size() > 0 {
			return path, nil
		}
		if fallback == "" {
			fallback = path
		}
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", fmt.Errorf("no task data file found in %s", dataDir)
}

// LoadExportFile parses a saved `task export` file.
func LoadExportFile(path string, opts ParseOptions) ([]model.Task, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no export found at %s", path)
		}
		return nil, fmt.Errorf("failed to open export file: %w", err)
	}
	defer file.Close()

	return ParseExport(file, opts)
}
