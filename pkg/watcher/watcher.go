// Package watcher notices when Taskwarrior's data file changes.
//
// It watches the file's directory with fsnotify and falls back to stat
// polling on remote filesystems or when TT_FORCE_POLL is set. Bursts of
// writes are debounced into one notification.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vanderheijden86/tasktree/pkg/debug"
)

// DefaultPollInterval is how often polling mode stats the file.
const DefaultPollInterval = 2 * time.Second

// ForcePollEnvVar forces polling mode when set to a true value.
const ForcePollEnvVar = "TT_FORCE_POLL"

// Errors reported through the OnError callback or Start.
var (
	ErrFileRemoved    = errors.New("watched file was removed")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// WatcherOption customizes NewWatcher.
type WatcherOption func(*Watcher)

// WithDebounceDuration sets how long a burst of writes must settle.
func WithDebounceDuration(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounceDuration = d }
}

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.pollInterval = d }
}

// WithOnChange sets the callback invoked after a debounced change.
func WithOnChange(fn func()) WatcherOption {
	return func(w *Watcher) { w.onChange = fn }
}

// WithOnError receives fsnotify and stat failures.
func WithOnError(fn func(error)) WatcherOption {
	return func(w *Watcher) { w.onError = fn }
}

// WithForcePoll skips fsnotify entirely.
func WithForcePoll(force bool) WatcherOption {
	return func(w *Watcher) { w.forcePoll = force }
}

// fileState is what polling compares between ticks.
type fileState struct {
	exists bool
	mtime  time.Time
	size   int64
}

func statFile(path string) (fileState, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{}, err
	}
	return fileState{exists: true, mtime: info.ModTime(), size: info.Size()}, nil
}

// Watcher reports changes to one data file. A taskchampion replica is
// written through sqlite sidecar files, so writes to NAME-wal and
// NAME-journal count as changes to NAME.
type Watcher struct {
	path             string
	debounceDuration time.Duration
	pollInterval     time.Duration
	onChange         func()
	onError          func(error)
	forcePoll        bool

	mu        sync.RWMutex
	started   bool
	polling   bool
	fsType    FilesystemType
	cancel    context.CancelFunc
	done      chan struct{}
	debouncer *Debouncer
	changeCh  chan struct{}
}

// NewWatcher creates a watcher for path. Nothing happens until Start.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		path:             absPath,
		debounceDuration: DefaultDebounceDuration,
		pollInterval:     DefaultPollInterval,
		onChange:         func() {},
		onError:          func(error) {},
		changeCh:         make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.pollInterval <= 0 {
		w.pollInterval = DefaultPollInterval
	}
	w.debouncer = NewDebouncer(w.debounceDuration)
	return w, nil
}

// Start begins watching. The file does not need to exist yet.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}

	initial, err := statFile(w.path)
	if err != nil && os.IsPermission(err) {
		return ErrPermission
	}

	w.fsType = DetectFilesystemType(w.path)
	w.polling = w.forcePoll || envBool(ForcePollEnvVar) || isRemoteFilesystem(w.fsType)

	var fsw *fsnotify.Watcher
	if !w.polling {
		fsw, err = fsnotify.NewWatcher()
		if err == nil {
			// The directory, not the file: editors and sqlite replace files.
			if err = fsw.Add(filepath.Dir(w.path)); err != nil {
				fsw.Close()
				fsw = nil
			}
		}
		if fsw == nil {
			debug.Log("watcher: fsnotify unavailable for %s (%v), polling", w.path, err)
			w.polling = true
		}
	}
	debug.Log("watcher: %s on %s filesystem (poll=%v)", w.path, w.fsType, w.polling)

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	w.started = true

	if fsw != nil {
		go w.runEvents(ctx, fsw)
	} else {
		go w.runPolling(ctx, initial)
	}
	return nil
}

// Stop stops watching and drops any pending notification. It is safe to
// call more than once. Changed() is left open so a pending receive simply
// never fires.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.started = false
	w.cancel()
	done := w.done
	w.mu.Unlock()

	<-done
	w.debouncer.Cancel()
}

// IsPolling reports whether Start fell back to stat polling.
func (w *Watcher) IsPolling() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.polling
}

// IsStarted reports whether Start succeeded and Stop has not run.
func (w *Watcher) IsStarted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started
}

// Changed returns a channel that receives after each debounced change.
// At most one notification is buffered.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changeCh
}

// Path is the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// FilesystemType returns the classification found by Start.
func (w *Watcher) FilesystemType() FilesystemType {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.fsType
}

// PollInterval returns the polling interval used in polling mode.
func (w *Watcher) PollInterval() time.Duration {
	return w.pollInterval
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// isDataFile matches the watched file and its sqlite sidecars.
func isDataFile(name, target string) bool {
	return name == target || name == target+"-wal" || name == target+"-journal"
}

func (w *Watcher) runEvents(ctx context.Context, fsw *fsnotify.Watcher) {
	defer close(w.done)
	defer fsw.Close()

	target := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			name := filepath.Base(event.Name)
			if !isDataFile(name, target) {
				continue
			}
			switch {
			case event.Has(fsnotify.Remove) && name == target:
				w.onError(ErrFileRemoved)
			case event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename):
				w.debouncer.Trigger(w.notifyChange)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

// runPolling compares the file and its WAL sidecar on every tick.
func (w *Watcher) runPolling(ctx context.Context, last fileState) {
	defer close(w.done)

	wal := w.path + "-wal"
	lastWAL, _ := statFile(wal)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		cur, err := statFile(w.path)
		switch {
		case os.IsNotExist(err):
			if last.exists {
				w.onError(ErrFileRemoved)
			}
			last = fileState{}
			continue
		case os.IsPermission(err):
			w.onError(ErrPermission)
			continue
		case err != nil:
			w.onError(err)
			continue
		}

		curWAL, _ := statFile(wal)
		if cur != last || curWAL != lastWAL {
			last, lastWAL = cur, curWAL
			w.debouncer.Trigger(w.notifyChange)
		}
	}
}

func (w *Watcher) notifyChange() {
	if !w.IsStarted() {
		return
	}
	w.onChange()
	select {
	case w.changeCh <- struct{}{}:
	default:
	}
}
