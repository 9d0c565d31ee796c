// Package watch reports changes to tree documents on disk.
//
// It wraps fsnotify with directory discovery, ignore patterns and a
// debounce window, so an editor's burst of write, rename and chmod events
// for one save arrives as a single Change per file.
package watch

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeType classifies a changed file.
type ChangeType int

const (
	// ChangeDocument is a tree document (.yaml, .yml, .json).
	ChangeDocument ChangeType = iota
	// ChangeConfig is a reconcile.yaml or reconcile.json file.
	ChangeConfig
	// ChangeOther is any other file.
	ChangeOther
)

func (t ChangeType) String() string {
	switch t {
	case ChangeDocument:
		return "document"
	case ChangeConfig:
		return "config"
	default:
		return "other"
	}
}

// Change is a debounced file change.
type Change struct {
	Path    string
	Type    ChangeType
	Removed bool
}

// Config configures a Watcher.
type Config struct {
	// Paths are files or directories to watch. Directories are watched
	// recursively; a file is watched through its parent directory.
	Paths []string

	// Ignore patterns to skip (names, path segments or globs).
	Ignore []string

	// Debounce is how long the watcher waits after the last event for a
	// burst before reporting it.
	Debounce time.Duration

	// Logger receives watch errors. Nil discards them.
	Logger *slog.Logger
}

// DefaultIgnore contains default patterns to ignore.
var DefaultIgnore = []string{
	".git",
	"node_modules",
	"*.tmp",
	"*.swp",
	"*~",
}

// DefaultDebounce is used when Config.Debounce is zero.
const DefaultDebounce = 100 * time.Millisecond

// ErrRunning is returned by Start when the watcher is already running.
var ErrRunning = errors.New("watch: already running")

// Watcher monitors files for changes.
type Watcher struct {
	config   Config
	logger   *slog.Logger
	onChange func(Change)

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	ready   chan struct{}
	once    sync.Once

	// files restricts events to explicitly watched files; empty means any
	// file under a watched directory.
	files map[string]bool
}

// New creates a new Watcher.
func New(config Config) *Watcher {
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}
	if len(config.Ignore) == 0 {
		config.Ignore = DefaultIgnore
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Watcher{
		config: config,
		logger: logger,
		ready:  make(chan struct{}),
		files:  make(map[string]bool),
	}
}

// OnChange sets the callback for file changes. It must be called before
// Start.
func (w *Watcher) OnChange(fn func(Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Ready is closed once every path is being watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Start watches until ctx is done or Stop is called. It returns ctx.Err()
// on cancellation and nil on Stop.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrRunning
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	callback := w.onChange
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := w.addPaths(fsw); err != nil {
		return err
	}
	w.once.Do(func() { close(w.ready) })

	pending := make(map[string]Change)
	timer := time.NewTimer(w.config.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			change, keep := w.translate(fsw, event)
			if !keep {
				continue
			}
			pending[change.Path] = change
			timer.Reset(w.config.Debounce)
		case <-timer.C:
			flush(pending, callback)
			pending = make(map[string]Change)
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		close(w.stopCh)
		w.running = false
	}
}

// IsRunning returns whether the watcher is running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// addPaths registers every configured path with fsw.
func (w *Watcher) addPaths(fsw *fsnotify.Watcher) error {
	for _, p := range w.config.Paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			w.files[abs] = true
			if err := fsw.Add(filepath.Dir(abs)); err != nil {
				return err
			}
			continue
		}
		if err := w.addTree(fsw, abs); err != nil {
			return err
		}
	}
	return nil
}

// addTree watches root and every non-ignored directory below it.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && w.shouldIgnore(p) {
			return filepath.SkipDir
		}
		return fsw.Add(p)
	})
}

// translate turns a raw event into a pending change. New directories are
// added to the watch set and produce no change themselves.
func (w *Watcher) translate(fsw *fsnotify.Watcher, event fsnotify.Event) (Change, bool) {
	name := filepath.Clean(event.Name)

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			if len(w.files) == 0 && !w.shouldIgnore(name) {
				if err := w.addTree(fsw, name); err != nil {
					w.logger.Warn("watch directory", "path", name, "error", err)
				}
			}
			return Change{}, false
		}
	}

	if len(w.files) > 0 && !w.files[name] {
		return Change{}, false
	}
	if w.shouldIgnore(name) {
		return Change{}, false
	}

	switch {
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
		return Change{Path: name, Type: classifyChange(name)}, true
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return Change{Path: name, Type: classifyChange(name), Removed: true}, true
	default:
		return Change{}, false
	}
}

// flush reports pending changes in path order.
func flush(pending map[string]Change, callback func(Change)) {
	if callback == nil || len(pending) == 0 {
		return
	}
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		callback(pending[p])
	}
}

// shouldIgnore checks if a path should be ignored.
func (w *Watcher) shouldIgnore(fullPath string) bool {
	name := filepath.Base(fullPath)
	normalized := filepath.ToSlash(fullPath)

	for _, pattern := range w.config.Ignore {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if name == pattern {
			return true
		}

		hasPathSep := strings.Contains(pattern, "/")
		if strings.ContainsAny(pattern, "*?[") {
			if hasPathSep {
				if matched, _ := path.Match(pattern, normalized); matched {
					return true
				}
			} else if matched, _ := filepath.Match(pattern, name); matched {
				return true
			}
			continue
		}

		if pathHasSegment(normalized, pattern) {
			return true
		}
	}
	return false
}

func pathHasSegment(p, segment string) bool {
	for _, part := range strings.Split(p, "/") {
		if part == segment {
			return true
		}
	}
	return false
}

// classifyChange determines the type of change from the file name.
func classifyChange(p string) ChangeType {
	switch strings.ToLower(filepath.Base(p)) {
	case "reconcile.yaml", "reconcile.json":
		return ChangeConfig
	}
	switch strings.ToLower(filepath.Ext(p)) {
	case ".yaml", ".yml", ".json":
		return ChangeDocument
	default:
		return ChangeOther
	}
}
