// Package watcher reports when a tracked root has settled after filesystem
// activity, so callers can re-run change detection.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jamesainslie/cartographer/pkg/cartographer/logging"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 500 * time.Millisecond

var logger = logging.Get("watcher")

// ErrClosed is returned by Watch and Run after Close.
var ErrClosed = errors.New("watcher closed")

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the tree must be quiet before a settle fires.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithSkip excludes root-relative directories (and everything below them)
// from watching. Used for the state directory.
func WithSkip(dirs ...string) Option {
	return func(w *Watcher) {
		for _, d := range dirs {
			d = strings.Trim(filepath.ToSlash(filepath.Clean(d)), "/")
			if d != "" && d != "." {
				w.skip = append(w.skip, d)
			}
		}
	}
}

// Watcher watches every non-hidden directory under a root.
type Watcher struct {
	root     string
	skip     []string
	debounce time.Duration
	fsw      *fsnotify.Watcher

	mu     sync.Mutex
	paths  map[string]bool
	closed bool
}

// New creates a Watcher for root. Call Watch to register directories.
func New(root string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	w := &Watcher{
		root:     abs,
		debounce: DefaultDebounce,
		fsw:      fsw,
		paths:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Root returns the watched root.
func (w *Watcher) Root() string {
	return w.root
}

// Watch registers the root and all of its non-hidden, non-skipped
// subdirectories. Symlinked directories are not followed.
func (w *Watcher) Watch() error {
	info, err := os.Stat(w.root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", w.root)
	}
	return w.addTree(w.root)
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			logger.Debug("walk error", "path", path, "error", walkErr)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.ignored(path, true) {
			return filepath.SkipDir
		}
		return w.add(path)
	})
}

func (w *Watcher) add(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if w.paths[path] {
		return nil
	}
	if err := w.fsw.Add(path); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}
	w.paths[path] = true
	return nil
}

func (w *Watcher) remove(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for p := range w.paths {
		if p == path || isSubPath(p, path) {
			_ = w.fsw.Remove(p)
			delete(w.paths, p)
		}
	}
}

// Watched returns the number of registered directories.
func (w *Watcher) Watched() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.paths)
}

// ignored reports whether an event path is outside the tracked tree: inside
// a hidden directory, a hidden directory itself, or under a skipped
// directory.
func (w *Watcher) ignored(path string, isDir bool) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return true
	}
	rel = filepath.ToSlash(rel)

	for _, s := range w.skip {
		if rel == s || strings.HasPrefix(rel, s+"/") {
			return true
		}
	}

	parts := strings.Split(rel, "/")
	for i, part := range parts {
		if !strings.HasPrefix(part, ".") || part == "." {
			continue
		}
		if i < len(parts)-1 || isDir {
			return true
		}
	}
	return false
}

// Run processes events until ctx is done. After a relevant event, once no
// further relevant events arrive for the debounce period, onSettle is
// called. Calls to onSettle are sequential.
func (w *Watcher) Run(ctx context.Context, onSettle func(context.Context)) error {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return ErrClosed
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.handle(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			logger.Debug("tree settled", "root", w.root)
			if onSettle != nil {
				onSettle(ctx)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)
		}
	}
}

// handle keeps directory watches current and reports whether the event
// concerns the tracked tree.
func (w *Watcher) handle(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}

	isDir := false
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
			isDir = true
		}
	}

	if w.ignored(event.Name, isDir) {
		return false
	}

	switch {
	case isDir:
		if err := w.addTree(event.Name); err != nil {
			logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
		}
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.remove(event.Name)
	}

	logger.Debug("event", "path", event.Name, "op", event.Op.String())
	return true
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.paths = make(map[string]bool)
	return w.fsw.Close()
}

func isSubPath(path, parent string) bool {
	return len(path) > len(parent) && path[:len(parent)+1] == parent+string(filepath.Separator)
}
