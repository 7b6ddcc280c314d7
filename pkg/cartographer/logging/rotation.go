package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// rotatedStamp is the timestamp layout embedded in rotated file names.
const rotatedStamp = "2006-01-02-150405"

// RotationConfig configures log file rotation behavior.
type RotationConfig struct {
	// MaxSize is the size in bytes that triggers rotation. Zero means 10MiB.
	MaxSize int64

	// MaxAge is the number of days rotated files are kept. Zero keeps them.
	MaxAge int

	// MaxBackups caps the number of rotated files. Zero means no cap.
	MaxBackups int

	// Daily also rotates when the calendar day changes.
	Daily bool
}

// DefaultRotationConfig returns the rotation used when none is configured.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{
		MaxSize:    10 * 1024 * 1024,
		MaxAge:     30,
		MaxBackups: 5,
		Daily:      true,
	}
}

// RotatingWriter is an append-only log file that rolls over by size or day.
// Writes hold an advisory flock so several cartographer processes can share
// one log file.
type RotatingWriter struct {
	mu       sync.Mutex
	path     string
	cfg      RotationConfig
	file     *os.File
	size     int64
	openedOn time.Time
}

// NewRotatingWriter opens path for appending, creating parent directories.
func NewRotatingWriter(path string, cfg RotationConfig) (*RotatingWriter, error) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultRotationConfig().MaxSize
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	w := &RotatingWriter{path: path, cfg: cfg}
	if err := w.open(); err != nil {
		return nil, err
	}
	w.prune()
	return w, nil
}

// Write appends p, rotating first when the file is full or stale.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}

	if w.needsRotation(int64(len(p)), time.Now()) {
		if err := w.rotate(); err != nil {
			return 0, fmt.Errorf("rotating log file: %w", err)
		}
	}

	fd := int(w.file.Fd())
	if err := unix.Flock(fd, unix.LOCK_EX); err != nil {
		return 0, fmt.Errorf("locking log file: %w", err)
	}
	defer func() { _ = unix.Flock(fd, unix.LOCK_UN) }()

	n, err := w.file.Write(p)
	w.size += int64(n)
	if err != nil {
		return n, fmt.Errorf("writing log file: %w", err)
	}
	return n, nil
}

// Close syncs and closes the file. Closing twice is a no-op.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}

	syncErr := w.file.Sync()
	closeErr := w.file.Close()
	w.file = nil
	if syncErr != nil {
		return fmt.Errorf("syncing log file: %w", syncErr)
	}
	return closeErr
}

// Path returns the active log file path.
func (w *RotatingWriter) Path() string {
	return w.path
}

func (w *RotatingWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}

	w.file = f
	w.size = info.Size()
	w.openedOn = info.ModTime()
	return nil
}

func (w *RotatingWriter) needsRotation(incoming int64, now time.Time) bool {
	if w.size > 0 && w.size+incoming > w.cfg.MaxSize {
		return true
	}
	if !w.cfg.Daily || w.size == 0 {
		return false
	}
	y1, m1, d1 := w.openedOn.Date()
	y2, m2, d2 := now.Date()
	return y1 != y2 || m1 != m2 || d1 != d2
}

func (w *RotatingWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("closing current file: %w", err)
	}
	w.file = nil

	if err := os.Rename(w.path, w.rotatedName(time.Now())); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("renaming log file: %w", err)
	}

	if err := w.open(); err != nil {
		return err
	}
	w.openedOn = time.Now()
	w.prune()
	return nil
}

// rotatedName turns dir/name.log into dir/name.<stamp>.log.
func (w *RotatingWriter) rotatedName(at time.Time) string {
	ext := filepath.Ext(w.path)
	return strings.TrimSuffix(w.path, ext) + "." + at.Format(rotatedStamp) + ext
}

// prune deletes rotated files beyond MaxBackups or older than MaxAge.
// Failures are ignored; pruning is retried on the next rotation.
func (w *RotatingWriter) prune() {
	dir := filepath.Dir(w.path)
	base := filepath.Base(w.path)
	ext := filepath.Ext(base)
	prefix := strings.TrimSuffix(base, ext) + "."

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	type rotated struct {
		path string
		mod  time.Time
	}
	var old []rotated
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == base || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		old = append(old, rotated{path: filepath.Join(dir, name), mod: info.ModTime()})
	}

	sort.Slice(old, func(i, j int) bool { return old[i].mod.After(old[j].mod) })

	cutoff := time.Now().AddDate(0, 0, -w.cfg.MaxAge)
	for i, r := range old {
		tooMany := w.cfg.MaxBackups > 0 && i >= w.cfg.MaxBackups
		tooOld := w.cfg.MaxAge > 0 && r.mod.Before(cutoff)
		if tooMany || tooOld {
			_ = os.Remove(r.path)
		}
	}
}
