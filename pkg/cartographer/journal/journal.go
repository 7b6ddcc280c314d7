// Package journal keeps a history of checkpoint-writing runs, one JSON file
// per run.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/cartographer/pkg/cartographer/logging"
)

var logger = logging.Get("journal")

// ErrEntryNotFound is returned when no entry matches an ID.
var ErrEntryNotFound = errors.New("journal entry not found")

// minPrefix is the shortest ID prefix accepted by Get.
const minPrefix = 4

// Operation names the command that produced an entry.
type Operation string

const (
	// OpInit records an init run.
	OpInit Operation = "init"
	// OpUpdate records an update run.
	OpUpdate Operation = "update"
)

// Entry is one recorded run.
type Entry struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Operation     Operation `json:"operation"`
	Root          string    `json:"root"`
	HashAlgorithm string    `json:"hash_algorithm,omitempty"`
	Files         int       `json:"files"`
	Folders       int       `json:"folders"`
	Added         int       `json:"added"`
	Removed       int       `json:"removed"`
	Modified      int       `json:"modified"`
}

// Journal reads and writes entries in a directory.
type Journal struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// New creates a Journal rooted at dir. The directory is created on first
// write.
func New(dir string) (*Journal, error) {
	if dir == "" {
		return nil, errors.New("journal directory cannot be empty")
	}
	return &Journal{dir: dir, now: time.Now}, nil
}

// Dir returns the journal directory.
func (j *Journal) Dir() string {
	return j.dir
}

// Record assigns an ID and timestamp to e and persists it.
func (j *Journal) Record(e Entry) (*Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	e.ID = uuid.New().String()
	e.Timestamp = j.now().UTC()

	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}
	if err := j.write(&e); err != nil {
		return nil, fmt.Errorf("failed to write journal entry: %w", err)
	}

	logger.Debug("journal entry recorded", "id", e.ID, "operation", e.Operation, "root", e.Root)
	return &e, nil
}

func (j *Journal) write(e *Entry) error {
	path := filepath.Join(j.dir, e.ID+".json")

	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// List returns entries newest first. A limit of zero or less returns all.
// Files that cannot be parsed are skipped.
func (j *Journal) List(limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := j.readAll()
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(a, b int) bool {
		return entries[a].Timestamp.After(entries[b].Timestamp)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Get returns the entry whose ID equals id or, failing that, the single
// entry whose ID starts with id.
func (j *Journal) Get(id string) (*Entry, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return nil, errors.New("entry ID cannot be empty")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if _, err := uuid.Parse(id); err == nil {
		e, err := j.readFile(id + ".json")
		if err == nil {
			return e, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	if len(id) < minPrefix {
		return nil, fmt.Errorf("entry ID prefix %q too short", id)
	}

	entries, err := j.readAll()
	if err != nil {
		return nil, err
	}
	var match *Entry
	for i := range entries {
		if !strings.HasPrefix(entries[i].ID, id) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("entry ID prefix %q is ambiguous", id)
		}
		match = &entries[i]
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	return match, nil
}

// Cleanup removes entries recorded more than retentionDays ago and returns
// how many were removed. A non-positive retention keeps everything.
func (j *Journal) Cleanup(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := j.readAll()
	if err != nil {
		return 0, err
	}

	cutoff := j.now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, e := range entries {
		if !e.Timestamp.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(j.dir, e.ID+".json")); err != nil {
			logger.Warn("failed to remove journal entry", "id", e.ID, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// Clear removes every entry.
func (j *Journal) Clear() (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := j.readAll()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if err := os.Remove(filepath.Join(j.dir, e.ID+".json")); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (j *Journal) readAll() ([]Entry, error) {
	files, err := os.ReadDir(j.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read journal directory: %w", err)
	}

	entries := []Entry{}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		e, err := j.readFile(f.Name())
		if err != nil {
			logger.Debug("skipping journal file", "file", f.Name(), "error", err)
			continue
		}
		entries = append(entries, *e)
	}
	return entries, nil
}

func (j *Journal) readFile(name string) (*Entry, error) {
	data, err := os.ReadFile(filepath.Join(j.dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	if e.ID+".json" != name {
		return nil, fmt.Errorf("entry ID %q does not match file %s", e.ID, name)
	}
	return &e, nil
}
