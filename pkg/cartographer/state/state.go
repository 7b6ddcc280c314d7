// Package state persists checkpoints: the file and folder digests of the last
// run together with the selection configuration that produced them.
//
// A checkpoint lives at <root>/<dir>/cartography.json. Loading treats a
// missing file and an unparsable one the same way: both report ErrNotFound.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jamesainslie/cartographer/pkg/cartographer/logging"
)

// logger is the package-level logger for checkpoint I/O.
var logger = logging.Get("state")

const (
	// DefaultDir is the state directory created under the tracked root.
	DefaultDir = ".slim"
	// FileName is the checkpoint file name inside the state directory.
	FileName = "cartography.json"
	// DefaultAlgorithm is assumed for checkpoints that do not record one.
	DefaultAlgorithm = "md5"
)

// ErrNotFound is returned when no usable checkpoint exists.
var ErrNotFound = errors.New("checkpoint not found")

// DefaultInclude is the include list assumed when a checkpoint omits it.
func DefaultInclude() []string {
	return []string{"**/*"}
}

// Metadata describes how and when a checkpoint was produced.
type Metadata struct {
	Version       string    `json:"version"`
	LastRun       time.Time `json:"last_run"`
	Root          string    `json:"root"`
	Include       []string  `json:"include_patterns"`
	Exclude       []string  `json:"exclude_patterns"`
	Exceptions    []string  `json:"exceptions"`
	HashAlgorithm string    `json:"hash_algorithm"`
}

// Checkpoint is the persisted result of a run.
type Checkpoint struct {
	Metadata     Metadata          `json:"metadata"`
	FileHashes   map[string]string `json:"file_hashes"`
	FolderHashes map[string]string `json:"folder_hashes"`
}

// wireMetadata tolerates missing fields and free-form timestamps.
type wireMetadata struct {
	Version       *string  `json:"version"`
	LastRun       *string  `json:"last_run"`
	Root          *string  `json:"root"`
	Include       []string `json:"include_patterns"`
	Exclude       []string `json:"exclude_patterns"`
	Exceptions    []string `json:"exceptions"`
	HashAlgorithm *string  `json:"hash_algorithm"`
}

type wireCheckpoint struct {
	Metadata     *wireMetadata     `json:"metadata"`
	FileHashes   map[string]string `json:"file_hashes"`
	FolderHashes map[string]string `json:"folder_hashes"`
}

// Store reads and writes checkpoints under a state directory name.
type Store struct {
	dir string
}

// New creates a Store using dir as the state directory name. Empty means
// DefaultDir.
func New(dir string) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	return &Store{dir: filepath.Clean(dir)}
}

// Dir returns the state directory for root.
func (s *Store) Dir(root string) string {
	return filepath.Join(root, s.dir)
}

// RelDir returns the state directory name relative to the root.
func (s *Store) RelDir() string {
	return s.dir
}

// Path returns the checkpoint file path for root.
func (s *Store) Path(root string) string {
	return filepath.Join(root, s.dir, FileName)
}

// RelPath returns the checkpoint path relative to the root, slash separated.
func (s *Store) RelPath() string {
	return filepath.ToSlash(filepath.Join(s.dir, FileName))
}

// Exists reports whether a checkpoint file is present, usable or not.
func (s *Store) Exists(root string) bool {
	_, err := os.Stat(s.Path(root))
	return err == nil
}

// Load reads the checkpoint for root. Missing fields take their documented
// fallbacks. A missing, malformed or mistyped file yields ErrNotFound.
func (s *Store) Load(root string) (*Checkpoint, error) {
	path := s.Path(root)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("checkpoint unreadable", "path", path, "error", err)
		}
		return nil, ErrNotFound
	}

	cp, err := decode(data)
	if err != nil {
		logger.Warn("checkpoint corrupt, ignoring", "path", path, "error", err)
		return nil, ErrNotFound
	}

	logger.Debug("checkpoint loaded", "path", path, "files", len(cp.FileHashes))
	return cp, nil
}

// Save writes cp for root, creating the state directory if needed. The file
// is written to a temporary sibling and renamed into place.
func (s *Store) Save(root string, cp *Checkpoint) error {
	if cp == nil {
		return errors.New("checkpoint cannot be nil")
	}

	dir := s.Dir(root)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := encode(cp)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	path := s.Path(root)
	tmpPath := path + ".tmp"
	if err := writeSynced(tmpPath, data); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	logger.Debug("checkpoint saved", "path", path, "files", len(cp.FileHashes))
	return nil
}

// Load reads a checkpoint from the default state directory.
func Load(root string) (*Checkpoint, error) {
	return New(DefaultDir).Load(root)
}

// Save writes a checkpoint to the default state directory.
func Save(root string, cp *Checkpoint) error {
	return New(DefaultDir).Save(root, cp)
}

func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func encode(cp *Checkpoint) ([]byte, error) {
	out := *cp
	out.Metadata.LastRun = cp.Metadata.LastRun.UTC()
	out.Metadata.Include = nonNil(cp.Metadata.Include)
	out.Metadata.Exclude = nonNil(cp.Metadata.Exclude)
	out.Metadata.Exceptions = nonNil(cp.Metadata.Exceptions)
	if out.Metadata.HashAlgorithm == "" {
		out.Metadata.HashAlgorithm = DefaultAlgorithm
	}
	if out.FileHashes == nil {
		out.FileHashes = map[string]string{}
	}
	if out.FolderHashes == nil {
		out.FolderHashes = map[string]string{}
	}

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func decode(data []byte) (*Checkpoint, error) {
	var w wireCheckpoint
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	// A bare JSON null decodes without error but is not a checkpoint.
	if isNull(data) {
		return nil, errors.New("checkpoint is null")
	}

	cp := &Checkpoint{
		Metadata: Metadata{
			Include:       DefaultInclude(),
			Exclude:       []string{},
			Exceptions:    []string{},
			HashAlgorithm: DefaultAlgorithm,
		},
		FileHashes:   w.FileHashes,
		FolderHashes: w.FolderHashes,
	}
	if cp.FileHashes == nil {
		cp.FileHashes = map[string]string{}
	}
	if cp.FolderHashes == nil {
		cp.FolderHashes = map[string]string{}
	}

	m := w.Metadata
	if m == nil {
		return cp, nil
	}
	if m.Version != nil {
		cp.Metadata.Version = *m.Version
	}
	if m.Root != nil {
		cp.Metadata.Root = *m.Root
	}
	if m.LastRun != nil {
		cp.Metadata.LastRun = parseTimestamp(*m.LastRun)
	}
	if m.Include != nil {
		cp.Metadata.Include = m.Include
	}
	if m.Exclude != nil {
		cp.Metadata.Exclude = m.Exclude
	}
	if m.Exceptions != nil {
		cp.Metadata.Exceptions = m.Exceptions
	}
	if m.HashAlgorithm != nil && *m.HashAlgorithm != "" {
		cp.Metadata.HashAlgorithm = *m.HashAlgorithm
	}
	return cp, nil
}

// timestampLayouts accepts RFC 3339 and the zone-less ISO form with a
// trailing Z that older checkpoints carry.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z",
	"2006-01-02T15:04:05.999999999",
}

// parseTimestamp returns the zero time for values it cannot read; last_run
// is informational and never gates change detection.
func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func isNull(data []byte) bool {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case 'n':
			return true
		default:
			return false
		}
	}
	return true
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
