// Package cache keeps file digests in a Badger store so unchanged files are
// not re-read on every run.
//
// An entry is reused only when the file's size, modification time and the
// digest algorithm all match what was recorded. The cache is advisory:
// store failures are logged and treated as misses.
package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/jamesainslie/cartographer/pkg/cartographer/logging"
)

var logger = logging.Get("cache")

// Cache is a digest cache backed by a Badger store.
type Cache struct {
	store *Store
	path  string
}

// Open opens or creates the cache at path.
func Open(path string) (*Cache, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	store, err := OpenStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return &Cache{store: store, path: path}, nil
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}

// Path returns the cache directory.
func (c *Cache) Path() string {
	return c.path
}

// Clear removes all entries for root.
func (c *Cache) Clear(root string) error {
	return c.store.DeletePrefix(root)
}

// ClearAll removes every entry.
func (c *Cache) ClearAll() error {
	return c.store.DropAll()
}

// Stats reports the number of cached digests and roots.
func (c *Cache) Stats() (Stats, error) {
	return c.store.Stats()
}

// ForRoot returns a view that serves lookups for files under root hashed
// with algorithm. Stored digests are buffered until Flush.
func (c *Cache) ForRoot(root, algorithm string) *RootView {
	return &RootView{
		store:     c.store,
		root:      root,
		algorithm: algorithm,
		pending:   make(map[string]*Entry),
	}
}

// RootView is the per-run cache handle passed to the hasher.
type RootView struct {
	store     *Store
	root      string
	algorithm string

	mu      sync.Mutex
	pending map[string]*Entry
	hits    int
	misses  int
}

// Lookup returns the cached digest for rel if info still matches.
func (v *RootView) Lookup(rel string, info fs.FileInfo) (string, bool) {
	entry, err := v.store.Get(v.root, rel)

	v.mu.Lock()
	defer v.mu.Unlock()

	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Debug("cache lookup failed", "path", rel, "error", err)
		}
		v.misses++
		return "", false
	}
	if !entry.Matches(info.Size(), info.ModTime().UnixNano(), v.algorithm) {
		v.misses++
		return "", false
	}
	v.hits++
	return entry.Digest, true
}

// Store records digest for rel. It is written on the next Flush.
func (v *RootView) Store(rel string, info fs.FileInfo, digest string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.pending[rel] = &Entry{
		Size:      info.Size(),
		Mtime:     info.ModTime().UnixNano(),
		Algorithm: v.algorithm,
		Digest:    digest,
	}
}

// Flush writes buffered entries in one batch.
func (v *RootView) Flush() error {
	v.mu.Lock()
	pending := v.pending
	v.pending = make(map[string]*Entry)
	hits, misses := v.hits, v.misses
	v.mu.Unlock()

	logger.Debug("cache flush", "root", v.root, "hits", hits, "misses", misses, "stored", len(pending))
	if len(pending) == 0 {
		return nil
	}
	if err := v.store.PutBatch(v.root, pending); err != nil {
		return fmt.Errorf("failed to write cache entries: %w", err)
	}
	return nil
}

// Hits returns the number of lookups served from the cache.
func (v *RootView) Hits() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hits
}
