package cache

import (
	"errors"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned when a cache entry doesn't exist.
var ErrNotFound = errors.New("cache entry not found")

// Store wraps Badger for digest cache operations.
type Store struct {
	db *badger.DB
}

// Stats summarises the contents of a store.
type Stats struct {
	Entries int
	Roots   int
}

// OpenStore opens or creates a store at path.
func OpenStore(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get retrieves the entry for root and relPath.
func (s *Store) Get(root, relPath string) (*Entry, error) {
	var entry Entry

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(MakeKey(root, relPath))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(entry.Decode)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Put stores a single entry.
func (s *Store) Put(root, relPath string, entry *Entry) error {
	value, err := entry.Encode()
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(MakeKey(root, relPath), value)
	})
}

// PutBatch stores many entries under root in one write batch.
func (s *Store) PutBatch(root string, entries map[string]*Entry) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for relPath, entry := range entries {
		value, err := entry.Encode()
		if err != nil {
			return err
		}
		if err := wb.Set(MakeKey(root, relPath), value); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// DeletePrefix removes every entry under root.
func (s *Store) DeletePrefix(root string) error {
	prefix := MakeKeyPrefix(root)

	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := txn.Delete(it.Item().KeyCopy(nil)); err != nil {
				return err
			}
		}
		return nil
	})
}

// DropAll removes every entry in the store.
func (s *Store) DropAll() error {
	return s.db.DropAll()
}

// Stats counts entries and distinct roots.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	roots := map[string]struct{}{}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			root, _ := ParseKey(it.Item().Key())
			roots[root] = struct{}{}
			st.Entries++
		}
		return nil
	})
	st.Roots = len(roots)
	return st, err
}
