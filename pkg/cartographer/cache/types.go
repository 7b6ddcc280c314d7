package cache

import (
	"bytes"
	"encoding/gob"
)

// KeySeparator separates root from relative path in cache keys.
const KeySeparator = '\x00'

// Entry is a cached digest together with the file metadata it was taken at.
type Entry struct {
	Size      int64  // File size in bytes
	Mtime     int64  // Modification time as UnixNano
	Algorithm string // Digest algorithm name
	Digest    string // Lowercase hex digest
}

// Encode serializes the entry using gob.
func (e *Entry) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes data into the entry.
func (e *Entry) Decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(e)
}

// Matches reports whether the entry was taken for the same content
// metadata and algorithm.
func (e *Entry) Matches(size, mtime int64, algorithm string) bool {
	return e.Size == size && e.Mtime == mtime && e.Algorithm == algorithm
}

// MakeKey creates a key of the form <root>\x00<relative_path>.
func MakeKey(root, relPath string) []byte {
	return []byte(root + string(KeySeparator) + relPath)
}

// ParseKey splits a key into root and relative path.
func ParseKey(key []byte) (root, relPath string) {
	idx := bytes.IndexByte(key, KeySeparator)
	if idx == -1 {
		return string(key), ""
	}
	return string(key[:idx]), string(key[idx+1:])
}

// MakeKeyPrefix returns the prefix shared by every key under root.
func MakeKeyPrefix(root string) []byte {
	return []byte(root + string(KeySeparator))
}
