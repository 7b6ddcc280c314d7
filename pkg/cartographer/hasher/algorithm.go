package hasher

import (
	"crypto/md5" //nolint:gosec // change detection, not a security boundary
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strings"

	"github.com/zeebo/xxh3"
)

// Algorithm names a 128-bit content digest.
type Algorithm string

const (
	// MD5 is the default digest and the one older checkpoints were written with.
	MD5 Algorithm = "md5"
	// XXH3 is the 128-bit variant of xxHash3; much faster on large trees.
	XXH3 Algorithm = "xxh3"
)

// DefaultAlgorithm is used when nothing is configured or recorded.
const DefaultAlgorithm = MD5

// ErrUnknownAlgorithm is returned for an unsupported algorithm name.
var ErrUnknownAlgorithm = errors.New("unknown hash algorithm")

// ParseAlgorithm parses a case-insensitive algorithm name. Empty means
// DefaultAlgorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(s))) {
	case "", MD5:
		return MD5, nil
	case XXH3:
		return XXH3, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
	}
}

// String returns the algorithm name.
func (a Algorithm) String() string {
	return string(a)
}

// digest accumulates bytes and renders a lowercase hex sum.
type digest interface {
	Write(p []byte) (int, error)
	Sum() string
}

func (a Algorithm) newDigest() digest {
	if a == XXH3 {
		return xxh3Digest{h: xxh3.New()}
	}
	return stdDigest{h: md5.New()} //nolint:gosec
}

type stdDigest struct {
	h hash.Hash
}

func (d stdDigest) Write(p []byte) (int, error) { return d.h.Write(p) }
func (d stdDigest) Sum() string                 { return hex.EncodeToString(d.h.Sum(nil)) }

type xxh3Digest struct {
	h *xxh3.Hasher
}

func (d xxh3Digest) Write(p []byte) (int, error) { return d.h.Write(p) }

func (d xxh3Digest) Sum() string {
	sum := d.h.Sum128().Bytes()
	return hex.EncodeToString(sum[:])
}
