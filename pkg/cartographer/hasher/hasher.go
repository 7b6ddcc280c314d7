// Package hasher computes per-file content digests and per-folder aggregate
// digests over a set of selected files.
//
// A file that cannot be read hashes to the empty string. Folder digests are
// a pure function of the sorted (path, digest) pairs beneath the folder, so
// they never depend on walk order.
package hasher

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jamesainslie/cartographer/pkg/cartographer/logging"
)

// logger is the package-level logger for hashing.
var logger = logging.Get("hasher")

// Unreadable is the digest recorded for a file that could not be read.
const Unreadable = ""

// RootFolder is the folder key for the tracked root.
const RootFolder = "."

// chunkSize is the read buffer size used when streaming file content.
const chunkSize = 8192

// DigestCache lets a Hasher skip reading files whose metadata is unchanged.
// Implementations must treat the cache as advisory.
type DigestCache interface {
	// Lookup returns a digest previously stored for rel with the same metadata.
	Lookup(rel string, info fs.FileInfo) (string, bool)
	// Store records digest for rel and its current metadata.
	Store(rel string, info fs.FileInfo, digest string)
}

// Hasher computes digests with one algorithm.
type Hasher struct {
	algo  Algorithm
	cache DigestCache
}

// Option configures a Hasher.
type Option func(*Hasher)

// WithCache sets a digest cache consulted by HashFiles.
func WithCache(c DigestCache) Option {
	return func(h *Hasher) {
		h.cache = c
	}
}

// New creates a Hasher for algo. An empty algo uses DefaultAlgorithm.
func New(algo Algorithm, opts ...Option) *Hasher {
	if algo == "" {
		algo = DefaultAlgorithm
	}
	h := &Hasher{algo: algo}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Algorithm returns the digest algorithm in use.
func (h *Hasher) Algorithm() Algorithm {
	return h.algo
}

// HashFile streams the file at path through the digest. Any open or read
// failure yields Unreadable.
func (h *Hasher) HashFile(path string) string {
	f, err := os.Open(path)
	if err != nil {
		logger.Debug("file unreadable", "path", path, "error", err)
		return Unreadable
	}
	defer f.Close()

	d := h.algo.newDigest()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(writerOnly{d}, f, buf); err != nil {
		logger.Debug("file read failed", "path", path, "error", err)
		return Unreadable
	}
	return d.Sum()
}

// writerOnly hides any ReaderFrom so CopyBuffer uses the chunk buffer.
type writerOnly struct {
	io.Writer
}

// HashFiles hashes every relative path under root and returns path → digest.
// Only context cancellation is reported as an error.
func (h *Hasher) HashFiles(ctx context.Context, root string, rels []string) (map[string]string, error) {
	out := make(map[string]string, len(rels))
	var hits int

	for _, rel := range rels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		full := filepath.Join(root, filepath.FromSlash(rel))
		if h.cache == nil {
			out[rel] = h.HashFile(full)
			continue
		}

		info, statErr := os.Stat(full)
		if statErr == nil {
			if cached, ok := h.cache.Lookup(rel, info); ok {
				out[rel] = cached
				hits++
				continue
			}
		}

		sum := h.HashFile(full)
		out[rel] = sum
		if statErr == nil && sum != Unreadable {
			h.cache.Store(rel, info, sum)
		}
	}

	logger.Debug("hashed files", "root", root, "files", len(rels), "cache_hits", hits)
	return out, nil
}

// HashFolder returns the aggregate digest of the files under folder, or
// the empty string when no file qualifies. The root folder "." covers only
// top-level files; any other folder covers everything below it.
func (h *Hasher) HashFolder(folder string, fileHashes map[string]string) string {
	var paths []string
	for p := range fileHashes {
		if inFolder(folder, p) {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return ""
	}
	sort.Strings(paths)

	d := h.algo.newDigest()
	for _, p := range paths {
		_, _ = io.WriteString(d, p+":"+fileHashes[p]+"\n")
	}
	return d.Sum()
}

// HashFolders computes HashFolder for every folder in one pass over the
// sorted file set. Every requested folder is present in the result.
func (h *Hasher) HashFolders(folders []string, fileHashes map[string]string) map[string]string {
	out := make(map[string]string, len(folders))
	for _, f := range folders {
		out[f] = ""
	}

	paths := make([]string, 0, len(fileHashes))
	for p := range fileHashes {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	digests := make(map[string]digest, len(folders))
	for _, p := range paths {
		line := p + ":" + fileHashes[p] + "\n"
		for _, folder := range containingFolders(p) {
			if _, wanted := out[folder]; !wanted {
				continue
			}
			d, ok := digests[folder]
			if !ok {
				d = h.algo.newDigest()
				digests[folder] = d
			}
			_, _ = io.WriteString(d, line)
		}
	}

	for folder, d := range digests {
		out[folder] = d.Sum()
	}
	return out
}

// FolderSet returns every ancestor directory of every path plus the root
// folder, sorted.
func FolderSet(paths []string) []string {
	set := map[string]struct{}{RootFolder: {}}
	for _, p := range paths {
		for _, a := range Ancestors(p) {
			set[a] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Ancestors returns the directory prefixes of a slash path, shallowest
// first. "a/b/c.txt" yields ["a", "a/b"]; a top-level path yields nothing.
func Ancestors(path string) []string {
	var out []string
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			out = append(out, path[:i])
		}
	}
	return out
}

// containingFolders lists the folders whose digest includes path.
func containingFolders(path string) []string {
	if !strings.Contains(path, "/") {
		return []string{RootFolder}
	}
	return Ancestors(path)
}

func inFolder(folder, path string) bool {
	if folder == RootFolder {
		return !strings.Contains(path, "/")
	}
	return strings.HasPrefix(path, folder+"/")
}
