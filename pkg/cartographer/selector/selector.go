// Package selector walks a tracked root and yields the sorted set of
// root-relative file paths chosen by the ignore, exclude, exception and
// include rules.
package selector

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/jamesainslie/cartographer/pkg/cartographer/logging"
)

// logger is the package-level logger for selection.
var logger = logging.Get("selector")

// ErrNotDirectory is returned when the root is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// Options configures a selection run.
type Options struct {
	// Root is the absolute path of the tracked directory.
	Root string

	// Include contains patterns a file must match to be selected.
	Include []string

	// Exclude contains patterns that drop a file unless it is an exception.
	Exclude []string

	// Exceptions are exact relative paths forced into the selection
	// unless the ignore file matches them.
	Exceptions []string

	// Ignore contains the host ignore-file patterns. They always win.
	Ignore []string

	// Workers is the number of walk workers. Zero uses the fastwalk default.
	Workers int
}

// Select walks opts.Root and returns the selected relative paths in
// lexicographic order. Hidden directories below the root are pruned.
func Select(ctx context.Context, opts Options) ([]string, error) {
	rules, err := NewRules(opts.Include, opts.Exclude, opts.Exceptions, opts.Ignore)
	if err != nil {
		return nil, err
	}
	return Walk(ctx, opts.Root, rules, opts.Workers)
}

// Walk is Select with precompiled rules.
func Walk(ctx context.Context, root string, rules *Rules, workers int) ([]string, error) {
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	var (
		mu       sync.Mutex
		selected []string
	)

	conf := fastwalk.Config{
		Follow:     false, // Symlinked directories are not descended.
		NumWorkers: workers,
	}

	walkErr := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			logger.Debug("walk error", "path", path, "error", err)
			return nil
		}
		if path == root {
			return nil
		}

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") {
				return fastwalk.SkipDir
			}
			return nil
		}

		if !isRegularFile(path, d) {
			return nil
		}

		rel, err := RelPath(root, path)
		if err != nil {
			logger.Debug("relative path failed", "path", path, "error", err)
			return nil
		}

		if rules.Selected(rel) {
			mu.Lock()
			selected = append(selected, rel)
			mu.Unlock()
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walking %s: %w", root, walkErr)
	}

	sort.Strings(selected)
	logger.Debug("selection complete", "root", root, "files", len(selected))
	return selected, nil
}

// isRegularFile reports whether the entry is a regular file or a symlink
// that resolves to one.
func isRegularFile(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// RelPath returns path relative to root in slash form without a leading "./".
func RelPath(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	return strings.TrimPrefix(rel, "./"), nil
}
