// Package tracker runs the init, changes and update operations against a
// tracked root: select files, hash them, and compare with or replace the
// stored checkpoint.
//
// A Tracker is built per invocation from explicit Options; nothing is read
// from global configuration.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jamesainslie/cartographer/pkg/cartographer/cache"
	"github.com/jamesainslie/cartographer/pkg/cartographer/changes"
	"github.com/jamesainslie/cartographer/pkg/cartographer/codemap"
	"github.com/jamesainslie/cartographer/pkg/cartographer/hasher"
	"github.com/jamesainslie/cartographer/pkg/cartographer/journal"
	"github.com/jamesainslie/cartographer/pkg/cartographer/logging"
	"github.com/jamesainslie/cartographer/pkg/cartographer/selector"
	"github.com/jamesainslie/cartographer/pkg/cartographer/state"
)

var logger = logging.Get("tracker")

// DefaultVersion is written into checkpoints when Options.Version is empty.
const DefaultVersion = "1.0.0"

var (
	// ErrSetup is returned when the root is missing or not a directory.
	ErrSetup = errors.New("invalid root")

	// ErrNoCheckpoint is returned by Changes and Update when no usable
	// checkpoint exists.
	ErrNoCheckpoint = errors.New("no state found, run 'init' first")
)

// Operation names a tracker run.
type Operation string

const (
	OpInit    Operation = "init"
	OpChanges Operation = "changes"
	OpUpdate  Operation = "update"
)

// Options configures a Tracker.
type Options struct {
	// Root is the directory to track. Relative paths are resolved.
	Root string

	// Include, Exclude and Exceptions are the selection used by Init.
	// Changes and Update always reuse the checkpoint's selection.
	Include    []string
	Exclude    []string
	Exceptions []string

	// IgnoreFile names the host ignore file at the root. Empty means
	// .gitignore.
	IgnoreFile string

	// StateDir is the state directory name under the root. Empty means .slim.
	StateDir string

	// Algorithm is the digest used by Init. Empty means md5.
	Algorithm hasher.Algorithm

	// Workers is the number of directory walk workers. Zero is automatic.
	Workers int

	// Version is recorded in checkpoints.
	Version string

	// Cache, when set, lets unchanged files skip hashing.
	Cache *cache.Cache

	// Journal, when set, receives an entry for every Init and Update.
	Journal *journal.Journal

	// Now is the clock. Nil means time.Now.
	Now func() time.Time
}

// Result describes one run.
type Result struct {
	Operation Operation

	// Root is the resolved absolute root.
	Root string

	// StateFile is the checkpoint path relative to Root.
	StateFile string

	// Checkpoint is the checkpoint written by Init or Update, or the stored
	// one for Changes.
	Checkpoint *state.Checkpoint

	// Current holds the freshly computed file digests.
	Current map[string]string

	// Folders is the freshly computed folder set.
	Folders []string

	// Changes compares Current with the stored checkpoint. Nil for Init.
	Changes *changes.ChangeSet

	// CodemapsCreated counts placeholders written by Init.
	CodemapsCreated int

	// Duration is the wall time of the run.
	Duration time.Duration
}

// Tracker runs operations against one root.
type Tracker struct {
	opts  Options
	root  string
	store *state.Store
	now   func() time.Time
}

// New resolves and validates the root. It returns ErrSetup if the root does
// not exist or is not a directory.
func New(opts Options) (*Tracker, error) {
	root, err := resolveRoot(opts.Root)
	if err != nil {
		return nil, err
	}

	if opts.IgnoreFile == "" {
		opts.IgnoreFile = selector.DefaultIgnoreFile
	}
	if opts.Algorithm == "" {
		opts.Algorithm = hasher.DefaultAlgorithm
	}
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}
	if len(opts.Include) == 0 {
		opts.Include = state.DefaultInclude()
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Tracker{
		opts:  opts,
		root:  root,
		store: state.New(opts.StateDir),
		now:   now,
	}, nil
}

// Root returns the resolved absolute root.
func (t *Tracker) Root() string {
	return t.root
}

// Store returns the checkpoint store.
func (t *Tracker) Store() *state.Store {
	return t.store
}

// StateDir returns the absolute state directory.
func (t *Tracker) StateDir() string {
	return t.store.Dir(t.root)
}

func resolveRoot(root string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("%w: root path is empty", ErrSetup)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSetup, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrSetup, abs)
	}
	return abs, nil
}

// selection is the configuration a snapshot is computed with.
type selection struct {
	include    []string
	exclude    []string
	exceptions []string
	algorithm  hasher.Algorithm
}

// snapshot is the computed state of the tree.
type snapshot struct {
	files   []string
	folders []string
	digests map[string]string
	folderD map[string]string
}

func (t *Tracker) selectFiles(ctx context.Context, sel selection) ([]string, error) {
	ignore, err := selector.LoadIgnoreFile(t.root, t.opts.IgnoreFile)
	if err != nil {
		return nil, err
	}
	// The state directory never tracks itself, hidden or not.
	ignore = append(ignore, "/"+filepath.ToSlash(t.store.RelDir())+"/")

	files, err := selector.Select(ctx, selector.Options{
		Root:       t.root,
		Include:    sel.include,
		Exclude:    sel.exclude,
		Exceptions: sel.exceptions,
		Ignore:     ignore,
		Workers:    t.opts.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("selecting files: %w", err)
	}
	return files, nil
}

func (t *Tracker) hash(ctx context.Context, sel selection, files []string) (*snapshot, error) {
	var opts []hasher.Option
	var view *cache.RootView
	if t.opts.Cache != nil {
		view = t.opts.Cache.ForRoot(t.root, sel.algorithm.String())
		opts = append(opts, hasher.WithCache(view))
	}
	h := hasher.New(sel.algorithm, opts...)

	digests, err := h.HashFiles(ctx, t.root, files)
	if err != nil {
		return nil, err
	}
	if view != nil {
		if err := view.Flush(); err != nil {
			logger.Warn("digest cache flush failed", "root", t.root, "error", err)
		}
	}

	folders := hasher.FolderSet(files)
	return &snapshot{
		files:   files,
		folders: folders,
		digests: digests,
		folderD: h.HashFolders(folders, digests),
	}, nil
}

func (t *Tracker) checkpoint(sel selection, snap *snapshot, at time.Time) *state.Checkpoint {
	return &state.Checkpoint{
		Metadata: state.Metadata{
			Version:       t.opts.Version,
			LastRun:       at.UTC(),
			Root:          t.root,
			Include:       append([]string{}, sel.include...),
			Exclude:       append([]string{}, sel.exclude...),
			Exceptions:    append([]string{}, sel.exceptions...),
			HashAlgorithm: sel.algorithm.String(),
		},
		FileHashes:   snap.digests,
		FolderHashes: snap.folderD,
	}
}

// Init selects and hashes the tree with the configured selection, creates
// missing codemap placeholders, and writes a fresh checkpoint.
// Placeholders are created before hashing so they are part of the
// checkpoint and an immediate Changes reports nothing.
func (t *Tracker) Init(ctx context.Context) (*Result, error) {
	start := t.now()
	sel := selection{
		include:    nonNil(t.opts.Include),
		exclude:    nonNil(t.opts.Exclude),
		exceptions: nonNil(t.opts.Exceptions),
		algorithm:  t.opts.Algorithm,
	}

	files, err := t.selectFiles(ctx, sel)
	if err != nil {
		return nil, err
	}
	logger.Info("selected files", "root", t.root, "files", len(files))

	created, err := codemap.Ensure(t.root, hasher.FolderSet(files))
	if err != nil {
		return nil, fmt.Errorf("creating codemaps: %w", err)
	}
	if created > 0 {
		if files, err = t.selectFiles(ctx, sel); err != nil {
			return nil, err
		}
	}

	snap, err := t.hash(ctx, sel, files)
	if err != nil {
		return nil, err
	}

	cp := t.checkpoint(sel, snap, t.now())
	if err := t.store.Save(t.root, cp); err != nil {
		return nil, fmt.Errorf("saving checkpoint: %w", err)
	}
	logger.Info("checkpoint created", "root", t.root, "files", len(snap.files), "folders", len(snap.folders), "codemaps", created)

	res := &Result{
		Operation:       OpInit,
		Root:            t.root,
		StateFile:       t.store.RelPath(),
		Checkpoint:      cp,
		Current:         snap.digests,
		Folders:         snap.folders,
		CodemapsCreated: created,
		Duration:        t.now().Sub(start),
	}
	t.record(journal.OpInit, res)
	return res, nil
}

// Changes recomputes the tree with the checkpoint's selection and compares
// it with the stored digests. Nothing is written.
func (t *Tracker) Changes(ctx context.Context) (*Result, error) {
	start := t.now()

	saved, sel, err := t.load()
	if err != nil {
		return nil, err
	}

	snap, err := t.compute(ctx, sel)
	if err != nil {
		return nil, err
	}

	cs := changes.Detect(snap.digests, saved.FileHashes)
	logger.Debug("changes detected", "root", t.root, "added", len(cs.Added), "removed", len(cs.Removed), "modified", len(cs.Modified))

	return &Result{
		Operation:  OpChanges,
		Root:       t.root,
		StateFile:  t.store.RelPath(),
		Checkpoint: saved,
		Current:    snap.digests,
		Folders:    snap.folders,
		Changes:    cs,
		Duration:   t.now().Sub(start),
	}, nil
}

// Update recomputes the tree with the checkpoint's selection and replaces
// the checkpoint. Codemap placeholders are not created.
func (t *Tracker) Update(ctx context.Context) (*Result, error) {
	start := t.now()

	saved, sel, err := t.load()
	if err != nil {
		return nil, err
	}

	snap, err := t.compute(ctx, sel)
	if err != nil {
		return nil, err
	}
	cs := changes.Detect(snap.digests, saved.FileHashes)

	cp := t.checkpoint(sel, snap, t.now())
	if err := t.store.Save(t.root, cp); err != nil {
		return nil, fmt.Errorf("saving checkpoint: %w", err)
	}
	logger.Info("checkpoint updated", "root", t.root, "files", len(snap.files), "changed", cs.Count())

	res := &Result{
		Operation:  OpUpdate,
		Root:       t.root,
		StateFile:  t.store.RelPath(),
		Checkpoint: cp,
		Current:    snap.digests,
		Folders:    snap.folders,
		Changes:    cs,
		Duration:   t.now().Sub(start),
	}
	t.record(journal.OpUpdate, res)
	return res, nil
}

func (t *Tracker) load() (*state.Checkpoint, selection, error) {
	cp, err := t.store.Load(t.root)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return nil, selection{}, ErrNoCheckpoint
		}
		return nil, selection{}, err
	}

	algo, err := hasher.ParseAlgorithm(cp.Metadata.HashAlgorithm)
	if err != nil {
		return nil, selection{}, fmt.Errorf("checkpoint %s: %w", t.store.Path(t.root), err)
	}

	return cp, selection{
		include:    cp.Metadata.Include,
		exclude:    cp.Metadata.Exclude,
		exceptions: cp.Metadata.Exceptions,
		algorithm:  algo,
	}, nil
}

func (t *Tracker) compute(ctx context.Context, sel selection) (*snapshot, error) {
	files, err := t.selectFiles(ctx, sel)
	if err != nil {
		return nil, err
	}
	return t.hash(ctx, sel, files)
}

// record writes a journal entry. Journal failures never fail the run.
func (t *Tracker) record(op journal.Operation, res *Result) {
	if t.opts.Journal == nil {
		return
	}

	entry := journal.Entry{
		Operation:     op,
		Root:          res.Root,
		HashAlgorithm: res.Checkpoint.Metadata.HashAlgorithm,
		Files:         len(res.Current),
		Folders:       len(res.Folders),
	}
	if res.Changes != nil {
		entry.Added = len(res.Changes.Added)
		entry.Removed = len(res.Changes.Removed)
		entry.Modified = len(res.Changes.Modified)
	} else {
		entry.Added = len(res.Current)
	}

	if _, err := t.opts.Journal.Record(entry); err != nil {
		logger.Warn("journal write failed", "root", res.Root, "error", err)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
