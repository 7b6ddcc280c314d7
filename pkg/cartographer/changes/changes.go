// Package changes compares a freshly computed file record against a saved
// one and reports what was added, removed and modified.
package changes

import (
	"fmt"
	"sort"

	"github.com/gobwas/glob"

	"github.com/jamesainslie/cartographer/pkg/cartographer/hasher"
)

// ChangeSet is the difference between two file records. All slices are
// sorted and never nil.
type ChangeSet struct {
	Added           []string `json:"added" yaml:"added"`
	Removed         []string `json:"removed" yaml:"removed"`
	Modified        []string `json:"modified" yaml:"modified"`
	AffectedFolders []string `json:"affected_folders" yaml:"affected_folders"`
}

// Detect classifies every path of current and saved. A path present in both
// with different digests is modified; the empty unreadable digest compares
// like any other value.
func Detect(current, saved map[string]string) *ChangeSet {
	cs := &ChangeSet{
		Added:    []string{},
		Removed:  []string{},
		Modified: []string{},
	}

	for path, digest := range current {
		old, ok := saved[path]
		switch {
		case !ok:
			cs.Added = append(cs.Added, path)
		case old != digest:
			cs.Modified = append(cs.Modified, path)
		}
	}
	for path := range saved {
		if _, ok := current[path]; !ok {
			cs.Removed = append(cs.Removed, path)
		}
	}

	sort.Strings(cs.Added)
	sort.Strings(cs.Removed)
	sort.Strings(cs.Modified)
	cs.AffectedFolders = AffectedFolders(cs.Changed())
	return cs
}

// AffectedFolders returns every ancestor folder of the given paths, plus the
// root folder when paths is non-empty. The result is sorted.
func AffectedFolders(paths []string) []string {
	if len(paths) == 0 {
		return []string{}
	}

	set := map[string]struct{}{hasher.RootFolder: {}}
	for _, p := range paths {
		for _, a := range hasher.Ancestors(p) {
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

// Changed returns added, removed and modified paths as one sorted slice.
func (cs *ChangeSet) Changed() []string {
	out := make([]string, 0, cs.Count())
	out = append(out, cs.Added...)
	out = append(out, cs.Removed...)
	out = append(out, cs.Modified...)
	sort.Strings(out)
	return out
}

// Count returns the number of changed files.
func (cs *ChangeSet) Count() int {
	return len(cs.Added) + len(cs.Removed) + len(cs.Modified)
}

// Empty reports whether no file changed.
func (cs *ChangeSet) Empty() bool {
	return cs.Count() == 0
}

// Restrict returns a copy holding only paths that match at least one shell
// glob. '*' stops at '/', '**' does not. With no globs the copy is complete.
func (cs *ChangeSet) Restrict(globs []string) (*ChangeSet, error) {
	if len(globs) == 0 {
		return cs.clone(), nil
	}

	compiled := make([]glob.Glob, 0, len(globs))
	for _, pattern := range globs {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", pattern, err)
		}
		compiled = append(compiled, g)
	}

	keep := func(paths []string) []string {
		out := []string{}
		for _, p := range paths {
			for _, g := range compiled {
				if g.Match(p) {
					out = append(out, p)
					break
				}
			}
		}
		return out
	}

	restricted := &ChangeSet{
		Added:    keep(cs.Added),
		Removed:  keep(cs.Removed),
		Modified: keep(cs.Modified),
	}
	restricted.AffectedFolders = AffectedFolders(restricted.Changed())
	return restricted, nil
}

func (cs *ChangeSet) clone() *ChangeSet {
	return &ChangeSet{
		Added:           append([]string{}, cs.Added...),
		Removed:         append([]string{}, cs.Removed...),
		Modified:        append([]string{}, cs.Modified...),
		AffectedFolders: append([]string{}, cs.AffectedFolders...),
	}
}
