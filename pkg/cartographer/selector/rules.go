package selector

import (
	"fmt"

	"github.com/jamesainslie/cartographer/pkg/cartographer/pathmatch"
)

// Rules holds the compiled selection predicates for one invocation.
// The zero value selects nothing.
type Rules struct {
	include    *pathmatch.Matcher
	exclude    *pathmatch.Matcher
	ignore     *pathmatch.Matcher
	exceptions map[string]struct{}
}

// NewRules compiles include, exclude and ignore patterns. Exceptions are
// exact relative paths, never patterns.
func NewRules(include, exclude, exceptions, ignore []string) (*Rules, error) {
	inc, err := pathmatch.Compile(include)
	if err != nil {
		return nil, fmt.Errorf("compiling include patterns: %w", err)
	}
	exc, err := pathmatch.Compile(exclude)
	if err != nil {
		return nil, fmt.Errorf("compiling exclude patterns: %w", err)
	}
	ign, err := pathmatch.Compile(ignore)
	if err != nil {
		return nil, fmt.Errorf("compiling ignore patterns: %w", err)
	}

	set := make(map[string]struct{}, len(exceptions))
	for _, e := range exceptions {
		set[e] = struct{}{}
	}

	return &Rules{
		include:    inc,
		exclude:    exc,
		ignore:     ign,
		exceptions: set,
	}, nil
}

// Selected applies, in order: ignore (unconditional), exclude (unless the
// path is an exception), then include-or-exception.
func (r *Rules) Selected(rel string) bool {
	if r == nil {
		return false
	}
	if r.ignore.Match(rel) {
		return false
	}

	_, isException := r.exceptions[rel]
	if r.exclude.Match(rel) && !isException {
		return false
	}

	return r.include.Match(rel) || isException
}
