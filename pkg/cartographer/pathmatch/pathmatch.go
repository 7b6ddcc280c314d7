// Package pathmatch compiles glob-style path patterns into a single
// predicate over slash-separated paths relative to a tracked root.
//
// Pattern syntax:
//
//	**/   zero or more leading directories
//	**    any run of characters, including "/"
//	*     any run of characters except "/"
//	?     exactly one character
//	dir/  a trailing slash also matches everything below dir
//	/x    a leading slash anchors the pattern to the root
//
// Unanchored patterns may start at any path-segment boundary. Every pattern
// must consume the path to its end.
package pathmatch

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidPattern is returned when a pattern list cannot be compiled.
var ErrInvalidPattern = errors.New("invalid pattern")

// Matcher is an immutable, compiled set of patterns.
// The zero value and the Matcher for an empty list match nothing.
type Matcher struct {
	patterns []string
	re       *regexp.Regexp
}

// Compile combines patterns into one Matcher. A path matches when any
// pattern matches it.
func Compile(patterns []string) (*Matcher, error) {
	m := &Matcher{patterns: append([]string(nil), patterns...)}
	if len(patterns) == 0 {
		return m, nil
	}

	parts := make([]string, 0, len(patterns))
	for _, p := range patterns {
		parts = append(parts, "(?:"+translate(p)+"$)")
	}

	re, err := regexp.Compile(strings.Join(parts, "|"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	m.re = re
	return m, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(patterns []string) *Matcher {
	m, err := Compile(patterns)
	if err != nil {
		panic(err)
	}
	return m
}

// translate converts a single glob pattern to an unanchored-at-end regexp.
func translate(pattern string) string {
	reg := regexp.QuoteMeta(pattern)
	reg = strings.ReplaceAll(reg, `\*\*/`, `(?:.*/)?`)
	reg = strings.ReplaceAll(reg, `\*\*`, `.*`)
	reg = strings.ReplaceAll(reg, `\*`, `[^/]*`)
	reg = strings.ReplaceAll(reg, `\?`, `.`)

	if strings.HasSuffix(pattern, "/") {
		reg += ".*"
	}

	// QuoteMeta leaves "/" alone, so the anchor character is the first byte.
	if strings.HasPrefix(pattern, "/") {
		return "^" + reg[1:]
	}
	return "(?:^|.*/)" + reg
}

// Match reports whether the relative path matches any compiled pattern.
func (m *Matcher) Match(path string) bool {
	if m == nil || m.re == nil {
		return false
	}
	return m.re.MatchString(path)
}

// Patterns returns a copy of the source patterns.
func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.patterns...)
}

// Empty reports whether the matcher was built from no patterns.
func (m *Matcher) Empty() bool {
	return m == nil || len(m.patterns) == 0
}

// String returns the compiled expression, mostly for debugging.
func (m *Matcher) String() string {
	if m == nil || m.re == nil {
		return ""
	}
	return m.re.String()
}
