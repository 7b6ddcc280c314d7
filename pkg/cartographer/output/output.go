// Package output renders the results of init, changes and update runs in
// several formats (pretty, plain, json, yaml).
//
// Formatters are registered by name and selected at runtime:
//
//	formatter, err := output.Get("plain")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, result); err != nil {
//	    return err
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/cartographer/pkg/cartographer/changes"
)

// Operation identifies the command a Result describes.
type Operation string

const (
	// OpInit is a fresh checkpoint.
	OpInit Operation = "init"
	// OpChanges is a read-only comparison.
	OpChanges Operation = "changes"
	// OpUpdate is a refreshed checkpoint.
	OpUpdate Operation = "update"
)

// Result contains everything a formatter may render.
type Result struct {
	// Operation is the command that produced the result.
	Operation Operation

	// Root is the absolute tracked root.
	Root string

	// StateFile is the checkpoint path relative to Root.
	StateFile string

	// Files is the number of selected files.
	Files int

	// Folders is the number of tracked folders.
	Folders int

	// CodemapsCreated counts placeholders written by init.
	CodemapsCreated int

	// HashAlgorithm is the digest algorithm of the checkpoint.
	HashAlgorithm string

	// LastRun is when the compared checkpoint was written. Zero for init.
	LastRun time.Time

	// Duration is how long the run took.
	Duration time.Duration

	// Changes is the comparison against the previous checkpoint. Nil for init.
	Changes *changes.ChangeSet

	// Filter lists the globs the change set was restricted to, if any.
	Filter []string
}

// Formatter writes a Result in one output format.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]FormatterFactory)}
}

// Register adds or replaces a formatter factory.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns the registered names, sorted.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}

// changeSet returns r.Changes or an empty set.
func (r *Result) changeSet() *changes.ChangeSet {
	if r.Changes != nil {
		return r.Changes
	}
	return &changes.ChangeSet{
		Added:           []string{},
		Removed:         []string{},
		Modified:        []string{},
		AffectedFolders: []string{},
	}
}
