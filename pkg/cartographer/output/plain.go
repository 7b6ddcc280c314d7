package output

import (
	"bytes"
	"fmt"

	"github.com/jamesainslie/cartographer/pkg/cartographer/changes"
)

// PlainFormatter writes undecorated text suitable for scripts.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	switch r.Operation {
	case OpInit:
		fmt.Fprintf(w, "Selected %d files\n", r.Files)
		fmt.Fprintf(w, "Created %s\n", r.StateFile)
		fmt.Fprintf(w, "Created %d empty codemap.md files\n", r.CodemapsCreated)
	case OpUpdate:
		fmt.Fprintf(w, "Updated %s (%d files)\n", r.StateFile, r.Files)
	default:
		writePlainChanges(w, r.changeSet())
	}
	return nil
}

func writePlainChanges(w *bytes.Buffer, cs *changes.ChangeSet) {
	if cs.Empty() {
		w.WriteString("No changes.\n")
		return
	}

	section := func(title, marker string, paths []string) {
		if len(paths) == 0 {
			return
		}
		fmt.Fprintf(w, "\n%s (%d):\n", title, len(paths))
		for _, p := range paths {
			fmt.Fprintf(w, "  %s %s\n", marker, p)
		}
	}
	section("Added", "+", cs.Added)
	section("Removed", "-", cs.Removed)
	section("Modified", "~", cs.Modified)

	fmt.Fprintf(w, "\nAffected folders (%d):\n", len(cs.AffectedFolders))
	for _, folder := range cs.AffectedFolders {
		fmt.Fprintf(w, "  %s/\n", folder)
	}
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
