package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/cartographer/pkg/cartographer/changes"
)

// PrettyFormatter formats output with colors and styling using lipgloss.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")

	switch r.Operation {
	case OpInit:
		w.WriteString(fmt.Sprintf("%s %s\n",
			AddedStyle.Render("✓"),
			ValueStyle.Render(fmt.Sprintf("Created %s", r.StateFile))))
		w.WriteString(fmt.Sprintf("%s %s\n",
			AddedStyle.Render("✓"),
			ValueStyle.Render(fmt.Sprintf("Created %s codemap.md %s",
				humanize.Comma(int64(r.CodemapsCreated)), plural(r.CodemapsCreated, "file", "files")))))
	case OpUpdate:
		w.WriteString(f.formatChanges(r.changeSet()))
		w.WriteString(fmt.Sprintf("\n%s %s\n",
			AddedStyle.Render("✓"),
			ValueStyle.Render(fmt.Sprintf("Updated %s (%s files)", r.StateFile, humanize.Comma(int64(r.Files))))))
	default:
		w.WriteString(f.formatChanges(r.changeSet()))
	}
	return nil
}

// formatHeader builds the header box with run metadata.
func (f *PrettyFormatter) formatHeader(r *Result) string {
	var lines []string

	lines = append(lines, fmt.Sprintf("%s %s",
		LabelStyle.Render("Root:"), ValueStyle.Render(r.Root)))

	info := []string{fmt.Sprintf("%s %s",
		LabelStyle.Render("Tracked:"),
		ValueStyle.Render(fmt.Sprintf("%s files in %s folders",
			humanize.Comma(int64(r.Files)), humanize.Comma(int64(r.Folders)))))}
	if r.HashAlgorithm != "" {
		info = append(info, fmt.Sprintf("%s %s",
			LabelStyle.Render("Hash:"), MutedStyle.Render(r.HashAlgorithm)))
	}
	if r.Duration > 0 {
		info = append(info, fmt.Sprintf("%s %s",
			LabelStyle.Render("Took:"), MutedStyle.Render(formatDuration(r.Duration))))
	}
	lines = append(lines, strings.Join(info, "  "))

	if !r.LastRun.IsZero() {
		lines = append(lines, fmt.Sprintf("%s %s",
			LabelStyle.Render("Checkpoint:"), MutedStyle.Render(humanize.Time(r.LastRun))))
	}
	if len(r.Filter) > 0 {
		lines = append(lines, fmt.Sprintf("%s %s",
			LabelStyle.Render("Only:"), MutedStyle.Render(strings.Join(r.Filter, ", "))))
	}

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatChanges(cs *changes.ChangeSet) string {
	if cs.Empty() {
		return MutedStyle.Render("  No changes.") + "\n"
	}

	var sb strings.Builder
	section := func(title, marker string, paths []string, markerStyle func(...string) string) {
		if len(paths) == 0 {
			return
		}
		sb.WriteString(TitleStyle.Render(fmt.Sprintf("%s (%s)", title, humanize.Comma(int64(len(paths))))))
		sb.WriteString("\n")
		for _, p := range paths {
			sb.WriteString(fmt.Sprintf("  %s %s\n", markerStyle(marker), PathStyle.Render(p)))
		}
		sb.WriteString("\n")
	}
	section("Added", "+", cs.Added, AddedStyle.Render)
	section("Removed", "-", cs.Removed, RemovedStyle.Render)
	section("Modified", "~", cs.Modified, ModifiedStyle.Render)

	sb.WriteString(TitleStyle.Render(fmt.Sprintf("Affected folders (%s)",
		humanize.Comma(int64(len(cs.AffectedFolders))))))
	sb.WriteString("\n")
	for _, folder := range cs.AffectedFolders {
		sb.WriteString("  " + FolderStyle.Render(folder+"/") + "\n")
	}
	return sb.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	return fmt.Sprintf("%dm %ds", int(sec)/60, int(sec)%60)
}
