package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/cartographer/pkg/cartographer/config"
	"github.com/jamesainslie/cartographer/pkg/cartographer/journal"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View run history",
	Long: `View the history of init and update runs.

Every checkpoint write is recorded in the journal directory
(journal.path, default $XDG_DATA_HOME/cartographer/journal).`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show details of a run",
	Long:  `Display a recorded run by its ID or a unique prefix of at least 4 characters.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove old history entries",
	Long:  `Remove entries older than journal.retention_days, or every entry with --all.`,
	Args:  cobra.NoArgs,
	RunE:  runHistoryClean,
}

var (
	historyLimit    int
	historyCleanAll bool
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")
	historyCleanCmd.Flags().BoolVar(&historyCleanAll, "all", false, "remove every entry")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// getJournal returns the journal at the configured directory.
func getJournal() (*journal.Journal, error) {
	path := currentConfig().Journal.Path
	if path == "" {
		path = config.DefaultJournalPath()
	}
	return journal.New(path)
}

// runHistory lists recent runs.
func runHistory(cmd *cobra.Command, args []string) error {
	j, err := getJournal()
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}

	entries, err := j.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(entries) == 0 {
		printInfo("No history entries found.")
		printInfo("Run 'cartographer init --root <path>' to create a checkpoint.")
		return nil
	}

	fmt.Fprintf(stdout, "\n%-8s  %-7s  %-16s  %7s  %15s  %s\n", "ID", "TYPE", "WHEN", "FILES", "+/-/~", "ROOT")
	fmt.Fprintln(stdout, strings.Repeat("-", 80))

	for _, e := range entries {
		fmt.Fprintf(stdout, "%-8s  %-7s  %-16s  %7s  %15s  %s\n",
			shortID(e.ID),
			e.Operation,
			humanize.Time(e.Timestamp),
			humanize.Comma(int64(e.Files)),
			fmt.Sprintf("%d/%d/%d", e.Added, e.Removed, e.Modified),
			truncateString(e.Root, 40),
		)
	}

	fmt.Fprintln(stdout, strings.Repeat("-", 80))
	fmt.Fprintf(stdout, "\nShowing %d entries. Use --limit to see more.\n", len(entries))
	fmt.Fprintln(stdout, "Use 'cartographer history show <id>' for details on a specific entry.")
	return nil
}

// runHistoryShow displays one run.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	j, err := getJournal()
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}

	e, err := j.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	fmt.Fprintln(stdout, "\nRun Details")
	fmt.Fprintln(stdout, strings.Repeat("=", 60))
	fmt.Fprintf(stdout, "ID:         %s\n", e.ID)
	fmt.Fprintf(stdout, "Timestamp:  %s (%s)\n", e.Timestamp.Format("2006-01-02 15:04:05 MST"), humanize.Time(e.Timestamp))
	fmt.Fprintf(stdout, "Operation:  %s\n", e.Operation)
	fmt.Fprintf(stdout, "Root:       %s\n", e.Root)
	if e.HashAlgorithm != "" {
		fmt.Fprintf(stdout, "Hash:       %s\n", e.HashAlgorithm)
	}
	fmt.Fprintf(stdout, "Files:      %s\n", humanize.Comma(int64(e.Files)))
	fmt.Fprintf(stdout, "Folders:    %s\n", humanize.Comma(int64(e.Folders)))
	fmt.Fprintf(stdout, "Added:      %d\n", e.Added)
	fmt.Fprintf(stdout, "Removed:    %d\n", e.Removed)
	fmt.Fprintf(stdout, "Modified:   %d\n", e.Modified)
	return nil
}

// runHistoryClean removes old entries.
func runHistoryClean(cmd *cobra.Command, args []string) error {
	j, err := getJournal()
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}

	if historyCleanAll {
		n, err := j.Clear()
		if err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		printInfo("Removed %d history %s.", n, pluralize(n, "entry", "entries"))
		return nil
	}

	retentionDays := currentConfig().Journal.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	printInfo("Cleaning history entries older than %d days...", retentionDays)
	n, err := j.Cleanup(retentionDays)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}
	printInfo("Removed %d history %s.", n, pluralize(n, "entry", "entries"))
	return nil
}

// shortID returns the first 8 characters of a journal ID.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
