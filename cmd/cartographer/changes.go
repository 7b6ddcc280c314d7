package main

import (
	"github.com/spf13/cobra"

	"github.com/jamesainslie/cartographer/pkg/cartographer/tracker"
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Report changes since the last checkpoint",
	Long: `Recompute the tree with the selection stored in the checkpoint and report
added, removed and modified files plus the affected folders. The checkpoint
is not modified.

Exits 0 whether or not changes exist. Fails when no checkpoint exists.

Use --only to restrict the report to paths matching shell globs:
  cartographer changes --root . --only 'src/**' --only '*.md'`,
	Args: cobra.NoArgs,
	RunE: runChanges,
}

var (
	changesRoot string
	changesOnly []string
)

func init() {
	addRootFlag(changesCmd, &changesRoot)
	changesCmd.Flags().StringArrayVar(&changesOnly, "only", nil, "report only paths matching this glob (repeatable)")
	rootCmd.AddCommand(changesCmd)
}

func runChanges(cmd *cobra.Command, args []string) error {
	c := currentConfig()

	t, cleanup, err := openTracker(c, changesRoot, tracker.Options{})
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := t.Changes(cmd.Context())
	if err != nil {
		return err
	}

	out := toOutput(res)
	if len(changesOnly) > 0 {
		restricted, err := res.Changes.Restrict(changesOnly)
		if err != nil {
			return err
		}
		out.Changes = restricted
		out.Filter = changesOnly
	}
	return render(stdout, c.Output, out)
}
