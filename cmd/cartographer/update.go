package main

import (
	"github.com/spf13/cobra"

	"github.com/jamesainslie/cartographer/pkg/cartographer/tracker"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Replace the checkpoint with the current state",
	Long: `Recompute the tree with the selection stored in the checkpoint and overwrite
the checkpoint, so the next 'changes' starts from here. Placeholder codemap.md
files are not created.`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

var updateRoot string

func init() {
	addRootFlag(updateCmd, &updateRoot)
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	c := currentConfig()

	t, cleanup, err := openTracker(c, updateRoot, tracker.Options{})
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := t.Update(cmd.Context())
	if err != nil {
		return err
	}
	return render(stdout, c.Output, toOutput(res))
}
