package main

import (
	"github.com/spf13/cobra"

	"github.com/jamesainslie/cartographer/pkg/cartographer/hasher"
	"github.com/jamesainslie/cartographer/pkg/cartographer/tracker"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the first checkpoint",
	Long: `Select files under the root, hash them, write the checkpoint to
<root>/.slim/cartography.json and create an empty codemap.md in every tracked
folder that lacks one.

Selection rules, in order of precedence:
  1. Paths matched by the root's .gitignore are never selected.
  2. Paths matched by --exclude are dropped unless listed with --exception.
  3. Remaining paths are selected if they match --include or are exceptions.

The selection and hash algorithm are stored in the checkpoint and reused by
'changes' and 'update'.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var (
	initRoot       string
	initInclude    []string
	initExclude    []string
	initExceptions []string
	initHash       string
)

func init() {
	addRootFlag(initCmd, &initRoot)
	initCmd.Flags().StringArrayVar(&initInclude, "include", nil, "include pattern (repeatable, default from config)")
	initCmd.Flags().StringArrayVar(&initExclude, "exclude", nil, "exclude pattern (repeatable, default from config)")
	initCmd.Flags().StringArrayVar(&initExceptions, "exception", nil, "path selected despite --exclude (repeatable)")
	initCmd.Flags().StringVar(&initHash, "hash", "", "digest algorithm: md5 or xxh3 (default from config)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	c := currentConfig()

	sel := tracker.Options{
		Include:    initInclude,
		Exclude:    initExclude,
		Exceptions: initExceptions,
	}
	if !cmd.Flags().Changed("include") {
		sel.Include = c.Include
	}
	if !cmd.Flags().Changed("exclude") {
		sel.Exclude = c.Exclude
	}
	if initHash != "" {
		algo, err := hasher.ParseAlgorithm(initHash)
		if err != nil {
			return err
		}
		sel.Algorithm = algo
	}

	t, cleanup, err := openTracker(c, initRoot, sel)
	if err != nil {
		return err
	}
	defer cleanup()

	if textOutput(c.Output) {
		printInfo("Scanning %s...", t.Root())
	}

	res, err := t.Init(cmd.Context())
	if err != nil {
		return err
	}
	return render(stdout, c.Output, toOutput(res))
}
