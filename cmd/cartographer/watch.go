package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/cartographer/pkg/cartographer/logging"
	"github.com/jamesainslie/cartographer/pkg/cartographer/tracker"
	"github.com/jamesainslie/cartographer/pkg/cartographer/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Report changes whenever the tree settles",
	Long: `Watch every non-hidden directory under the root. After filesystem activity
stops for the debounce period (watch.debounce, default 500ms) the changes
report is printed again. The checkpoint is never modified.

Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var watchRoot string

func init() {
	addRootFlag(watchCmd, &watchRoot)
	watchCmd.Flags().Duration("debounce", 0, "quiet period before re-checking (default from config)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	c := currentConfig()
	log := logging.Get("cli")

	t, cleanup, err := openTracker(c, watchRoot, tracker.Options{})
	if err != nil {
		return err
	}
	defer cleanup()

	debounce := c.Watch.Debounce
	if d, _ := cmd.Flags().GetDuration("debounce"); d > 0 {
		debounce = d
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report := func(ctx context.Context) error {
		res, err := t.Changes(ctx)
		if err != nil {
			return err
		}
		return render(stdout, c.Output, toOutput(res))
	}

	// The first report also confirms a checkpoint exists.
	if err := report(ctx); err != nil {
		return err
	}

	w, err := watcher.New(t.Root(), watcher.WithDebounce(debounce), watcher.WithSkip(c.StateDir))
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch(); err != nil {
		return err
	}
	if textOutput(c.Output) {
		printInfo("Watching %d directories under %s (Ctrl+C to stop)", w.Watched(), t.Root())
	}

	return w.Run(ctx, func(ctx context.Context) {
		if err := report(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			if errors.Is(err, tracker.ErrNoCheckpoint) {
				printError("%v", err)
				return
			}
			log.Error("change detection failed", "root", t.Root(), "error", err)
		}
	})
}
