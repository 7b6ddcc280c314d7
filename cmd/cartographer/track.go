package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/cartographer/pkg/cartographer/cache"
	"github.com/jamesainslie/cartographer/pkg/cartographer/config"
	"github.com/jamesainslie/cartographer/pkg/cartographer/hasher"
	"github.com/jamesainslie/cartographer/pkg/cartographer/journal"
	"github.com/jamesainslie/cartographer/pkg/cartographer/logging"
	"github.com/jamesainslie/cartographer/pkg/cartographer/output"
	"github.com/jamesainslie/cartographer/pkg/cartographer/tracker"
)

// stdout receives rendered reports.
var stdout io.Writer = os.Stdout

// addRootFlag registers the required --root flag on cmd.
func addRootFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "root", "", "repository root (required)")
	_ = cmd.MarkFlagRequired("root")
}

// openTracker builds a tracker for root from the loaded configuration.
// The returned cleanup releases the digest cache.
func openTracker(c *config.Config, root string, sel tracker.Options) (*tracker.Tracker, func(), error) {
	algo, err := hasher.ParseAlgorithm(c.Hash.Algorithm)
	if err != nil {
		return nil, nil, err
	}

	opts := sel
	opts.Root = root
	opts.IgnoreFile = c.IgnoreFile
	opts.StateDir = c.StateDir
	opts.Workers = c.Workers
	opts.Version = version
	if opts.Algorithm == "" {
		opts.Algorithm = algo
	}

	cleanup := func() {}
	log := logging.Get("cli")

	if c.Cache.Enabled && !viper.GetBool("no_cache") {
		dc, err := cache.Open(c.Cache.Path)
		if err != nil {
			log.Warn("digest cache unavailable", "path", c.Cache.Path, "error", err)
		} else {
			opts.Cache = dc
			cleanup = func() {
				if err := dc.Close(); err != nil {
					log.Warn("closing digest cache", "error", err)
				}
			}
		}
	}

	if c.Journal.Enabled {
		j, err := journal.New(c.Journal.Path)
		if err != nil {
			log.Warn("journal unavailable", "path", c.Journal.Path, "error", err)
		} else {
			opts.Journal = j
		}
	}

	t, err := tracker.New(opts)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return t, cleanup, nil
}

// toOutput converts a tracker result for the formatters.
func toOutput(res *tracker.Result) *output.Result {
	out := &output.Result{
		Operation:       output.Operation(res.Operation),
		Root:            res.Root,
		StateFile:       res.StateFile,
		Files:           len(res.Current),
		Folders:         len(res.Folders),
		CodemapsCreated: res.CodemapsCreated,
		Duration:        res.Duration,
		Changes:         res.Changes,
	}
	if res.Checkpoint != nil {
		out.HashAlgorithm = res.Checkpoint.Metadata.HashAlgorithm
		if res.Operation == tracker.OpChanges {
			out.LastRun = res.Checkpoint.Metadata.LastRun
		}
	}
	return out
}

// render writes r to w in the configured format.
func render(w io.Writer, format string, r *output.Result) error {
	if format == "" {
		format = config.DefaultOutput
	}
	formatter, err := output.Get(format)
	if err != nil {
		return fmt.Errorf("%w (available: %v)", err, output.Available())
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, r); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// textOutput reports whether the format is meant for people rather than
// tools, so progress lines may be printed alongside it.
func textOutput(format string) bool {
	return format == "" || format == "pretty" || format == "plain"
}
