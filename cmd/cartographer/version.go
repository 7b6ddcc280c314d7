package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/cartographer/pkg/cartographer/tracker"
)

// Build-time variables set by go build -ldflags.
var (
	version = tracker.DefaultVersion
	commit  = "none"
	date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version, commit hash, and build date of cartographer.`,
	Run:   runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// runVersion prints version information.
func runVersion(cmd *cobra.Command, args []string) {
	fmt.Fprintf(stdout, "cartographer %s\n", version)
	fmt.Fprintf(stdout, "  commit:  %s\n", commit)
	fmt.Fprintf(stdout, "  built:   %s\n", date)
	fmt.Fprintf(stdout, "  go:      %s\n", runtime.Version())
	fmt.Fprintf(stdout, "  os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
