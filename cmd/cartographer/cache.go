package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/cartographer/pkg/cartographer/cache"
	"github.com/jamesainslie/cartographer/pkg/cartographer/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the digest cache",
	Long: `Commands for managing the digest cache.

When cache.enabled is true, a file whose size and modification time are
unchanged reuses its recorded digest instead of being read again. Cache data
is stored in the XDG cache directory (typically ~/.cache/cartographer/digests).`,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear cached digests",
	Long: `Removes cached digests for the given --root, or every cached digest when
no root is given. The next run rereads the affected files.`,
	Args: cobra.NoArgs,
	RunE: runCacheClear,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Long:  `Displays the cache location, disk usage and the number of cached digests.`,
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show cache location",
	Long:  `Prints the path to the cache directory.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(stdout, cachePath())
	},
}

var cacheClearRoot string

func init() {
	cacheClearCmd.Flags().StringVar(&cacheClearRoot, "root", "", "only clear digests for this repository root")

	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePathCmd)
	rootCmd.AddCommand(cacheCmd)
}

func cachePath() string {
	if p := currentConfig().Cache.Path; p != "" {
		return p
	}
	return config.DefaultCachePath()
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	path := cachePath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		printInfo("Cache is already empty.")
		return nil
	}

	c, err := cache.Open(path)
	if err != nil {
		return err
	}
	defer c.Close()

	if cacheClearRoot == "" {
		if err := c.ClearAll(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		printInfo("Cache cleared.")
		return nil
	}

	root, err := filepath.Abs(cacheClearRoot)
	if err != nil {
		return err
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	if err := c.Clear(root); err != nil {
		return fmt.Errorf("failed to clear cache for %s: %w", root, err)
	}
	printInfo("Cache cleared for %s.", root)
	return nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	path := cachePath()

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(stdout, "Cache: empty (no cache directory)")
		fmt.Fprintf(stdout, "Cache location: %s\n", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat cache: %w", err)
	}

	var size int64
	err = filepath.Walk(path, func(_ string, fi os.FileInfo, err error) error {
		if err == nil && !fi.IsDir() {
			size += fi.Size()
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to calculate cache size: %w", err)
	}

	c, err := cache.Open(path)
	if err != nil {
		return err
	}
	defer c.Close()

	stats, err := c.Stats()
	if err != nil {
		return fmt.Errorf("failed to read cache stats: %w", err)
	}

	fmt.Fprintf(stdout, "Cache location: %s\n", path)
	fmt.Fprintf(stdout, "Cache enabled:  %t\n", currentConfig().Cache.Enabled)
	fmt.Fprintf(stdout, "Disk usage:     %s\n", humanize.IBytes(uint64(size)))
	fmt.Fprintf(stdout, "Digests:        %s\n", humanize.Comma(int64(stats.Entries)))
	fmt.Fprintf(stdout, "Roots:          %s\n", humanize.Comma(int64(stats.Roots)))
	fmt.Fprintf(stdout, "Last modified:  %s\n", humanize.Time(info.ModTime()))
	return nil
}
