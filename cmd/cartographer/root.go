package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/cartographer/pkg/cartographer/config"
	"github.com/jamesainslie/cartographer/pkg/cartographer/logging"
)

var (
	cfgFile string

	// cfg is loaded once per invocation by initializeLogging.
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "cartographer",
		Short: "Track which files and folders of a repository changed",
		Long: `Cartographer records a content checkpoint of a repository and reports which
files were added, removed or modified since, together with the folders whose
documentation is affected.

Examples:
  cartographer init --root .                    # Create the first checkpoint
  cartographer init --root . --exclude '*.log'  # Skip log files
  cartographer changes --root .                 # Report changes
  cartographer changes --root . -o json         # Machine-readable report
  cartographer update --root .                  # Accept the current state
  cartographer watch --root .                   # Report changes as they happen
  cartographer history                          # View run history`,
		SilenceUsage:      true,
		PersistentPreRunE: initializeLogging,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/cartographer/config.yaml)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output format: pretty, plain, json, yaml")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")
	rootCmd.PersistentFlags().Bool("no-cache", false, "hash every file, ignoring the digest cache")

	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("no_cache", rootCmd.PersistentFlags().Lookup("no-cache"))
}

// Execute runs the root command.
func Execute() error {
	defer func() { _ = logging.Close() }()
	return rootCmd.Execute()
}

// initializeLogging loads the configuration, creates the XDG directories and
// starts file logging. It runs before every command.
func initializeLogging(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadFile(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if out := viper.GetString("output"); out != "" {
		loaded.Output = out
	}
	cfg = loaded

	configDir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	for _, dir := range []string{configDir, config.DataDir(), config.StateDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	consoleLevel := "warn"
	if getVerbose() {
		consoleLevel = "debug"
	}
	if getQuiet() {
		consoleLevel = "error"
	}

	logPath := cfg.Logging.Path
	if logPath == "" {
		logPath = config.DefaultLogPath()
	}

	return logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Path:         logPath,
		Rotation:     parseRotationConfig(cfg.Logging.Rotation),
		Components:   cfg.Logging.Components,
		ConsoleLevel: consoleLevel,
	})
}

// parseRotationConfig converts the configured rotation settings. An empty or
// unparsable max_size falls back to the default.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	out := logging.RotationConfig{
		MaxSize:    logging.DefaultRotationConfig().MaxSize,
		MaxAge:     rc.MaxAge,
		MaxBackups: rc.MaxBackups,
		Daily:      rc.Daily,
	}
	if rc.MaxSize == "" {
		return out
	}
	size, err := humanize.ParseBytes(rc.MaxSize)
	if err != nil || size == 0 {
		logging.Get("cli").Warn("invalid logging.rotation.max_size, using default", "value", rc.MaxSize)
		return out
	}
	out.MaxSize = int64(size)
	return out
}

// currentConfig returns the loaded configuration, or defaults when a command
// runs without the pre-run hook.
func currentConfig() *config.Config {
	if cfg == nil {
		return config.Default()
	}
	return cfg
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
