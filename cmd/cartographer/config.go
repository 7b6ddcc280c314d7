package main

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/cartographer/pkg/cartographer/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage cartographer configuration settings.

Configuration is loaded from:
  1. --config <file> (if given)
  2. $XDG_CONFIG_HOME/cartographer/config.yaml (if set)
  3. ~/.config/cartographer/config.yaml

Environment variables override config file settings using the CARTOGRAPHER_
prefix:
  CARTOGRAPHER_HASH_ALGORITHM=xxh3
  CARTOGRAPHER_CACHE_ENABLED=true
  CARTOGRAPHER_STATE_DIR=.slim`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration from all sources.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	Args: cobra.NoArgs,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigShow displays the effective configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	c := currentConfig()

	path := cfgFile
	if path == "" {
		var err error
		if path, err = config.ConfigPath(); err != nil {
			return err
		}
	}
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(stdout, "Config file: %s\n\n", path)
	} else {
		fmt.Fprintln(stdout, "Config file: (using defaults, no file found)")
		fmt.Fprintln(stdout)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	fmt.Fprintln(stdout, "Current Configuration:")
	fmt.Fprintln(stdout, "----------------------")
	fmt.Fprint(stdout, string(data))

	fmt.Fprintln(stdout, "\nEnvironment Overrides:")
	fmt.Fprintln(stdout, "----------------------")
	overrides := envOverrides(os.Environ())
	if len(overrides) == 0 {
		fmt.Fprintln(stdout, "(none)")
	}
	for _, kv := range overrides {
		fmt.Fprintln(stdout, kv)
	}
	return nil
}

// envOverrides returns the CARTOGRAPHER_ variables in env, sorted.
func envOverrides(env []string) []string {
	prefix := config.EnvPrefix + "_"
	var out []string
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			out = append(out, kv)
		}
	}
	sort.Strings(out)
	return out
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(cmd *cobra.Command, args []string) error {
	configPath, err := config.WriteDefault()
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	printVerbose("Opening %s with %s", configPath, editor)

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}
	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'cartographer config edit' to modify it.")
		return nil
	}

	if _, err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, configPath)

	if _, err := os.Stat(configPath); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}
	return nil
}
