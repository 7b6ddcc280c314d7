package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/jamesainslie/cartographer/pkg/cartographer/hasher"
	"github.com/jamesainslie/cartographer/pkg/cartographer/logging"
)

// appName is the directory name used under every XDG base directory.
const appName = "cartographer"

// EnvPrefix prefixes environment variable overrides.
const EnvPrefix = "CARTOGRAPHER"

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size" yaml:"max_size"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	Daily      bool   `mapstructure:"daily" yaml:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level" yaml:"level"`
	Path       string            `mapstructure:"path" yaml:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation" yaml:"rotation"`
	Components map[string]string `mapstructure:"components" yaml:"components"`
}

// HashConfig selects the digest algorithm for new checkpoints.
type HashConfig struct {
	Algorithm string `mapstructure:"algorithm" yaml:"algorithm"`
}

// CacheConfig configures the digest cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// JournalConfig configures run history.
type JournalConfig struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	Path          string `mapstructure:"path" yaml:"path"`
	RetentionDays int    `mapstructure:"retention_days" yaml:"retention_days"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// Config represents the application configuration.
type Config struct {
	Include    []string      `mapstructure:"include" yaml:"include"`
	Exclude    []string      `mapstructure:"exclude" yaml:"exclude"`
	IgnoreFile string        `mapstructure:"ignore_file" yaml:"ignore_file"`
	StateDir   string        `mapstructure:"state_dir" yaml:"state_dir"`
	Workers    int           `mapstructure:"workers" yaml:"workers"`
	Output     string        `mapstructure:"output" yaml:"output"`
	Hash       HashConfig    `mapstructure:"hash" yaml:"hash"`
	Cache      CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Journal    JournalConfig `mapstructure:"journal" yaml:"journal"`
	Watch      WatchConfig   `mapstructure:"watch" yaml:"watch"`
	Logging    LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/cartographer/config.yaml
//   - $HOME/.config/cartographer/config.yaml
//
// Environment variables are prefixed with CARTOGRAPHER_ (e.g.
// CARTOGRAPHER_HASH_ALGORITHM).
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches the
// default locations.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		dir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var err error
	if cfg.Cache.Path, err = ExpandPath(cfg.Cache.Path); err != nil {
		return nil, err
	}
	if cfg.Journal.Path, err = ExpandPath(cfg.Journal.Path); err != nil {
		return nil, err
	}
	if cfg.Logging.Path, err = ExpandPath(cfg.Logging.Path); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("include", DefaultInclude)
	v.SetDefault("exclude", []string{})
	v.SetDefault("ignore_file", DefaultIgnoreFile)
	v.SetDefault("state_dir", DefaultStateDir)
	v.SetDefault("workers", 0)
	v.SetDefault("output", DefaultOutput)

	v.SetDefault("hash.algorithm", DefaultHashAlgorithm)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.path", DefaultCachePath())

	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.path", DefaultJournalPath())
	v.SetDefault("journal.retention_days", DefaultRetentionDays)

	v.SetDefault("watch.debounce", DefaultDebounce.String())

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means DefaultLogPath
	v.SetDefault("logging.rotation.max_size", DefaultLogMaxSize)
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{})
}

// Default returns the configuration used when no file or environment
// override is present.
func Default() *Config {
	return &Config{
		Include:    append([]string{}, DefaultInclude...),
		Exclude:    []string{},
		IgnoreFile: DefaultIgnoreFile,
		StateDir:   DefaultStateDir,
		Output:     DefaultOutput,
		Hash:       HashConfig{Algorithm: DefaultHashAlgorithm},
		Cache:      CacheConfig{Path: DefaultCachePath()},
		Journal: JournalConfig{
			Enabled:       true,
			Path:          DefaultJournalPath(),
			RetentionDays: DefaultRetentionDays,
		},
		Watch: WatchConfig{Debounce: DefaultDebounce},
		Logging: LoggingConfig{
			Level: "info",
			Rotation: RotationConfig{
				MaxSize:    DefaultLogMaxSize,
				MaxAge:     30,
				MaxBackups: 5,
				Daily:      true,
			},
			Components: map[string]string{},
		},
	}
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if _, err := hasher.ParseAlgorithm(c.Hash.Algorithm); err != nil {
		return fmt.Errorf("invalid hash.algorithm: %w", err)
	}
	if c.Logging.Level != "" {
		if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
			return fmt.Errorf("invalid logging.level: %w", err)
		}
	}
	for component, level := range c.Logging.Components {
		if _, err := logging.ParseLevel(level); err != nil {
			return fmt.Errorf("invalid logging.components.%s: %w", component, err)
		}
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("invalid watch.debounce: %s", c.Watch.Debounce)
	}
	if c.StateDir == "" || filepath.IsAbs(c.StateDir) || strings.HasPrefix(filepath.Clean(c.StateDir), "..") {
		return fmt.Errorf("invalid state_dir %q: must be a relative path inside the root", c.StateDir)
	}
	return nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, appName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", appName), nil
}

// ConfigPath returns the default config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// WriteDefault writes a default config file if none exists and returns its
// path. An existing file is left untouched.
func WriteDefault() (string, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	content := fmt.Sprintf(`# Cartographer configuration

# Patterns used by init when no --include/--exclude flags are given
include:
  - "**/*"
exclude: []

# Ignore file read at the tracked root
ignore_file: %s

# State directory under the tracked root
state_dir: %s

# Digest algorithm for new checkpoints: md5 or xxh3
hash:
  algorithm: %s

# Digest cache, reused when a file's size and mtime are unchanged
cache:
  enabled: false
  path: %s

# Run history
journal:
  enabled: true
  path: %s
  retention_days: %d

# Watch mode quiet period
watch:
  debounce: %s

# Report format: pretty, plain, json, yaml
output: %s

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/cartographer/cartographer.log)
  path: ""
  rotation:
    max_size: %s
    max_age: 30       # days
    max_backups: 5
    daily: true
  # Per-component log levels
  components: {}
`, DefaultIgnoreFile, DefaultStateDir, DefaultHashAlgorithm, DefaultCachePath(),
		DefaultJournalPath(), DefaultRetentionDays, DefaultDebounce, DefaultOutput, DefaultLogMaxSize)

	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}
	return configPath, nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/cartographer.
func DataDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

// StateDir returns $XDG_STATE_HOME/cartographer for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, appName)
}

// CacheDir returns $XDG_CACHE_HOME/cartographer.
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, appName)
}

// DefaultCachePath returns the default digest cache directory.
func DefaultCachePath() string {
	return filepath.Join(CacheDir(), "digests")
}

// DefaultJournalPath returns the default journal directory.
func DefaultJournalPath() string {
	return filepath.Join(DataDir(), "journal")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "cartographer.log")
}
