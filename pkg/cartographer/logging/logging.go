// Package logging provides component loggers with file rotation for
// cartographer. Library packages obtain a logger with Get and stay silent
// until the CLI calls Init.
//
// Basic usage:
//
//	cfg := logging.Config{
//	    Level: "info",
//	    Path:  logging.DefaultLogPath(),
//	}
//	if err := logging.Init(cfg); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Close()
//
//	logger := logging.Get("tracker")
//	logger.Info("checkpoint written", "files", 42)
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level represents a logging level.
type Level int

// Log levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

func (l Level) toCharmLevel() log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelInfo:
		return log.InfoLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ErrInvalidLevel is returned when an invalid log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a string into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// Config configures the logging system.
type Config struct {
	// Level is the default log level (debug, info, warn, error).
	Level string

	// Path is the log file path. Empty uses DefaultLogPath().
	Path string

	// Rotation configures log file rotation.
	Rotation RotationConfig

	// Components maps component names to their log levels.
	Components map[string]string

	// ConsoleLevel enables stderr output at the given level.
	// Empty disables console output.
	ConsoleLevel string
}

// Logger wraps charmbracelet/log with component identification.
type Logger struct {
	mu        sync.RWMutex
	file      *log.Logger
	console   *log.Logger
	component string
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.log(LevelDebug, msg, args...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...interface{}) {
	l.log(LevelInfo, msg, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log(LevelWarn, msg, args...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...interface{}) {
	l.log(LevelError, msg, args...)
}

// Component returns the component name.
func (l *Logger) Component() string {
	return l.component
}

func (l *Logger) log(level Level, msg string, args ...interface{}) {
	l.mu.RLock()
	file, console := l.file, l.console
	l.mu.RUnlock()

	logTo(file, level, msg, args...)
	if console != nil {
		logTo(console, level, msg, args...)
	}
}

func logTo(logger *log.Logger, level Level, msg string, args ...interface{}) {
	switch level {
	case LevelDebug:
		logger.Debug(msg, args...)
	case LevelInfo:
		logger.Info(msg, args...)
	case LevelWarn:
		logger.Warn(msg, args...)
	case LevelError:
		logger.Error(msg, args...)
	}
}

// With returns a new logger with additional context.
func (l *Logger) With(args ...interface{}) *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	newLogger := &Logger{
		file:      l.file.With(args...),
		component: l.component,
	}
	if l.console != nil {
		newLogger.console = l.console.With(args...)
	}
	return newLogger
}

// state holds the global logging state.
type state struct {
	mu             sync.Mutex
	initialized    bool
	writer         *RotatingWriter
	level          Level
	components     map[string]Level
	loggers        map[string]*Logger
	consoleEnabled bool
	consoleLevel   Level
	console        io.Writer
}

var globalState = &state{
	loggers:    make(map[string]*Logger),
	components: make(map[string]Level),
	console:    os.Stderr,
}

// Init initializes the logging system with the given configuration.
// Loggers handed out before Init are reconfigured in place, so package-level
// loggers start writing once Init succeeds.
func Init(cfg Config) error {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	components := make(map[string]Level, len(cfg.Components))
	for comp, lvl := range cfg.Components {
		parsed, err := ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("parsing level for component %s: %w", comp, err)
		}
		components[comp] = parsed
	}

	consoleEnabled := false
	var consoleLevel Level
	if cfg.ConsoleLevel != "" {
		consoleLevel, err = ParseLevel(cfg.ConsoleLevel)
		if err != nil {
			return fmt.Errorf("parsing console level: %w", err)
		}
		consoleEnabled = true
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}

	writer, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return fmt.Errorf("creating log writer: %w", err)
	}

	if globalState.initialized && globalState.writer != nil {
		if err := globalState.writer.Close(); err != nil {
			_ = writer.Close()
			return fmt.Errorf("closing existing writer: %w", err)
		}
	}

	globalState.level = level
	globalState.components = components
	globalState.consoleEnabled = consoleEnabled
	globalState.consoleLevel = consoleLevel
	globalState.writer = writer
	globalState.initialized = true

	for component, logger := range globalState.loggers {
		globalState.configure(logger, component)
	}

	return nil
}

// Get returns the logger for the given component, creating it on first use.
func Get(component string) *Logger {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if logger, ok := globalState.loggers[component]; ok {
		return logger
	}

	logger := &Logger{component: component}
	globalState.configure(logger, component)
	globalState.loggers[component] = logger
	return logger
}

// configure (re)builds the outputs of logger. Must be called with s.mu held.
func (s *state) configure(logger *Logger, component string) {
	level := s.level
	if compLevel, ok := s.components[component]; ok {
		level = compLevel
	}

	var file, console *log.Logger
	if !s.initialized {
		file = log.NewWithOptions(io.Discard, log.Options{
			Level:  level.toCharmLevel(),
			Prefix: component,
		})
	} else {
		file = log.NewWithOptions(s.writer, log.Options{
			Level:           level.toCharmLevel(),
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          component,
			Formatter:       log.LogfmtFormatter,
		})
		if s.consoleEnabled {
			console = log.NewWithOptions(s.console, log.Options{
				Level:           s.consoleLevel.toCharmLevel(),
				ReportTimestamp: true,
				TimeFormat:      "15:04:05",
				Prefix:          component,
			})
		}
	}

	logger.mu.Lock()
	logger.file = file
	logger.console = console
	logger.mu.Unlock()
}

// Close flushes and closes the log file and returns loggers to silence.
func Close() error {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if !globalState.initialized {
		return nil
	}

	var closeErr error
	if globalState.writer != nil {
		if err := globalState.writer.Close(); err != nil {
			closeErr = fmt.Errorf("closing log writer: %w", err)
		}
		globalState.writer = nil
	}

	globalState.initialized = false
	globalState.components = make(map[string]Level)
	for component, logger := range globalState.loggers {
		globalState.configure(logger, component)
	}

	return closeErr
}

// DefaultLogPath returns $XDG_STATE_HOME/cartographer/cartographer.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "cartographer", "cartographer.log")
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Level:    "info",
		Path:     DefaultLogPath(),
		Rotation: DefaultRotationConfig(),
	}
}
