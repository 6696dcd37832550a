// Package logging provides the leveled, structured logger shared by every
// dashwire component.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/hashicorp/go-hclog"
)

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	// LogLevelDebug is for detailed debugging information.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is for general informational messages.
	LogLevelInfo
	// LogLevelWarn is for warning messages.
	LogLevelWarn
	// LogLevelError is for error messages.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) hclog() hclog.Level {
	switch l {
	case LogLevelDebug:
		return hclog.Debug
	case LogLevelWarn:
		return hclog.Warn
	case LogLevelError:
		return hclog.Error
	default:
		return hclog.Info
	}
}

// ParseLogLevel parses a string into a LogLevel. Unknown values map to info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug", "trace":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// Logger is a printf-style facade over hclog with structured fields.
type Logger struct {
	hl hclog.Logger
}

// Config configures the logger.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel
	// Output is where logs are written. Defaults to os.Stderr.
	Output io.Writer
	// Name is the logger name shown on every line.
	Name string
	// JSON switches to JSON lines output.
	JSON bool
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LogLevelInfo,
		Output: os.Stderr,
		Name:   "dashwire",
	}
}

// New creates a logger with the given configuration.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	return &Logger{
		hl: hclog.New(&hclog.LoggerOptions{
			Name:       cfg.Name,
			Level:      cfg.Level.hclog(),
			Output:     cfg.Output,
			JSONFormat: cfg.JSON,
		}),
	}
}

// FromHclog wraps an existing hclog logger.
func FromHclog(hl hclog.Logger) *Logger {
	if hl == nil {
		return NullLogger
	}
	return &Logger{hl: hl}
}

// NullLogger is a logger that discards all output.
var NullLogger = &Logger{hl: hclog.NewNullLogger()}

// OrNull returns l, or NullLogger when l is nil.
func OrNull(l *Logger) *Logger {
	if l == nil {
		return NullLogger
	}
	return l
}

// WithField returns a new logger with the given field added.
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{hl: l.hl.With(key, value)}
}

// WithFields returns a new logger with the given fields added.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for _, k := range sortedKeys(fields) {
		args = append(args, k, fields[k])
	}
	return &Logger{hl: l.hl.With(args...)}
}

// WithComponent returns a new logger named after the component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{hl: l.hl.Named(component)}
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level LogLevel) {
	l.hl.SetLevel(level.hclog())
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...any) {
	if l.hl.IsDebug() {
		l.hl.Debug(format(msg, args))
	}
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...any) {
	if l.hl.IsInfo() {
		l.hl.Info(format(msg, args))
	}
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...any) {
	if l.hl.IsWarn() {
		l.hl.Warn(format(msg, args))
	}
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...any) {
	if l.hl.IsError() {
		l.hl.Error(format(msg, args))
	}
}

// Hclog exposes the underlying hclog logger.
func (l *Logger) Hclog() hclog.Logger {
	return l.hl
}

func format(msg string, args []any) string {
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

// Watermill returns a watermill.LoggerAdapter writing to the same sink.
func (l *Logger) Watermill() watermill.LoggerAdapter {
	return watermillAdapter{hl: l.hl}
}

type watermillAdapter struct {
	hl hclog.Logger
}

func (a watermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.hl.Error(msg, append(fieldArgs(fields), "error", err)...)
}

func (a watermillAdapter) Info(msg string, fields watermill.LogFields) {
	a.hl.Info(msg, fieldArgs(fields)...)
}

func (a watermillAdapter) Debug(msg string, fields watermill.LogFields) {
	a.hl.Debug(msg, fieldArgs(fields)...)
}

func (a watermillAdapter) Trace(msg string, fields watermill.LogFields) {
	a.hl.Trace(msg, fieldArgs(fields)...)
}

func (a watermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return watermillAdapter{hl: a.hl.With(fieldArgs(fields)...)}
}

func fieldArgs(fields watermill.LogFields) []any {
	args := make([]any, 0, len(fields)*2)
	for _, k := range sortedKeys(fields) {
		args = append(args, k, fields[k])
	}
	return args
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
