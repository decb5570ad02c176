// Package logging provides structured logging for the sync core using
// log/slog. Sync failures are observability-only: they are logged here
// and never surfaced as blocking errors to the embedding application.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/caseworks/casesync/errors"
)

// Logger wraps slog.Logger with helpers for sync error reporting.
type Logger struct {
	*slog.Logger
}

// Config holds logger configuration.
type Config struct {
	Level     string `json:"level" yaml:"level"`           // debug, info, warn, error
	Format    string `json:"format" yaml:"format"`         // text, json
	AddSource bool   `json:"add_source" yaml:"add_source"` // include source position
}

// DefaultConfig is used when no configuration is given.
var DefaultConfig = Config{
	Level:  "info",
	Format: "json",
}

var (
	defaultMu     sync.Mutex
	defaultLogger *Logger
)

// SyncErrorValuer renders a SyncError as a structured log group.
type SyncErrorValuer struct {
	*errors.SyncError
}

func (e SyncErrorValuer) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("operation", string(e.Op)),
		slog.String("component", e.Component),
		slog.String("kind", string(e.Kind)),
		slog.Bool("retryable", e.Retryable),
		slog.String("error", e.Err.Error()),
	)
}

// NewLogger creates a logger writing to w with the given configuration.
func NewLogger(w io.Writer, config Config) *Logger {
	var level slog.Level
	switch config.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if config.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// Default returns the process-wide logger, initializing it on first use.
func Default() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(os.Stderr, DefaultConfig)
	}
	return defaultLogger
}

// Init replaces the process-wide logger.
func Init(config Config) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = NewLogger(os.Stderr, config)
}

// WithComponent returns a child logger tagged with the component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.With(slog.String("component", component))}
}

// LogError logs err at error level, expanding SyncError classification
// into structured attributes.
func (l *Logger) LogError(err error, msg string, attrs ...slog.Attr) {
	args := make([]any, 0, len(attrs)+1)
	if syncErr, ok := err.(*errors.SyncError); ok {
		args = append(args, slog.Any("sync_error", SyncErrorValuer{SyncError: syncErr}))
	} else {
		args = append(args, slog.String("error", err.Error()))
	}
	for _, attr := range attrs {
		args = append(args, attr)
	}
	l.Error(msg, args...)
}
