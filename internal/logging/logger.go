// Package logging provides the structured logger used by the engine and the
// file logger used by command line runs.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Level aliases for slog levels.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Logger wraps slog.Logger so engine components share one handler setup.
type Logger struct {
	*slog.Logger
}

// Config contains logger configuration options. A nil Output writes to
// stderr.
type Config struct {
	Level   slog.Level
	Output  io.Writer
	Enabled bool
}

// New creates a new logger with the given configuration.
func New(cfg Config) *Logger {
	if !cfg.Enabled {
		return Discard()
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	handler := slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: cfg.Level,
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// Discard returns a logger that drops every record.
func Discard() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithTarget returns a logger that tags every record with a target name.
func (l *Logger) WithTarget(name string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("target", name)),
	}
}

// OrDiscard returns l, or a discarding logger when l is nil.
func (l *Logger) OrDiscard() *Logger {
	if l == nil {
		return Discard()
	}
	return l
}
