// Package logging provides structured logging using slog.
package logging

import (
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Config holds logging configuration.
type Config struct {
	Format string `yaml:"format" envconfig:"LOG_FORMAT"` // "json" | "text"
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`   // "debug" | "info" | "warn" | "error"
}

// Setup initializes the global slog logger based on configuration.
func Setup(cfg Config) {
	level := parseLevel(cfg.Level)

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: level,
	}

	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// parseLevel converts a string level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewRunID creates a unique identifier for one connector run, attached to
// every log line so interleaved runs can be told apart in aggregated logs.
func NewRunID() string {
	return uuid.NewString()
}

// RunLogger creates a logger scoped to a single connector run.
func RunLogger(runID string) *slog.Logger {
	return slog.With("run_id", runID)
}

// SeriesLogger creates a logger with series context fields.
func SeriesLogger(log *slog.Logger, seriesCode string) *slog.Logger {
	return log.With("series", seriesCode)
}

// Component returns a logger with a component name.
func Component(name string) *slog.Logger {
	return slog.With("component", name)
}
