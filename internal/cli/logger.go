package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/danieljhkim/pkgstage/internal/config"
)

// newLogger creates a slog.Logger writing to w. Unknown levels fall back to
// info and unknown formats to text.
func newLogger(levelStr, formatStr string, w io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if formatStr == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// commandLogger builds the logger for a command from flags, then the
// environment. Logs always go to stderr so --json output stays parseable.
func commandLogger() *slog.Logger {
	level := logLevel
	if level == "" {
		level = os.Getenv(config.EnvLogLevel)
	}
	format := logFormat
	if format == "" {
		format = os.Getenv(config.EnvLogFormat)
	}
	return newLogger(level, format, os.Stderr)
}
