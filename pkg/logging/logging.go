// Package logging configures the process-wide slog logger.
//
// All output goes to the writer passed to Init (stderr in the CLI) so that the
// stdio MCP transport keeps stdout for protocol frames only.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ParseLevel maps a level name to a slog.Level. Unknown names map to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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

// Init installs a text or json handler as the default slog logger and returns it.
func Init(level string, format string, output io.Writer) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		handler = slog.NewTextHandler(output, opts)
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

// For returns the default logger tagged with a subsystem attribute.
func For(subsystem string) *slog.Logger {
	return slog.Default().With("subsystem", subsystem)
}

// Mask hides the middle of a secret for logging.
func Mask(secret string) string {
	if len(secret) > 20 {
		return secret[:8] + "***" + secret[len(secret)-8:]
	}
	if secret == "" {
		return ""
	}
	return "***"
}
