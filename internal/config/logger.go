package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LoggerOptions configura o logger do servidor e da CLI
type LoggerOptions struct {
	Env string
	// Level overrides the environment default (info in production, debug elsewhere)
	Level  slog.Leveler
	Output io.Writer
}

// NewLogger builds the process logger: JSON in production, text otherwise,
// with source locations only in development
func NewLogger(opts LoggerOptions) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{
		AddSource: opts.Env == "development",
		Level:     opts.Level,
	}

	if opts.Env == "production" {
		if handlerOpts.Level == nil {
			handlerOpts.Level = slog.LevelInfo
		}
		return slog.New(slog.NewJSONHandler(out, handlerOpts))
	}

	if handlerOpts.Level == nil {
		handlerOpts.Level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(out, handlerOpts))
}

// ParseLevel parses LOG_LEVEL. An empty string yields nil, leaving the
// environment default in place.
func ParseLevel(s string) (slog.Leveler, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
