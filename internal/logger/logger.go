// Package logger provides the engine's slog setup.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Discard returns a logger that drops all output. It is the default for an
// engine opened without an explicit logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Options configures New.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	Output  io.Writer  // Destination. Default: os.Stderr
	Level   slog.Level // Minimum log level. Default: LevelInfo
}

// New builds a text logger from opts.
func New(opts Options) *slog.Logger {
	if !opts.Enabled {
		return Discard()
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: opts.Level}))
}
