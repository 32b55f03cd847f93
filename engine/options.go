package engine

import (
	"log/slog"
	"time"
)

// DefaultCheckpointWait is the interval between automatic checkpoint
// passes when none is configured.
const DefaultCheckpointWait = 60 * time.Second

// Options configures an engine at open time. The settings are immutable
// for the lifetime of the engine; there is no live reconfiguration.
type Options struct {
	// LoggingEnabled turns on the operation journal: every modification
	// is durably logged as it occurs. With logging on, exclusive handle
	// requests on dirty objects succeed without forcing a flush.
	LoggingEnabled bool

	// FileCloseSync makes an exclusive handle request on a dirty object
	// perform a synchronous flush of that object before the handle is
	// granted.
	FileCloseSync bool

	// CheckpointWait is the interval between automatic checkpoint
	// passes. Zero means DefaultCheckpointWait; negative disables the
	// timer entirely (explicit checkpoints still work).
	CheckpointWait time.Duration

	// Logger receives engine diagnostics (periodic checkpoint failures,
	// shutdown problems). Defaults to discarding all output.
	Logger *slog.Logger
}

// DefaultOptions returns the defaults: logging off, file-close-sync off,
// automatic checkpoints every DefaultCheckpointWait.
func DefaultOptions() Options {
	return Options{
		CheckpointWait: DefaultCheckpointWait,
	}
}
