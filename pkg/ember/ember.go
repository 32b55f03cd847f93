// Package ember is the public face of the engine coordinator.
//
// It re-exports the engine API under one import path:
//
//	eng, err := ember.Open(dir, ember.DefaultOptions())
//	if err != nil { ... }
//	defer eng.Close()
//
//	_ = eng.Create("table:example")
//	_ = eng.RecordWrite("table:example", payload)
//
//	lease, err := eng.RequestExclusive(ctx, "table:example", "verify")
//	if errors.Is(err, ember.ErrBusy) {
//		_ = eng.Checkpoint(ctx) // clear dirty state, then retry
//	}
package ember

import (
	"github.com/emberdb/ember/engine"
	"github.com/emberdb/ember/engine/lease"
)

// Engine coordinates dirty state, checkpointing, and exclusive handle
// access for one database directory.
type Engine = engine.Engine

// Options configures an engine at open time.
type Options = engine.Options

// Stats is a snapshot of engine counters.
type Stats = engine.Stats

// Lease represents exclusive ownership of an object's file handle.
type Lease = lease.Lease

// FlushError reports an I/O failure during a forced synchronous flush.
type FlushError = engine.FlushError

// CheckpointError reports a failed checkpoint pass.
type CheckpointError = engine.CheckpointError

var (
	// ErrBusy signals that exclusive access cannot be safely granted
	// right now. Retry after an explicit Checkpoint.
	ErrBusy = engine.ErrBusy

	// ErrNoObject reports an operation on an unknown object.
	ErrNoObject = engine.ErrNoObject

	// ErrClosed reports an operation on a closed engine.
	ErrClosed = engine.ErrClosed
)

// Open opens (creating if needed) the engine under dir.
func Open(dir string, opts Options) (*Engine, error) {
	return engine.Open(dir, opts)
}

// DefaultOptions returns the default engine configuration.
func DefaultOptions() Options {
	return engine.DefaultOptions()
}
