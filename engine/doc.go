// Package engine coordinates dirty state, checkpointing, and exclusive
// file-handle access inside one open database directory.
//
// # Overview
//
// Three settings fixed at open time drive the engine's behavior:
//
//   - logging: modifications are durably journaled as they occur
//   - file-close-sync: releasing an object's file handle forces a
//     synchronous flush of its dirty state
//   - checkpoint wait: the interval between automatic checkpoint passes
//
// The write path calls RecordWrite, which dirties the object. A background
// scheduler (or an explicit Checkpoint call) periodically flushes all dirty
// objects and advances the checkpoint id. Maintenance operations that need
// sole ownership of an object's file handle (Verify, Salvage, Drop) go
// through RequestExclusive, which uses the dirty registry and the two mode
// settings to decide whether the handle can be exclusively owned right now
// without risking data loss.
//
// # The tri-state grant policy
//
// For a dirty object, RequestExclusive grants the handle only when a crash
// at any point would still be recoverable: by flushing first when
// file-close-sync is on, or by relying on the journal when logging is on.
// With both off the request fails fast with ErrBusy rather than silently
// blocking or forcing an unsafe flush; the caller's remedy is an explicit
// Checkpoint and a retry.
//
// # Lifecycle
//
// All mutable state (dirty registry, lease table, checkpoint state) is
// scoped to the Engine instance: created by Open, torn down by Close.
// Multiple engines in one process never share state.
package engine
