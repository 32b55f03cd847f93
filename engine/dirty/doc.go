// Package dirty tracks per-object unflushed-modification state.
//
// # Overview
//
// The registry records, for every object the engine knows about, a write
// generation (bumped on each modification) and a flushed generation
// (advanced when a flush of that object completes). The single invariant is
//
//	dirty == (write generation != flushed generation)
//
// which gives flushes a natural idempotence rule: a flush only ever moves
// the flushed generation forward, so a slow flush that finishes after newer
// writes landed cannot mark those writes clean.
//
// # Generation capture
//
// Callers that flush an object must capture the write generation *before*
// starting the flush and report that captured value to MarkFlushed. Writes
// that land mid-flush then keep the object dirty for the next pass.
//
// # Thread safety
//
// All registry methods are safe for concurrent use; the per-object state is
// a pair of atomic counters behind a concurrent map, so the write path
// never takes a global lock.
package dirty
