// Package checkpoint schedules and runs checkpoint passes.
//
// # State machine
//
// A scheduler is either idle or running exactly one pass:
//
//	Idle → Running → Idle
//
// The transition into Running is exclusive. Explicit triggers that arrive
// while a pass is running coalesce: they wait for the in-flight pass and
// return its result, and no second pass starts.
//
// # Pass semantics
//
// A pass enumerates the currently dirty objects and flushes each one,
// reporting the write generation captured at flush start back to the dirty
// registry. Objects that are exclusively leased at flush time are skipped
// for the pass and retried on the next one; a pass therefore never blocks
// on another caller's lease. On success the checkpoint id advances.
//
// A flush failure aborts the pass. Objects flushed before the failure keep
// their advanced flushed generations; the remainder stay dirty for the next
// pass. The error surfaces to the explicit caller, or is logged when the
// pass was timer-triggered.
package checkpoint
