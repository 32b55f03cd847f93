// Package journal implements the engine's append-only operation log.
//
// The journal exists to make the logging mode's durability promise real:
// with logging enabled, a modification is synced to the journal before the
// write returns, so the exclusive-handle arbiter may hand out an object's
// file handle while the object is still logically dirty. Recovery-time
// replay of the journal belongs to the session layer and is out of scope
// here; this package only appends, scans, and syncs.
package journal
