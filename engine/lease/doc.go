// Package lease tracks exclusive ownership of object file handles.
//
// A lease is granted to exactly one holder per object at a time; operations
// that need sole ownership of an object's underlying file (verify, drop,
// salvage) hold one for the duration of the operation and must release it
// on every exit path. Acquisition is a single atomic check-and-insert, so
// concurrent acquirers race safely and at most one wins.
//
// The table only arbitrates ownership. Whether acquiring a lease is *safe*
// (the object may hold unflushed, unlogged modifications) is the engine
// arbiter's decision, made before the caller sees the lease.
package lease
