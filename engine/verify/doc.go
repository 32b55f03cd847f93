// Package verify validates object record streams.
//
// The functions here are pure: they take the bytes of an object's data file
// and report structural problems without touching the engine. The engine's
// Verify and Salvage operations acquire the object's exclusive handle and
// then delegate to this package, so validation always sees a quiescent
// file.
package verify
