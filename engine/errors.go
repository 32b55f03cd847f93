package engine

import (
	"errors"
	"fmt"

	"github.com/emberdb/ember/engine/checkpoint"
)

var (
	// ErrBusy signals that exclusive access to an object cannot be
	// granted right now: either a live lease exists, or the object holds
	// unflushed modifications that neither the journal nor a close-sync
	// flush can make safe. Busy is a deliberate signal, not a fault; the
	// remedy is to retry, typically after an explicit Checkpoint.
	ErrBusy = errors.New("ember: resource busy")

	// ErrNoObject reports an operation on an object that was never
	// created in this engine.
	ErrNoObject = errors.New("ember: no such object")

	// ErrClosed reports an operation on a closed engine.
	ErrClosed = errors.New("ember: engine closed")
)

// FlushError reports an I/O failure during the forced synchronous flush
// inside an exclusive handle request. The object's dirty state is left
// unchanged.
type FlushError struct {
	Object string
	Err    error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("ember: flush %s: %v", e.Object, e.Err)
}

func (e *FlushError) Unwrap() error {
	return e.Err
}

// CheckpointError reports a failed checkpoint pass.
type CheckpointError = checkpoint.Error
