// Package testutil provides shared scaffolding for engine tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/emberdb/ember/engine"
)

// OpenEngine opens a fresh engine in a temp directory and closes it when
// the test finishes. Unless the caller sets an interval, the automatic
// checkpoint timer is disabled so tests control checkpoints explicitly.
func OpenEngine(t testing.TB, opts engine.Options) *engine.Engine {
	t.Helper()

	// Zero and the stock default both mean "the test did not choose an
	// interval"; run without the timer so checkpoints happen only when the
	// test asks for one.
	if opts.CheckpointWait == 0 || opts.CheckpointWait == engine.DefaultCheckpointWait {
		opts.CheckpointWait = -1
	}
	e, err := engine.Open(t.TempDir(), opts)
	if err != nil {
		t.Fatalf("open engine: %v", err)
	}
	t.Cleanup(func() {
		if err := e.Close(); err != nil {
			t.Errorf("close engine: %v", err)
		}
	})
	return e
}

// SeedObject creates uri and records writes modifications against it.
func SeedObject(t testing.TB, e *engine.Engine, uri string, writes int) {
	t.Helper()

	if err := e.Create(uri); err != nil {
		t.Fatalf("create %s: %v", uri, err)
	}
	for i := range writes {
		payload := fmt.Appendf(nil, "record-%d", i)
		if err := e.RecordWrite(uri, payload); err != nil {
			t.Fatalf("write %s: %v", uri, err)
		}
	}
}
