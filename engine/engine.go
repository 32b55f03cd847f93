package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/emberdb/ember/engine/checkpoint"
	"github.com/emberdb/ember/engine/dirty"
	"github.com/emberdb/ember/engine/journal"
	"github.com/emberdb/ember/engine/lease"
	"github.com/emberdb/ember/engine/verify"
	"github.com/emberdb/ember/internal/logger"
	"github.com/emberdb/ember/internal/objid"
	"github.com/emberdb/ember/internal/store"
)

// JournalFileName is the operation journal file inside an engine
// directory.
const JournalFileName = "journal.log"

// Engine coordinates dirty state, checkpointing, and exclusive file-handle
// access for one open database directory. Multiple engines in one process
// are fully independent.
type Engine struct {
	dir  string
	opts Options
	log  *slog.Logger

	reg     *dirty.Registry
	leases  *lease.Table
	store   *store.Store
	journal *journal.Journal // nil unless logging is enabled
	sched   *checkpoint.Scheduler

	closed atomic.Bool

	leasesGranted  atomic.Uint64
	busyRejections atomic.Uint64
}

// Stats is a point-in-time snapshot of engine counters.
type Stats struct {
	Objects        int
	DirtyObjects   int
	LiveLeases     int
	Checkpoints    uint64
	LeasesGranted  uint64
	BusyRejections uint64
	JournalBytes   int64
}

// Open opens (creating if needed) the engine under dir.
func Open(dir string, opts Options) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.CheckpointWait == 0 {
		opts.CheckpointWait = DefaultCheckpointWait
	}

	st, err := store.Open(dir)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		dir:    dir,
		opts:   opts,
		log:    opts.Logger,
		reg:    dirty.NewRegistry(),
		leases: lease.NewTable(),
		store:  st,
	}

	if opts.LoggingEnabled {
		j, err := journal.Open(filepath.Join(dir, JournalFileName))
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		e.journal = j
	}

	e.sched = checkpoint.New(e.reg, e.flushObject, checkpoint.Config{
		Skip:   e.leases.Held,
		Logger: opts.Logger,
	})
	if err := e.sched.Start(opts.CheckpointWait); err != nil {
		_ = e.closeFiles()
		return nil, err
	}
	return e, nil
}

// Dir returns the engine's directory.
func (e *Engine) Dir() string {
	return e.dir
}

// Create registers the object named by uri and creates its backing data
// file. Creating an existing object is a no-op; a fresh object is clean.
func (e *Engine) Create(uri string) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if err := e.store.Create(uri); err != nil {
		return err
	}
	e.reg.Register(uri)
	return nil
}

// RecordWrite records one modification of uri. The payload is buffered for
// the next flush of the object, appended to the journal when logging is
// enabled, and the object becomes dirty. An empty payload is legal and
// still dirties the object.
func (e *Engine) RecordWrite(uri string, payload []byte) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if !e.store.Exists(uri) {
		return fmt.Errorf("%w: %s", ErrNoObject, uri)
	}
	gen := e.reg.MarkDirty(uri)
	// Journal before buffering: the logging mode must never treat buffered
	// content the journal missed as journal-covered.
	if e.journal != nil {
		if err := e.journal.Append(objid.FromURI(uri), gen, payload); err != nil {
			return err
		}
	}
	return e.store.Append(uri, gen, payload)
}

// IsDirty reports whether uri has unflushed modifications.
func (e *Engine) IsDirty(uri string) bool {
	return e.reg.IsDirty(uri)
}

// RequestExclusive attempts to obtain sole ownership of uri's file handle
// on behalf of holder.
//
// If a live lease already exists the request fails with ErrBusy. If the
// object is dirty, the grant decision follows the engine modes:
//
//   - file-close-sync on: the object is synchronously flushed first, then
//     the lease is granted (the flush may block on I/O).
//   - logging on (and close-sync off): the journal already makes the dirty
//     content durable, so the lease is granted without a flush and the
//     object stays dirty for checkpoint purposes.
//   - both off: there is no crash-recoverable way to release the handle,
//     so the request fails with ErrBusy. The remedy is an explicit
//     Checkpoint followed by a retry.
//
// The Busy path never blocks. The returned lease must be released on every
// exit path of the holding operation.
func (e *Engine) RequestExclusive(ctx context.Context, uri, holder string) (lease.Lease, error) {
	if e.closed.Load() {
		return lease.Lease{}, ErrClosed
	}
	if !e.store.Exists(uri) {
		return lease.Lease{}, fmt.Errorf("%w: %s", ErrNoObject, uri)
	}

	// Reserve the lease before looking at dirty state. The reservation is
	// the arbitration point: it excludes concurrent acquirers and keeps
	// the checkpoint scheduler away from the object while we decide.
	l, ok := e.leases.Acquire(uri, holder)
	if !ok {
		e.busyRejections.Add(1)
		return lease.Lease{}, fmt.Errorf("%w: %s is exclusively held", ErrBusy, uri)
	}

	if e.reg.IsDirty(uri) {
		switch {
		case e.opts.FileCloseSync:
			gen := e.reg.Generation(uri)
			if err := e.flushObject(ctx, uri); err != nil {
				e.leases.Release(l)
				return lease.Lease{}, &FlushError{Object: uri, Err: err}
			}
			e.reg.MarkFlushed(uri, gen)
		case e.opts.LoggingEnabled:
			// Journaled writes are already durable; the handle can be
			// closed and reopened safely without a flush.
		default:
			e.leases.Release(l)
			e.busyRejections.Add(1)
			return lease.Lease{}, fmt.Errorf("%w: %s has unflushed, unlogged modifications", ErrBusy, uri)
		}
	}

	e.leasesGranted.Add(1)
	return l, nil
}

// Release destroys l. Idempotent; releasing an already-released or stale
// lease is a no-op.
func (e *Engine) Release(l lease.Lease) {
	e.leases.Release(l)
}

// Checkpoint synchronously runs a checkpoint pass: all dirty objects are
// flushed to stable storage and the checkpoint id advances. A call that
// arrives while a pass is already running coalesces onto it and returns
// that pass's result.
func (e *Engine) Checkpoint(ctx context.Context) error {
	if e.closed.Load() {
		return ErrClosed
	}
	return e.sched.Checkpoint(ctx)
}

// Verify checks the structural integrity of uri's on-disk record stream.
// It requires the object's exclusive handle and therefore fails with
// ErrBusy under the same conditions as RequestExclusive.
func (e *Engine) Verify(ctx context.Context, uri string) error {
	l, err := e.RequestExclusive(ctx, uri, "verify")
	if err != nil {
		return err
	}
	defer e.Release(l)

	data, err := e.store.ReadAll(uri)
	if err != nil {
		return err
	}
	return verify.Records(data)
}

// Salvage discards everything past the longest valid record-stream prefix
// of uri's data file. Like Verify it requires the exclusive handle.
// Returns the number of bytes discarded.
func (e *Engine) Salvage(ctx context.Context, uri string) (int64, error) {
	l, err := e.RequestExclusive(ctx, uri, "salvage")
	if err != nil {
		return 0, err
	}
	defer e.Release(l)

	data, err := e.store.ReadAll(uri)
	if err != nil {
		return 0, err
	}
	keep := verify.SalvageOffset(data)
	discarded := int64(len(data)) - keep
	if discarded == 0 {
		return 0, nil
	}
	if err := e.store.Truncate(uri, keep); err != nil {
		return 0, err
	}
	return discarded, nil
}

// Drop removes uri and its backing file from the engine. Requires the
// exclusive handle; the lease dies with the object.
func (e *Engine) Drop(ctx context.Context, uri string) error {
	l, err := e.RequestExclusive(ctx, uri, "drop")
	if err != nil {
		return err
	}
	defer e.Release(l)

	if err := e.store.Remove(uri); err != nil {
		return err
	}
	e.reg.Drop(uri)
	return nil
}

// Leases returns a snapshot of the live leases.
func (e *Engine) Leases() []lease.Lease {
	var out []lease.Lease
	e.leases.Range(func(_ string, l lease.Lease) bool {
		out = append(out, l)
		return true
	})
	return out
}

// Stats returns a snapshot of the engine's counters.
func (e *Engine) Stats() Stats {
	s := Stats{
		Objects:        e.store.Len(),
		DirtyObjects:   e.reg.DirtyCount(),
		LiveLeases:     e.leases.Size(),
		Checkpoints:    e.sched.LastCheckpointID(),
		LeasesGranted:  e.leasesGranted.Load(),
		BusyRejections: e.busyRejections.Load(),
	}
	if e.journal != nil {
		s.JournalBytes = e.journal.Size()
	}
	return s
}

// flushObject flushes one object's pending modifications to its data file.
// Used by both the checkpoint scheduler and the close-sync acquire path.
//
// An object that vanished between enumeration and flush (a write racing a
// Drop can leave a registry entry with no backing store object) is not a
// flush failure: its dirty state dies with it.
func (e *Engine) flushObject(ctx context.Context, uri string) error {
	err := e.store.Flush(ctx, uri)
	if errors.Is(err, store.ErrUnknownObject) {
		e.reg.Drop(uri)
		return nil
	}
	return err
}

// Close shuts the engine down: the checkpoint timer stops, a final pass
// flushes all remaining dirty objects regardless of mode settings, and the
// journal and directory lock are released. Close never fails with ErrBusy.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.sched.Stop()

	var errs []error
	if err := e.sched.Checkpoint(context.Background()); err != nil {
		errs = append(errs, fmt.Errorf("final checkpoint: %w", err))
	}
	if err := e.closeFiles(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		e.log.Error("engine close", "dir", e.dir, "error", err)
		return fmt.Errorf("ember: close: %w", err)
	}
	return nil
}

// closeFiles releases the journal and the store's directory lock.
func (e *Engine) closeFiles() error {
	var errs []error
	if e.journal != nil {
		if err := e.journal.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
