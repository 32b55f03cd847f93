package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emberdb/ember/engine"
	"github.com/emberdb/ember/engine/verify"
	"github.com/emberdb/ember/internal/objid"
	"github.com/emberdb/ember/internal/store"
	"github.com/emberdb/ember/internal/testutil"
)

const testURI = "table:config_test"

// Test 1: An object with no writes since open is never dirty.
func Test_Engine_CleanObjectStaysClean(t *testing.T) {
	e := testutil.OpenEngine(t, engine.DefaultOptions())
	require.NoError(t, e.Create(testURI))

	require.False(t, e.IsDirty(testURI))
	l, err := e.RequestExclusive(context.Background(), testURI, "verify")
	require.NoError(t, err)
	e.Release(l)
}

// Test 2: After a write and before any flush the object is dirty.
func Test_Engine_DirtyAfterWrite(t *testing.T) {
	e := testutil.OpenEngine(t, engine.DefaultOptions())
	testutil.SeedObject(t, e, testURI, 1)

	require.True(t, e.IsDirty(testURI))
}

// Test 3: With logging and file-close-sync both off, exclusive access to a
// dirty object is refused until a checkpoint clears it.
func Test_Engine_ExclusiveBusyUntilCheckpoint(t *testing.T) {
	ctx := context.Background()
	e := testutil.OpenEngine(t, engine.DefaultOptions())
	testutil.SeedObject(t, e, testURI, 3)

	_, err := e.RequestExclusive(ctx, testURI, "verify")
	require.ErrorIs(t, err, engine.ErrBusy)

	// Taking a checkpoint should make the engine happy.
	require.NoError(t, e.Checkpoint(ctx))
	require.False(t, e.IsDirty(testURI))

	l, err := e.RequestExclusive(ctx, testURI, "verify")
	require.NoError(t, err)
	e.Release(l)
}

// Test 4: With file-close-sync on, exclusive access to a dirty object
// succeeds immediately and leaves the object clean.
func Test_Engine_FileCloseSyncFlushesOnAcquire(t *testing.T) {
	opts := engine.DefaultOptions()
	opts.FileCloseSync = true
	e := testutil.OpenEngine(t, opts)
	testutil.SeedObject(t, e, testURI, 3)

	l, err := e.RequestExclusive(context.Background(), testURI, "verify")
	require.NoError(t, err)
	require.False(t, e.IsDirty(testURI))
	e.Release(l)
}

// Test 5: With logging on (and close-sync off), exclusive access succeeds
// without changing dirty state.
func Test_Engine_LoggingGrantsWithoutFlush(t *testing.T) {
	opts := engine.DefaultOptions()
	opts.LoggingEnabled = true
	e := testutil.OpenEngine(t, opts)
	testutil.SeedObject(t, e, testURI, 3)

	l, err := e.RequestExclusive(context.Background(), testURI, "verify")
	require.NoError(t, err)
	require.True(t, e.IsDirty(testURI), "logged writes stay dirty for checkpoint purposes")
	e.Release(l)

	require.Positive(t, e.Stats().JournalBytes)
}

// Test 6: The full mode matrix, as one scenario table. Exclusive
// operations on a dirty object fail only when both logging and
// file-close-sync are disabled, and an engine close never reports busy.
func Test_Engine_ModeMatrix(t *testing.T) {
	cases := []struct {
		name          string
		logging       bool
		fileCloseSync bool
		wantBusy      bool
	}{
		{"log_off_flush_off", false, false, true},
		{"log_off_flush_on", false, true, false},
		{"log_on_flush_off", true, false, false},
		{"log_on_flush_on", true, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := engine.DefaultOptions()
			opts.LoggingEnabled = tc.logging
			opts.FileCloseSync = tc.fileCloseSync
			e := testutil.OpenEngine(t, opts)
			testutil.SeedObject(t, e, testURI, 3)

			err := e.Verify(context.Background(), testURI)
			if tc.wantBusy {
				require.ErrorIs(t, err, engine.ErrBusy)
				require.NoError(t, e.Checkpoint(context.Background()))
				require.NoError(t, e.Verify(context.Background(), testURI))
			} else {
				require.NoError(t, err)
			}

			// Shutdown must never report busy, dirty or not.
			require.NoError(t, e.RecordWrite(testURI, []byte("late write")))
			require.NoError(t, e.Close())
		})
	}
}

// Test 7: At most one live lease per object under concurrent acquirers.
func Test_Engine_ConcurrentExclusiveSingleWinner(t *testing.T) {
	const acquirers = 12

	e := testutil.OpenEngine(t, engine.DefaultOptions())
	require.NoError(t, e.Create(testURI))

	var (
		wg     sync.WaitGroup
		grants atomic.Int32
	)
	for range acquirers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.RequestExclusive(context.Background(), testURI, "worker"); err == nil {
				grants.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), grants.Load())
	require.Equal(t, 1, e.Stats().LiveLeases)
}

// Test 8: Concurrent explicit checkpoints all succeed and the object comes
// out clean.
func Test_Engine_ConcurrentCheckpoints(t *testing.T) {
	const callers = 8

	e := testutil.OpenEngine(t, engine.DefaultOptions())
	testutil.SeedObject(t, e, testURI, 5)

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = e.Checkpoint(context.Background())
		}()
	}
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
	}
	require.False(t, e.IsDirty(testURI))
}

// Test 9: A leased object is skipped by a checkpoint pass and caught up on
// the next one.
func Test_Engine_CheckpointSkipsLeasedObject(t *testing.T) {
	ctx := context.Background()
	opts := engine.DefaultOptions()
	opts.LoggingEnabled = true // so the lease is grantable while dirty
	e := testutil.OpenEngine(t, opts)
	testutil.SeedObject(t, e, testURI, 2)
	testutil.SeedObject(t, e, "table:other", 2)

	l, err := e.RequestExclusive(ctx, testURI, "maintenance")
	require.NoError(t, err)

	require.NoError(t, e.Checkpoint(ctx))
	require.True(t, e.IsDirty(testURI), "leased object must be skipped")
	require.False(t, e.IsDirty("table:other"))

	e.Release(l)
	require.NoError(t, e.Checkpoint(ctx))
	require.False(t, e.IsDirty(testURI))
}

// Test 10: Salvage discards garbage appended past the valid records, after
// which verify passes again.
func Test_Engine_SalvageRepairsTail(t *testing.T) {
	ctx := context.Background()
	e := testutil.OpenEngine(t, engine.DefaultOptions())
	testutil.SeedObject(t, e, testURI, 2)
	require.NoError(t, e.Checkpoint(ctx))
	require.NoError(t, e.Verify(ctx, testURI))

	// Corrupt the data file directly, past the flushed records.
	path := dataFilePath(e, testURI)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte("definitely not a record header, 32b"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	err = e.Verify(ctx, testURI)
	var verr *verify.ValidationError
	require.ErrorAs(t, err, &verr)

	discarded, err := e.Salvage(ctx, testURI)
	require.NoError(t, err)
	require.Positive(t, discarded)
	require.NoError(t, e.Verify(ctx, testURI))
}

// Test 11: Drop removes the object; later operations see ErrNoObject.
func Test_Engine_Drop(t *testing.T) {
	ctx := context.Background()
	e := testutil.OpenEngine(t, engine.DefaultOptions())
	testutil.SeedObject(t, e, testURI, 1)
	require.NoError(t, e.Checkpoint(ctx))

	require.NoError(t, e.Drop(ctx, testURI))
	require.ErrorIs(t, e.RecordWrite(testURI, nil), engine.ErrNoObject)
	_, err := e.RequestExclusive(ctx, testURI, "verify")
	require.ErrorIs(t, err, engine.ErrNoObject)

	_, err = os.Stat(dataFilePath(e, testURI))
	require.ErrorIs(t, err, os.ErrNotExist, "drop must delete the data file")
}

// Test 12: Busy is returned immediately while another operation holds the
// lease, and release makes the object available again.
func Test_Engine_BusyWhileLeased(t *testing.T) {
	ctx := context.Background()
	e := testutil.OpenEngine(t, engine.DefaultOptions())
	require.NoError(t, e.Create(testURI))

	l, err := e.RequestExclusive(ctx, testURI, "salvage")
	require.NoError(t, err)

	_, err = e.RequestExclusive(ctx, testURI, "verify")
	require.ErrorIs(t, err, engine.ErrBusy)
	require.Positive(t, e.Stats().BusyRejections)

	leases := e.Leases()
	require.Len(t, leases, 1)
	require.Equal(t, testURI, leases[0].Object)
	require.Equal(t, "salvage", leases[0].Holder)

	e.Release(l)
	e.Release(l) // idempotent

	l2, err := e.RequestExclusive(ctx, testURI, "verify")
	require.NoError(t, err)
	e.Release(l2)
}

// Test 13: Operations on an unknown object fail with ErrNoObject; a
// closed engine fails with ErrClosed.
func Test_Engine_UnknownAndClosed(t *testing.T) {
	ctx := context.Background()
	e := testutil.OpenEngine(t, engine.DefaultOptions())

	require.ErrorIs(t, e.RecordWrite("table:ghost", nil), engine.ErrNoObject)
	_, err := e.RequestExclusive(ctx, "table:ghost", "verify")
	require.ErrorIs(t, err, engine.ErrNoObject)

	require.NoError(t, e.Close())
	require.NoError(t, e.Close(), "double close must be a no-op")
	require.ErrorIs(t, e.RecordWrite(testURI, nil), engine.ErrClosed)
	require.ErrorIs(t, e.Checkpoint(ctx), engine.ErrClosed)
	_, err = e.RequestExclusive(ctx, testURI, "verify")
	require.ErrorIs(t, err, engine.ErrClosed)
}

// Test 14: The automatic timer reconciles dirty state without an explicit
// checkpoint call.
func Test_Engine_AutomaticCheckpoint(t *testing.T) {
	opts := engine.DefaultOptions()
	opts.CheckpointWait = time.Second
	e := testutil.OpenEngine(t, opts)
	testutil.SeedObject(t, e, testURI, 2)

	require.Eventually(t, func() bool {
		return !e.IsDirty(testURI)
	}, 5*time.Second, 50*time.Millisecond)

	// Previously blocked exclusive requests now succeed.
	l, err := e.RequestExclusive(context.Background(), testURI, "verify")
	require.NoError(t, err)
	e.Release(l)
}

// Test 15: Checkpoint ids advance once per completed pass.
func Test_Engine_StatsCounters(t *testing.T) {
	ctx := context.Background()
	e := testutil.OpenEngine(t, engine.DefaultOptions())
	testutil.SeedObject(t, e, testURI, 1)

	require.NoError(t, e.Checkpoint(ctx))
	s := e.Stats()
	require.Equal(t, uint64(1), s.Checkpoints)
	require.Equal(t, 1, s.Objects)
	require.Zero(t, s.DirtyObjects)

	l, err := e.RequestExclusive(ctx, testURI, "verify")
	require.NoError(t, err)
	e.Release(l)
	require.Equal(t, uint64(1), e.Stats().LeasesGranted)
}

// Test 16: A failing close-sync flush surfaces a typed error, releases the
// lease reservation, and leaves the object dirty for a later retry.
func Test_Engine_FlushFailureReleasesReservation(t *testing.T) {
	ctx := context.Background()
	opts := engine.DefaultOptions()
	opts.FileCloseSync = true
	e := testutil.OpenEngine(t, opts)
	testutil.SeedObject(t, e, testURI, 2)

	// Make the flush fail by replacing the data file with a directory.
	path := dataFilePath(e, testURI)
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o755))

	_, err := e.RequestExclusive(ctx, testURI, "verify")
	var ferr *engine.FlushError
	require.ErrorAs(t, err, &ferr)
	require.Equal(t, testURI, ferr.Object)
	require.True(t, e.IsDirty(testURI), "failed flush must not clear dirty state")
	require.Zero(t, e.Stats().LiveLeases, "failed acquire must release its reservation")

	// Fault cleared: the retry flushes and succeeds.
	require.NoError(t, os.Remove(path))
	l, err := e.RequestExclusive(ctx, testURI, "verify")
	require.NoError(t, err)
	require.False(t, e.IsDirty(testURI))
	e.Release(l)
}

// dataFilePath resolves the on-disk data file backing uri:
// <dir>/data/<objid>.obj.
func dataFilePath(e *engine.Engine, uri string) string {
	name := objid.FromURI(uri).Hex() + ".obj"
	return filepath.Join(e.Dir(), store.DataDirectoryName, name)
}
