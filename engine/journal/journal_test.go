package journal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emberdb/ember/internal/objid"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()

	j, err := Open(filepath.Join(t.TempDir(), "journal.log"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

// Test 1: Appended records scan back in order with their payloads intact.
func Test_Journal_AppendScanRoundtrip(t *testing.T) {
	j := openTestJournal(t)

	a := objid.FromURI("table:a")
	b := objid.FromURI("table:b")
	require.NoError(t, j.Append(a, 1, []byte("first")))
	require.NoError(t, j.Append(b, 1, []byte("second")))
	require.NoError(t, j.Append(a, 2, nil))

	var got []Entry
	require.NoError(t, j.Scan(func(e Entry) error {
		got = append(got, e)
		return nil
	}))

	require.Len(t, got, 3)
	require.Equal(t, a, got[0].Object)
	require.Equal(t, uint64(1), got[0].Generation)
	require.Equal(t, []byte("first"), got[0].Payload)
	require.Equal(t, b, got[1].Object)
	require.Equal(t, a, got[2].Object)
	require.Equal(t, uint64(2), got[2].Generation)
	require.Empty(t, got[2].Payload)
}

// Test 2: Size reflects the bytes on disk.
func Test_Journal_SizeGrows(t *testing.T) {
	j := openTestJournal(t)
	require.Equal(t, int64(0), j.Size())

	require.NoError(t, j.Append(objid.FromURI("table:a"), 1, []byte("xyz")))
	first := j.Size()
	require.Greater(t, first, int64(0))

	require.NoError(t, j.Append(objid.FromURI("table:a"), 2, []byte("xyz")))
	require.Equal(t, 2*first, j.Size())
}

// Test 3: Append after Close fails; Close is idempotent.
func Test_Journal_ClosedAppendFails(t *testing.T) {
	j := openTestJournal(t)
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	err := j.Append(objid.FromURI("table:a"), 1, []byte("late"))
	require.Error(t, err)
}

// Test 4: Reopening an existing journal resumes at its current size.
func Test_Journal_ReopenResumesSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.log")

	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Append(objid.FromURI("table:a"), 1, []byte("payload")))
	size := j.Size()
	require.NoError(t, j.Close())

	j2, err := Open(path)
	require.NoError(t, err)
	defer j2.Close()
	require.Equal(t, size, j2.Size())
}
