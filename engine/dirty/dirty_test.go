package dirty

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// Test 1: A freshly registered object is clean.
func Test_Registry_CleanUntilWritten(t *testing.T) {
	r := NewRegistry()
	r.Register("table:a")

	require.False(t, r.IsDirty("table:a"))
	require.Equal(t, uint64(0), r.Generation("table:a"))
	require.Empty(t, r.DirtyObjects())
}

// Test 2: MarkDirty makes the object dirty and bumps the generation.
func Test_Registry_DirtyAfterWrite(t *testing.T) {
	r := NewRegistry()
	r.Register("table:a")

	gen := r.MarkDirty("table:a")
	require.Equal(t, uint64(1), gen)
	require.True(t, r.IsDirty("table:a"))

	gen = r.MarkDirty("table:a")
	require.Equal(t, uint64(2), gen)
}

// Test 3: MarkFlushed at the current generation makes the object clean.
func Test_Registry_FlushClears(t *testing.T) {
	r := NewRegistry()
	gen := r.MarkDirty("table:a")

	r.MarkFlushed("table:a", gen)
	require.False(t, r.IsDirty("table:a"))
	require.Equal(t, 0, r.DirtyCount())
}

// Test 4: A stale flush report must not un-flush newer writes.
func Test_Registry_StaleFlushIgnored(t *testing.T) {
	r := NewRegistry()
	old := r.MarkDirty("table:a")
	newer := r.MarkDirty("table:a")

	r.MarkFlushed("table:a", newer)
	require.False(t, r.IsDirty("table:a"))

	// A flush that started before the second write finishes late.
	r.MarkFlushed("table:a", old)
	require.False(t, r.IsDirty("table:a"), "stale flush regressed the flushed generation")
}

// Test 5: Writes landing mid-flush keep the object dirty.
func Test_Registry_WriteDuringFlushStaysDirty(t *testing.T) {
	r := NewRegistry()
	r.MarkDirty("table:a")

	// Flush starts: capture the generation.
	gen := r.Generation("table:a")

	// A write lands while the flush is in progress.
	r.MarkDirty("table:a")

	// Flush finishes and reports the captured generation.
	r.MarkFlushed("table:a", gen)
	require.True(t, r.IsDirty("table:a"))
}

// Test 6: DirtyObjects snapshots only dirty objects.
func Test_Registry_DirtyObjects(t *testing.T) {
	r := NewRegistry()
	r.Register("table:clean")
	gen := r.MarkDirty("table:a")
	r.MarkDirty("table:b")

	require.ElementsMatch(t, []string{"table:a", "table:b"}, r.DirtyObjects())

	r.MarkFlushed("table:a", gen)
	require.Equal(t, []string{"table:b"}, r.DirtyObjects())
}

// Test 7: Drop forgets the object entirely.
func Test_Registry_Drop(t *testing.T) {
	r := NewRegistry()
	r.MarkDirty("table:a")

	r.Drop("table:a")
	require.False(t, r.IsDirty("table:a"))
	require.Equal(t, 0, r.Len())

	// Dropping twice is fine.
	r.Drop("table:a")
}

// Test 8: Concurrent writers never lose a generation bump.
func Test_Registry_ConcurrentMarkDirty(t *testing.T) {
	const (
		writers = 8
		each    = 1000
	)
	r := NewRegistry()
	r.Register("table:a")

	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range each {
				r.MarkDirty("table:a")
			}
		}()
	}
	wg.Wait()

	require.Equal(t, uint64(writers*each), r.Generation("table:a"))
	require.True(t, r.IsDirty("table:a"))
}
