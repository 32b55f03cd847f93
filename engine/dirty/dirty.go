package dirty

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
)

// Registry tracks which objects hold unflushed modifications.
//
// Each object carries two monotonic counters: the write generation, bumped
// on every modification, and the flushed generation, advanced when a flush
// completes. An object is dirty exactly when the two differ. All methods
// are safe for concurrent use.
type Registry struct {
	objects *xsync.Map[string, *state]
}

// state is the per-object counter pair.
type state struct {
	writeGen   atomic.Uint64
	flushedGen atomic.Uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		objects: xsync.NewMap[string, *state](),
	}
}

// Register ensures uri has an entry. Registering twice is a no-op. A freshly
// registered object is clean.
func (r *Registry) Register(uri string) {
	r.objects.LoadOrStore(uri, &state{})
}

// MarkDirty records one modification to uri and returns the new write
// generation. Never fails; an unregistered object is registered implicitly.
func (r *Registry) MarkDirty(uri string) uint64 {
	st, _ := r.objects.LoadOrStore(uri, &state{})
	return st.writeGen.Add(1)
}

// IsDirty reports whether uri has modifications not yet covered by a flush.
func (r *Registry) IsDirty(uri string) bool {
	st, ok := r.objects.Load(uri)
	if !ok {
		return false
	}
	return st.writeGen.Load() != st.flushedGen.Load()
}

// Generation returns uri's current write generation.
func (r *Registry) Generation(uri string) uint64 {
	st, ok := r.objects.Load(uri)
	if !ok {
		return 0
	}
	return st.writeGen.Load()
}

// MarkFlushed records that uri has been flushed through gen. Stale reports
// (gen below the recorded flushed generation) are ignored, so a
// late-finishing flush can never un-flush newer writes.
func (r *Registry) MarkFlushed(uri string, gen uint64) {
	st, ok := r.objects.Load(uri)
	if !ok {
		return
	}
	for {
		cur := st.flushedGen.Load()
		if gen <= cur {
			return
		}
		if st.flushedGen.CompareAndSwap(cur, gen) {
			return
		}
	}
}

// DirtyObjects returns the URIs of all currently dirty objects. The
// snapshot is best-effort under concurrent writes.
func (r *Registry) DirtyObjects() []string {
	var out []string
	r.objects.Range(func(uri string, st *state) bool {
		if st.writeGen.Load() != st.flushedGen.Load() {
			out = append(out, uri)
		}
		return true
	})
	return out
}

// DirtyCount returns the number of currently dirty objects.
func (r *Registry) DirtyCount() int {
	n := 0
	r.objects.Range(func(_ string, st *state) bool {
		if st.writeGen.Load() != st.flushedGen.Load() {
			n++
		}
		return true
	})
	return n
}

// Drop forgets uri entirely. Used when the object itself is dropped.
func (r *Registry) Drop(uri string) {
	r.objects.Compute(uri, func(old *state, loaded bool) (*state, xsync.ComputeOp) {
		if !loaded {
			return old, xsync.CancelOp
		}
		return old, xsync.DeleteOp
	})
}

// Len returns the number of registered objects.
func (r *Registry) Len() int {
	return r.objects.Size()
}
