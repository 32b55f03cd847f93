package dirty

// Tracker is the registry surface needed by components that reconcile dirty
// state (the checkpoint scheduler, the close-sync flush path). Components
// that only record modifications should depend on Marker instead.
type Tracker interface {
	Marker

	// IsDirty reports whether uri has unflushed modifications.
	IsDirty(uri string) bool

	// Generation returns uri's current write generation.
	Generation(uri string) uint64

	// MarkFlushed records a completed flush of uri through gen. Stale
	// generations must be ignored.
	MarkFlushed(uri string, gen uint64)

	// DirtyObjects snapshots the URIs of all currently dirty objects.
	DirtyObjects() []string
}

// Marker is the minimal interface for the write path.
type Marker interface {
	// MarkDirty records one modification and returns the new write
	// generation.
	MarkDirty(uri string) uint64
}
