package lease

import (
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
)

// Lease represents exclusive ownership of an object's file handle.
type Lease struct {
	Object     string
	ID         uuid.UUID
	Holder     string
	AcquiredAt time.Time
}

// Table tracks live leases, at most one per object.
type Table struct {
	leases *xsync.Map[string, Lease]
}

// NewTable creates an empty lease table.
func NewTable() *Table {
	return &Table{
		leases: xsync.NewMap[string, Lease](),
	}
}

// Acquire attempts to create a lease on object for holder. It returns the
// new lease and true, or the zero lease and false when a live lease already
// exists. The check and the insert are a single atomic step, so two
// concurrent acquirers can never both succeed.
func (t *Table) Acquire(object, holder string) (Lease, bool) {
	next := Lease{
		Object:     object,
		ID:         uuid.New(),
		Holder:     holder,
		AcquiredAt: time.Now(),
	}
	ok := false
	t.leases.Compute(object, func(old Lease, loaded bool) (Lease, xsync.ComputeOp) {
		if loaded {
			return old, xsync.CancelOp
		}
		ok = true
		return next, xsync.UpdateOp
	})
	if !ok {
		return Lease{}, false
	}
	return next, true
}

// Release destroys l. It is idempotent, and a stale lease (one already
// released, or superseded by a newer lease on the same object) is a no-op:
// only the exact lease identified by l.ID is removed. Returns whether a
// live lease was actually released.
func (t *Table) Release(l Lease) bool {
	released := false
	t.leases.Compute(l.Object, func(old Lease, loaded bool) (Lease, xsync.ComputeOp) {
		if !loaded || old.ID != l.ID {
			return old, xsync.CancelOp
		}
		released = true
		return old, xsync.DeleteOp
	})
	return released
}

// Held reports whether a live lease exists for object.
func (t *Table) Held(object string) bool {
	_, ok := t.leases.Load(object)
	return ok
}

// Get returns the live lease for object, if any.
func (t *Table) Get(object string) (Lease, bool) {
	return t.leases.Load(object)
}

// Size returns the number of live leases.
func (t *Table) Size() int {
	return t.leases.Size()
}

// Range iterates over all live leases.
func (t *Table) Range(fn func(object string, l Lease) bool) {
	t.leases.Range(fn)
}
