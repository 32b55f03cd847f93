// Package store manages the per-object data files backing an engine
// directory.
//
// Each object is an append-only file named by the object's 128-bit identity
// under <dir>/data. Writes accumulate in an in-memory pending buffer and
// reach the file only on Flush, which writes block-aligned direct I/O and
// ends with an fdatasync. The engine directory is exclusively flock'd for
// the lifetime of the store, so two processes cannot open the same engine.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ncw/directio"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/emberdb/ember/internal/format"
	"github.com/emberdb/ember/internal/objid"
)

const (
	// DataDirectoryName is the subdirectory holding object data files.
	DataDirectoryName = "data"

	// LockFileName is the engine directory lock file.
	LockFileName = "ember.lock"

	dataFileSuffix = ".obj"
)

// ErrUnknownObject reports an operation on an object the store has never
// seen.
var ErrUnknownObject = errors.New("store: unknown object")

// Store owns the data files of one engine directory.
type Store struct {
	dir     string
	dataDir string
	lock    *os.File

	objects *xsync.Map[string, *object]
}

// object is the in-memory side of one data file. pending holds encoded
// records that have not been flushed yet.
type object struct {
	uri  string
	path string

	mu      sync.Mutex
	pending []byte
}

// Open opens (creating if needed) the store under dir and takes the
// exclusive directory lock.
func Open(dir string) (*Store, error) {
	dataDir := filepath.Join(dir, DataDirectoryName)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create data directory: %w", err)
	}

	lock, err := os.OpenFile(filepath.Join(dir, LockFileName), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store: create lock file: %w", err)
	}
	if err := flockExclusive(lock); err != nil {
		_ = lock.Close()
		return nil, fmt.Errorf("store: lock directory: %w", err)
	}

	return &Store{
		dir:     dir,
		dataDir: dataDir,
		lock:    lock,
		objects: xsync.NewMap[string, *object](),
	}, nil
}

// Create registers the object named by uri and creates its (empty) data
// file. Creating an existing object is a no-op.
func (s *Store) Create(uri string) error {
	path := filepath.Join(s.dataDir, objid.FromURI(uri).Hex()+dataFileSuffix)
	obj, loaded := s.objects.LoadOrStore(uri, &object{uri: uri, path: path})
	if loaded {
		return nil
	}
	f, err := os.OpenFile(obj.path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("store: create %s: %w", uri, err)
	}
	return f.Close()
}

// Exists reports whether uri has been created in this store.
func (s *Store) Exists(uri string) bool {
	_, ok := s.objects.Load(uri)
	return ok
}

// Len returns the number of registered objects.
func (s *Store) Len() int {
	return s.objects.Size()
}

// Append buffers one record for uri. The record reaches the data file on
// the next Flush.
func (s *Store) Append(uri string, gen uint64, payload []byte) error {
	obj, ok := s.objects.Load(uri)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownObject, uri)
	}
	obj.mu.Lock()
	obj.pending = format.AppendRecord(obj.pending, gen, payload)
	obj.mu.Unlock()
	return nil
}

// PendingBytes returns the size of uri's unflushed buffer.
func (s *Store) PendingBytes(uri string) int {
	obj, ok := s.objects.Load(uri)
	if !ok {
		return 0
	}
	obj.mu.Lock()
	defer obj.mu.Unlock()
	return len(obj.pending)
}

// Flush writes uri's pending records to its data file and syncs the file.
// The pending buffer is cleared only after both the write and the sync
// succeed; on error the buffer is left intact for a later retry.
func (s *Store) Flush(ctx context.Context, uri string) error {
	obj, ok := s.objects.Load(uri)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownObject, uri)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	obj.mu.Lock()
	defer obj.mu.Unlock()
	if len(obj.pending) == 0 {
		return nil
	}

	if err := appendDirect(obj.path, obj.pending); err != nil {
		return fmt.Errorf("store: flush %s: %w", uri, err)
	}
	obj.pending = obj.pending[:0]
	return nil
}

// appendDirect appends buf to the file at path using direct I/O, padding to
// the device block size, then fdatasyncs the file. Filesystems that reject
// O_DIRECT (tmpfs and friends) get a buffered write instead; the fdatasync
// still holds the durability promise.
func appendDirect(path string, buf []byte) error {
	padded := len(buf)
	if rem := padded % directio.BlockSize; rem != 0 {
		padded += directio.BlockSize - rem
	}
	block := directio.AlignedBlock(padded)
	copy(block, buf)

	f, err := directio.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	}
	if err != nil {
		return err
	}
	if _, err := f.Write(block); err != nil {
		_ = f.Close()
		return err
	}
	if err := Fdatasync(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadAll returns the current on-disk contents of uri's data file. Pending
// (unflushed) records are not included.
func (s *Store) ReadAll(uri string) ([]byte, error) {
	obj, ok := s.objects.Load(uri)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownObject, uri)
	}
	return os.ReadFile(obj.path)
}

// Truncate cuts uri's data file to size bytes, then zero-pads the file back
// to a block boundary so later direct-I/O appends stay aligned.
func (s *Store) Truncate(uri string, size int64) error {
	obj, ok := s.objects.Load(uri)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownObject, uri)
	}
	obj.mu.Lock()
	defer obj.mu.Unlock()

	if err := os.Truncate(obj.path, size); err != nil {
		return fmt.Errorf("store: truncate %s: %w", uri, err)
	}
	if rem := size % int64(directio.BlockSize); rem != 0 {
		pad := make([]byte, int64(directio.BlockSize)-rem)
		f, err := os.OpenFile(obj.path, os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("store: pad %s: %w", uri, err)
		}
		if _, err := f.Write(pad); err != nil {
			_ = f.Close()
			return fmt.Errorf("store: pad %s: %w", uri, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	f, err := os.Open(obj.path)
	if err != nil {
		return err
	}
	if err := Fdatasync(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Remove deletes uri's data file, pending buffer, and registration.
func (s *Store) Remove(uri string) error {
	var removed *object
	s.objects.Compute(uri, func(old *object, loaded bool) (*object, xsync.ComputeOp) {
		if !loaded {
			return old, xsync.CancelOp
		}
		removed = old
		return old, xsync.DeleteOp
	})
	if removed == nil {
		return fmt.Errorf("%w: %s", ErrUnknownObject, uri)
	}
	if err := os.Remove(removed.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("store: remove %s: %w", uri, err)
	}
	return nil
}

// Close releases the directory lock.
func (s *Store) Close() error {
	var errs []error
	if err := funlock(s.lock); err != nil {
		errs = append(errs, fmt.Errorf("store: unlock directory: %w", err))
	}
	if err := s.lock.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: close lock file: %w", err))
	}
	return errors.Join(errs...)
}
