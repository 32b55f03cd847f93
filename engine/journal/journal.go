package journal

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/emberdb/ember/internal/format"
	"github.com/emberdb/ember/internal/objid"
	"github.com/emberdb/ember/internal/store"
)

// Journal is the engine's append-only operation log. When the engine runs
// with logging enabled, every modification is appended and synced here
// before the write returns, which is what makes a dirty object's content
// durable without a file-level flush.
type Journal struct {
	mu   sync.Mutex
	f    *os.File
	path string
	size int64
}

// Entry is one decoded journal record.
type Entry struct {
	Object     objid.ID
	Generation uint64
	Payload    []byte
}

// Open opens (creating if needed) the journal file at path.
func Open(path string) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("journal: stat: %w", err)
	}
	return &Journal{f: f, path: path, size: info.Size()}, nil
}

// Append writes one record and syncs it to stable storage before
// returning. The record is durable once Append returns nil.
func (j *Journal) Append(object objid.ID, gen uint64, payload []byte) error {
	rec := format.AppendJournalRecord(nil, object, gen, payload)

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.f == nil {
		return fmt.Errorf("journal: closed")
	}
	if _, err := j.f.Write(rec); err != nil {
		return fmt.Errorf("journal: append: %w", err)
	}
	if err := store.Fdatasync(j.f); err != nil {
		return fmt.Errorf("journal: sync: %w", err)
	}
	j.size += int64(len(rec))
	return nil
}

// Size returns the journal's current size in bytes.
func (j *Journal) Size() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.size
}

// Scan reads the journal from the start and calls fn for each record.
// Iteration stops early if fn returns an error, which is then returned.
func (j *Journal) Scan(fn func(Entry) error) error {
	data, err := os.ReadFile(j.path)
	if err != nil {
		return fmt.Errorf("journal: scan: %w", err)
	}
	off := 0
	for off < len(data) {
		rec, next, err := format.DecodeJournalRecord(data, off)
		if errors.Is(err, format.ErrZeroFill) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("journal: scan: %w", err)
		}
		if err := fn(Entry{Object: rec.Object, Generation: rec.Generation, Payload: rec.Payload}); err != nil {
			return err
		}
		off = next
	}
	return nil
}

// Close syncs and closes the journal file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.f == nil {
		return nil
	}
	f := j.f
	j.f = nil
	if err := store.Fdatasync(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("journal: sync on close: %w", err)
	}
	return f.Close()
}
