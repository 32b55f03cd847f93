package checkpoint

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/emberdb/ember/engine/dirty"
	"github.com/emberdb/ember/internal/logger"
)

// FlushFunc flushes one object's unflushed modifications to stable storage.
type FlushFunc func(ctx context.Context, uri string) error

// SkipFunc reports whether an object should be skipped for the current
// pass. The engine uses it to skip objects that are exclusively leased.
type SkipFunc func(uri string) bool

// Error reports a failed checkpoint pass. Object names the object whose
// flush failed.
type Error struct {
	Object string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("checkpoint: flush %s: %v", e.Object, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Config configures a Scheduler.
type Config struct {
	// Skip, if set, excludes objects from a pass. Skipped objects stay
	// dirty and are retried on the next pass.
	Skip SkipFunc

	// Logger receives failures of timer-triggered passes. Defaults to
	// discarding.
	Logger *slog.Logger
}

// pass is one checkpoint run. Coalesced callers wait on done and read err
// afterwards; err is written exactly once, before done is closed.
type pass struct {
	done chan struct{}
	err  error
}

// Scheduler runs checkpoint passes: it walks all dirty objects, flushes
// each, and advances the checkpoint id. Passes are triggered explicitly via
// Checkpoint or periodically by the interval timer started with Start.
//
// At most one pass runs at a time. An explicit trigger that arrives while a
// pass is in flight joins that pass instead of starting a second one.
type Scheduler struct {
	reg   dirty.Tracker
	flush FlushFunc
	skip  SkipFunc
	log   *slog.Logger

	mu  sync.Mutex
	cur *pass // non-nil while a pass is running

	lastID atomic.Uint64

	cron  *cron.Cron
	entry cron.EntryID
}

// New creates a scheduler over reg, flushing objects with flush.
func New(reg dirty.Tracker, flush FlushFunc, cfg Config) *Scheduler {
	log := cfg.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Scheduler{
		reg:   reg,
		flush: flush,
		skip:  cfg.Skip,
		log:   log,
	}
}

// Start begins periodic passes every interval. A non-positive interval
// disables the timer; explicit Checkpoint calls still work.
func (s *Scheduler) Start(interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	c := cron.New()
	entry, err := c.AddFunc("@every "+interval.String(), func() {
		if err := s.Checkpoint(context.Background()); err != nil {
			s.log.Warn("periodic checkpoint failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("checkpoint: schedule interval %s: %w", interval, err)
	}
	s.cron = c
	s.entry = entry
	c.Start()
	return nil
}

// Stop halts the timer and waits for an in-flight timer-triggered pass to
// finish. Explicit Checkpoint calls remain usable after Stop.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// Checkpoint runs one pass, or joins the in-flight pass if one is already
// running. It returns after the pass (own or joined) completes, with that
// pass's result. The context cancels only the caller's participation: a
// joined pass keeps running.
func (s *Scheduler) Checkpoint(ctx context.Context) error {
	s.mu.Lock()
	if p := s.cur; p != nil {
		s.mu.Unlock()
		select {
		case <-p.done:
			return p.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p := &pass{done: make(chan struct{})}
	s.cur = p
	s.mu.Unlock()

	err := s.run(ctx)

	s.mu.Lock()
	p.err = err
	s.cur = nil
	close(p.done)
	s.mu.Unlock()
	return err
}

// InProgress reports whether a pass is currently running.
func (s *Scheduler) InProgress() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur != nil
}

// LastCheckpointID returns the id of the last successfully completed pass.
func (s *Scheduler) LastCheckpointID() uint64 {
	return s.lastID.Load()
}

// run executes a single pass over the current dirty set.
//
// For each dirty object the write generation is captured before the flush
// starts, so writes landing mid-flush keep the object dirty for the next
// pass. A flush failure aborts the pass: objects already flushed keep their
// advanced generations, the rest stay dirty.
func (s *Scheduler) run(ctx context.Context) error {
	for _, uri := range s.reg.DirtyObjects() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.skip != nil && s.skip(uri) {
			continue
		}
		gen := s.reg.Generation(uri)
		if !s.reg.IsDirty(uri) {
			continue
		}
		if err := s.flush(ctx, uri); err != nil {
			return &Error{Object: uri, Err: err}
		}
		s.reg.MarkFlushed(uri, gen)
	}
	s.lastID.Add(1)
	return nil
}
