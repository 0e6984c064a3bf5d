package timer

import (
	"context"
	"sync"
	"time"

	"timeflow/internal/runtime/supervisor"
)

// Slot is the ownership token for at most one background task per logical
// timer. Its presence/absence IS the run/not-run state.
//
// Replace and Cancel swap the task under one lock, so no window exists
// where two tasks for the same slot run simultaneously. Tasks receive the
// generation they were installed with and must call Current(gen)
// immediately before each emission; a false result means the task has been
// superseded and must exit silently.
type Slot struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// Replace atomically installs a new task, aborting and discarding any
// previously running one. The task context is derived from parent, so both
// slot cancellation and host shutdown tear it down.
//
// Returns the generation of the installed task.
func (s *Slot) Replace(parent context.Context, runner *supervisor.Supervisor, name string, run func(ctx context.Context, gen uint64)) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	gen := s.gen

	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	runner.Go0(name, func(context.Context) {
		run(ctx, gen)
	})
	return gen
}

// Cancel aborts and clears the slot. Safe to call when nothing is running.
func (s *Slot) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Current reports whether gen still owns the slot. This is the
// not-superseded check; call it right before emitting, with no suspension
// in between.
func (s *Slot) Current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil && s.gen == gen
}

// Release clears the slot if gen still owns it. Tasks that finish on their
// own (one-shots, drained throttle cycles) use this so the next Replace
// doesn't abort a ghost.
func (s *Slot) Release(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil && s.gen == gen {
		s.cancel()
		s.cancel = nil
	}
}

// Active reports whether any task currently owns the slot.
func (s *Slot) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// sleep waits for d or until ctx is canceled. Returns false on cancel.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
