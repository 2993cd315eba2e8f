// Package scheduler implements the single-threaded cooperative event loop
// that owns a session's mutable state. Every operation against session,
// lifecycle, or breakpoint state runs as a closure on this one goroutine,
// so none of that state needs its own locking; the only synchronization
// primitive is the loop's run queue itself.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// job is a unit of work queued onto the loop goroutine.
type job struct {
	fn   func(ctx context.Context)
	done chan struct{}
}

// Scheduler runs exactly one goroutine (Run) that drains jobs in
// submission order. Spawn and SpawnThreadsafe both enqueue onto the same
// channel; the distinction is about which goroutine is allowed to call
// them synchronously versus needing the threadsafe, possibly-blocking send.
type Scheduler struct {
	queue  chan job
	logger *slog.Logger
	tasks  *TaskRegistry

	loopGoroutine uint64 // unused: Run does not record its goroutine and no method reads this
	loopSet       sync.Once
	loopID        uint64
}

// New creates a Scheduler with the given run-queue depth. A depth of 0 or
// less falls back to 64; production code should size it to the expected
// concurrent-event fan-in (launcher events, client requests).
func New(queueDepth int, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if queueDepth <= 0 {
		queueDepth = 64
	}
	return &Scheduler{
		queue:  make(chan job, queueDepth),
		logger: logger.With("component", "scheduler"),
		tasks:  newTaskRegistry(),
	}
}

// Run drains the queue until ctx is canceled. It must be called from
// exactly one goroutine, which becomes "the loop goroutine" for the
// lifetime of this Scheduler.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.drain(ctx)
			return
		case j := <-s.queue:
			s.runJob(ctx, j)
		}
	}
}

func (s *Scheduler) runJob(ctx context.Context, j job) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("recovered panic in scheduled job", "panic", r)
		}
		if j.done != nil {
			close(j.done)
		}
	}()
	j.fn(ctx)
}

// drain runs any jobs still queued at shutdown time without blocking, so a
// handler that already queued cleanup work still gets a chance to run.
func (s *Scheduler) drain(ctx context.Context) {
	for {
		select {
		case j := <-s.queue:
			s.runJob(ctx, j)
		default:
			return
		}
	}
}

// Spawn queues fn to run on the loop goroutine and returns immediately
// without waiting for it to execute. Safe to call from any goroutine.
func (s *Scheduler) Spawn(fn func(ctx context.Context)) {
	s.queue <- job{fn: fn}
}

// SpawnThreadsafe queues fn and blocks the calling goroutine until it has
// run on the loop, returning whatever fn itself communicates via closure
// capture. Used when a non-loop goroutine (the ipcmanager reader, a
// launcher-event callback) needs session state back synchronously.
func (s *Scheduler) SpawnThreadsafe(ctx context.Context, fn func(ctx context.Context)) error {
	done := make(chan struct{})
	select {
	case s.queue <- job{fn: fn, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tasks exposes the background task registry for long-running work spawned
// off the loop (output streaming, the IPC reader) that still needs
// coordinated, bounded-grace shutdown.
func (s *Scheduler) Tasks() *TaskRegistry { return s.tasks }

// Shutdown stops accepting new background tasks and waits up to grace for
// outstanding ones to finish before canceling whatever remains.
func (s *Scheduler) Shutdown(grace time.Duration) {
	s.tasks.shutdown(grace)
}
