package session

import (
	"sync"

	"github.com/jnsquire/dapper/internal/core/dapperr"
)

// StackFrame is the session's record of one frame reported by a
// `stackTrace` response, numbered from FrameArena and invalidated on the
// same resume barrier as variable references.
type StackFrame struct {
	ThreadID         int
	Name             string
	Source           *SourceRef
	Line             int
	Column           int
	PresentationHint string
}

// State is the single owning aggregate for everything that must only be
// mutated on the scheduler's loop goroutine: threads,
// frames, variable handles, loaded sources, and the session-wide flags
// that gate `configurationDone` and shutdown.
type State struct {
	Threads *ThreadRegistry
	Sources *SourceRegistry

	FrameArena *HandleArena
	VarArena   *HandleArena

	mu                sync.Mutex
	stopped           bool
	configurationDone bool
	terminating       bool
}

func NewState() *State {
	return &State{
		Threads:    NewThreadRegistry(),
		Sources:    NewSourceRegistry(),
		FrameArena: NewHandleArena(),
		VarArena:   NewHandleArena(),
	}
}

// Stopped reports whether the debuggee is currently paused.
func (s *State) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// SetStopped updates the stopped flag from a `stopped`/`continued` launcher
// event, before any handler observes it.
func (s *State) SetStopped(stopped bool) {
	s.mu.Lock()
	s.stopped = stopped
	s.mu.Unlock()
}

// Resume invalidates every outstanding frame and variable handle and marks
// the session running, implementing the invalidation barrier required by
// `continue|next|stepIn|stepOut`.
func (s *State) Resume() {
	s.FrameArena.Invalidate()
	s.VarArena.Invalidate()
	s.SetStopped(false)
}

// BeginConfigurationDone transitions configuration_done false->true exactly
// once; subsequent calls report already-done without error so the handler
// can reply success idempotently.
func (s *State) BeginConfigurationDone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.configurationDone {
		return false
	}
	s.configurationDone = true
	return true
}

func (s *State) ConfigurationDone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configurationDone
}

// BeginTerminating marks the session as tearing down; idempotent.
func (s *State) BeginTerminating() {
	s.mu.Lock()
	s.terminating = true
	s.mu.Unlock()
}

func (s *State) Terminating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminating
}

// AllocFrame assigns a handle to frame, valid until the next Resume.
func (s *State) AllocFrame(frame StackFrame) int {
	return s.FrameArena.Alloc(frame)
}

// ResolveFrame returns the frame for handle, or InvalidHandle if it
// predates the current stop.
func (s *State) ResolveFrame(handle int) (StackFrame, error) {
	v, err := s.FrameArena.Resolve(handle)
	if err != nil {
		return StackFrame{}, err
	}
	frame, ok := v.(StackFrame)
	if !ok {
		return StackFrame{}, dapperr.New(dapperr.InvalidHandle, "handle does not reference a stack frame")
	}
	return frame, nil
}
