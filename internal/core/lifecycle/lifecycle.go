// Package lifecycle implements the session state machine:
// UNINITIALIZED -> INITIALIZING -> READY <-> BUSY -> (READY|ERROR), with a
// global transition to TERMINATING -> TERMINATED from any state.
package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/jnsquire/dapper/internal/core/dapperr"
)

// State is one node of the lifecycle state machine.
type State int

const (
	Uninitialized State = iota
	Initializing
	Ready
	Busy
	Error
	Terminating
	Terminated
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "UNINITIALIZED"
	case Initializing:
		return "INITIALIZING"
	case Ready:
		return "READY"
	case Busy:
		return "BUSY"
	case Error:
		return "ERROR"
	case Terminating:
		return "TERMINATING"
	case Terminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// CleanupFunc is registered by a component that acquired some resource
// during an operation; cleanups run in reverse registration order when the
// operation context closes, win or lose.
type CleanupFunc func()

// Manager holds the current state and the ordered cleanup stack for
// whichever operation currently holds BUSY, if any.
type Manager struct {
	mu      sync.Mutex
	state   State
	cleanup []CleanupFunc
}

func New() *Manager {
	return &Manager{state: Uninitialized}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// allowedTransitions enumerates every edge in the diagram above. Terminate
// is reachable from any state and is checked separately.
var allowedTransitions = map[State][]State{
	Uninitialized: {Initializing},
	Initializing:  {Ready, Error},
	Ready:         {Busy},
	Busy:          {Ready, Error},
	Error:         {Ready},
}

func (m *Manager) transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if to == Terminating {
		if m.state == Terminated {
			return dapperr.New(dapperr.LifecycleViolation, "session already terminated")
		}
		m.state = Terminating
		return nil
	}
	if to == Terminated {
		m.state = Terminated
		return nil
	}

	for _, allowed := range allowedTransitions[m.state] {
		if allowed == to {
			m.state = to
			return nil
		}
	}
	return dapperr.New(dapperr.LifecycleViolation, fmt.Sprintf("cannot transition %s -> %s", m.state, to))
}

// OperationContext scopes one BUSY-state operation: it carries the cleanup
// stack that Close unwinds in reverse order, regardless of whether the
// operation succeeded.
type OperationContext struct {
	context.Context
	mgr    *Manager
	failed bool
}

// Acquire moves READY -> BUSY and returns an OperationContext whose Close
// moves back to READY (or ERROR, if Fail was called) and runs every
// registered cleanup in reverse order. Returns SessionShuttingDown if the
// session is already terminating or terminated.
func (m *Manager) Acquire(ctx context.Context) (*OperationContext, error) {
	m.mu.Lock()
	if m.state == Terminating || m.state == Terminated {
		m.mu.Unlock()
		return nil, dapperr.ErrSessionShuttingDown
	}
	m.mu.Unlock()

	if err := m.transition(Busy); err != nil {
		return nil, err
	}
	return &OperationContext{Context: ctx, mgr: m}, nil
}

// Defer registers cleanup to run when this operation context closes, in
// reverse order relative to other Defer calls on the same context.
func (oc *OperationContext) Defer(cleanup CleanupFunc) {
	oc.mgr.mu.Lock()
	oc.mgr.cleanup = append(oc.mgr.cleanup, cleanup)
	oc.mgr.mu.Unlock()
}

// Fail marks the operation as having failed, so Close transitions to ERROR
// instead of READY.
func (oc *OperationContext) Fail() { oc.failed = true }

// Close unwinds registered cleanups in reverse order and transitions out of
// BUSY to READY, or to ERROR if Fail was called.
func (oc *OperationContext) Close() {
	oc.mgr.mu.Lock()
	stack := oc.mgr.cleanup
	oc.mgr.cleanup = nil
	oc.mgr.mu.Unlock()

	for i := len(stack) - 1; i >= 0; i-- {
		stack[i]()
	}

	next := Ready
	if oc.failed {
		next = Error
	}
	_ = oc.mgr.transition(next)
}

// BeginInitialize moves UNINITIALIZED -> INITIALIZING, entered once when
// the client's `initialize` request arrives.
func (m *Manager) BeginInitialize() error {
	return m.transition(Initializing)
}

// FinishInitialize moves INITIALIZING -> READY, or -> ERROR if initErr is
// non-nil (e.g. the backend failed to come up during `launch`/`attach`).
func (m *Manager) FinishInitialize(initErr error) error {
	if initErr != nil {
		return m.transition(Error)
	}
	return m.transition(Ready)
}

// BeginTerminate moves the session into TERMINATING from any non-terminal
// state, signalling every in-flight operation to wind down.
func (m *Manager) BeginTerminate() error {
	return m.transition(Terminating)
}

// FinishTerminate moves TERMINATING -> TERMINATED, the final state.
func (m *Manager) FinishTerminate() {
	_ = m.transition(Terminated)
}
