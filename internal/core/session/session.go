package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jnsquire/dapper/internal/core/backend"
	"github.com/jnsquire/dapper/internal/core/breakpoints"
	"github.com/jnsquire/dapper/internal/core/config"
	"github.com/jnsquire/dapper/internal/core/dapperr"
	"github.com/jnsquire/dapper/internal/core/lifecycle"
	"github.com/jnsquire/dapper/internal/core/router"
	"github.com/jnsquire/dapper/internal/core/scheduler"
	"github.com/jnsquire/dapper/internal/core/security"
)

// Session is the aggregate created on a client's `initialize` request and
// torn down on `disconnect`/`terminate`. It owns exactly one
// Backend, one scheduler loop, and the breakpoint/state bookkeeping that
// must only ever be touched from that loop.
type Session struct {
	Lifecycle   *lifecycle.Manager
	Scheduler   *scheduler.Scheduler
	State       *State
	Breakpoints *breakpoints.Controller
	RateLimit   *security.RateLimiter

	Backend backend.Backend
	Router  *router.Router

	cfg    *config.DapperConfig
	logger *slog.Logger

	// emit forwards a translated DAP event to the connected client.
	emit EventEmitter
}

// EventEmitter sends one DAP event (name, body) to the client transport.
type EventEmitter func(event string, body any)

// New constructs a Session with no backend; AttachBackend installs one
// during `launch`/`attach` handling. The caller
// supplies emit so the session never imports the client-facing transport
// package directly, keeping the dependency direction one-way.
func New(cfg *config.DapperConfig, logger *slog.Logger, emit EventEmitter) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		Lifecycle:   lifecycle.New(),
		State:       NewState(),
		Breakpoints: breakpoints.New(),
		RateLimit:   security.NewRateLimiter(),
		cfg:         cfg,
		logger:      logger.With("component", "session"),
		emit:        emit,
	}
	s.Scheduler = scheduler.New(64, logger)
	s.Router = router.New(s.handleGeneralEvent, logger)
	return s
}

// AttachBackend installs the backend this session drives, set once during
// `launch`/`attach` handling after the Backend has been constructed with
// this session's Router.Route as its event handler.
func (s *Session) AttachBackend(b backend.Backend) {
	s.Backend = b
}

// Run drives the scheduler loop until ctx is canceled. Callers start this
// in its own goroutine immediately after New.
func (s *Session) Run(ctx context.Context) {
	s.Scheduler.Run(ctx)
}

// handleGeneralEvent translates a launcher event not claimed by any
// in-flight AwaitEvent into a client-facing DAP event, always on the
// scheduler loop so State mutation stays single-threaded.
func (s *Session) handleGeneralEvent(name string, body json.RawMessage) {
	s.Scheduler.Spawn(func(ctx context.Context) {
		s.applyEvent(name, body)
	})
}

func (s *Session) applyEvent(name string, body json.RawMessage) {
	switch name {
	case "stopped":
		s.State.SetStopped(true)
	case "continued":
		s.State.Resume()
	case "exited", "terminated":
		s.State.BeginTerminating()
	}

	if s.emit != nil {
		s.emit(name, body)
	}
}

// Execute issues command against the active backend, applying the
// configured command timeout and rate limit, and must be called from the
// scheduler loop (or via SpawnThreadsafe from elsewhere).
func (s *Session) Execute(ctx context.Context, command string, args any) (json.RawMessage, error) {
	if s.Backend == nil {
		return nil, dapperr.New(dapperr.PreconditionFailed, "session has no active backend")
	}
	if err := s.RateLimit.Wait(ctx, "command"); err != nil {
		return nil, err
	}

	timeout := s.commandTimeout()
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.Backend.Execute(cctx, command, args)
}

func (s *Session) commandTimeout() time.Duration {
	if s.cfg == nil || s.cfg.BackendCommandTimeout <= 0 {
		return backend.DefaultCommandTimeout
	}
	return s.cfg.BackendCommandTimeout
}

// Terminate begins session teardown: lifecycle moves to TERMINATING, the
// backend is closed, and the scheduler's background tasks are given
// ShutdownGrace to finish before being cancelled.
func (s *Session) Terminate(ctx context.Context) error {
	if err := s.Lifecycle.BeginTerminate(); err != nil {
		return err
	}
	s.State.BeginTerminating()

	var closeErr error
	if s.Backend != nil {
		closeErr = s.Backend.Close(ctx)
	}

	grace := 2 * time.Second
	if s.cfg != nil && s.cfg.ShutdownGrace > 0 {
		grace = s.cfg.ShutdownGrace
	}
	s.Scheduler.Shutdown(grace)

	s.Lifecycle.FinishTerminate()
	return closeErr
}
