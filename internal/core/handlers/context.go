package handlers

import (
	"context"
	"log/slog"

	"github.com/jnsquire/dapper/internal/core/backend"
	"github.com/jnsquire/dapper/internal/core/hotreload"
	"github.com/jnsquire/dapper/internal/core/session"
)

// BackendFactory builds the Backend variant a `launch`/`attach` request
// selects, wiring its event handler to the session's router.
type BackendFactory func(inProcess bool) (backend.Backend, error)

// Deps is everything a handler needs beyond the parsed request arguments:
// the session aggregate, capability table, backend constructor, and the
// hot-reload service. Constructed once per session and threaded through
// every Dispatch call.
type Deps struct {
	Session      *session.Session
	Capabilities Capabilities
	NewBackend   BackendFactory
	HotReload    *hotreload.Service
	Logger       *slog.Logger
}

// Result is what a handler produces: a response body (nil for commands
// with an empty body) plus any events the handler chose to emit itself
// before the response is serialized.
type Result struct {
	Body       any
	PreEvents  []Event
	PostEvents []Event
}

// Event is one DAP event a handler asks the dispatcher to emit.
type Event struct {
	Name string
	Body any
}

// HandlerFunc implements one DAP command.
type HandlerFunc func(ctx context.Context, d *Deps, raw []byte) (Result, error)
