// Package router classifies inbound launcher events once ipcmanager has
// already resolved command responses: an event is either something a
// handler is specifically awaiting (e.g. "wait for the next 'stopped' after
// sending continue") or a general event to translate and forward to the
// DAP client unprompted.
package router

import (
	"encoding/json"
	"log/slog"

	"github.com/jnsquire/dapper/internal/core/framing"
)

// eventEnvelope is the launcher event wire shape forwarded by ipcmanager.
type eventEnvelope struct {
	Name string          `json:"name"`
	Body json.RawMessage `json:"body"`
}

// GeneralHandler translates and forwards an event the no one is
// specifically awaiting.
type GeneralHandler func(name string, body json.RawMessage)

// Router holds the registry of in-flight event waiters plus the fallback
// general-event handler.
type Router struct {
	waiters *waiterRegistry
	general GeneralHandler
	logger  *slog.Logger
}

func New(general GeneralHandler, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		waiters: newWaiterRegistry(),
		general: general,
		logger:  logger.With("component", "router"),
	}
}

// Route is the ipcmanager.EventHandler: it decodes the envelope and applies
// classification priority response-to-pending (already handled upstream by
// ipcmanager) > awaited-event > general-event.
func (r *Router) Route(frame *framing.IPCFrame) {
	var env eventEnvelope
	if err := json.Unmarshal(frame.Payload, &env); err != nil {
		r.logger.Error("malformed event envelope", "error", err)
		return
	}
	r.DispatchEvent(env.Name, env.Body)
}

// DispatchEvent applies the same awaited-event-vs-general-event
// classification as Route, for callers that already have a decoded event
// (the in-process backend, which has no IPC frame to unwrap).
func (r *Router) DispatchEvent(name string, body json.RawMessage) {
	if r.waiters.deliver(name, body) {
		return
	}
	if r.general != nil {
		r.general(name, body)
	}
}

// AwaitEvent registers interest in the next occurrence of name and returns
// a channel that receives its body exactly once. Callers must always drain
// the channel or call the returned cancel func to avoid leaking the
// registration.
func (r *Router) AwaitEvent(name string) (<-chan json.RawMessage, func()) {
	return r.waiters.register(name)
}
