// Package rtstub answers the DAP operations no generic,
// runtime-independent executor contract can implement - stack frames,
// scopes, variables, source fetch, exception details - with the same
// placeholder shape regardless of which backend variant is asking.
// Both the launcher's overridable Handlers map and the in-process
// bridge's dispatch switch call into this package so a session can run
// end to end before a concrete, language-specific tracer is embedded.
package rtstub

import "github.com/jnsquire/dapper/internal/core/dapperr"

// Thread is the placeholder reported by Threads until a concrete tracer
// overrides the entry with real thread enumeration.
type Thread struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Threads reports one placeholder thread so a client's thread list is
// never empty before a concrete tracer is embedded.
func Threads() any {
	return []Thread{{ID: 1, Name: "main"}}
}

// StackTrace reports zero frames.
func StackTrace() any {
	return struct {
		Frames      []any `json:"frames"`
		TotalFrames int   `json:"totalFrames"`
	}{Frames: []any{}, TotalFrames: 0}
}

// Scopes reports no scopes for any frame.
func Scopes() any {
	return []any{}
}

// Variables reports no variables for any scope or variable reference.
func Variables() any {
	return []any{}
}

// SetVariable always fails: there is nothing to mutate without a
// concrete tracer's own variable store.
func SetVariable() (any, error) {
	return nil, dapperr.New(dapperr.CapabilityViolation, "setVariable is not supported without a concrete tracer")
}

// SetExpression always fails for the same reason as SetVariable.
func SetExpression() (any, error) {
	return nil, dapperr.New(dapperr.CapabilityViolation, "setExpression is not supported without a concrete tracer")
}

// Source always fails: source content is resolved from a runtime's own
// loaded-module table, which the minimal executor contract has none of.
func Source() (any, error) {
	return nil, dapperr.New(dapperr.PreconditionFailed, "source is not available without a concrete tracer")
}

// ExceptionInfo always fails: there is no exception bookkeeping without
// a concrete tracer to report one stopping.
func ExceptionInfo() (any, error) {
	return nil, dapperr.New(dapperr.PreconditionFailed, "no exception is currently in flight")
}

// NoOp answers an operation that has nothing meaningful to do without a
// concrete tracer (terminateThreads, restart, pause, terminate) with a
// bare success.
func NoOp() any {
	return struct{}{}
}

// HotReloadResult is the body shape a concrete tracer's real hot-reload
// response must also satisfy.
type HotReloadResult struct {
	Module           string   `json:"module"`
	Path             string   `json:"path"`
	ReboundFrames    int      `json:"reboundFrames"`
	UpdatedFrameCode int      `json:"updatedFrameCodes"`
	PatchedInstances int      `json:"patchedInstances"`
	Warnings         []string `json:"warnings"`
}

// HotReload reports that no live state was touched, since patching
// running frames requires a concrete tracer's own bytecode/frame access.
func HotReload(path string) HotReloadResult {
	return HotReloadResult{
		Path:     path,
		Warnings: []string{"hot reload executed without a concrete tracer: no live state was touched"},
	}
}
