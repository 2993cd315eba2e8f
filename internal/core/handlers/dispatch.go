package handlers

import (
	"context"

	"github.com/jnsquire/dapper/internal/core/dapperr"
)

// commandSpec is one row of the dispatch table: a DAP
// command name, the capability that must be advertised before it can be
// invoked (nil means always available), and the handler that produces its
// response body.
type commandSpec struct {
	name       string
	capability func(Capabilities) bool
	handler    HandlerFunc
}

var table map[string]commandSpec

func register(specs ...commandSpec) map[string]commandSpec {
	m := make(map[string]commandSpec, len(specs))
	for _, s := range specs {
		m[s.name] = s
	}
	return m
}

func init() {
	table = register(
		commandSpec{name: "initialize", handler: handleInitialize},
		commandSpec{name: "launch", handler: handleLaunch},
		commandSpec{name: "attach", handler: handleAttach},
		commandSpec{name: "configurationDone", handler: handleConfigurationDone},
		commandSpec{name: "disconnect", handler: handleDisconnect},
		commandSpec{name: "terminate", capability: func(c Capabilities) bool { return c.SupportsTerminateRequest }, handler: handleTerminate},

		commandSpec{name: "setBreakpoints", handler: handleSetBreakpoints},
		commandSpec{name: "setFunctionBreakpoints", capability: func(c Capabilities) bool { return c.SupportsFunctionBreakpoints }, handler: handleSetFunctionBreakpoints},
		commandSpec{name: "setExceptionBreakpoints", handler: handleSetExceptionBreakpoints},
		commandSpec{name: "dataBreakpointInfo", capability: func(c Capabilities) bool { return c.SupportsDataBreakpoints }, handler: handleDataBreakpointInfo},
		commandSpec{name: "setDataBreakpoints", capability: func(c Capabilities) bool { return c.SupportsDataBreakpoints }, handler: handleSetDataBreakpoints},
		commandSpec{name: "breakpointLocations", capability: func(c Capabilities) bool { return c.SupportsBreakpointLocationsRequest }, handler: handleBreakpointLocations},

		commandSpec{name: "threads", handler: handleThreads},
		commandSpec{name: "stackTrace", handler: handleStackTrace},
		commandSpec{name: "scopes", handler: handleScopes},
		commandSpec{name: "variables", handler: handleVariables},
		commandSpec{name: "setVariable", capability: func(c Capabilities) bool { return c.SupportsSetVariable }, handler: handleSetVariable},

		commandSpec{name: "continue", handler: handleContinue},
		commandSpec{name: "next", handler: handleNext},
		commandSpec{name: "stepIn", handler: handleStepIn},
		commandSpec{name: "stepOut", handler: handleStepOut},
		commandSpec{name: "pause", handler: handlePause},

		commandSpec{name: "evaluate", handler: handleEvaluate},
		commandSpec{name: "setExpression", capability: func(c Capabilities) bool { return c.SupportsSetExpression }, handler: handleSetExpression},

		commandSpec{name: "source", handler: handleSource},
		commandSpec{name: "loadedSources", capability: func(c Capabilities) bool { return c.SupportsLoadedSourcesRequest }, handler: handleLoadedSources},
		commandSpec{name: "exceptionInfo", capability: func(c Capabilities) bool { return c.SupportsExceptionInfoRequest }, handler: handleExceptionInfo},
		commandSpec{name: "terminateThreads", capability: func(c Capabilities) bool { return c.SupportsTerminateThreadsRequest }, handler: handleTerminateThreads},
		commandSpec{name: "restart", capability: func(c Capabilities) bool { return c.SupportsRestartRequest }, handler: handleRestart},
		commandSpec{name: "cancel", capability: func(c Capabilities) bool { return c.SupportsCancelRequest }, handler: handleCancel},

		commandSpec{name: "dapper/hotReload", capability: func(c Capabilities) bool { return c.SupportsHotReload }, handler: handleHotReload},

		// Reverse-execution and friends are accepted at the protocol
		// level but never advertised, so they always fail
		// capability gating below rather than needing their own handler.
		commandSpec{name: "stepBack", capability: func(Capabilities) bool { return false }},
		commandSpec{name: "reverseContinue", capability: func(Capabilities) bool { return false }},
		commandSpec{name: "restartFrame", capability: func(Capabilities) bool { return false }},
		commandSpec{name: "gotoTargets", capability: func(Capabilities) bool { return false }},
		commandSpec{name: "goto", capability: func(Capabilities) bool { return false }},
	)
}

// Dispatch maps command to its handler, enforcing capability gating before
// the handler ever runs. An
// unknown command is itself a protocol error — the client asked for
// something outside the DAP surface this adapter understands.
func Dispatch(ctx context.Context, d *Deps, command string, raw []byte) (Result, error) {
	spec, ok := table[command]
	if !ok {
		return Result{}, dapperr.New(dapperr.ProtocolError, "unknown command: "+command)
	}
	if spec.capability != nil && !spec.capability(d.Capabilities) {
		return Result{}, dapperr.New(dapperr.CapabilityViolation, command+" is not supported by this adapter")
	}
	if spec.handler == nil {
		return Result{}, dapperr.New(dapperr.CapabilityViolation, command+" is not supported by this adapter")
	}
	return spec.handler(ctx, d, raw)
}
