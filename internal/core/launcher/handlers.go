package launcher

import (
	"context"
	"encoding/json"

	"github.com/jnsquire/dapper/internal/core/dapperr"
	"github.com/jnsquire/dapper/internal/core/executor"
	"github.com/jnsquire/dapper/internal/core/rtstub"
)

// defaultHandlers wires the small set of commands executor.BreakpointExecutor
// actually implements, and answers everything else with a minimal stub
// response so a session can run end to end even before a concrete,
// language-specific tracer is embedded.
func defaultHandlers(ex executor.BreakpointExecutor) map[string]CommandHandler {
	h := map[string]CommandHandler{
		"threads":          stubThreads,
		"stackTrace":       stubStackTrace,
		"scopes":           stubScopes,
		"variables":        stubVariables,
		"setVariable":      stubSetVariable,
		"setExpression":    stubSetExpression,
		"source":           stubSource,
		"exceptionInfo":    stubExceptionInfo,
		"terminateThreads": stubNoOp,
		"restart":          stubNoOp,
		"pause":            stubNoOp,
		"terminate":        stubNoOp,
		"hotReload":        stubHotReload,
	}

	if ex != nil {
		h["setLineBreakpoints"] = handleSetLineBreakpoints(ex)
		h["setWatch"] = handleSetWatch(ex)
		h["resume"] = handleResume(ex)
		h["evaluate"] = handleEvaluate(ex)
		h["setBreakpoint"] = handleSetBreakpoint(ex)
	} else {
		noExecutor := func(ctx context.Context, raw json.RawMessage) (any, error) {
			return nil, dapperr.New(dapperr.PreconditionFailed, "no tracer is embedded in this launcher")
		}
		h["setLineBreakpoints"] = noExecutor
		h["setWatch"] = noExecutor
		h["resume"] = noExecutor
		h["evaluate"] = noExecutor
		h["setBreakpoint"] = noExecutor
	}

	return h
}

func handleSetLineBreakpoints(ex executor.BreakpointExecutor) CommandHandler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args struct {
			Path  string `json:"path"`
			Lines []int  `json:"lines"`
		}
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, dapperr.Wrap(dapperr.ProtocolError, "setLineBreakpoints: malformed arguments", err)
		}
		if err := ex.SetLineBreakpoints(ctx, args.Path, args.Lines); err != nil {
			return nil, err
		}
		return struct{}{}, nil
	}
}

func handleSetWatch(ex executor.BreakpointExecutor) CommandHandler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args struct {
			DataID string `json:"dataId"`
			Access string `json:"access"`
		}
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, dapperr.Wrap(dapperr.ProtocolError, "setWatch: malformed arguments", err)
		}
		if err := ex.SetWatch(ctx, args.DataID, args.Access); err != nil {
			return nil, err
		}
		return struct{}{}, nil
	}
}

func handleResume(ex executor.BreakpointExecutor) CommandHandler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args struct {
			ThreadID int    `json:"threadId"`
			Mode     string `json:"mode"`
		}
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, dapperr.Wrap(dapperr.ProtocolError, "resume: malformed arguments", err)
		}
		if err := ex.Resume(ctx, args.ThreadID, args.Mode); err != nil {
			return nil, err
		}
		return struct{}{}, nil
	}
}

func handleEvaluate(ex executor.BreakpointExecutor) CommandHandler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args struct {
			FrameID    int    `json:"frameId"`
			Expression string `json:"expression"`
		}
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, dapperr.Wrap(dapperr.ProtocolError, "evaluate: malformed arguments", err)
		}
		result, err := ex.Evaluate(ctx, args.FrameID, args.Expression)
		if err != nil {
			return nil, err
		}
		return struct {
			Result string `json:"result"`
		}{Result: result}, nil
	}
}

// handleSetBreakpoint answers one line of the breakpoint controller's
// re-verify loop (used both by setBreakpoints and hot reload's re-sync):
// a single line breakpoint, reusing SetLineBreakpoints underneath since
// the minimal executor contract has no per-condition installation call.
func handleSetBreakpoint(ex executor.BreakpointExecutor) CommandHandler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args struct {
			Path string `json:"path"`
			Line int    `json:"line"`
		}
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, dapperr.Wrap(dapperr.ProtocolError, "setBreakpoint: malformed arguments", err)
		}
		if err := ex.SetLineBreakpoints(ctx, args.Path, []int{args.Line}); err != nil {
			return nil, err
		}
		return struct {
			Verified   bool `json:"verified"`
			ActualLine int  `json:"actualLine"`
		}{Verified: true, ActualLine: args.Line}, nil
	}
}

// The stubs below answer operations no generic, runtime-independent
// executor contract can implement. They let a session run end to end -
// threads report one placeholder thread, frames/scopes/variables report
// empty - until a concrete launcher overrides these entries in its
// Handlers map with real runtime introspection.

func stubThreads(ctx context.Context, raw json.RawMessage) (any, error) {
	return rtstub.Threads(), nil
}

func stubStackTrace(ctx context.Context, raw json.RawMessage) (any, error) {
	return rtstub.StackTrace(), nil
}

func stubScopes(ctx context.Context, raw json.RawMessage) (any, error) {
	return rtstub.Scopes(), nil
}

func stubVariables(ctx context.Context, raw json.RawMessage) (any, error) {
	return rtstub.Variables(), nil
}

func stubSetVariable(ctx context.Context, raw json.RawMessage) (any, error) {
	return rtstub.SetVariable()
}

func stubSetExpression(ctx context.Context, raw json.RawMessage) (any, error) {
	return rtstub.SetExpression()
}

func stubSource(ctx context.Context, raw json.RawMessage) (any, error) {
	return rtstub.Source()
}

func stubExceptionInfo(ctx context.Context, raw json.RawMessage) (any, error) {
	return rtstub.ExceptionInfo()
}

func stubNoOp(ctx context.Context, raw json.RawMessage) (any, error) {
	return rtstub.NoOp(), nil
}

func stubHotReload(ctx context.Context, raw json.RawMessage) (any, error) {
	var args struct {
		Path string `json:"path"`
	}
	_ = json.Unmarshal(raw, &args)
	return rtstub.HotReload(args.Path), nil
}
