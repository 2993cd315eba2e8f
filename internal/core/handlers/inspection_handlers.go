package handlers

import (
	"context"
	"encoding/json"

	"github.com/google/go-dap"

	"github.com/jnsquire/dapper/internal/core/dapperr"
	"github.com/jnsquire/dapper/internal/core/session"
)

func handleThreads(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	list := d.Session.State.Threads.List()
	out := make([]dap.Thread, len(list))
	for i, t := range list {
		out[i] = dap.Thread{Id: t.ID, Name: t.Name}
	}
	return Result{Body: dap.ThreadsResponseBody{Threads: out}}, nil
}

type rawStackFrame struct {
	Name             string     `json:"name"`
	Line             int        `json:"line"`
	Column           int        `json:"column"`
	Source           *dap.Source `json:"source"`
	PresentationHint string     `json:"presentationHint"`
}

type rawStackTrace struct {
	Frames      []rawStackFrame `json:"frames"`
	TotalFrames int             `json:"totalFrames"`
}

func handleStackTrace(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	var args dap.StackTraceArguments
	if err := json.Unmarshal(raw, &args); err != nil {
		return Result{}, dapperr.Wrap(dapperr.ProtocolError, "malformed stackTrace arguments", err)
	}

	res, err := d.Session.Execute(ctx, "stackTrace", args)
	if err != nil {
		return Result{}, err
	}
	var trace rawStackTrace
	if err := json.Unmarshal(res, &trace); err != nil {
		return Result{}, dapperr.Wrap(dapperr.ProtocolError, "malformed stackTrace result from backend", err)
	}

	frames := trace.Frames
	// Pagination: start beyond the end yields an empty page, not an error.
	if args.StartFrame > 0 {
		if args.StartFrame >= len(frames) {
			frames = nil
		} else {
			frames = frames[args.StartFrame:]
		}
	}
	if args.Levels > 0 && args.Levels < len(frames) {
		frames = frames[:args.Levels]
	}

	out := make([]dap.StackFrame, len(frames))
	for i, f := range frames {
		handle := d.Session.State.AllocFrame(session.StackFrame{
			ThreadID:         args.ThreadId,
			Name:             f.Name,
			Line:             f.Line,
			Column:           f.Column,
			PresentationHint: f.PresentationHint,
		})
		out[i] = dap.StackFrame{
			Id:               handle,
			Name:             f.Name,
			Line:             f.Line,
			Column:           f.Column,
			Source:           f.Source,
			PresentationHint: f.PresentationHint,
		}
	}

	total := trace.TotalFrames
	if total == 0 {
		total = len(trace.Frames)
	}
	return Result{Body: dap.StackTraceResponseBody{StackFrames: out, TotalFrames: total}}, nil
}

// scopeOrVariableHandle is what the adapter stores behind every
// VariablesReference it hands to the client: enough to ask the backend for
// that scope's or compound variable's children again later, scoped to the
// frame it was produced under.
type scopeOrVariableHandle struct {
	FrameID    int
	BackendRef int
}

type rawScope struct {
	Name               string `json:"name"`
	VariablesReference int    `json:"variablesReference"`
	Expensive          bool   `json:"expensive"`
}

func handleScopes(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	var args dap.ScopesArguments
	if err := json.Unmarshal(raw, &args); err != nil {
		return Result{}, dapperr.Wrap(dapperr.ProtocolError, "malformed scopes arguments", err)
	}

	_, err := d.Session.State.ResolveFrame(args.FrameId)
	if err != nil {
		return Result{}, err
	}

	res, err := d.Session.Execute(ctx, "scopes", args)
	if err != nil {
		return Result{}, err
	}
	var raws []rawScope
	if err := json.Unmarshal(res, &raws); err != nil {
		return Result{}, dapperr.Wrap(dapperr.ProtocolError, "malformed scopes result from backend", err)
	}

	out := make([]dap.Scope, len(raws))
	for i, s := range raws {
		ref := 0
		if s.VariablesReference != 0 {
			ref = d.Session.State.VarArena.Alloc(scopeOrVariableHandle{FrameID: args.FrameId, BackendRef: s.VariablesReference})
		}
		out[i] = dap.Scope{Name: s.Name, VariablesReference: ref, Expensive: s.Expensive}
	}
	return Result{Body: dap.ScopesResponseBody{Scopes: out}}, nil
}

type rawVariable struct {
	Name               string `json:"name"`
	Value              string `json:"value"`
	Type               string `json:"type"`
	VariablesReference int    `json:"variablesReference"`
}

func handleVariables(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	var args dap.VariablesArguments
	if err := json.Unmarshal(raw, &args); err != nil {
		return Result{}, dapperr.Wrap(dapperr.ProtocolError, "malformed variables arguments", err)
	}

	handleVal, err := d.Session.State.VarArena.Resolve(args.VariablesReference)
	if err != nil {
		return Result{}, err
	}
	h, ok := handleVal.(scopeOrVariableHandle)
	if !ok {
		return Result{}, dapperr.New(dapperr.InvalidHandle, "variables reference does not resolve to a scope or variable")
	}

	res, err := d.Session.Execute(ctx, "variables", map[string]any{
		"variablesReference": h.BackendRef,
		"filter":             args.Filter,
		"start":              args.Start,
		"count":              args.Count,
	})
	if err != nil {
		return Result{}, err
	}
	var raws []rawVariable
	if err := json.Unmarshal(res, &raws); err != nil {
		return Result{}, dapperr.Wrap(dapperr.ProtocolError, "malformed variables result from backend", err)
	}

	out := make([]dap.Variable, len(raws))
	for i, v := range raws {
		ref := 0
		if v.VariablesReference != 0 {
			ref = d.Session.State.VarArena.Alloc(scopeOrVariableHandle{FrameID: h.FrameID, BackendRef: v.VariablesReference})
		}
		out[i] = dap.Variable{Name: v.Name, Value: v.Value, Type: v.Type, VariablesReference: ref}
	}
	return Result{Body: dap.VariablesResponseBody{Variables: out}}, nil
}

func handleSetVariable(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	var args dap.SetVariableArguments
	if err := json.Unmarshal(raw, &args); err != nil {
		return Result{}, dapperr.Wrap(dapperr.ProtocolError, "malformed setVariable arguments", err)
	}
	handleVal, err := d.Session.State.VarArena.Resolve(args.VariablesReference)
	if err != nil {
		return Result{}, err
	}
	h, ok := handleVal.(scopeOrVariableHandle)
	if !ok {
		return Result{}, dapperr.New(dapperr.InvalidHandle, "variables reference does not resolve to a scope or variable")
	}

	res, err := d.Session.Execute(ctx, "setVariable", map[string]any{
		"variablesReference": h.BackendRef,
		"name":                args.Name,
		"value":               args.Value,
	})
	if err != nil {
		return Result{}, dapperr.Wrap(dapperr.EvaluationError, "setVariable failed", err)
	}
	var body dap.SetVariableResponseBody
	_ = json.Unmarshal(res, &body)
	return Result{Body: body}, nil
}

func handleEvaluate(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	var args dap.EvaluateArguments
	if err := json.Unmarshal(raw, &args); err != nil {
		return Result{}, dapperr.Wrap(dapperr.ProtocolError, "malformed evaluate arguments", err)
	}

	var frameBackendRef any
	if args.FrameId != 0 {
		if _, err := d.Session.State.ResolveFrame(args.FrameId); err != nil {
			return Result{}, err
		}
		frameBackendRef = args.FrameId
	}

	res, err := d.Session.Execute(ctx, "evaluate", map[string]any{
		"expression": args.Expression,
		"frameId":    frameBackendRef,
		"context":    args.Context,
	})
	if err != nil {
		return Result{}, dapperr.Wrap(dapperr.EvaluationError, "evaluate failed", err)
	}

	var raw2 struct {
		Result             string `json:"result"`
		Type               string `json:"type"`
		VariablesReference int    `json:"variablesReference"`
	}
	if err := json.Unmarshal(res, &raw2); err != nil {
		return Result{}, dapperr.Wrap(dapperr.ProtocolError, "malformed evaluate result from backend", err)
	}

	ref := 0
	if raw2.VariablesReference != 0 {
		ref = d.Session.State.VarArena.Alloc(scopeOrVariableHandle{BackendRef: raw2.VariablesReference})
	}
	return Result{Body: dap.EvaluateResponseBody{Result: raw2.Result, Type: raw2.Type, VariablesReference: ref}}, nil
}

func handleSetExpression(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	var args dap.SetExpressionArguments
	if err := json.Unmarshal(raw, &args); err != nil {
		return Result{}, dapperr.Wrap(dapperr.ProtocolError, "malformed setExpression arguments", err)
	}
	if args.FrameId != 0 {
		if _, err := d.Session.State.ResolveFrame(args.FrameId); err != nil {
			return Result{}, err
		}
	}

	res, err := d.Session.Execute(ctx, "setExpression", args)
	if err != nil {
		return Result{}, dapperr.Wrap(dapperr.EvaluationError, "setExpression failed", err)
	}
	var body dap.SetExpressionResponseBody
	_ = json.Unmarshal(res, &body)
	return Result{Body: body}, nil
}

func handleSource(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	var args dap.SourceArguments
	if err := json.Unmarshal(raw, &args); err != nil {
		return Result{}, dapperr.Wrap(dapperr.ProtocolError, "malformed source arguments", err)
	}

	if content, ok := d.Session.State.Sources.Content(args.SourceReference); ok {
		return Result{Body: dap.SourceResponseBody{Content: content}}, nil
	}

	res, err := d.Session.Execute(ctx, "source", args)
	if err != nil {
		return Result{}, err
	}
	var body dap.SourceResponseBody
	if err := json.Unmarshal(res, &body); err != nil {
		return Result{}, dapperr.Wrap(dapperr.ProtocolError, "malformed source result from backend", err)
	}
	d.Session.State.Sources.SetContent(args.SourceReference, body.Content)
	return Result{Body: body}, nil
}

func handleLoadedSources(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	refs := d.Session.State.Sources.List()
	out := make([]dap.Source, len(refs))
	for i, r := range refs {
		out[i] = dap.Source{Name: r.Name, Path: r.Path, Origin: r.Origin, SourceReference: r.SourceReference}
	}
	return Result{Body: dap.LoadedSourcesResponseBody{Sources: out}}, nil
}

func handleExceptionInfo(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	var args dap.ExceptionInfoArguments
	if err := json.Unmarshal(raw, &args); err != nil {
		return Result{}, dapperr.Wrap(dapperr.ProtocolError, "malformed exceptionInfo arguments", err)
	}
	res, err := d.Session.Execute(ctx, "exceptionInfo", args)
	if err != nil {
		return Result{}, err
	}
	var body dap.ExceptionInfoResponseBody
	if err := json.Unmarshal(res, &body); err != nil {
		return Result{}, dapperr.Wrap(dapperr.ProtocolError, "malformed exceptionInfo result from backend", err)
	}
	return Result{Body: body}, nil
}

func handleTerminateThreads(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	var args dap.TerminateThreadsArguments
	if err := json.Unmarshal(raw, &args); err != nil {
		return Result{}, dapperr.Wrap(dapperr.ProtocolError, "malformed terminateThreads arguments", err)
	}
	if _, err := d.Session.Execute(ctx, "terminateThreads", args); err != nil {
		return Result{}, err
	}
	return Result{}, nil
}

func handleRestart(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	if _, err := d.Session.Execute(ctx, "restart", json.RawMessage(raw)); err != nil {
		return Result{}, err
	}
	return Result{}, nil
}
