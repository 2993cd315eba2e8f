package handlers

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/google/go-dap"

	"github.com/jnsquire/dapper/internal/core/breakpoints"
	"github.com/jnsquire/dapper/internal/core/dapperr"
)

// verifyResult is the shape every backend breakpoint-verification command
// is expected to answer with, regardless of which kind of breakpoint it
// verified.
type verifyResult struct {
	Verified   bool   `json:"verified"`
	ActualLine int    `json:"actualLine"`
	Message    string `json:"message"`
}

func verifyWith(ctx context.Context, d *Deps, command string, args any) verifyResult {
	if d.Session.Backend == nil {
		return verifyResult{}
	}
	raw, err := d.Session.Execute(ctx, command, args)
	if err != nil {
		return verifyResult{Message: err.Error()}
	}
	var res verifyResult
	_ = json.Unmarshal(raw, &res)
	return res
}

func handleSetBreakpoints(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	var args dap.SetBreakpointsArguments
	if err := json.Unmarshal(raw, &args); err != nil {
		return Result{}, dapperr.Wrap(dapperr.ProtocolError, "malformed setBreakpoints arguments", err)
	}

	incoming := make([]breakpoints.SourceBreakpoint, len(args.Breakpoints))
	for i, bp := range args.Breakpoints {
		incoming[i] = breakpoints.SourceBreakpoint{
			Line:         bp.Line,
			Condition:    bp.Condition,
			HitCondition: bp.HitCondition,
			LogMessage:   bp.LogMessage,
		}
	}

	verified := d.Session.Breakpoints.SetSourceBreakpoints(args.Source.Path, incoming, func(bp *breakpoints.SourceBreakpoint) {
		res := verifyWith(ctx, d, "setBreakpoint", map[string]any{
			"path":         args.Source.Path,
			"line":         bp.Line,
			"condition":    bp.Condition,
			"hitCondition": bp.HitCondition,
			"logMessage":   bp.LogMessage,
		})
		bp.Verified = res.Verified
		bp.ActualLine = res.ActualLine
		if bp.ActualLine == 0 {
			bp.ActualLine = bp.Line
		}
	})

	out := make([]dap.Breakpoint, len(verified))
	for i, bp := range verified {
		out[i] = dap.Breakpoint{
			Id:       bp.ID,
			Verified: bp.Verified,
			Source:   &args.Source,
			Line:     bp.ActualLine,
		}
	}
	return Result{Body: dap.SetBreakpointsResponseBody{Breakpoints: out}}, nil
}

func handleSetFunctionBreakpoints(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	var args dap.SetFunctionBreakpointsArguments
	if err := json.Unmarshal(raw, &args); err != nil {
		return Result{}, dapperr.Wrap(dapperr.ProtocolError, "malformed setFunctionBreakpoints arguments", err)
	}

	incoming := make([]breakpoints.FunctionBreakpoint, len(args.Breakpoints))
	for i, bp := range args.Breakpoints {
		incoming[i] = breakpoints.FunctionBreakpoint{Name: bp.Name, Condition: bp.Condition}
	}

	verified := d.Session.Breakpoints.SetFunctionBreakpoints(incoming, func(bp *breakpoints.FunctionBreakpoint) {
		res := verifyWith(ctx, d, "setFunctionBreakpoint", map[string]any{
			"name":      bp.Name,
			"condition": bp.Condition,
		})
		bp.Verified = res.Verified
	})

	out := make([]dap.Breakpoint, len(verified))
	for i, bp := range verified {
		out[i] = dap.Breakpoint{Id: bp.ID, Verified: bp.Verified}
	}
	return Result{Body: dap.SetFunctionBreakpointsResponseBody{Breakpoints: out}}, nil
}

func handleSetExceptionBreakpoints(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	var args dap.SetExceptionBreakpointsArguments
	if err := json.Unmarshal(raw, &args); err != nil {
		return Result{}, dapperr.Wrap(dapperr.ProtocolError, "malformed setExceptionBreakpoints arguments", err)
	}

	incoming := make([]breakpoints.ExceptionFilter, 0, len(args.Filters))
	if len(args.FilterOptions) > 0 {
		for _, fo := range args.FilterOptions {
			incoming = append(incoming, breakpoints.ExceptionFilter{FilterID: fo.FilterId, Condition: fo.Condition})
		}
	} else {
		for _, f := range args.Filters {
			incoming = append(incoming, breakpoints.ExceptionFilter{FilterID: f})
		}
	}

	filters := d.Session.Breakpoints.SetExceptionFilters(incoming)
	if d.Session.Backend != nil {
		_, _ = d.Session.Execute(ctx, "setExceptionBreakpoints", incoming)
	}

	out := make([]dap.Breakpoint, len(filters))
	for i, f := range filters {
		out[i] = dap.Breakpoint{Id: f.ID, Verified: true}
	}
	return Result{Body: dap.SetExceptionBreakpointsResponseBody{Breakpoints: out}}, nil
}

func handleDataBreakpointInfo(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	var args dap.DataBreakpointInfoArguments
	if err := json.Unmarshal(raw, &args); err != nil {
		return Result{}, dapperr.Wrap(dapperr.ProtocolError, "malformed dataBreakpointInfo arguments", err)
	}

	target := args.Name
	if args.VariablesReference != 0 {
		target = frameExpressionKey(args.VariablesReference, args.Name)
	}
	dataID := breakpoints.DataIDFor(target)

	res := verifyWith(ctx, d, "dataBreakpointInfo", map[string]any{"target": target})

	body := dap.DataBreakpointInfoResponseBody{
		DataId:      &dataID,
		Description: args.Name,
		AccessTypes: []dap.DataBreakpointAccessType{dap.DataBreakpointAccessTypeRead, dap.DataBreakpointAccessTypeWrite, dap.DataBreakpointAccessTypeReadWrite},
		CanPersist:  res.Verified,
	}
	return Result{Body: body}, nil
}

func frameExpressionKey(variablesReference int, name string) string {
	return "ref:" + strconv.Itoa(variablesReference) + ":" + name
}

func handleSetDataBreakpoints(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	var args dap.SetDataBreakpointsArguments
	if err := json.Unmarshal(raw, &args); err != nil {
		return Result{}, dapperr.Wrap(dapperr.ProtocolError, "malformed setDataBreakpoints arguments", err)
	}

	incoming := make([]breakpoints.ActiveDataBreakpoint, len(args.Breakpoints))
	for i, bp := range args.Breakpoints {
		incoming[i] = breakpoints.ActiveDataBreakpoint{
			DataID:    bp.DataId,
			Access:    breakpoints.AccessMode(bp.AccessType),
			Condition: bp.Condition,
		}
	}

	active := d.Session.Breakpoints.DataBreakpoints().SetActive(incoming)
	if d.Session.Backend != nil {
		_, _ = d.Session.Execute(ctx, "setDataBreakpoints", incoming)
	}

	out := make([]dap.Breakpoint, len(active))
	for i, bp := range active {
		out[i] = dap.Breakpoint{Id: bp.ID, Verified: true}
	}
	return Result{Body: dap.SetDataBreakpointsResponseBody{Breakpoints: out}}, nil
}

func handleBreakpointLocations(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	var args dap.BreakpointLocationsArguments
	if err := json.Unmarshal(raw, &args); err != nil {
		return Result{}, dapperr.Wrap(dapperr.ProtocolError, "malformed breakpointLocations arguments", err)
	}

	res, err := d.Session.Execute(ctx, "breakpointLocations", args)
	if err != nil {
		return Result{}, err
	}
	var locs []dap.BreakpointLocation
	_ = json.Unmarshal(res, &locs)
	return Result{Body: dap.BreakpointLocationsResponseBody{Breakpoints: locs}}, nil
}
