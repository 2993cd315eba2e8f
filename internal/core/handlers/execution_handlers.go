package handlers

import (
	"context"
	"encoding/json"

	"github.com/google/go-dap"

	"github.com/jnsquire/dapper/internal/core/dapperr"
)

// resumeBarrier invalidates every outstanding frame/variable handle the
// instant a resume-class command succeeds: no variables/scopes response
// produced after a resume may reference pre-resume handles.
func resumeBarrier(d *Deps) {
	d.Session.State.Resume()
}

// resumeWith translates a DAP stepping verb into the single "resume"
// command every backend's dispatch table actually understands
// (executor.BreakpointExecutor.Resume takes a threadID and a mode string,
// not one method per verb), then crosses the resume barrier on success.
func resumeWith(ctx context.Context, d *Deps, threadID int, mode string) (json.RawMessage, error) {
	res, err := d.Session.Execute(ctx, "resume", map[string]any{"threadId": threadID, "mode": mode})
	if err != nil {
		return nil, err
	}
	resumeBarrier(d)
	return res, nil
}

func handleContinue(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	var args dap.ContinueArguments
	if err := json.Unmarshal(raw, &args); err != nil {
		return Result{}, dapperr.Wrap(dapperr.ProtocolError, "malformed continue arguments", err)
	}
	res, err := resumeWith(ctx, d, args.ThreadId, "continue")
	if err != nil {
		return Result{}, err
	}

	var body dap.ContinueResponseBody
	if len(res) > 0 {
		_ = json.Unmarshal(res, &body)
	}
	return Result{Body: body}, nil
}

func handleNext(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	var args dap.NextArguments
	if err := json.Unmarshal(raw, &args); err != nil {
		return Result{}, dapperr.Wrap(dapperr.ProtocolError, "malformed next arguments", err)
	}
	if _, err := resumeWith(ctx, d, args.ThreadId, "next"); err != nil {
		return Result{}, err
	}
	return Result{}, nil
}

func handleStepIn(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	var args dap.StepInArguments
	if err := json.Unmarshal(raw, &args); err != nil {
		return Result{}, dapperr.Wrap(dapperr.ProtocolError, "malformed stepIn arguments", err)
	}
	if _, err := resumeWith(ctx, d, args.ThreadId, "stepIn"); err != nil {
		return Result{}, err
	}
	return Result{}, nil
}

func handleStepOut(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	var args dap.StepOutArguments
	if err := json.Unmarshal(raw, &args); err != nil {
		return Result{}, dapperr.Wrap(dapperr.ProtocolError, "malformed stepOut arguments", err)
	}
	if _, err := resumeWith(ctx, d, args.ThreadId, "stepOut"); err != nil {
		return Result{}, err
	}
	return Result{}, nil
}

// handlePause does NOT cross the resume barrier: pausing suspends a
// running thread without ever having let it run past the current stop's
// handles, so variable/frame references stay valid. It is sent to the
// backend as its own "pause" command rather than folded into "resume":
// pausing isn't a stepping mode, and the executor contract has no Pause
// method for dispatchInProcess to call, so both backends treat it as a
// best-effort no-op.
func handlePause(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	var args dap.PauseArguments
	if err := json.Unmarshal(raw, &args); err != nil {
		return Result{}, dapperr.Wrap(dapperr.ProtocolError, "malformed pause arguments", err)
	}
	if _, err := d.Session.Execute(ctx, "pause", map[string]any{"threadId": args.ThreadId}); err != nil {
		return Result{}, err
	}
	return Result{}, nil
}
