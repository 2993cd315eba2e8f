package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jnsquire/dapper/internal/core/dapperr"
	"github.com/jnsquire/dapper/internal/core/executor"
	"github.com/jnsquire/dapper/internal/core/rtstub"
	"github.com/jnsquire/dapper/internal/core/workers"
	"github.com/jnsquire/dapper/internal/models"
)

// InProcessBackend bridges directly to an executor.BreakpointExecutor
// embedded in the adapter's own process, bypassing the IPC transport
// entirely. Every operation is still funneled through a single-worker
// pool so concurrent DAP requests observe the same serialization the
// external backend gets for free from having one launcher connection.
type InProcessBackend struct {
	executor executor.BreakpointExecutor
	pool     *workers.Pool
	timeout  time.Duration

	output *OutputStream
}

// InProcessOptions configures the bridge.
type InProcessOptions struct {
	Executor       executor.BreakpointExecutor
	CommandTimeout time.Duration
	OutputCapacity int
	OnOutput       func(models.OutputLine)

	// OnEvent, if set, receives every executor-reported hit translated
	// into a "stopped" event, the same shape the external backend's IPC
	// events arrive in. Without it, breakpoint/step/exception hits are
	// silently dropped: there is no IPC wire for them to travel over.
	OnEvent EventHandler
}

// NewInProcessBackend wraps an already-constructed executor. The executor
// itself is responsible for starting the embedded debuggee; Launch/Attach
// here only mark the bridge ready. If the executor exposes a Hits channel
// and the caller supplied OnEvent, a goroutine forwards every hit as a
// "stopped" event for the lifetime of that channel.
func NewInProcessBackend(opts InProcessOptions) *InProcessBackend {
	b := &InProcessBackend{
		executor: opts.Executor,
		pool:     workers.NewPool(opts.CommandTimeout),
		timeout:  opts.CommandTimeout,
		output:   NewOutputStream(opts.OutputCapacity, opts.OnOutput),
	}
	if opts.Executor != nil && opts.OnEvent != nil {
		go forwardHits(opts.Executor.Hits(), opts.OnEvent)
	}
	return b
}

// forwardHits drains hits until the executor closes the channel, turning
// each one into a "stopped" event body matching what the external
// backend's launcher would report over IPC for the same occurrence.
func forwardHits(hits <-chan executor.HitResult, onEvent EventHandler) {
	for hit := range hits {
		body, err := json.Marshal(struct {
			Reason            string `json:"reason"`
			ThreadId          int    `json:"threadId"`
			AllThreadsStopped bool   `json:"allThreadsStopped"`
		}{Reason: hit.Reason, ThreadId: hit.ThreadID, AllThreadsStopped: true})
		if err != nil {
			continue
		}
		onEvent("stopped", body)
	}
}

// Launch is a no-op beyond validating the executor is present: embedding a
// debuggee in-process means construction already started it.
func (b *InProcessBackend) Launch(ctx context.Context, cfg models.LaunchConfig) error {
	if b.executor == nil {
		return dapperr.New(dapperr.PreconditionFailed, "in-process backend has no executor")
	}
	return nil
}

// Attach is not meaningful for an in-process bridge: there is nothing
// external to connect to. It always fails with PreconditionFailed so a
// misconfigured client gets a clear rejection rather than a silent no-op.
func (b *InProcessBackend) Attach(ctx context.Context, cfg AttachConfig) error {
	return dapperr.New(dapperr.PreconditionFailed, "in-process backend does not support attach")
}

// Execute dispatches command to the embedded executor on the pool's single
// worker, serializing it against every other in-flight operation.
func (b *InProcessBackend) Execute(ctx context.Context, command string, args any) (json.RawMessage, error) {
	if b.executor == nil {
		return nil, dapperr.New(dapperr.PreconditionFailed, "in-process backend not connected")
	}

	return withTimeout(ctx, b.timeout, func(cctx context.Context) (json.RawMessage, error) {
		result := b.pool.SubmitAndWait(cctx, command, func(wctx context.Context) (interface{}, error) {
			return dispatchInProcess(wctx, b.executor, command, args)
		})
		if result.Error != nil {
			return nil, result.Error
		}
		payload, err := json.Marshal(result.Data)
		if err != nil {
			return nil, dapperr.Wrap(dapperr.ProtocolError, "encode in-process result", err)
		}
		return payload, nil
	})
}

// SupportsSubprocessAutoAttach is always false: an embedded executor has
// no subprocess boundary to observe a child process crossing.
func (b *InProcessBackend) SupportsSubprocessAutoAttach() bool { return false }

func (b *InProcessBackend) Close(ctx context.Context) error {
	b.pool.Close()
	return nil
}

// dispatchInProcess maps every command the handler layer sends onto
// either an executor.BreakpointExecutor call (the small set the contract
// actually exposes) or a runtime-independent rtstub placeholder, the same
// two-tier split the launcher's own Handlers map uses. Unlike that map,
// this switch is not overridable - a concrete in-process tracer has
// nowhere to plug in richer stack/scope/variable introspection, which is
// why the stub responses are the final answer here rather than a
// fallback.
func dispatchInProcess(ctx context.Context, ex executor.BreakpointExecutor, command string, args any) (any, error) {
	switch command {
	case "setLineBreakpoints":
		a, ok := args.(map[string]any)
		if !ok {
			return nil, dapperr.New(dapperr.ProtocolError, "setLineBreakpoints: malformed arguments")
		}
		path, _ := a["path"].(string)
		lines, err := toIntSlice(a["lines"])
		if err != nil {
			return nil, err
		}
		if err := ex.SetLineBreakpoints(ctx, path, lines); err != nil {
			return nil, err
		}
		return struct{}{}, nil

	case "setBreakpoint":
		a, ok := args.(map[string]any)
		if !ok {
			return nil, dapperr.New(dapperr.ProtocolError, "setBreakpoint: malformed arguments")
		}
		path, _ := a["path"].(string)
		line, err := toInt(a["line"])
		if err != nil {
			return nil, dapperr.Wrap(dapperr.ProtocolError, "setBreakpoint: malformed line", err)
		}
		if err := ex.SetLineBreakpoints(ctx, path, []int{line}); err != nil {
			return nil, err
		}
		return struct {
			Verified   bool `json:"verified"`
			ActualLine int  `json:"actualLine"`
		}{Verified: true, ActualLine: line}, nil

	case "setWatch":
		a, ok := args.(map[string]any)
		if !ok {
			return nil, dapperr.New(dapperr.ProtocolError, "setWatch: malformed arguments")
		}
		dataID, _ := a["dataId"].(string)
		access, _ := a["access"].(string)
		if err := ex.SetWatch(ctx, dataID, access); err != nil {
			return nil, err
		}
		return struct{}{}, nil

	case "resume":
		a, ok := args.(map[string]any)
		if !ok {
			return nil, dapperr.New(dapperr.ProtocolError, "resume: malformed arguments")
		}
		threadID, err := toInt(a["threadId"])
		if err != nil {
			return nil, dapperr.Wrap(dapperr.ProtocolError, "resume: malformed threadId", err)
		}
		mode, _ := a["mode"].(string)
		if err := ex.Resume(ctx, threadID, mode); err != nil {
			return nil, err
		}
		return struct{}{}, nil

	case "pause", "terminate", "terminateThreads", "restart":
		return rtstub.NoOp(), nil

	case "evaluate":
		a, ok := args.(map[string]any)
		if !ok {
			return nil, dapperr.New(dapperr.ProtocolError, "evaluate: malformed arguments")
		}
		frameID, err := toInt(a["frameId"])
		if err != nil {
			return nil, dapperr.Wrap(dapperr.ProtocolError, "evaluate: malformed frameId", err)
		}
		expression, _ := a["expression"].(string)
		result, err := ex.Evaluate(ctx, frameID, expression)
		if err != nil {
			return nil, err
		}
		return struct {
			Result string `json:"result"`
		}{Result: result}, nil

	case "threads":
		return rtstub.Threads(), nil
	case "stackTrace":
		return rtstub.StackTrace(), nil
	case "scopes":
		return rtstub.Scopes(), nil
	case "variables":
		return rtstub.Variables(), nil
	case "setVariable":
		return rtstub.SetVariable()
	case "setExpression":
		return rtstub.SetExpression()
	case "source":
		return rtstub.Source()
	case "exceptionInfo":
		return rtstub.ExceptionInfo()
	case "hotReload":
		a, _ := args.(map[string]any)
		path, _ := a["path"].(string)
		return rtstub.HotReload(path), nil

	default:
		return nil, dapperr.New(dapperr.ProtocolError, fmt.Sprintf("unsupported in-process command %q", command))
	}
}

// toInt accepts the numeric shapes a command argument can actually carry
// in this bridge: a plain Go int when the handler layer builds the args
// map directly (no JSON round trip between it and the executor), or a
// float64/json.Number when the value arrived via JSON unmarshaling.
func toInt(v any) (int, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, dapperr.Wrap(dapperr.ProtocolError, "expected integer value", err)
		}
		return int(i), nil
	default:
		return 0, dapperr.New(dapperr.ProtocolError, "expected integer value")
	}
}

func toIntSlice(v any) ([]int, error) {
	raw, ok := v.([]any)
	if !ok {
		return nil, dapperr.New(dapperr.ProtocolError, "expected array of line numbers")
	}
	out := make([]int, 0, len(raw))
	for _, item := range raw {
		n, err := toInt(item)
		if err != nil {
			return nil, dapperr.New(dapperr.ProtocolError, "expected numeric line number")
		}
		out = append(out, n)
	}
	return out, nil
}
