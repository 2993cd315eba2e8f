// Package launcher implements the dapper-launcher side of the IPC
// transport: the half that receives Command frames, dispatches them, and
// replies with Response frames, plus emits Event frames unprompted. It is
// the mirror image of ipcmanager.Manager, which owns the adapter side of
// the same connection.
//
// The command surface itself delegates the handful of operations a real
// tracer must implement (line breakpoints, watches, resume, evaluate) to
// an executor.BreakpointExecutor. Everything else a debug session needs
// (stack traces, scopes, variables, hot reload) has no generic,
// runtime-independent implementation, so this package answers those with
// a minimal, clearly-stubbed response rather than pretending to trace a
// language it doesn't know. A concrete launcher embeds a real
// BreakpointExecutor and can override any entry in the Handlers table.
package launcher

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jnsquire/dapper/internal/core/dapperr"
	"github.com/jnsquire/dapper/internal/core/executor"
	"github.com/jnsquire/dapper/internal/core/framing"
	"github.com/jnsquire/dapper/internal/core/transport"
)

// CommandHandler answers one {id,method,args} Command frame.
type CommandHandler func(ctx context.Context, args json.RawMessage) (any, error)

// commandEnvelope mirrors ipcmanager's SendCommand wire shape.
type commandEnvelope struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args"`
}

// responseEnvelope mirrors what ipcmanager.SendCommand expects back.
type responseEnvelope struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// eventEnvelope mirrors router's expected event shape.
type eventEnvelope struct {
	Name string `json:"name"`
	Body any    `json:"body,omitempty"`
}

// Launcher owns the adapter connection from the launcher process's side:
// it reads Command frames, dispatches them against Handlers, and writes
// Response and Event frames back.
type Launcher struct {
	conn   transport.Connection
	reader *bufio.Reader
	wmu    sync.Mutex
	logger *slog.Logger

	executor executor.BreakpointExecutor
	Handlers map[string]CommandHandler
}

// New builds a Launcher wired to ex for the core tracer operations, with
// stub handlers for everything else (see package doc). Callers may
// overwrite or add entries in the returned Launcher's Handlers map before
// calling Run.
func New(conn transport.Connection, ex executor.BreakpointExecutor, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Launcher{
		conn:     conn,
		reader:   bufio.NewReader(conn),
		logger:   logger.With("component", "launcher"),
		executor: ex,
	}
	l.Handlers = defaultHandlers(ex)
	return l
}

// Run reads and dispatches Command frames until the connection closes or
// ctx is canceled. Event frames reported through ex.Hits() are forwarded
// concurrently for the lifetime of Run.
func (l *Launcher) Run(ctx context.Context) error {
	if l.executor != nil {
		go l.forwardHits(l.executor.Hits())
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, err := framing.ReadIPCFrame(l.reader)
		if err != nil {
			return err
		}
		if frame.Kind != framing.IPCKindCommand {
			l.logger.Warn("unexpected frame kind from adapter", "kind", frame.Kind)
			continue
		}

		go l.handleCommand(ctx, frame.Payload)
	}
}

func (l *Launcher) handleCommand(ctx context.Context, payload []byte) {
	var env commandEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		l.logger.Error("malformed command envelope", "error", err)
		return
	}

	handler, ok := l.Handlers[env.Method]
	if !ok {
		l.respond(env.ID, nil, dapperr.New(dapperr.ProtocolError, fmt.Sprintf("unsupported command %q", env.Method)))
		return
	}

	result, err := handler(ctx, env.Args)
	l.respond(env.ID, result, err)
}

func (l *Launcher) respond(id string, result any, err error) {
	resp := responseEnvelope{ID: id}
	if err != nil {
		resp.Error = err.Error()
	} else if result != nil {
		raw, marshalErr := json.Marshal(result)
		if marshalErr != nil {
			resp.Error = marshalErr.Error()
		} else {
			resp.Result = raw
		}
	}
	payload, marshalErr := json.Marshal(resp)
	if marshalErr != nil {
		l.logger.Error("encode response envelope", "error", marshalErr)
		return
	}
	if werr := l.writeFrame(framing.IPCKindResponse, payload); werr != nil {
		l.logger.Error("write response frame", "error", werr)
	}
}

// SendEvent writes an unsolicited Event frame, e.g. "output" or
// "terminated".
func (l *Launcher) SendEvent(name string, body any) error {
	payload, err := json.Marshal(eventEnvelope{Name: name, Body: body})
	if err != nil {
		return dapperr.Wrap(dapperr.ProtocolError, "encode launcher event", err)
	}
	return l.writeFrame(framing.IPCKindEvent, payload)
}

func (l *Launcher) writeFrame(kind framing.IPCKind, payload []byte) error {
	l.wmu.Lock()
	defer l.wmu.Unlock()
	_, err := l.conn.Write(framing.EncodeIPCFrame(kind, payload))
	if err != nil {
		return dapperr.Wrap(dapperr.TransportErrorKind, "write to adapter", err)
	}
	return nil
}

func (l *Launcher) forwardHits(hits <-chan executor.HitResult) {
	for hit := range hits {
		_ = l.SendEvent("stopped", struct {
			Reason            string `json:"reason"`
			ThreadId          int    `json:"threadId"`
			AllThreadsStopped bool   `json:"allThreadsStopped"`
		}{Reason: hit.Reason, ThreadId: hit.ThreadID, AllThreadsStopped: true})
	}
}
