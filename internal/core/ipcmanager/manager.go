// Package ipcmanager owns the single connection to a launcher process:
// one reader worker decodes framed messages off the wire, resolves
// commands awaiting a response, and forwards everything else (events) to
// the router for classification.
package ipcmanager

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jnsquire/dapper/internal/core/dapperr"
	"github.com/jnsquire/dapper/internal/core/framing"
	"github.com/jnsquire/dapper/internal/core/transport"
)

// EventHandler receives every inbound frame that isn't the response to a
// pending command: launcher-originated events, unsolicited or otherwise.
type EventHandler func(frame *framing.IPCFrame)

// Manager owns exactly one launcher connection and the single goroutine
// that reads from it.
type Manager struct {
	conn   transport.Connection
	reader *bufio.Reader
	writer *bufio.Writer
	wmu    sync.Mutex // serializes frame writes

	pending *pendingTable
	onEvent EventHandler

	logger *slog.Logger

	closing  atomic.Bool
	closeErr error
	closeMu  sync.Mutex
	done     chan struct{}
}

// New wraps conn; call Start to begin reading.
func New(conn transport.Connection, onEvent EventHandler, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		writer:  bufio.NewWriter(conn),
		pending: newPendingTable(),
		onEvent: onEvent,
		logger:  logger.With("component", "ipcmanager"),
		done:    make(chan struct{}),
	}
}

// Start launches the reader worker and the pending-command sweeper. It
// returns immediately; callers observe termination via Done.
func (m *Manager) Start(ctx context.Context) {
	go m.readLoop(ctx)
	go m.sweepLoop(ctx)
}

// Done closes when the reader worker has exited, whether from a clean
// Close or a broken connection.
func (m *Manager) Done() <-chan struct{} { return m.done }

func (m *Manager) readLoop(ctx context.Context) {
	defer close(m.done)
	for {
		frame, err := framing.ReadIPCFrame(m.reader)
		if err != nil {
			m.fail(dapperr.Wrap(dapperr.FramingErrorKind, "launcher connection lost", err))
			return
		}

		if frame.Kind == framing.IPCKindResponse {
			var envelope responseEnvelope
			if jsonErr := json.Unmarshal(frame.Payload, &envelope); jsonErr != nil {
				m.logger.Error("malformed response envelope", "error", jsonErr)
				continue
			}
			if m.pending.resolve(envelope.ID, frame.Payload, nil) {
				continue
			}
			m.logger.Warn("response for unknown or expired command", "id", envelope.ID)
			continue
		}

		if m.onEvent != nil {
			m.onEvent(frame)
		}
	}
}

func (m *Manager) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case now := <-ticker.C:
			m.pending.sweepExpired(now)
		}
	}
}

// responseEnvelope is the subset of a launcher response frame's JSON the
// manager needs to route it back to the waiting caller.
type responseEnvelope struct {
	ID string `json:"id"`
}

// SendCommand writes a Command frame and blocks until the matching
// Response arrives, ctx is canceled, or timeout elapses (BackendTimeout).
func (m *Manager) SendCommand(ctx context.Context, method string, args any, timeout time.Duration) (json.RawMessage, error) {
	if m.closing.Load() {
		return nil, dapperr.ErrSessionShuttingDown
	}

	id := uuid.NewString()
	envelope := struct {
		ID     string `json:"id"`
		Method string `json:"method"`
		Args   any    `json:"args,omitempty"`
	}{ID: id, Method: method, Args: args}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, dapperr.Wrap(dapperr.ProtocolError, "encode launcher command", err)
	}

	pc := m.pending.register(id, timeout)
	defer m.pending.forget(id)

	if err := m.writeFrame(framing.IPCKindCommand, payload); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-pc.resultCh:
		if res.err != nil {
			return nil, res.err
		}
		var envelope struct {
			Result json.RawMessage `json:"result"`
			Error  string          `json:"error"`
		}
		if err := json.Unmarshal(res.payload, &envelope); err != nil {
			return nil, dapperr.Wrap(dapperr.ProtocolError, "decode launcher response", err)
		}
		if envelope.Error != "" {
			return nil, dapperr.New(dapperr.BackendError, envelope.Error)
		}
		return envelope.Result, nil
	}
}

// SendEvent writes an Event frame with no response expected, used for
// fire-and-forget notifications to the launcher.
func (m *Manager) SendEvent(name string, body any) error {
	if m.closing.Load() {
		return dapperr.ErrSessionShuttingDown
	}
	envelope := struct {
		Name string `json:"name"`
		Body any    `json:"body,omitempty"`
	}{Name: name, Body: body}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return dapperr.Wrap(dapperr.ProtocolError, "encode launcher event", err)
	}
	return m.writeFrame(framing.IPCKindEvent, payload)
}

func (m *Manager) writeFrame(kind framing.IPCKind, payload []byte) error {
	m.wmu.Lock()
	defer m.wmu.Unlock()
	if _, err := m.writer.Write(framing.EncodeIPCFrame(kind, payload)); err != nil {
		return dapperr.Wrap(dapperr.TransportErrorKind, "write to launcher", err)
	}
	return m.writer.Flush()
}

func (m *Manager) fail(cause error) {
	m.closeMu.Lock()
	if m.closeErr == nil {
		m.closeErr = cause
	}
	m.closeMu.Unlock()
	m.pending.drain(cause)
}

// Close is idempotent: repeated calls after the first return the same
// outcome without re-closing the underlying connection.
func (m *Manager) Close() error {
	if !m.closing.CompareAndSwap(false, true) {
		<-m.done
		m.closeMu.Lock()
		defer m.closeMu.Unlock()
		return m.closeErr
	}
	m.pending.drain(dapperr.ErrSessionShuttingDown)
	err := m.conn.Close()
	<-m.done
	if err != nil {
		err = fmt.Errorf("ipcmanager: close: %w", err)
	}
	m.closeMu.Lock()
	m.closeErr = err
	m.closeMu.Unlock()
	return err
}
