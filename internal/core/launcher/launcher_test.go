package launcher

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jnsquire/dapper/internal/core/executor"
	"github.com/jnsquire/dapper/internal/core/framing"
)

type stubExecutor struct {
	evalResult string
	hits       chan executor.HitResult
}

func newStubExecutor() *stubExecutor {
	return &stubExecutor{hits: make(chan executor.HitResult, 4)}
}

func (s *stubExecutor) SetLineBreakpoints(ctx context.Context, path string, lines []int) error {
	return nil
}
func (s *stubExecutor) SetWatch(ctx context.Context, dataID string, access string) error { return nil }
func (s *stubExecutor) Resume(ctx context.Context, threadID int, mode string) error       { return nil }
func (s *stubExecutor) Evaluate(ctx context.Context, frameID int, expression string) (string, error) {
	return s.evalResult, nil
}
func (s *stubExecutor) Hits() <-chan executor.HitResult { return s.hits }

func readResponse(t *testing.T, r *bufio.Reader) responseEnvelope {
	t.Helper()
	frame, err := framing.ReadIPCFrame(r)
	require.NoError(t, err)
	require.Equal(t, framing.IPCKindResponse, frame.Kind)
	var resp responseEnvelope
	require.NoError(t, json.Unmarshal(frame.Payload, &resp))
	return resp
}

func TestLauncher_DispatchesKnownCommand(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	ex := newStubExecutor()
	ex.evalResult = "7"
	l := New(serverConn, ex, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	cmd, err := json.Marshal(commandEnvelope{ID: "1", Method: "evaluate", Args: json.RawMessage(`{"frameId":1,"expression":"x"}`)})
	require.NoError(t, err)
	_, err = clientConn.Write(framing.EncodeIPCFrame(framing.IPCKindCommand, cmd))
	require.NoError(t, err)

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	resp := readResponse(t, bufio.NewReader(clientConn))
	assert.Equal(t, "1", resp.ID)
	assert.Empty(t, resp.Error)

	var body struct {
		Result string `json:"result"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &body))
	assert.Equal(t, "7", body.Result)
}

func TestLauncher_UnsupportedCommandRespondsWithError(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	l := New(serverConn, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	cmd, err := json.Marshal(commandEnvelope{ID: "2", Method: "bogusMethod"})
	require.NoError(t, err)
	_, err = clientConn.Write(framing.EncodeIPCFrame(framing.IPCKindCommand, cmd))
	require.NoError(t, err)

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	resp := readResponse(t, bufio.NewReader(clientConn))
	assert.Equal(t, "2", resp.ID)
	assert.NotEmpty(t, resp.Error)
}

func TestLauncher_NoExecutorRejectsTracerCommands(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	l := New(serverConn, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	cmd, err := json.Marshal(commandEnvelope{ID: "3", Method: "resume", Args: json.RawMessage(`{}`)})
	require.NoError(t, err)
	_, err = clientConn.Write(framing.EncodeIPCFrame(framing.IPCKindCommand, cmd))
	require.NoError(t, err)

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	resp := readResponse(t, bufio.NewReader(clientConn))
	assert.NotEmpty(t, resp.Error)
}

func TestLauncher_SendEventWritesEventFrame(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	l := New(serverConn, nil, nil)
	done := make(chan error, 1)
	go func() { done <- l.SendEvent("output", map[string]string{"text": "hi"}) }()

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	frame, err := framing.ReadIPCFrame(bufio.NewReader(clientConn))
	require.NoError(t, err)
	assert.Equal(t, framing.IPCKindEvent, frame.Kind)
	require.NoError(t, <-done)
}

func TestLauncher_ForwardsExecutorHitsAsStoppedEvents(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	ex := newStubExecutor()
	l := New(serverConn, ex, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	ex.hits <- executor.HitResult{ThreadID: 3, Reason: "breakpoint"}

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	frame, err := framing.ReadIPCFrame(bufio.NewReader(clientConn))
	require.NoError(t, err)
	assert.Equal(t, framing.IPCKindEvent, frame.Kind)
	assert.Contains(t, string(frame.Payload), `"threadId":3`)
}
