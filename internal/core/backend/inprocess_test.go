package backend

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jnsquire/dapper/internal/core/dapperr"
	"github.com/jnsquire/dapper/internal/core/executor"
	"github.com/jnsquire/dapper/internal/models"
)

// namedExecutor is a minimal executor.BreakpointExecutor for exercising the
// in-process bridge without a real tracer.
type namedExecutor struct {
	lines      []int
	watches    map[string]string
	resumed    []string
	evalResult string
	evalErr    error
	hits       chan executor.HitResult
}

var _ executor.BreakpointExecutor = (*namedExecutor)(nil)

func (f *namedExecutor) SetLineBreakpoints(ctx context.Context, path string, lines []int) error {
	f.lines = lines
	return nil
}

func (f *namedExecutor) SetWatch(ctx context.Context, dataID string, access string) error {
	if f.watches == nil {
		f.watches = make(map[string]string)
	}
	f.watches[dataID] = access
	return nil
}

func (f *namedExecutor) Resume(ctx context.Context, threadID int, mode string) error {
	f.resumed = append(f.resumed, mode)
	return nil
}

func (f *namedExecutor) Evaluate(ctx context.Context, frameID int, expression string) (string, error) {
	return f.evalResult, f.evalErr
}

func (f *namedExecutor) Hits() <-chan executor.HitResult { return f.hits }

func TestInProcessBackend_LaunchRequiresExecutor(t *testing.T) {
	b := NewInProcessBackend(InProcessOptions{CommandTimeout: time.Second})
	err := b.Launch(context.Background(), models.LaunchConfig{})
	require.Error(t, err)
	assert.Equal(t, dapperr.PreconditionFailed, dapperr.KindOf(err))
}

func TestInProcessBackend_AttachAlwaysFails(t *testing.T) {
	b := NewInProcessBackend(InProcessOptions{CommandTimeout: time.Second})
	err := b.Attach(context.Background(), AttachConfig{})
	require.Error(t, err)
}

func TestInProcessBackend_SupportsSubprocessAutoAttachIsFalse(t *testing.T) {
	b := NewInProcessBackend(InProcessOptions{CommandTimeout: time.Second})
	assert.False(t, b.SupportsSubprocessAutoAttach())
}

func TestInProcessBackend_SetLineBreakpoints(t *testing.T) {
	ex := &namedExecutor{}
	b := NewInProcessBackend(InProcessOptions{Executor: ex, CommandTimeout: time.Second})
	defer b.Close(context.Background())

	_, err := b.Execute(context.Background(), "setLineBreakpoints", map[string]any{
		"path":  "/tmp/a.py",
		"lines": []any{float64(1), float64(2), float64(3)},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, ex.lines)
}

func TestInProcessBackend_SetWatch(t *testing.T) {
	ex := &namedExecutor{}
	b := NewInProcessBackend(InProcessOptions{Executor: ex, CommandTimeout: time.Second})
	defer b.Close(context.Background())

	_, err := b.Execute(context.Background(), "setWatch", map[string]any{
		"dataId": "obj.field",
		"access": "write",
	})
	require.NoError(t, err)
	assert.Equal(t, "write", ex.watches["obj.field"])
}

func TestInProcessBackend_Resume(t *testing.T) {
	ex := &namedExecutor{}
	b := NewInProcessBackend(InProcessOptions{Executor: ex, CommandTimeout: time.Second})
	defer b.Close(context.Background())

	_, err := b.Execute(context.Background(), "resume", map[string]any{
		"threadId": float64(1),
		"mode":     "next",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"next"}, ex.resumed)
}

func TestInProcessBackend_Evaluate(t *testing.T) {
	ex := &namedExecutor{evalResult: "42"}
	b := NewInProcessBackend(InProcessOptions{Executor: ex, CommandTimeout: time.Second})
	defer b.Close(context.Background())

	raw, err := b.Execute(context.Background(), "evaluate", map[string]any{
		"frameId":    float64(1),
		"expression": "x",
	})
	require.NoError(t, err)

	var body struct {
		Result string `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "42", body.Result)
}

func TestInProcessBackend_EvaluateError(t *testing.T) {
	ex := &namedExecutor{evalErr: errors.New("bad expression")}
	b := NewInProcessBackend(InProcessOptions{Executor: ex, CommandTimeout: time.Second})
	defer b.Close(context.Background())

	_, err := b.Execute(context.Background(), "evaluate", map[string]any{
		"frameId":    float64(1),
		"expression": "x",
	})
	require.Error(t, err)
}

func TestInProcessBackend_ResumeAcceptsPlainIntThreadID(t *testing.T) {
	ex := &namedExecutor{}
	b := NewInProcessBackend(InProcessOptions{Executor: ex, CommandTimeout: time.Second})
	defer b.Close(context.Background())

	// The handler layer builds this map directly (no JSON round trip), so
	// threadId arrives as a plain int, not a float64.
	_, err := b.Execute(context.Background(), "resume", map[string]any{
		"threadId": 1,
		"mode":     "continue",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"continue"}, ex.resumed)
}

func TestInProcessBackend_SetBreakpoint(t *testing.T) {
	ex := &namedExecutor{}
	b := NewInProcessBackend(InProcessOptions{Executor: ex, CommandTimeout: time.Second})
	defer b.Close(context.Background())

	raw, err := b.Execute(context.Background(), "setBreakpoint", map[string]any{
		"path": "/tmp/a.py",
		"line": 7,
	})
	require.NoError(t, err)
	assert.Equal(t, []int{7}, ex.lines)

	var body struct {
		Verified   bool `json:"verified"`
		ActualLine int  `json:"actualLine"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.True(t, body.Verified)
	assert.Equal(t, 7, body.ActualLine)
}

func TestInProcessBackend_PauseAndTerminateAreNoOps(t *testing.T) {
	ex := &namedExecutor{}
	b := NewInProcessBackend(InProcessOptions{Executor: ex, CommandTimeout: time.Second})
	defer b.Close(context.Background())

	_, err := b.Execute(context.Background(), "pause", map[string]any{"threadId": 1})
	require.NoError(t, err)

	_, err = b.Execute(context.Background(), "terminate", nil)
	require.NoError(t, err)
}

func TestInProcessBackend_InspectionCommandsReturnStubs(t *testing.T) {
	ex := &namedExecutor{}
	b := NewInProcessBackend(InProcessOptions{Executor: ex, CommandTimeout: time.Second})
	defer b.Close(context.Background())

	raw, err := b.Execute(context.Background(), "threads", nil)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"name":"main"`)

	_, err = b.Execute(context.Background(), "stackTrace", nil)
	require.NoError(t, err)

	_, err = b.Execute(context.Background(), "scopes", nil)
	require.NoError(t, err)

	_, err = b.Execute(context.Background(), "variables", nil)
	require.NoError(t, err)

	_, err = b.Execute(context.Background(), "setVariable", nil)
	require.Error(t, err)
	assert.Equal(t, dapperr.CapabilityViolation, dapperr.KindOf(err))

	_, err = b.Execute(context.Background(), "source", nil)
	require.Error(t, err)

	_, err = b.Execute(context.Background(), "exceptionInfo", nil)
	require.Error(t, err)
}

func TestInProcessBackend_UnsupportedCommand(t *testing.T) {
	ex := &namedExecutor{}
	b := NewInProcessBackend(InProcessOptions{Executor: ex, CommandTimeout: time.Second})
	defer b.Close(context.Background())

	_, err := b.Execute(context.Background(), "bogus", map[string]any{})
	require.Error(t, err)
	assert.Equal(t, dapperr.ProtocolError, dapperr.KindOf(err))
}

func TestInProcessBackend_ExecuteWithoutExecutor(t *testing.T) {
	b := NewInProcessBackend(InProcessOptions{CommandTimeout: time.Second})
	_, err := b.Execute(context.Background(), "resume", map[string]any{})
	require.Error(t, err)
	assert.Equal(t, dapperr.PreconditionFailed, dapperr.KindOf(err))
}

func TestInProcessBackend_ForwardsHitsAsStoppedEvents(t *testing.T) {
	ex := &namedExecutor{hits: make(chan executor.HitResult, 1)}
	var gotName string
	var gotBody json.RawMessage
	done := make(chan struct{})
	b := NewInProcessBackend(InProcessOptions{
		Executor:       ex,
		CommandTimeout: time.Second,
		OnEvent: func(name string, body json.RawMessage) {
			gotName = name
			gotBody = body
			close(done)
		},
	})
	defer b.Close(context.Background())

	ex.hits <- executor.HitResult{ThreadID: 7, Reason: "breakpoint"}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for forwarded event")
	}
	assert.Equal(t, "stopped", gotName)
	assert.Contains(t, string(gotBody), `"threadId":7`)
}
