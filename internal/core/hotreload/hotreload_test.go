package hotreload

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jnsquire/dapper/internal/core/backend"
	"github.com/jnsquire/dapper/internal/core/breakpoints"
	"github.com/jnsquire/dapper/internal/core/dapperr"
	"github.com/jnsquire/dapper/internal/core/session"
	"github.com/jnsquire/dapper/internal/models"
)

// fakeBackend answers "hotReload" and "setBreakpoint" commands with
// canned results so the Service's sequencing can be tested without a real
// launcher process.
type fakeBackend struct {
	hotReloadResult json.RawMessage
	hotReloadErr    error
	setBreakpointResult json.RawMessage
}

func (f *fakeBackend) Launch(ctx context.Context, cfg models.LaunchConfig) error { return nil }
func (f *fakeBackend) Attach(ctx context.Context, cfg backend.AttachConfig) error { return nil }
func (f *fakeBackend) SupportsSubprocessAutoAttach() bool                        { return false }
func (f *fakeBackend) Close(ctx context.Context) error                           { return nil }

func (f *fakeBackend) Execute(ctx context.Context, command string, args any) (json.RawMessage, error) {
	switch command {
	case "hotReload":
		return f.hotReloadResult, f.hotReloadErr
	case "setBreakpoint":
		return f.setBreakpointResult, nil
	default:
		return nil, dapperr.New(dapperr.ProtocolError, "unexpected command "+command)
	}
}

func newStoppedSession(t *testing.T, be backend.Backend) *session.Session {
	t.Helper()
	sess := session.New(nil, nil, nil)
	sess.AttachBackend(be)
	sess.State.SetStopped(true)
	return sess
}

func TestReload_RequiresStoppedSession(t *testing.T) {
	sess := session.New(nil, nil, nil)
	sess.AttachBackend(&fakeBackend{})

	svc := New(sess)
	_, err := svc.Reload(context.Background(), "/tmp/a.py", Options{})
	require.Error(t, err)
	assert.Equal(t, dapperr.PreconditionFailed, dapperr.KindOf(err))
}

func TestReload_RequiresPath(t *testing.T) {
	sess := newStoppedSession(t, &fakeBackend{})
	svc := New(sess)
	_, err := svc.Reload(context.Background(), "", Options{})
	require.Error(t, err)
}

func TestReload_Success(t *testing.T) {
	report, _ := json.Marshal(struct {
		Module           string   `json:"module"`
		Path             string   `json:"path"`
		ReboundFrames    int      `json:"reboundFrames"`
		UpdatedFrameCode int      `json:"updatedFrameCodes"`
		PatchedInstances int      `json:"patchedInstances"`
		Warnings         []string `json:"warnings"`
	}{Module: "a", Path: "/tmp/a.py", ReboundFrames: 2, UpdatedFrameCode: 1})

	be := &fakeBackend{hotReloadResult: report}
	sess := newStoppedSession(t, be)
	svc := New(sess)

	result, err := svc.Reload(context.Background(), "/tmp/a.py", Options{RebindFrameLocals: true})
	require.NoError(t, err)
	assert.Equal(t, "a", result.ReloadedModule)
	assert.Equal(t, "/tmp/a.py", result.ReloadedPath)
	assert.Equal(t, 2, result.ReboundFrames)
	assert.Equal(t, 1, result.UpdatedFrameCode)
	assert.Empty(t, result.Warnings)
}

func TestReload_BackendErrorWrapsAsHotReloadError(t *testing.T) {
	be := &fakeBackend{hotReloadErr: dapperr.New(dapperr.BackendError, "boom")}
	sess := newStoppedSession(t, be)
	svc := New(sess)

	_, err := svc.Reload(context.Background(), "/tmp/a.py", Options{})
	require.Error(t, err)
	assert.Equal(t, dapperr.HotReloadError, dapperr.KindOf(err))
}

func TestReload_MalformedBackendResultFails(t *testing.T) {
	be := &fakeBackend{hotReloadResult: json.RawMessage(`not json`)}
	sess := newStoppedSession(t, be)
	svc := New(sess)

	_, err := svc.Reload(context.Background(), "/tmp/a.py", Options{})
	require.Error(t, err)
	assert.Equal(t, dapperr.HotReloadError, dapperr.KindOf(err))
}

func TestReload_ResyncsExistingBreakpoints(t *testing.T) {
	report, _ := json.Marshal(struct {
		Module string `json:"module"`
		Path   string `json:"path"`
	}{Module: "a", Path: "/tmp/a.py"})
	bpResult, _ := json.Marshal(struct {
		Verified   bool `json:"verified"`
		ActualLine int  `json:"actualLine"`
	}{Verified: true, ActualLine: 11})

	be := &fakeBackend{hotReloadResult: report, setBreakpointResult: bpResult}
	sess := newStoppedSession(t, be)

	sess.Breakpoints.SetSourceBreakpoints("/tmp/a.py", []breakpoints.SourceBreakpoint{{Line: 10}}, func(bp *breakpoints.SourceBreakpoint) {
		bp.Verified = true
	})

	svc := New(sess)
	result, err := svc.Reload(context.Background(), "/tmp/a.py", Options{})
	require.NoError(t, err)
	assert.Equal(t, "a", result.ReloadedModule)

	resynced := sess.Breakpoints.SourceBreakpoints("/tmp/a.py")
	require.Len(t, resynced, 1)
	assert.True(t, resynced[0].Verified)
	assert.Equal(t, 11, resynced[0].ActualLine)
}
