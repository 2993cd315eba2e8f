package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jnsquire/dapper/internal/core/backend"
	"github.com/jnsquire/dapper/internal/core/dapperr"
	"github.com/jnsquire/dapper/internal/models"
)

// recordingBackend captures the LaunchConfig it was given so tests can
// assert on how request arguments were threaded through.
type recordingBackend struct {
	launchCfg models.LaunchConfig
}

func (b *recordingBackend) Launch(ctx context.Context, cfg models.LaunchConfig) error {
	b.launchCfg = cfg
	return nil
}
func (b *recordingBackend) Attach(ctx context.Context, cfg backend.AttachConfig) error { return nil }
func (b *recordingBackend) Execute(ctx context.Context, command string, args any) (json.RawMessage, error) {
	return nil, nil
}
func (b *recordingBackend) SupportsSubprocessAutoAttach() bool { return false }
func (b *recordingBackend) Close(ctx context.Context) error     { return nil }

func TestHandleLaunch_ThreadsStopOnEntryNoDebugAndModuleSearchPaths(t *testing.T) {
	rb := &recordingBackend{}
	d := newTestDeps(DefaultCapabilities())
	d.NewBackend = func(inProcess bool) (backend.Backend, error) { return rb, nil }

	require.NoError(t, d.Session.Lifecycle.BeginInitialize())

	raw := []byte(`{"program":"/usr/bin/app","stopOnEntry":true,"noDebug":true,"moduleSearchPaths":["/srv/lib"],"args":["--flag"]}`)
	_, err := handleLaunch(context.Background(), d, raw)
	require.NoError(t, err)

	assert.True(t, rb.launchCfg.StopOnEntry)
	assert.True(t, rb.launchCfg.NoDebug)
	assert.Equal(t, []string{"/srv/lib"}, rb.launchCfg.ModuleSearchPaths)
	assert.Equal(t, []string{"--flag"}, rb.launchCfg.Args)
}

func TestHandleLaunch_RejectsDangerousArguments(t *testing.T) {
	rb := &recordingBackend{}
	d := newTestDeps(DefaultCapabilities())
	d.NewBackend = func(inProcess bool) (backend.Backend, error) { return rb, nil }

	raw := []byte(`{"program":"/usr/bin/app","args":["foo; rm -rf /"]}`)
	_, err := handleLaunch(context.Background(), d, raw)
	require.Error(t, err)
	assert.Equal(t, dapperr.PreconditionFailed, dapperr.KindOf(err))
}

func TestHandleLaunch_RejectsRelativeProgramPath(t *testing.T) {
	rb := &recordingBackend{}
	d := newTestDeps(DefaultCapabilities())
	d.NewBackend = func(inProcess bool) (backend.Backend, error) { return rb, nil }

	raw := []byte(`{"program":"relative/app.py"}`)
	_, err := handleLaunch(context.Background(), d, raw)
	require.Error(t, err)
	assert.Equal(t, dapperr.PreconditionFailed, dapperr.KindOf(err))
}

func TestHandleLaunch_ValidatesBinaryOfEmbeddedArgsProgram(t *testing.T) {
	rb := &recordingBackend{}
	d := newTestDeps(DefaultCapabilities())
	d.NewBackend = func(inProcess bool) (backend.Backend, error) { return rb, nil }

	require.NoError(t, d.Session.Lifecycle.BeginInitialize())

	raw := []byte(`{"program":"/usr/bin/app --flag value"}`)
	_, err := handleLaunch(context.Background(), d, raw)
	require.NoError(t, err)
}
