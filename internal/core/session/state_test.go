package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_StoppedFlag(t *testing.T) {
	s := NewState()
	assert.False(t, s.Stopped())

	s.SetStopped(true)
	assert.True(t, s.Stopped())
}

func TestState_Resume_InvalidatesFrameAndVarArenas(t *testing.T) {
	s := NewState()
	s.SetStopped(true)

	frame := s.AllocFrame(StackFrame{ThreadID: 1, Name: "main"})
	v := s.VarArena.Alloc("local")

	s.Resume()

	assert.False(t, s.Stopped())

	_, err := s.ResolveFrame(frame)
	assert.Error(t, err)

	_, err = s.VarArena.Resolve(v)
	assert.Error(t, err)
}

func TestState_BeginConfigurationDone_OnceOnly(t *testing.T) {
	s := NewState()

	assert.True(t, s.BeginConfigurationDone())
	assert.True(t, s.ConfigurationDone())

	assert.False(t, s.BeginConfigurationDone(), "second call reports already-done")
	assert.True(t, s.ConfigurationDone())
}

func TestState_Terminating(t *testing.T) {
	s := NewState()
	assert.False(t, s.Terminating())

	s.BeginTerminating()
	assert.True(t, s.Terminating())

	// Idempotent.
	s.BeginTerminating()
	assert.True(t, s.Terminating())
}

func TestState_AllocAndResolveFrame(t *testing.T) {
	s := NewState()
	frame := StackFrame{ThreadID: 2, Name: "foo", Line: 42}
	h := s.AllocFrame(frame)

	got, err := s.ResolveFrame(h)
	require.NoError(t, err)
	assert.Equal(t, frame, got)
}
