package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleCancel_CancelsByRequestID(t *testing.T) {
	cancelled := false
	RegisterRequest(4242, func() { cancelled = true })
	defer UnregisterRequest(4242)

	_, err := handleCancel(context.Background(), &Deps{}, []byte(`{"requestId":4242}`))
	require.NoError(t, err)
	assert.True(t, cancelled)
}

func TestHandleCancel_CancelsByProgressID(t *testing.T) {
	cancelled := false
	RegisterProgress("prog-1", func() { cancelled = true })
	defer UnregisterProgress("prog-1")

	_, err := handleCancel(context.Background(), &Deps{}, []byte(`{"progressId":"prog-1"}`))
	require.NoError(t, err)
	assert.True(t, cancelled)
}

func TestHandleCancel_UnknownIDIsNotAnError(t *testing.T) {
	_, err := handleCancel(context.Background(), &Deps{}, []byte(`{"requestId":99999}`))
	assert.NoError(t, err)
}

func TestUnregisterRequest_RemovesEntry(t *testing.T) {
	called := false
	RegisterRequest(7, func() { called = true })
	UnregisterRequest(7)

	_, err := handleCancel(context.Background(), &Deps{}, []byte(`{"requestId":7}`))
	require.NoError(t, err)
	assert.False(t, called, "cancel must not fire for an already-unregistered request")
}
