package framing

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jnsquire/dapper/internal/core/dapperr"
)

func TestDAPFrame_RoundTrip(t *testing.T) {
	payload := []byte(`{"seq":1,"type":"request","command":"initialize"}`)
	encoded := EncodeDAPFrame(payload)

	frame, err := ReadDAPFrame(bufio.NewReader(bytes.NewReader(encoded)))
	require.NoError(t, err)
	assert.Equal(t, payload, frame.Payload)
	assert.Equal(t, "49", frame.Headers[headerContentLength])
}

func TestDAPFrame_EmptyPayload(t *testing.T) {
	encoded := EncodeDAPFrame(nil)
	frame, err := ReadDAPFrame(bufio.NewReader(bytes.NewReader(encoded)))
	require.NoError(t, err)
	assert.Empty(t, frame.Payload)
}

func TestDAPFrame_MultipleHeadersPreserved(t *testing.T) {
	raw := "Content-Length: 2\r\nX-Custom: value\r\n\r\n{}"
	frame, err := ReadDAPFrame(bufio.NewReader(bytes.NewReader([]byte(raw))))
	require.NoError(t, err)
	assert.Equal(t, "value", frame.Headers["x-custom"])
	assert.Equal(t, []byte("{}"), frame.Payload)
}

func TestDAPFrame_MissingContentLength(t *testing.T) {
	raw := "X-Custom: value\r\n\r\n"
	_, err := ReadDAPFrame(bufio.NewReader(bytes.NewReader([]byte(raw))))
	require.Error(t, err)
	assert.Equal(t, dapperr.ProtocolError, dapperr.KindOf(err))
}

func TestDAPFrame_InvalidContentLength(t *testing.T) {
	raw := "Content-Length: notanumber\r\n\r\n"
	_, err := ReadDAPFrame(bufio.NewReader(bytes.NewReader([]byte(raw))))
	require.Error(t, err)
	assert.Equal(t, dapperr.ProtocolError, dapperr.KindOf(err))
}

func TestDAPFrame_TruncatedBody(t *testing.T) {
	raw := "Content-Length: 10\r\n\r\nshort"
	_, err := ReadDAPFrame(bufio.NewReader(bytes.NewReader([]byte(raw))))
	require.Error(t, err)
	assert.Equal(t, dapperr.ProtocolError, dapperr.KindOf(err))
}
