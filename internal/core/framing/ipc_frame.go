package framing

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/jnsquire/dapper/internal/core/dapperr"
)

// IPCKind classifies an IPC frame's payload.
type IPCKind byte

const (
	IPCKindEvent    IPCKind = 1
	IPCKindCommand  IPCKind = 2
	IPCKindResponse IPCKind = 3
)

const (
	ipcMagic0   = 0x44 // 'D'
	ipcMagic1   = 0x50 // 'P'
	ipcVersion1 = 1
	ipcHeaderSize = 8
)

// IPCFrame is a decoded launcher-protocol message: its kind and raw JSON
// payload.
type IPCFrame struct {
	Kind    IPCKind
	Payload []byte
}

// EncodeIPCFrame serializes an 8-byte header (magic, version, kind,
// big-endian length) followed by payload.
func EncodeIPCFrame(kind IPCKind, payload []byte) []byte {
	out := make([]byte, ipcHeaderSize+len(payload))
	out[0] = ipcMagic0
	out[1] = ipcMagic1
	out[2] = ipcVersion1
	out[3] = byte(kind)
	binary.BigEndian.PutUint32(out[4:8], uint32(len(payload)))
	copy(out[ipcHeaderSize:], payload)
	return out
}

// ReadIPCFrame reads one frame from r. There is no resync on a framing
// error: a magic mismatch or truncation means the stream must be
// abandoned, so callers should close the connection on any error returned
// here rather than attempt to read another frame.
func ReadIPCFrame(r *bufio.Reader) (*IPCFrame, error) {
	header := make([]byte, ipcHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, dapperr.Wrap(dapperr.FramingErrorKind, "truncated IPC header", err)
	}

	if header[0] != ipcMagic0 || header[1] != ipcMagic1 {
		return nil, dapperr.New(dapperr.FramingErrorKind, "IPC magic mismatch")
	}
	if header[2] != ipcVersion1 {
		return nil, dapperr.New(dapperr.FramingErrorKind, "unsupported IPC version")
	}

	kind := IPCKind(header[3])
	switch kind {
	case IPCKindEvent, IPCKindCommand, IPCKindResponse:
	default:
		return nil, dapperr.New(dapperr.FramingErrorKind, "unknown IPC frame kind")
	}

	length := binary.BigEndian.Uint32(header[4:8])
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, dapperr.Wrap(dapperr.FramingErrorKind, "truncated IPC payload", err)
		}
	}

	return &IPCFrame{Kind: kind, Payload: payload}, nil
}
