// Package framing implements the two wire codecs: the client-facing DAP
// text framing (LSP-style headers + JSON) and the adapter-to-launcher IPC
// binary framing. Both halves are pure byte transforms — no I/O — so they
// can be unit tested without a network.
package framing

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/jnsquire/dapper/internal/core/dapperr"
)

const headerContentLength = "content-length"

// DAPFrame is a decoded client-protocol message: its header set and raw
// JSON payload, prior to any dap.Message unmarshaling.
type DAPFrame struct {
	Headers map[string]string
	Payload []byte
}

// EncodeDAPFrame serializes payload with the single required
// Content-Length header, CRLF-terminated per the LSP-style framing.
func EncodeDAPFrame(payload []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Content-Length: %d\r\n\r\n", len(payload))
	buf.Write(payload)
	return buf.Bytes()
}

// ReadDAPFrame reads one frame from r: a run of "Header: value\r\n" lines
// terminated by a blank line, followed by exactly Content-Length bytes.
// Unknown headers are preserved but otherwise ignored. Returns a
// dapperr.ProtocolError on a missing/invalid length or on a read that runs
// out before Content-Length bytes are available.
func ReadDAPFrame(r *bufio.Reader) (*DAPFrame, error) {
	headers := make(map[string]string)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		headers[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}

	lenStr, ok := headers[headerContentLength]
	if !ok {
		return nil, dapperr.New(dapperr.ProtocolError, "missing Content-Length header")
	}
	length, err := strconv.Atoi(lenStr)
	if err != nil || length < 0 {
		return nil, dapperr.Wrap(dapperr.ProtocolError, "invalid Content-Length header", err)
	}

	payload := make([]byte, length)
	if length > 0 {
		if _, err := readFull(r, payload); err != nil {
			return nil, dapperr.Wrap(dapperr.ProtocolError, "truncated frame body", err)
		}
	}

	return &DAPFrame{Headers: headers, Payload: payload}, nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
