// Package transport provides the Listener/Connection abstraction
// requires for both the client-facing DAP endpoint and the adapter-to-
// launcher IPC endpoint: TCP loopback, Unix domain sockets, and (on
// Windows) named pipes behind one interface.
package transport

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/google/uuid"
)

// Connection is a bidirectional byte stream, closeable independently of
// the listener that produced it.
type Connection interface {
	io.ReadWriteCloser
}

// Listener accepts Connections.
type Listener interface {
	Accept(ctx context.Context) (Connection, error)
	Addr() Address
	Close() error
}

// Kind enumerates the address variants.
type Kind int

const (
	KindAuto Kind = iota
	KindTCP
	KindUnix
	KindPipe
)

func ParseKind(s string) Kind {
	switch s {
	case "tcp":
		return KindTCP
	case "unix":
		return KindUnix
	case "pipe":
		return KindPipe
	default:
		return KindAuto
	}
}

// Address identifies where to listen or connect. Only the fields relevant
// to Kind are populated.
type Address struct {
	Kind Kind
	Host string // TCP
	Port int    // TCP
	Path string // Unix domain socket path
	Pipe string // Windows named pipe name
}

func (a Address) String() string {
	switch a.Kind {
	case KindTCP:
		return fmt.Sprintf("tcp://%s:%d", a.Host, a.Port)
	case KindUnix:
		return fmt.Sprintf("unix://%s", a.Path)
	case KindPipe:
		return fmt.Sprintf("pipe://%s", a.Pipe)
	default:
		return "auto"
	}
}

// Resolve applies the transport selection policy when Kind is KindAuto:
// Windows prefers a named pipe; everything else prefers a Unix domain
// socket, falling back to TCP loopback on an ephemeral port.
func Resolve(requested Address) Address {
	if requested.Kind != KindAuto {
		return requested
	}
	if runtime.GOOS == "windows" {
		if requested.Pipe == "" {
			requested.Pipe = `\\.\pipe\dapper-` + uuid.NewString()
		}
		requested.Kind = KindPipe
		return requested
	}
	if unixSocketsSupported() {
		if requested.Path == "" {
			requested.Path = defaultUnixSocketPath()
		}
		requested.Kind = KindUnix
		return requested
	}
	requested.Kind = KindTCP
	if requested.Host == "" {
		requested.Host = "127.0.0.1"
	}
	return requested
}

// Listen opens a Listener for addr, dispatching to the TCP/Unix/pipe
// implementation by Kind. addr must already be resolved (Kind != KindAuto).
func Listen(addr Address) (Listener, error) {
	switch addr.Kind {
	case KindTCP:
		return listenTCP(addr)
	case KindUnix:
		return listenUnix(addr)
	case KindPipe:
		return listenPipe(addr)
	default:
		return nil, fmt.Errorf("transport: cannot listen on unresolved address %s", addr)
	}
}

// Connect dials addr, retrying with exponential backoff up to budget.
func Connect(ctx context.Context, addr Address, budget time.Duration) (Connection, error) {
	deadline := time.Now().Add(budget)
	backoff := 25 * time.Millisecond
	const maxBackoff = 1 * time.Second

	var lastErr error
	for {
		conn, err := dialOnce(ctx, addr)
		if err == nil {
			return conn, nil
		}
		lastErr = err

		if time.Now().Add(backoff).After(deadline) {
			return nil, fmt.Errorf("transport: connect to %s timed out after %s: %w", addr, budget, lastErr)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func dialOnce(ctx context.Context, addr Address) (Connection, error) {
	switch addr.Kind {
	case KindTCP:
		return dialTCP(ctx, addr)
	case KindUnix:
		return dialUnix(ctx, addr)
	case KindPipe:
		return dialPipe(ctx, addr)
	default:
		return nil, fmt.Errorf("transport: cannot dial unresolved address %s", addr)
	}
}
