package transport

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

func unixSocketsSupported() bool { return true }

func defaultUnixSocketPath() string {
	return filepath.Join(os.TempDir(), "dapper-"+uuid.NewString()+".sock")
}

// unixListener owns its socket path and unlinks it on close.
type unixListener struct {
	ln   net.Listener
	addr Address
}

func listenUnix(addr Address) (Listener, error) {
	_ = os.Remove(addr.Path) // clear a stale socket file from a prior crash
	ln, err := net.Listen("unix", addr.Path)
	if err != nil {
		return nil, fmt.Errorf("transport: unix listen: %w", err)
	}
	return &unixListener{ln: ln, addr: addr}, nil
}

func (l *unixListener) Accept(ctx context.Context) (Connection, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := l.ln.Accept()
		done <- result{conn, err}
	}()

	select {
	case <-ctx.Done():
		l.ln.Close()
		return nil, ctx.Err()
	case r := <-done:
		return r.conn, r.err
	}
}

func (l *unixListener) Addr() Address { return l.addr }

func (l *unixListener) Close() error {
	err := l.ln.Close()
	os.Remove(l.addr.Path)
	return err
}

func dialUnix(ctx context.Context, addr Address) (Connection, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", addr.Path)
	if err != nil {
		return nil, fmt.Errorf("transport: unix dial: %w", err)
	}
	return conn, nil
}
