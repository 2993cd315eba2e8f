//go:build windows

package transport

import (
	"context"
	"fmt"
	"net"

	winio "github.com/Microsoft/go-winio"
)

type pipeListener struct {
	ln   net.Listener
	addr Address
}

func listenPipe(addr Address) (Listener, error) {
	ln, err := winio.ListenPipe(addr.Pipe, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: pipe listen: %w", err)
	}
	return &pipeListener{ln: ln, addr: addr}, nil
}

func (l *pipeListener) Accept(ctx context.Context) (Connection, error) {
	type result struct {
		conn Connection
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

func (l *pipeListener) Addr() Address { return l.addr }
func (l *pipeListener) Close() error  { return l.ln.Close() }

func dialPipe(ctx context.Context, addr Address) (Connection, error) {
	conn, err := winio.DialPipeContext(ctx, addr.Pipe)
	if err != nil {
		return nil, fmt.Errorf("transport: pipe dial: %w", err)
	}
	return conn, nil
}
