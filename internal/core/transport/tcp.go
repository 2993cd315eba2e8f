package transport

import (
	"context"
	"fmt"
	"net"
)

type tcpListener struct {
	ln   net.Listener
	addr Address
}

func listenTCP(addr Address) (Listener, error) {
	host := addr.Host
	if host == "" {
		host = "127.0.0.1" // loopback by default
	}
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, addr.Port))
	if err != nil {
		return nil, fmt.Errorf("transport: tcp listen: %w", err)
	}

	tcpAddr := ln.Addr().(*net.TCPAddr)
	resolved := addr
	resolved.Host = host
	resolved.Port = tcpAddr.Port
	return &tcpListener{ln: ln, addr: resolved}, nil
}

func (l *tcpListener) Accept(ctx context.Context) (Connection, error) {
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

func (l *tcpListener) Addr() Address { return l.addr }
func (l *tcpListener) Close() error  { return l.ln.Close() }

func dialTCP(ctx context.Context, addr Address) (Connection, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", addr.Host, addr.Port))
	if err != nil {
		return nil, fmt.Errorf("transport: tcp dial: %w", err)
	}
	return conn, nil
}
