//go:build !windows

package transport

import (
	"context"
	"fmt"
)

// Named pipes are a Windows-only address kind; the transport
// selection policy never resolves KindAuto to KindPipe off Windows, so this
// only triggers when a client explicitly asks for ipcTransport="pipe" on a
// non-Windows host.
func listenPipe(addr Address) (Listener, error) {
	return nil, fmt.Errorf("transport: named pipes are not supported on this platform")
}

func dialPipe(ctx context.Context, addr Address) (Connection, error) {
	return nil, fmt.Errorf("transport: named pipes are not supported on this platform")
}
