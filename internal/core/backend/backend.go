// Package backend implements the polymorphic executor of adapter
// operations against a debuggee: an external subprocess
// launcher variant communicating over IPC, and an in-process bridge
// variant for an embedded debuggee. Both satisfy the same Backend
// contract so the request handlers never branch on which is active.
package backend

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jnsquire/dapper/internal/models"
)

// EventHandler receives a normalized debuggee event regardless of which
// backend variant produced it: "stopped", "output", "thread", "module",
// "process", "exited", "terminated", "breakpoint", "loadedSource", or the
// custom "dapper/hotReloadResult" / "dapper/childProcess".
type EventHandler func(name string, body json.RawMessage)

// AttachConfig is the adapter-facing subset of an `attach` request's
// arguments, including the remote-attach extension.
type AttachConfig struct {
	InProcess bool
	UseIPC    bool

	IPCTransport string
	IPCHost      string
	IPCPort      int
	IPCPath      string
	IPCPipeName  string

	Remote *RemoteAttach
}

// RemoteAttach carries the `attach.remote` block: the launcher's IPC
// endpoint is reached over SSH instead of a local transport.
type RemoteAttach struct {
	Host           string
	User           string
	KeyPath        string
	KnownHostsPath string
}

// Backend is the contract both variants satisfy. Every operation returns a
// typed body (as JSON, decoded by the caller into the expected DAP shape)
// or an error.
type Backend interface {
	// Launch spawns or connects the debuggee and runs its own
	// initialization handshake.
	Launch(ctx context.Context, cfg models.LaunchConfig) error

	// Attach connects to an already-running or in-process debuggee.
	Attach(ctx context.Context, cfg AttachConfig) error

	// Execute issues one backend command (e.g. "setBreakpoints",
	// "stackTrace", "evaluate") and returns its raw JSON result or an
	// error, respecting the per-operation timeout policy.
	Execute(ctx context.Context, command string, args any) (json.RawMessage, error)

	// SupportsSubprocessAutoAttach reports whether this backend variant
	// can forward `dapper/childProcess` events. The in-process bridge
	// never can: it has no child-process boundary to observe.
	SupportsSubprocessAutoAttach() bool

	// Close tears down the backend's resources: subprocess, IPC
	// connection, or in-process executor, idempotently.
	Close(ctx context.Context) error
}

// DefaultCommandTimeout is used when a caller doesn't specify one.
const DefaultCommandTimeout = 10 * time.Second
