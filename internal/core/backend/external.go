package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/google/shlex"

	"github.com/jnsquire/dapper/internal/core/dapperr"
	"github.com/jnsquire/dapper/internal/core/ipcmanager"
	"github.com/jnsquire/dapper/internal/core/transport"
	"github.com/jnsquire/dapper/internal/models"
)

// ExternalBackend spawns a dapper-launcher subprocess and drives it over
// the IPC transport.
type ExternalBackend struct {
	mu  sync.Mutex
	cmd *exec.Cmd
	ptm *os.File

	ipc     *ipcmanager.Manager
	timeout time.Duration

	output *OutputStream

	launcherPath string
	routeEvent   ipcmanager.EventHandler
}

// ExternalOptions configures how the launcher subprocess is found and run.
type ExternalOptions struct {
	LauncherPath   string // path to the dapper-launcher binary
	CommandTimeout time.Duration
	OutputCapacity int
	OnOutput       func(models.OutputLine)
}

// NewExternalBackend prepares (but does not yet launch) an external
// backend. routeEvent receives every launcher event frame once Launch or
// Attach establishes the IPC connection; callers pass their
// router.Router.Route method here so events are classified the same way
// regardless of which backend variant produced them.
func NewExternalBackend(opts ExternalOptions, routeEvent ipcmanager.EventHandler) *ExternalBackend {
	return &ExternalBackend{
		timeout:      opts.CommandTimeout,
		launcherPath: opts.LauncherPath,
		output:       NewOutputStream(opts.OutputCapacity, opts.OnOutput),
		routeEvent:   routeEvent,
	}
}

// Launch spawns the launcher subprocess with the given debuggee config,
// waits for it to establish the IPC connection, and forwards its
// stdout/stderr into the output ring buffer.
func (b *ExternalBackend) Launch(ctx context.Context, cfg models.LaunchConfig) error {
	addr := transport.Resolve(transport.Address{Kind: transport.KindAuto})
	listener, err := transport.Listen(addr)
	if err != nil {
		return dapperr.Wrap(dapperr.TransportErrorKind, "listen for launcher IPC", err)
	}
	defer listener.Close()

	argv, err := buildLauncherArgv(cfg, listener.Addr())
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, b.launcherPath, argv...)
	cmd.Dir = cfg.WorkingDir
	cmd.Env = os.Environ()
	for k, v := range cfg.Environment {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	if cfg.UsePTY {
		if err := b.startWithPTY(cmd); err != nil {
			return err
		}
	} else {
		if err := b.startWithPipes(cmd); err != nil {
			return err
		}
	}

	acceptCtx, cancel := context.WithTimeout(ctx, b.acceptTimeout())
	defer cancel()
	conn, err := listener.Accept(acceptCtx)
	if err != nil {
		return dapperr.Wrap(dapperr.TransportErrorKind, "accept launcher IPC connection", err)
	}

	b.mu.Lock()
	b.ipc = ipcmanager.New(conn, b.routeEvent, nil)
	b.mu.Unlock()
	b.ipc.Start(ctx)

	return nil
}

func (b *ExternalBackend) acceptTimeout() time.Duration {
	if b.timeout <= 0 {
		return DefaultCommandTimeout
	}
	return b.timeout
}

// Attach connects to an already-running launcher's IPC endpoint, including
// over SSH when cfg.Remote is set.
func (b *ExternalBackend) Attach(ctx context.Context, cfg AttachConfig) error {
	addr := attachAddress(cfg)

	var conn transport.Connection
	var err error
	if cfg.Remote != nil {
		conn, err = transport.DialRemote(ctx, transport.RemoteEndpoint{
			Host:           cfg.Remote.Host,
			User:           cfg.Remote.User,
			KeyPath:        cfg.Remote.KeyPath,
			KnownHostsPath: cfg.Remote.KnownHostsPath,
		}, addr)
	} else {
		conn, err = transport.Connect(ctx, addr, b.acceptTimeout())
	}
	if err != nil {
		return dapperr.Wrap(dapperr.TransportErrorKind, "attach to launcher IPC", err)
	}

	b.mu.Lock()
	b.ipc = ipcmanager.New(conn, b.routeEvent, nil)
	b.mu.Unlock()
	b.ipc.Start(ctx)
	return nil
}

func attachAddress(cfg AttachConfig) transport.Address {
	switch transport.ParseKind(cfg.IPCTransport) {
	case transport.KindTCP:
		return transport.Address{Kind: transport.KindTCP, Host: cfg.IPCHost, Port: cfg.IPCPort}
	case transport.KindUnix:
		return transport.Address{Kind: transport.KindUnix, Path: cfg.IPCPath}
	case transport.KindPipe:
		return transport.Address{Kind: transport.KindPipe, Pipe: cfg.IPCPipeName}
	default:
		return transport.Resolve(transport.Address{Kind: transport.KindAuto})
	}
}

func (b *ExternalBackend) startWithPTY(cmd *exec.Cmd) error {
	ptm, err := pty.Start(cmd)
	if err != nil {
		return dapperr.Wrap(dapperr.BackendError, "start launcher with pty", err)
	}
	b.mu.Lock()
	b.cmd = cmd
	b.ptm = ptm
	b.mu.Unlock()

	go b.output.Pump(ptm, models.OutputCategoryStdout, b.stamp)
	return nil
}

func (b *ExternalBackend) startWithPipes(cmd *exec.Cmd) error {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return dapperr.Wrap(dapperr.BackendError, "open launcher stdout", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return dapperr.Wrap(dapperr.BackendError, "open launcher stderr", err)
	}
	if err := cmd.Start(); err != nil {
		return dapperr.Wrap(dapperr.BackendError, "start launcher", err)
	}

	b.mu.Lock()
	b.cmd = cmd
	b.mu.Unlock()

	go b.output.Pump(stdout, models.OutputCategoryStdout, b.stamp)
	go b.output.Pump(stderr, models.OutputCategoryStderr, b.stamp)
	return nil
}

func (b *ExternalBackend) stamp() models.OutputLine {
	return models.OutputLine{Timestamp: time.Now()}
}

// Execute issues command to the launcher over IPC, applying the shared
// command timeout policy.
func (b *ExternalBackend) Execute(ctx context.Context, command string, args any) (json.RawMessage, error) {
	b.mu.Lock()
	ipc := b.ipc
	b.mu.Unlock()
	if ipc == nil {
		return nil, dapperr.New(dapperr.PreconditionFailed, "backend not connected")
	}

	return withTimeout(ctx, b.timeout, func(cctx context.Context) (json.RawMessage, error) {
		return ipc.SendCommand(cctx, command, args, b.acceptTimeout())
	})
}

func (b *ExternalBackend) SupportsSubprocessAutoAttach() bool { return true }

// Close tears down the IPC connection and, if still running, the launcher
// subprocess, idempotently.
func (b *ExternalBackend) Close(ctx context.Context) error {
	b.mu.Lock()
	ipc := b.ipc
	cmd := b.cmd
	ptm := b.ptm
	b.ipc = nil
	b.cmd = nil
	b.ptm = nil
	b.mu.Unlock()

	var firstErr error
	if ipc != nil {
		if err := ipc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if ptm != nil {
		_ = ptm.Close()
	}
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	}
	return firstErr
}

// launchTarget resolves the launcher argv's target-selection flag and its
// own positional value from cfg: program or module are mutually
// exclusive. A program value containing embedded whitespace (e.g.
// forwarded unparsed by an older client integration) is split with shlex
// the way a shell would, rather than passed through as one malformed
// argv entry. The debuggee's own arguments are never appended here - the
// launcher only recognizes them as repeatable `--arg` flags, never as
// positionals - see buildLauncherArgv.
func launchTarget(cfg models.LaunchConfig) (flag string, args []string, err error) {
	switch {
	case cfg.Program != "":
		parts, splitErr := shlex.Split(cfg.Program)
		if splitErr != nil || len(parts) == 0 {
			return "--program", []string{cfg.Program}, nil
		}
		return "--program", parts, nil
	case cfg.Module != "":
		return "--module", []string{cfg.Module}, nil
	default:
		return "", nil, dapperr.New(dapperr.PreconditionFailed, "launch requires program or module")
	}
}

// buildLauncherArgv assembles the full dapper-launcher argv for cfg: the
// target selection flag, the debuggee's own arguments (any embedded in a
// split program string first, then cfg.Args) as repeatable `--arg` flags
// (the launcher ignores positionals), module search paths,
// the stop-on-entry/no-debug flags, the IPC endpoint flags, and finally
// `--cwd`.
func buildLauncherArgv(cfg models.LaunchConfig, addr transport.Address) ([]string, error) {
	targetFlag, targetArgs, err := launchTarget(cfg)
	if err != nil {
		return nil, err
	}

	argv := []string{targetFlag, targetArgs[0]}
	for _, a := range targetArgs[1:] {
		argv = append(argv, "--arg", a)
	}
	for _, a := range cfg.Args {
		argv = append(argv, "--arg", a)
	}
	for _, p := range cfg.ModuleSearchPaths {
		argv = append(argv, "--module-search-path", p)
	}
	if cfg.StopOnEntry {
		argv = append(argv, "--stop-on-entry")
	}
	if cfg.NoDebug {
		argv = append(argv, "--no-debug")
	}
	argv = append(argv, ipcFlags(addr)...)
	if cfg.WorkingDir != "" {
		argv = append(argv, "--cwd", cfg.WorkingDir)
	}
	return argv, nil
}

func ipcFlags(addr transport.Address) []string {
	switch addr.Kind {
	case transport.KindTCP:
		return []string{"--ipc", "tcp", "--ipc-host", addr.Host, "--ipc-port", strconv.Itoa(addr.Port)}
	case transport.KindUnix:
		return []string{"--ipc", "unix", "--ipc-path", addr.Path}
	case transport.KindPipe:
		return []string{"--ipc", "pipe", "--ipc-pipe", addr.Pipe}
	default:
		return nil
	}
}
