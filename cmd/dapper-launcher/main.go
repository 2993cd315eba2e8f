// Command dapper-launcher is the subprocess the external backend spawns:
// it dials the adapter's IPC endpoint, then answers Command frames and
// emits Event frames over it. It embeds no concrete tracer; the handful of operations a
// real tracer would implement are answered by the stub handlers in
// internal/core/launcher until a language-specific executor is wired in.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jnsquire/dapper/internal/core/config"
	"github.com/jnsquire/dapper/internal/core/launcher"
	dapperlog "github.com/jnsquire/dapper/internal/core/log"
	"github.com/jnsquire/dapper/internal/core/transport"
)

type launcherFlags struct {
	ipcTransport string
	ipcHost      string
	ipcPort      int
	ipcPath      string
	ipcPipe      string

	program           string
	module            string
	code              string
	programArgs       []string
	moduleSearchPaths []string
	stopOnEntry       bool
	noDebug           bool
	cwd               string

	connectBudget time.Duration
}

func main() {
	flags := &launcherFlags{}

	root := &cobra.Command{
		Use:   "dapper-launcher",
		Short: "Run the Dapper launcher: dial the adapter's IPC endpoint and serve tracer commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), flags)
		},
	}

	f := root.Flags()
	f.StringVar(&flags.ipcTransport, "ipc", "auto", "IPC transport: pipe, unix, tcp, auto")
	f.StringVar(&flags.ipcHost, "ipc-host", "127.0.0.1", "adapter IPC host (tcp)")
	f.IntVar(&flags.ipcPort, "ipc-port", 0, "adapter IPC port (tcp)")
	f.StringVar(&flags.ipcPath, "ipc-path", "", "adapter IPC unix socket path (unix)")
	f.StringVar(&flags.ipcPipe, "ipc-pipe", "", "adapter IPC named pipe (pipe)")

	f.StringVar(&flags.program, "program", "", "path to the program to debug (mutually exclusive with --module/--code)")
	f.StringVar(&flags.module, "module", "", "module name to debug (mutually exclusive with --program/--code)")
	f.StringVar(&flags.code, "code", "", "inline source to debug (mutually exclusive with --program/--module)")
	f.StringArrayVar(&flags.programArgs, "arg", nil, "argument to pass to the debuggee (repeatable)")
	f.StringArrayVar(&flags.moduleSearchPaths, "module-search-path", nil, "additional module search path (repeatable)")
	f.BoolVar(&flags.stopOnEntry, "stop-on-entry", false, "pause before the debuggee's first line executes")
	f.BoolVar(&flags.noDebug, "no-debug", false, "run the debuggee without installing any tracer")
	f.StringVar(&flags.cwd, "cwd", "", "working directory for the debuggee")

	f.DurationVar(&flags.connectBudget, "connect-timeout", 5*time.Second, "wall-clock budget for connecting to the adapter")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "dapper-launcher:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, flags *launcherFlags) error {
	if err := validateTarget(flags); err != nil {
		return err
	}

	logCfg := config.LogConfig{Level: "info", Format: "text"}
	logger := dapperlog.New(logCfg)

	addr, err := resolveAddr(flags)
	if err != nil {
		return err
	}

	conn, err := transport.Connect(ctx, addr, flags.connectBudget)
	if err != nil {
		return fmt.Errorf("connect to adapter: %w", err)
	}
	defer conn.Close()

	// No concrete, language-specific executor is embedded in this binary;
	// every command answers with the package's stub handlers until a host
	// program constructs its own executor.BreakpointExecutor and passes it
	// to launcher.New.
	l := launcher.New(conn, nil, logger)

	if flags.noDebug {
		logger.Info("running without a tracer", "program", flags.program, "module", flags.module)
	}
	if flags.stopOnEntry {
		_ = l.SendEvent("stopped", struct {
			Reason   string `json:"reason"`
			ThreadId int    `json:"threadId"`
		}{Reason: "entry", ThreadId: 1})
	}

	return l.Run(ctx)
}

func validateTarget(flags *launcherFlags) error {
	count := 0
	if flags.program != "" {
		count++
	}
	if flags.module != "" {
		count++
	}
	if flags.code != "" {
		count++
	}
	if count != 1 {
		return fmt.Errorf("exactly one of --program, --module, --code is required")
	}
	return nil
}

func resolveAddr(flags *launcherFlags) (transport.Address, error) {
	switch transport.ParseKind(flags.ipcTransport) {
	case transport.KindTCP:
		if flags.ipcPort == 0 {
			return transport.Address{}, fmt.Errorf("--ipc tcp requires --ipc-port")
		}
		return transport.Address{Kind: transport.KindTCP, Host: flags.ipcHost, Port: flags.ipcPort}, nil
	case transport.KindUnix:
		if flags.ipcPath == "" {
			return transport.Address{}, fmt.Errorf("--ipc unix requires --ipc-path")
		}
		return transport.Address{Kind: transport.KindUnix, Path: flags.ipcPath}, nil
	case transport.KindPipe:
		if flags.ipcPipe == "" {
			return transport.Address{}, fmt.Errorf("--ipc pipe requires --ipc-pipe")
		}
		return transport.Address{Kind: transport.KindPipe, Pipe: flags.ipcPipe}, nil
	default:
		return transport.Resolve(transport.Address{Kind: transport.KindAuto}), nil
	}
}
