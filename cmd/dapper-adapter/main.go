// Command dapper-adapter is the client-facing half of the adapter: it
// speaks DAP text framing over stdio or a listening transport, dispatches
// every request through internal/core/handlers, and drives exactly one
// session for the lifetime of the connection.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jnsquire/dapper/internal/core/backend"
	"github.com/jnsquire/dapper/internal/core/config"
	"github.com/jnsquire/dapper/internal/core/framing"
	"github.com/jnsquire/dapper/internal/core/handlers"
	"github.com/jnsquire/dapper/internal/core/hotreload"
	dapperlog "github.com/jnsquire/dapper/internal/core/log"
	"github.com/jnsquire/dapper/internal/core/session"
	"github.com/jnsquire/dapper/internal/models"
)

type adapterFlags struct {
	configDir    string
	launcherPath string
	logLevel     string
	logFormat    string

	listenTransport string
	listenHost      string
	listenPort      int
}

func main() {
	flags := &adapterFlags{}

	root := &cobra.Command{
		Use:   "dapper-adapter",
		Short: "Run the Dapper debug adapter over a DAP client connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), flags)
		},
	}

	root.Flags().StringVar(&flags.configDir, "config-dir", ".", "directory containing .dapper.toml")
	root.Flags().StringVar(&flags.launcherPath, "launcher", "dapper-launcher", "path to the dapper-launcher binary")
	root.Flags().StringVar(&flags.logLevel, "log-level", "", "override the configured log level")
	root.Flags().StringVar(&flags.logFormat, "log-format", "", "override the configured log format")
	root.Flags().StringVar(&flags.listenTransport, "listen", "stdio", "client transport: stdio, tcp")
	root.Flags().StringVar(&flags.listenHost, "listen-host", "127.0.0.1", "host to listen on when --listen=tcp")
	root.Flags().IntVar(&flags.listenPort, "listen-port", 0, "port to listen on when --listen=tcp (0 picks an ephemeral port)")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "dapper-adapter:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, flags *adapterFlags) error {
	cfg, err := config.Load(flags.configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Log.Format = flags.logFormat
	}
	logger := dapperlog.New(cfg.Log)

	conn, err := dialClient(ctx, flags)
	if err != nil {
		return fmt.Errorf("establish client transport: %w", err)
	}
	defer conn.Close()

	return serve(ctx, conn, cfg, flags, logger)
}

// dialClient resolves the client-facing transport: stdio (the common case
// for editor-spawned adapters) or a TCP listener for standalone use.
func dialClient(ctx context.Context, flags *adapterFlags) (io.ReadWriteCloser, error) {
	switch flags.listenTransport {
	case "stdio", "":
		return stdioConn{}, nil
	case "tcp":
		ln, err := net.Listen("tcp", net.JoinHostPort(flags.listenHost, strconv.Itoa(flags.listenPort)))
		if err != nil {
			return nil, err
		}
		defer ln.Close()
		fmt.Fprintln(os.Stderr, "dapper-adapter: listening on", ln.Addr())
		c, err := ln.Accept()
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown --listen transport %q", flags.listenTransport)
	}
}

// stdioConn adapts os.Stdin/os.Stdout to io.ReadWriteCloser without closing
// the process's actual standard streams on Close.
type stdioConn struct{}

func (stdioConn) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdioConn) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdioConn) Close() error                { return nil }

// envelope is the generic request shape the adapter decodes before handing
// the raw Arguments payload to handlers.Dispatch: enough of dap.Request to
// route, without depending on go-dap's reflective message-type registry.
type envelope struct {
	Seq       int             `json:"seq"`
	Type      string          `json:"type"`
	Command   string          `json:"command"`
	Arguments json.RawMessage `json:"arguments"`
}

type responseMessage struct {
	Seq        int    `json:"seq"`
	Type       string `json:"type"`
	RequestSeq int    `json:"request_seq"`
	Success    bool   `json:"success"`
	Command    string `json:"command"`
	Message    string `json:"message,omitempty"`
	Body       any    `json:"body,omitempty"`
}

type eventMessage struct {
	Seq   int    `json:"seq"`
	Type  string `json:"type"`
	Event string `json:"event"`
	Body  any    `json:"body,omitempty"`
}

// serve runs the read-dispatch-write loop for one client connection: one
// session for its whole lifetime.
func serve(ctx context.Context, conn io.ReadWriteCloser, cfg *config.Config, flags *adapterFlags, logger *slog.Logger) error {
	reader := bufio.NewReader(conn)

	var writeMu sync.Mutex
	var seq int
	nextSeq := func() int {
		seq++
		return seq
	}
	writeFrame := func(v any) error {
		payload, err := json.Marshal(v)
		if err != nil {
			return err
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		_, err = conn.Write(framing.EncodeDAPFrame(payload))
		return err
	}
	emit := func(name string, body any) {
		_ = writeFrame(eventMessage{Seq: nextSeq(), Type: "event", Event: name, Body: body})
	}

	sess := session.New(&cfg.Dapper, logger, emit)
	go sess.Run(ctx)
	defer func() {
		_ = sess.Terminate(context.Background())
	}()

	deps := &handlers.Deps{
		Session:      sess,
		Capabilities: handlers.DefaultCapabilities(),
		HotReload:    hotreload.New(sess),
		Logger:       logger,
		NewBackend:   backendFactory(sess, cfg, flags, emit),
	}

	for {
		frame, err := framing.ReadDAPFrame(reader)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		var env envelope
		if err := json.Unmarshal(frame.Payload, &env); err != nil {
			logger.Error("malformed client message", "error", err)
			continue
		}
		if env.Type != "request" {
			continue
		}

		requestCtx, cancelRequest := context.WithCancel(ctx)
		handlers.RegisterRequest(env.Seq, cancelRequest)

		// Every request is dispatched on the session's single scheduler
		// loop, the same goroutine that owns all mutable session state and
		// processes launcher/hot-reload events - this keeps per-connection
		// request ordering and rules out a resume's handle-invalidation
		// barrier interleaving with an in-flight variables lookup. Spawn
		// only enqueues: it does not block this read loop on a slow
		// in-flight command.
		sess.Scheduler.Spawn(func(loopCtx context.Context) {
			defer cancelRequest()
			defer handlers.UnregisterRequest(env.Seq)

			result, dispatchErr := handlers.Dispatch(requestCtx, deps, env.Command, env.Arguments)
			for _, ev := range result.PreEvents {
				emit(ev.Name, ev.Body)
			}

			resp := responseMessage{
				Seq:        nextSeq(),
				Type:       "response",
				RequestSeq: env.Seq,
				Command:    env.Command,
				Success:    dispatchErr == nil,
				Body:       result.Body,
			}
			if dispatchErr != nil {
				resp.Message = dispatchErr.Error()
			}
			if err := writeFrame(resp); err != nil {
				logger.Error("write response", "error", err)
				return
			}

			for _, ev := range result.PostEvents {
				emit(ev.Name, ev.Body)
			}
		})
	}
}

// backendFactory returns the BackendFactory the launch/attach handlers
// call: every session picks its backend variant once. This adapter binary
// only knows how to build the external, subprocess launcher variant —
// embedding a concrete BreakpointExecutor in-process is left to whatever
// host program links this core directly instead of going through these
// cmd/ binaries.
func backendFactory(sess *session.Session, cfg *config.Config, flags *adapterFlags, emit func(name string, body any)) handlers.BackendFactory {
	return func(inProcess bool) (backend.Backend, error) {
		if inProcess {
			return nil, fmt.Errorf("dapper-adapter has no embeddable executor; inProcess launch/attach requires a host program built against internal/core/backend directly")
		}
		return backend.NewExternalBackend(backend.ExternalOptions{
			LauncherPath:   flags.launcherPath,
			CommandTimeout: cfg.Dapper.BackendCommandTimeout,
			OutputCapacity: cfg.Log.BufferSize,
			OnOutput: func(line models.OutputLine) {
				emit("output", struct {
					Category string `json:"category"`
					Output   string `json:"output"`
				}{Category: string(line.Category), Output: line.Text})
			},
		}, sess.Router.Route), nil
	}
}
