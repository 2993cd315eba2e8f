package handlers

import (
	"context"
	"encoding/json"

	"github.com/google/shlex"
	"github.com/tidwall/gjson"

	"github.com/jnsquire/dapper/internal/core/backend"
	"github.com/jnsquire/dapper/internal/core/dapperr"
	"github.com/jnsquire/dapper/internal/core/security"
	"github.com/jnsquire/dapper/internal/models"
)

// initializeArgs is the subset of `initialize`'s arguments the adapter
// actually consumes; everything else (clientID, adapterID,...) is
// accepted but unused beyond logging.
type initializeArgs struct {
	ClientID        string `json:"clientID"`
	AdapterID       string `json:"adapterID"`
	LinesStartAt1   bool   `json:"linesStartAt1"`
	ColumnsStartAt1 bool   `json:"columnsStartAt1"`
}

func handleInitialize(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	if err := CheckArguments(raw, []FieldSchema{
		{Name: "adapterID", Required: true, CheckKind: true, Kind: gjson.String},
	}); err != nil {
		return Result{}, err
	}
	var args initializeArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return Result{}, dapperr.Wrap(dapperr.ProtocolError, "malformed initialize arguments", err)
	}

	if err := d.Session.Lifecycle.BeginInitialize(); err != nil {
		return Result{}, err
	}

	return Result{
		Body:       d.Capabilities,
		PostEvents: []Event{{Name: "initialized", Body: struct{}{}}},
	}, nil
}

// launchArgs is the recognized `launch`/`attach` argument surface from
//
type launchArgs struct {
	Program     string            `json:"program"`
	Module      string            `json:"module"`
	Args        []string          `json:"args"`
	Cwd         string            `json:"cwd"`
	Env         map[string]string `json:"env"`
	StopOnEntry bool              `json:"stopOnEntry"`
	NoDebug     bool              `json:"noDebug"`
	JustMyCode  bool              `json:"justMyCode"`

	InProcess bool   `json:"inProcess"`
	UseIPC    bool   `json:"useIpc"`
	UsePTY    bool   `json:"usePty"`

	IPCTransport string `json:"ipcTransport"`
	IPCHost      string `json:"ipcHost"`
	IPCPort      int    `json:"ipcPort"`
	IPCPath      string `json:"ipcPath"`
	IPCPipeName  string `json:"ipcPipeName"`

	SubprocessAutoAttach     bool     `json:"subprocessAutoAttach"`
	ModuleSearchPaths        []string `json:"moduleSearchPaths"`
	VenvPath                 string   `json:"venvPath"`
	StrictExpressionWatchPolicy bool  `json:"strictExpressionWatchPolicy"`

	Remote *remoteArgs `json:"remote"`
}

type remoteArgs struct {
	Host           string `json:"host"`
	User           string `json:"user"`
	KeyPath        string `json:"keyPath"`
	KnownHostsPath string `json:"knownHostsPath"`
}

func decodeLaunchArgs(raw []byte) (launchArgs, error) {
	var args launchArgs
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return launchArgs{}, dapperr.Wrap(dapperr.ProtocolError, "malformed arguments", err)
		}
	}
	if args.Program != "" && args.Module != "" {
		return launchArgs{}, dapperr.New(dapperr.PreconditionFailed, "program and module are mutually exclusive")
	}
	return args, nil
}

// programBinary extracts the executable path out of a program value that
// may embed additional arguments (shlex-split the same way
// backend.launchTarget splits it before handing it to the launcher), so
// path validation checks the binary itself rather than the whole string.
func programBinary(program string) string {
	parts, err := shlex.Split(program)
	if err != nil || len(parts) == 0 {
		return program
	}
	return parts[0]
}

func handleLaunch(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	args, err := decodeLaunchArgs(raw)
	if err != nil {
		return Result{}, err
	}
	if args.Program == "" && args.Module == "" {
		return Result{}, dapperr.New(dapperr.PreconditionFailed, "launch requires program or module")
	}

	if err := security.ValidateArguments(args.Args); err != nil {
		_ = d.Session.Lifecycle.FinishInitialize(err)
		return Result{}, err
	}
	if args.Program != "" {
		if _, err := security.ValidateProgramPath(programBinary(args.Program)); err != nil {
			_ = d.Session.Lifecycle.FinishInitialize(err)
			return Result{}, err
		}
	}

	b, err := d.NewBackend(args.InProcess)
	if err != nil {
		_ = d.Session.Lifecycle.FinishInitialize(err)
		return Result{}, err
	}
	d.Session.AttachBackend(b)

	if args.SubprocessAutoAttach && !b.SupportsSubprocessAutoAttach() {
		_ = d.Session.Lifecycle.FinishInitialize(dapperr.ErrSessionShuttingDown)
		return Result{}, dapperr.New(dapperr.CapabilityViolation, "subprocessAutoAttach is not supported by this backend variant")
	}

	cfg := models.LaunchConfig{
		Program:           args.Program,
		Module:            args.Module,
		Args:              args.Args,
		WorkingDir:        args.Cwd,
		Environment:       args.Env,
		UsePTY:            args.UsePTY,
		StopOnEntry:       args.StopOnEntry,
		NoDebug:           args.NoDebug,
		ModuleSearchPaths: args.ModuleSearchPaths,
	}
	if err := b.Launch(ctx, cfg); err != nil {
		_ = d.Session.Lifecycle.FinishInitialize(err)
		return Result{}, err
	}

	if err := d.Session.Lifecycle.FinishInitialize(nil); err != nil {
		return Result{}, err
	}
	return Result{}, nil
}

func handleAttach(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	args, err := decodeLaunchArgs(raw)
	if err != nil {
		return Result{}, err
	}

	b, err := d.NewBackend(args.InProcess)
	if err != nil {
		_ = d.Session.Lifecycle.FinishInitialize(err)
		return Result{}, err
	}
	d.Session.AttachBackend(b)

	if args.SubprocessAutoAttach && !b.SupportsSubprocessAutoAttach() {
		_ = d.Session.Lifecycle.FinishInitialize(dapperr.ErrSessionShuttingDown)
		return Result{}, dapperr.New(dapperr.CapabilityViolation, "subprocessAutoAttach is not supported by this backend variant")
	}

	attachCfg := backend.AttachConfig{
		InProcess:    args.InProcess,
		UseIPC:       args.UseIPC,
		IPCTransport: args.IPCTransport,
		IPCHost:      args.IPCHost,
		IPCPort:      args.IPCPort,
		IPCPath:      args.IPCPath,
		IPCPipeName:  args.IPCPipeName,
	}
	if args.Remote != nil {
		attachCfg.Remote = &backend.RemoteAttach{
			Host:           args.Remote.Host,
			User:           args.Remote.User,
			KeyPath:        args.Remote.KeyPath,
			KnownHostsPath: args.Remote.KnownHostsPath,
		}
	}

	if err := b.Attach(ctx, attachCfg); err != nil {
		_ = d.Session.Lifecycle.FinishInitialize(err)
		return Result{}, err
	}
	if err := d.Session.Lifecycle.FinishInitialize(nil); err != nil {
		return Result{}, err
	}
	return Result{}, nil
}

func handleConfigurationDone(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	// Idempotent: a second call returns success without side effects.
	d.Session.State.BeginConfigurationDone()
	return Result{}, nil
}

type disconnectArgs struct {
	TerminateDebuggee bool `json:"terminateDebuggee"`
	Restart           bool `json:"restart"`
}

func handleDisconnect(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	var args disconnectArgs
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &args)
	}
	if err := d.Session.Terminate(ctx); err != nil {
		return Result{}, err
	}
	return Result{}, nil
}

func handleTerminate(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	if d.Session.Backend != nil {
		_, _ = d.Session.Execute(ctx, "terminate", nil)
	}
	if err := d.Session.Terminate(ctx); err != nil {
		return Result{}, err
	}
	return Result{}, nil
}
