package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const ConfigFileName = ".dapper.toml"

// Config is the adapter's on-disk configuration, loaded once at startup and
// layered under any command-line flags the CLI entrypoints accept.
type Config struct {
	// Log configures the structured logger shared by every component.
	Log LogConfig `toml:"log,omitempty"`

	// Dapper configures the protocol-and-lifecycle engine itself: IPC
	// transport selection, connect budgets, and per-operation timeouts.
	Dapper DapperConfig `toml:"dapper,omitempty"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`

	// Format selects the slog handler: "text" or "json".
	Format string `toml:"format"`

	// BufferSize is the maximum number of debuggee output lines retained
	// for late-attaching clients.
	BufferSize int `toml:"buffer_size"`
}

// DapperConfig holds the settings specific to the protocol-and-lifecycle
// engine.
type DapperConfig struct {
	// IPCTransport is one of "auto", "pipe", "unix", "tcp".
	IPCTransport string `toml:"ipc_transport"`

	// IPCHost/IPCPort apply when IPCTransport is "tcp".
	IPCHost string `toml:"ipc_host,omitempty"`
	IPCPort int    `toml:"ipc_port,omitempty"`

	// PipeNamePrefix names Windows named pipes as
	// `\\.\pipe\<prefix>-<uuid>` when IPCTransport is "pipe" or "auto".
	PipeNamePrefix string `toml:"pipe_name_prefix,omitempty"`

	// BackendCommandTimeout bounds every backend command issuance before
	// BackendTimeout fires.
	BackendCommandTimeout time.Duration `toml:"backend_command_timeout"`

	// ConnectRetryBudget bounds the wall-clock time transport.Connect may
	// spend retrying before giving up.
	ConnectRetryBudget time.Duration `toml:"connect_retry_budget"`

	// ShutdownGrace bounds how long the scheduler waits for background
	// tasks to finish on their own before cancelling them.
	ShutdownGrace time.Duration `toml:"shutdown_grace"`
}

func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			BufferSize: 2000,
		},
		Dapper: DapperConfig{
			IPCTransport:          "auto",
			PipeNamePrefix:        "dapper",
			BackendCommandTimeout: 10 * time.Second,
			ConnectRetryBudget:    5 * time.Second,
			ShutdownGrace:         2 * time.Second,
		},
	}
}

// Load reads ConfigFileName from dir, or returns defaults if it doesn't
// exist.
func Load(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ConfigFileName)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to dir with owner-only permissions, since
// it may carry SSH key paths for remote attach.
func (c *Config) Save(dir string) error {
	configPath := filepath.Join(dir, ConfigFileName)

	file, err := os.OpenFile(configPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := toml.NewEncoder(file)
	return encoder.Encode(c)
}
