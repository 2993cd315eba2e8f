package transport

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// RemoteEndpoint describes the `remote` block accepted by `attach`
// arguments: the launcher's IPC endpoint is reached through an
// SSH direct-tcpip channel instead of a local socket.
type RemoteEndpoint struct {
	Host           string
	User           string
	KeyPath        string
	KnownHostsPath string
	// DialTimeout bounds the SSH handshake itself, independent of the
	// connect-retry budget applied to the resulting logical connection.
	DialTimeout time.Duration
}

// DialRemote opens an SSH connection to ep and forwards a direct-tcpip
// channel to addr (the launcher's IPC listener on the remote host),
// returning the forwarded channel as a Connection. Authentication prefers
// the running SSH agent and falls back to ep.KeyPath, mirroring the
// teacher's ssh.GetSSHAgent/LoadPrivateKey fallback order.
func DialRemote(ctx context.Context, ep RemoteEndpoint, addr Address) (Connection, error) {
	auth, err := authMethod(ep)
	if err != nil {
		return nil, fmt.Errorf("transport: ssh auth: %w", err)
	}

	hostKeyCallback, err := knownHostsCallback(ep.KnownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("transport: ssh known_hosts: %w", err)
	}

	timeout := ep.DialTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	clientConfig := &ssh.ClientConfig{
		User:            ep.User,
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", ep.Host)
	if err != nil {
		return nil, fmt.Errorf("transport: ssh dial %s: %w", ep.Host, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, ep.Host, clientConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("transport: ssh handshake with %s: %w", ep.Host, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	var remoteAddr string
	switch addr.Kind {
	case KindTCP:
		remoteAddr = fmt.Sprintf("%s:%d", addr.Host, addr.Port)
	case KindUnix:
		remoteAddr = addr.Path
	default:
		client.Close()
		return nil, fmt.Errorf("transport: ssh tunnel unsupported for address kind %v", addr.Kind)
	}

	network := "tcp"
	if addr.Kind == KindUnix {
		network = "unix"
	}
	tunneled, err := client.Dial(network, remoteAddr)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("transport: ssh direct-tcpip to %s: %w", remoteAddr, err)
	}

	return &sshTunnelConn{Conn: tunneled, client: client}, nil
}

// sshTunnelConn closes the forwarded channel and the owning SSH client
// together, so a single Close releases both layers.
type sshTunnelConn struct {
	net.Conn
	client *ssh.Client
}

func (c *sshTunnelConn) Close() error {
	err := c.Conn.Close()
	if cerr := c.client.Close(); err == nil {
		err = cerr
	}
	return err
}

func authMethod(ep RemoteEndpoint) (ssh.AuthMethod, error) {
	if socket := os.Getenv("SSH_AUTH_SOCK"); socket != "" {
		if conn, err := net.Dial("unix", socket); err == nil {
			agentClient := agent.NewClient(conn)
			return ssh.PublicKeysCallback(agentClient.Signers), nil
		}
	}

	if ep.KeyPath == "" {
		return nil, fmt.Errorf("no SSH agent available and no keyPath configured")
	}
	key, err := os.ReadFile(ep.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return ssh.PublicKeys(signer), nil
}

func knownHostsCallback(path string) (ssh.HostKeyCallback, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("known_hosts file not found at %s", path)
	}
	return knownhosts.New(path)
}
