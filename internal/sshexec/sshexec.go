// Package sshexec executes commands on cluster nodes over SSH.
//
// It is the single transport boundary of the orchestrator: connection
// establishment with a dial timeout, key-based authentication using the
// identity resolved from the topology registry, and command execution with
// separated stdout/stderr and the remote exit code.
//
// Security: host key verification is disabled by default, matching the
// trust model of a private homelab network. Provide a HostKeyCallback for
// persistent multi-tenant environments.
package sshexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/k3smac/k3smac/internal/topology"
)

const defaultDialTimeout = 10 * time.Second

// Result holds the outcome of one remote command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// ConnectionError reports that the transport could not be established.
type ConnectionError struct {
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// RemoteCommandError reports a non-zero remote exit in strict mode.
type RemoteCommandError struct {
	Address  string
	Command  string
	ExitCode int
	Stderr   string
}

func (e *RemoteCommandError) Error() string {
	return fmt.Sprintf("command exited %d on %s: %s (stderr: %s)",
		e.ExitCode, e.Address, e.Command, e.Stderr)
}

// IsConnectionError checks whether err is (or wraps) a transport failure.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// runOptions controls per-call behavior.
type runOptions struct {
	timeout  time.Duration
	tolerant bool
}

// RunOption is a functional option for Run.
type RunOption func(*runOptions)

// WithTimeout overrides the dial timeout for this call.
func WithTimeout(d time.Duration) RunOption {
	return func(o *runOptions) {
		o.timeout = d
	}
}

// Tolerant makes a non-zero remote exit a normal Result instead of a
// RemoteCommandError. Probes use it ("is the agent running?") where non-zero
// is an answer, not a failure.
func Tolerant() RunOption {
	return func(o *runOptions) {
		o.tolerant = true
	}
}

// Executor runs commands on named nodes. The concrete implementation is
// Client; orchestrator tests substitute fakes.
type Executor interface {
	Run(ctx context.Context, node topology.Node, command string, opts ...RunOption) (Result, error)
}

// Resolver supplies the SSH identity for a node address.
type Resolver interface {
	Resolve(address string) topology.Identity
}

// Client is the SSH-backed Executor. It is stateless per call: each Run
// dials, executes, and closes.
type Client struct {
	resolver        Resolver
	dialTimeout     time.Duration
	hostKeyCallback ssh.HostKeyCallback
}

// NewClient creates an executor that resolves credentials through resolver.
func NewClient(resolver Resolver, dialTimeout time.Duration) *Client {
	if dialTimeout == 0 {
		dialTimeout = defaultDialTimeout
	}
	return &Client{
		resolver:        resolver,
		dialTimeout:     dialTimeout,
		hostKeyCallback: ssh.InsecureIgnoreHostKey(), // #nosec G106 -- private homelab network
	}
}

// Run executes command on node and returns its exit code and output.
//
// On context cancellation the underlying connection is closed, abandoning
// the in-flight remote command rather than waiting for it to finish.
func (c *Client) Run(ctx context.Context, node topology.Node, command string, opts ...RunOption) (Result, error) {
	options := runOptions{timeout: c.dialTimeout}
	for _, opt := range opts {
		opt(&options)
	}

	client, err := c.connect(ctx, node, options.timeout)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = client.Close() }()

	session, err := client.NewSession()
	if err != nil {
		return Result{}, &ConnectionError{Address: node.Address, Err: err}
	}
	defer func() { _ = session.Close() }()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	select {
	case <-ctx.Done():
		// Closing the connection tears down the session; the remote command
		// is abandoned, not awaited.
		_ = client.Close()
		return Result{}, ctx.Err()
	case err = <-done:
	}

	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitStatus()
			if options.tolerant {
				return result, nil
			}
			return result, &RemoteCommandError{
				Address:  node.Address,
				Command:  command,
				ExitCode: result.ExitCode,
				Stderr:   result.Stderr,
			}
		}
		return result, &ConnectionError{Address: node.Address, Err: err}
	}

	return result, nil
}

// connect establishes the SSH connection for one call.
func (c *Client) connect(ctx context.Context, node topology.Node, timeout time.Duration) (*ssh.Client, error) {
	identity := c.resolver.Resolve(node.Address)

	key, err := os.ReadFile(identity.KeyPath)
	if err != nil {
		return nil, &ConnectionError{Address: node.Address,
			Err: fmt.Errorf("failed to read private key %s: %w", identity.KeyPath, err)}
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, &ConnectionError{Address: node.Address,
			Err: fmt.Errorf("failed to parse private key: %w", err)}
	}

	port := identity.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(node.Address, fmt.Sprintf("%d", port))

	sshCfg := &ssh.ClientConfig{
		User:            identity.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: c.hostKeyCallback,
		Timeout:         timeout,
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectionError{Address: node.Address, Err: err}
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, sshCfg)
	if err != nil {
		_ = conn.Close()
		return nil, &ConnectionError{Address: node.Address, Err: err}
	}

	return ssh.NewClient(sshConn, chans, reqs), nil
}
