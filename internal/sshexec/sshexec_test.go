package sshexec

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k3smac/k3smac/internal/topology"
)

type staticResolver struct {
	identity topology.Identity
}

func (s staticResolver) Resolve(string) topology.Identity {
	return s.identity
}

func TestRun_UnreachableHostIsConnectionError(t *testing.T) {
	client := NewClient(staticResolver{identity: topology.Identity{
		User:    "nobody",
		KeyPath: "/nonexistent/key",
		Port:    22,
	}}, 100*time.Millisecond)

	node := topology.Node{Address: "192.0.2.1", Role: topology.RoleWorker}
	_, err := client.Run(context.Background(), node, "true")

	require.Error(t, err)
	assert.True(t, IsConnectionError(err))

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "192.0.2.1", connErr.Address)
}

func TestConnectionError_Unwrap(t *testing.T) {
	inner := errors.New("dial tcp: timeout")
	err := &ConnectionError{Address: "10.0.0.5", Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "10.0.0.5")
}

func TestRemoteCommandError_Message(t *testing.T) {
	err := &RemoteCommandError{
		Address:  "10.0.0.5",
		Command:  "launchctl list k3s",
		ExitCode: 3,
		Stderr:   "no such service",
	}

	assert.Contains(t, err.Error(), "exited 3")
	assert.Contains(t, err.Error(), "10.0.0.5")
	assert.Contains(t, err.Error(), "no such service")
}

func TestIsConnectionError_OnWrapped(t *testing.T) {
	base := &ConnectionError{Address: "10.0.0.5", Err: errors.New("refused")}
	wrapped := errors.Join(errors.New("probe failed"), base)

	assert.True(t, IsConnectionError(wrapped))
	assert.False(t, IsConnectionError(errors.New("plain")))
}

func TestRunOptions(t *testing.T) {
	opts := runOptions{timeout: time.Second}
	WithTimeout(5 * time.Second)(&opts)
	Tolerant()(&opts)

	assert.Equal(t, 5*time.Second, opts.timeout)
	assert.True(t, opts.tolerant)
}
