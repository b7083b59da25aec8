// Package topology models the static cluster membership: one control plane
// node, a set of workers, and the SSH identity used to reach each of them.
//
// The registry is built once from configuration at process start and is
// immutable for the duration of a run.
package topology

import (
	"fmt"

	"github.com/k3smac/k3smac/internal/config"
)

// Role distinguishes the control plane from workers.
type Role string

const (
	RoleControlPlane Role = "control-plane"
	RoleWorker       Role = "worker"
)

// Node is one cluster member.
type Node struct {
	Address string
	Role    Role
	Label   string
}

// Identity is the SSH identity used to reach a node.
type Identity struct {
	User    string
	KeyPath string
	Port    int
}

// Registry holds the cluster topology and per-node identity overrides.
type Registry struct {
	controlPlane Node
	workers      []Node
	overrides    map[string]config.NodeConfig
	defaults     config.SSHConfig
}

// NewRegistry builds a registry from validated configuration.
func NewRegistry(cfg *config.Config) (*Registry, error) {
	if cfg.ControlPlane.Address == "" {
		return nil, fmt.Errorf("control plane address is required")
	}

	r := &Registry{
		controlPlane: Node{
			Address: cfg.ControlPlane.Address,
			Role:    RoleControlPlane,
			Label:   cfg.ControlPlane.Label,
		},
		overrides: map[string]config.NodeConfig{
			cfg.ControlPlane.Address: cfg.ControlPlane,
		},
		defaults: cfg.SSH,
	}

	for _, w := range cfg.Workers {
		if _, dup := r.overrides[w.Address]; dup {
			return nil, fmt.Errorf("duplicate node address %q", w.Address)
		}
		r.workers = append(r.workers, Node{Address: w.Address, Role: RoleWorker, Label: w.Label})
		r.overrides[w.Address] = w
	}

	return r, nil
}

// ControlPlane returns the single control plane node.
func (r *Registry) ControlPlane() Node {
	return r.controlPlane
}

// Workers returns the worker nodes in configuration order.
func (r *Registry) Workers() []Node {
	out := make([]Node, len(r.workers))
	copy(out, r.workers)
	return out
}

// All returns every node, control plane first.
func (r *Registry) All() []Node {
	return append([]Node{r.controlPlane}, r.Workers()...)
}

// Lookup finds a node by address.
func (r *Registry) Lookup(address string) (Node, bool) {
	if address == r.controlPlane.Address {
		return r.controlPlane, true
	}
	for _, w := range r.workers {
		if w.Address == address {
			return w, true
		}
	}
	return Node{}, false
}

// Resolve maps a node address to its SSH identity. Resolution is total for
// configured nodes: a per-node override wins, otherwise the fleet default
// applies. Unknown addresses resolve to the default identity too, so callers
// probing candidate addresses never get an empty identity.
func (r *Registry) Resolve(address string) Identity {
	id := Identity{
		User:    r.defaults.DefaultUser,
		KeyPath: r.defaults.KeyPath,
		Port:    r.defaults.Port,
	}

	if override, ok := r.overrides[address]; ok {
		if override.User != "" {
			id.User = override.User
		}
		if override.KeyPath != "" {
			id.KeyPath = override.KeyPath
		}
	}

	return id
}
