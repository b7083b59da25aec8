package config

import (
	"fmt"
	"net"
)

// Validate checks the configuration for common errors and returns a detailed
// error if validation fails. Validation runs before any remote action, so a
// bad config never costs network I/O.
func (c *Config) Validate() error {
	if c.ClusterName == "" {
		return fmt.Errorf("cluster_name is required")
	}

	if err := c.validateTopology(); err != nil {
		return fmt.Errorf("topology validation failed: %w", err)
	}

	if err := c.validateNetwork(); err != nil {
		return fmt.Errorf("network validation failed: %w", err)
	}

	if err := c.validateSSH(); err != nil {
		return fmt.Errorf("ssh validation failed: %w", err)
	}

	if err := c.validateThresholds(); err != nil {
		return fmt.Errorf("preflight validation failed: %w", err)
	}

	return nil
}

// validateTopology enforces exactly one control plane and unique addresses.
func (c *Config) validateTopology() error {
	if c.ControlPlane.Address == "" {
		return fmt.Errorf("control_plane.address is required")
	}
	if !ValidAddress(c.ControlPlane.Address) {
		return fmt.Errorf("invalid control_plane.address %q", c.ControlPlane.Address)
	}

	seen := map[string]bool{c.ControlPlane.Address: true}
	for _, w := range c.Workers {
		if w.Address == "" {
			return fmt.Errorf("worker address cannot be empty")
		}
		if seen[w.Address] {
			return fmt.Errorf("duplicate node address %q", w.Address)
		}
		seen[w.Address] = true
	}

	return nil
}

func (c *Config) validateNetwork() error {
	if _, _, err := net.ParseCIDR(c.Network.PodCIDR); err != nil {
		return fmt.Errorf("invalid network.pod_cidr: %w", err)
	}
	if _, _, err := net.ParseCIDR(c.Network.ServiceCIDR); err != nil {
		return fmt.Errorf("invalid network.service_cidr: %w", err)
	}
	return nil
}

func (c *Config) validateSSH() error {
	if c.SSH.DefaultUser == "" {
		return fmt.Errorf("ssh.default_user is required")
	}
	if c.SSH.KeyPath == "" {
		return fmt.Errorf("ssh.key_path is required")
	}
	if c.SSH.Port < 1 || c.SSH.Port > 65535 {
		return fmt.Errorf("ssh.port %d out of range", c.SSH.Port)
	}
	return nil
}

func (c *Config) validateThresholds() error {
	if c.Preflight.MinDiskGB < 1 {
		return fmt.Errorf("preflight.min_disk_gb must be positive")
	}
	if c.Preflight.MinMemGB < 1 {
		return fmt.Errorf("preflight.min_mem_gb must be positive")
	}
	if c.Preflight.MinCPUCores < 1 {
		return fmt.Errorf("preflight.min_cpu_cores must be positive")
	}
	return nil
}

// ValidAddress reports whether addr is a syntactically valid IPv4/IPv6
// address or DNS hostname. "999.1.1.1" is rejected: an all-numeric dotted
// quad must parse as an IP.
func ValidAddress(addr string) bool {
	if addr == "" {
		return false
	}
	if net.ParseIP(addr) != nil {
		return true
	}
	// Reject malformed dotted quads rather than treating them as hostnames.
	if looksLikeDottedQuad(addr) {
		return false
	}
	return validHostname(addr)
}

func looksLikeDottedQuad(addr string) bool {
	dots := 0
	for _, r := range addr {
		switch {
		case r == '.':
			dots++
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return dots == 3
}

func validHostname(host string) bool {
	if len(host) > 253 {
		return false
	}
	labelLen := 0
	prev := byte('.')
	for i := 0; i < len(host); i++ {
		ch := host[i]
		switch {
		case ch == '.':
			if prev == '.' || prev == '-' || labelLen == 0 {
				return false
			}
			labelLen = 0
		case ch == '-':
			if prev == '.' {
				return false
			}
			labelLen++
		case (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9'):
			labelLen++
		default:
			return false
		}
		if labelLen > 63 {
			return false
		}
		prev = ch
	}
	return labelLen > 0 && prev != '-'
}
