// Package wizard implements the interactive configuration flow behind
// `k3smac init`. Answers are collected into a Result and turned into a
// config file the other commands consume.
package wizard

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/k3smac/k3smac/internal/config"
)

// clusterNameRegex validates cluster name format: 1-32 lowercase alphanumeric with hyphens.
var clusterNameRegex = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,30}[a-z0-9])?$`)

// Result holds all the answers from the interactive wizard.
type Result struct {
	ClusterName string

	ControlPlaneAddress string
	WorkerAddresses     []string

	SSHUser    string
	SSHKeyPath string

	K3sVersion          string
	EnableObservability bool

	// Advanced options (only set in advanced mode)
	Advanced *AdvancedOptions
}

// AdvancedOptions holds the settings behind the --advanced flag.
type AdvancedOptions struct {
	PodCIDR       string
	ServiceCIDR   string
	NFSExportPath string
	StorageClass  string
	ParallelJoin  bool
}

// Run walks the operator through the configuration groups. The context is
// used for cancellation support (e.g., Ctrl+C).
func Run(ctx context.Context, advanced bool) (*Result, error) {
	result := &Result{}

	if err := runIdentityGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("cluster identity: %w", err)
	}
	if err := runNodesGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("nodes: %w", err)
	}
	if err := runSSHGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("ssh access: %w", err)
	}
	if err := runK3sGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("k3s: %w", err)
	}

	if advanced {
		opts := &AdvancedOptions{}
		if err := runAdvancedGroup(ctx, opts); err != nil {
			return nil, fmt.Errorf("advanced: %w", err)
		}
		result.Advanced = opts
	}

	return result, nil
}

func runIdentityGroup(ctx context.Context, result *Result) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Cluster Name").
				Description("1-32 lowercase alphanumeric characters or hyphens").
				Placeholder("mac-cluster").
				Value(&result.ClusterName).
				Validate(validateClusterName),
		).Title("Cluster Identity"),
	).RunWithContext(ctx)
}

func runNodesGroup(ctx context.Context, result *Result) error {
	var workersInput string

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Control Plane Address").
				Description("IP or hostname of the Mac that runs the K3s server").
				Placeholder("192.168.1.10").
				Value(&result.ControlPlaneAddress).
				Validate(validateAddress),
			huh.NewInput().
				Title("Worker Addresses (Optional)").
				Description("Comma-separated IPs or hostnames of worker Macs").
				Placeholder("192.168.1.11, 192.168.1.12").
				Value(&workersInput).
				Validate(validateAddressList),
		).Title("Nodes"),
	).RunWithContext(ctx)
	if err != nil {
		return err
	}

	result.WorkerAddresses = splitAddresses(workersInput)
	return nil
}

func runSSHGroup(ctx context.Context, result *Result) error {
	result.SSHUser = "admin"
	result.SSHKeyPath = "~/.ssh/id_ed25519"

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("SSH User").
				Description("Account with passwordless sudo on every node").
				Value(&result.SSHUser),
			huh.NewInput().
				Title("SSH Key Path").
				Description("Private key used to reach the nodes").
				Value(&result.SSHKeyPath),
		).Title("SSH Access"),
	).RunWithContext(ctx)
}

func runK3sGroup(ctx context.Context, result *Result) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("K3s Channel").
				Description("Release channel pinned at install time").
				Options(
					huh.NewOption("stable (recommended)", ""),
					huh.NewOption("latest", "latest"),
					huh.NewOption("v1.31", "v1.31"),
					huh.NewOption("v1.30", "v1.30"),
				).
				Value(&result.K3sVersion),
			huh.NewConfirm().
				Title("Deploy Observability Stack?").
				Description("Grafana, Prometheus, Loki and Tempo via Helm").
				Value(&result.EnableObservability),
		).Title("K3s"),
	).RunWithContext(ctx)
}

func runAdvancedGroup(ctx context.Context, opts *AdvancedOptions) error {
	opts.PodCIDR = "10.42.0.0/16"
	opts.ServiceCIDR = "10.43.0.0/16"
	opts.NFSExportPath = "/opt/k3smac/nfs"
	opts.StorageClass = "nfs-client"

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Pod CIDR").
				Value(&opts.PodCIDR).
				Validate(validateCIDR),
			huh.NewInput().
				Title("Service CIDR").
				Value(&opts.ServiceCIDR).
				Validate(validateCIDR),
			huh.NewInput().
				Title("NFS Export Path").
				Description("Directory on the control node shared with the cluster").
				Value(&opts.NFSExportPath),
			huh.NewInput().
				Title("Storage Class Name").
				Value(&opts.StorageClass),
			huh.NewConfirm().
				Title("Join Workers in Parallel?").
				Description("Sequential joins are gentler on the control plane").
				Value(&opts.ParallelJoin),
		).Title("Advanced"),
	).RunWithContext(ctx)
}

func splitAddresses(input string) []string {
	var out []string
	for _, part := range strings.Split(input, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

func validateClusterName(name string) error {
	if !clusterNameRegex.MatchString(name) {
		return fmt.Errorf("must be 1-32 lowercase alphanumeric characters or hyphens")
	}
	return nil
}

func validateAddress(addr string) error {
	if !config.ValidAddress(strings.TrimSpace(addr)) {
		return fmt.Errorf("not a valid IP or hostname")
	}
	return nil
}

func validateCIDR(input string) error {
	if _, _, err := net.ParseCIDR(strings.TrimSpace(input)); err != nil {
		return fmt.Errorf("not a valid CIDR")
	}
	return nil
}

func validateAddressList(input string) error {
	for _, addr := range splitAddresses(input) {
		if !config.ValidAddress(addr) {
			return fmt.Errorf("%q is not a valid IP or hostname", addr)
		}
	}
	return nil
}
