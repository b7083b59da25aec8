package provision

import (
	"context"
	"fmt"
	"strings"

	"github.com/k3smac/k3smac/internal/sshexec"
	"github.com/k3smac/k3smac/internal/topology"
)

const (
	k3sInstallURL      = "https://get.k3s.io"
	k3sTokenPath       = "/var/lib/rancher/k3s/server/node-token" // #nosec G101 -- path, not a credential
	k3sKubeconfigPath  = "/etc/rancher/k3s/k3s.yaml"
	k3sAgentUninstall  = "/usr/local/bin/k3s-agent-uninstall.sh"
	k3sServerUninstall = "/usr/local/bin/k3s-uninstall.sh"
)

// InitControlPlane initializes the K3s server on the control node.
//
// The install is gated on the control-plane milestone: a satisfied milestone
// (without force) skips straight to verification. On success the join token
// and kubeconfig are fetched and persisted, then the node is polled until it
// reports Ready; failing to reach Ready within the bound is fatal for the
// run, never a silent partial success.
func (o *Orchestrator) InitControlPlane(ctx context.Context, force bool) (*Summary, error) {
	node := o.registry.ControlPlane()
	summary := &Summary{Operation: "up"}

	alreadyDone := o.store.IsSatisfied(milestoneControlPlane, "true") && !force
	if alreadyDone {
		o.log.Infow("control plane already initialized, verifying", "node", node.Address)
	} else {
		o.log.Infow("initializing control plane", "node", node.Address)
		if err := o.retryRemote(ctx, false, func() error {
			_, err := o.exec.Run(ctx, node, o.serverInstallCommand())
			return err
		}); err != nil {
			summary.Outcomes = append(summary.Outcomes, newOutcome(node, StatusFailed, err.Error()))
			o.writeSummary(summary)
			return summary, fmt.Errorf("control plane install failed: %w", err)
		}

		if err := o.store.Record(milestoneControlPlane, "true"); err != nil {
			return summary, err
		}
	}

	if err := o.persistClusterAccess(ctx, node); err != nil {
		summary.Outcomes = append(summary.Outcomes, newOutcome(node, StatusFailed, err.Error()))
		o.writeSummary(summary)
		return summary, err
	}

	client, err := o.clusterClient()
	if err != nil {
		return summary, fmt.Errorf("failed to open cluster client: %w", err)
	}

	if err := client.WaitForNodeReady(ctx, node.Address, nodeReadyTimeout); err != nil {
		// Matching by hostname covers nodes that registered under their
		// mDNS name rather than the configured address.
		if host := o.hostname(ctx, node); host == "" || client.WaitForNodeReady(ctx, host, nodeReadyTimeout) != nil {
			summary.Outcomes = append(summary.Outcomes, newOutcome(node, StatusFailed, err.Error()))
			o.writeSummary(summary)
			return summary, fmt.Errorf("control plane did not become ready: %w", err)
		}
	}

	status := StatusReady
	if alreadyDone {
		status = StatusAlreadyDone
	}
	summary.Outcomes = append(summary.Outcomes, newOutcome(node, status, ""))
	o.writeSummary(summary)

	o.log.Infow("control plane ready", "node", node.Address)
	return summary, nil
}

// serverInstallCommand builds the K3s server install invocation with the
// cluster CIDRs and any configured extra flags.
func (o *Orchestrator) serverInstallCommand() string {
	env := []string{}
	if o.cfg.K3s.Version != "" {
		env = append(env, "INSTALL_K3S_CHANNEL="+o.cfg.K3s.Version)
	}

	args := []string{
		"server",
		"--cluster-cidr", o.cfg.Network.PodCIDR,
		"--service-cidr", o.cfg.Network.ServiceCIDR,
		"--write-kubeconfig-mode", "644",
	}
	args = append(args, o.cfg.K3s.ExtraServerArgs...)

	cmd := fmt.Sprintf("curl -sfL %s | %s sh -s - %s",
		k3sInstallURL, strings.Join(env, " "), strings.Join(args, " "))
	return strings.Join(strings.Fields(cmd), " ")
}

// persistClusterAccess fetches the join token and kubeconfig from the
// control node and stores them under the state directory. The token is a
// secret: restrictive permissions, never logged.
func (o *Orchestrator) persistClusterAccess(ctx context.Context, node topology.Node) error {
	var token string
	if err := o.retryRemote(ctx, false, func() error {
		result, err := o.exec.Run(ctx, node, "sudo cat "+k3sTokenPath)
		if err != nil {
			return err
		}
		token = strings.TrimSpace(result.Stdout)
		return nil
	}); err != nil {
		return fmt.Errorf("failed to fetch join token: %w", err)
	}
	if err := o.store.WriteToken(token); err != nil {
		return err
	}

	var kubeconfig string
	if err := o.retryRemote(ctx, false, func() error {
		result, err := o.exec.Run(ctx, node, "sudo cat "+k3sKubeconfigPath)
		if err != nil {
			return err
		}
		kubeconfig = result.Stdout
		return nil
	}); err != nil {
		return fmt.Errorf("failed to fetch kubeconfig: %w", err)
	}

	// The server-side kubeconfig points at localhost; rewrite it to the
	// control node's address so the operator machine can use it.
	kubeconfig = strings.ReplaceAll(kubeconfig, "127.0.0.1", node.Address)
	return o.store.WriteKubeconfig([]byte(kubeconfig))
}

// probeSSH checks a node answers on its remote shell.
func (o *Orchestrator) probeSSH(ctx context.Context, node topology.Node) error {
	_, err := o.exec.Run(ctx, node, "true")
	return err
}

// agentRunning reports whether a K3s agent process exists on the node.
func (o *Orchestrator) agentRunning(ctx context.Context, node topology.Node) (bool, error) {
	result, err := o.exec.Run(ctx, node, "pgrep -f 'k3s agent' >/dev/null", sshexec.Tolerant())
	if err != nil {
		return false, err
	}
	return result.ExitCode == 0, nil
}
