// Package provision implements the core provisioning state machine.
//
// The orchestrator sequences preflight → dependency install → control-plane
// init → worker join → storage setup. Before every mutating step it consults
// the milestone store, so repeated invocations converge without re-doing
// completed work; around every remote operation it applies the retry engine.
package provision

import (
	"context"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/k3smac/k3smac/internal/config"
	"github.com/k3smac/k3smac/internal/k8s"
	"github.com/k3smac/k3smac/internal/sshexec"
	"github.com/k3smac/k3smac/internal/state"
	"github.com/k3smac/k3smac/internal/topology"
	"github.com/k3smac/k3smac/internal/util/retry"
)

// Milestone keys. Worker-scoped keys embed the node address.
const (
	milestoneControlPlane = "control_plane_initialized"
	milestoneNFSServer    = "nfs_server_configured"
	milestoneStorageClass = "storage_class_applied"
)

func milestoneDeps(address string) string {
	return "deps_" + address + "_installed"
}

func milestoneWorkerJoined(address string) string {
	return "worker_" + address + "_joined"
}

func milestoneNFSClient(address string) string {
	return "nfs_client_" + address + "_configured"
}

const (
	nodeReadyTimeout    = 5 * time.Minute
	clusterReadyTimeout = 10 * time.Minute
)

// ClusterClient is the slice of the Kubernetes API the orchestrator needs.
// The concrete implementation is k8s.Client.
type ClusterClient interface {
	IsMember(ctx context.Context, addressOrName string) (bool, error)
	WaitForNodeReady(ctx context.Context, addressOrName string, timeout time.Duration) error
	WaitForNodesReady(ctx context.Context, expected int, timeout time.Duration) error
	FailedSystemPods(ctx context.Context) ([]string, error)
	EnsureStorageClass(ctx context.Context, name, provisioner string) error
}

// Orchestrator drives provisioning for one cluster.
type Orchestrator struct {
	cfg      *config.Config
	registry *topology.Registry
	exec     sshexec.Executor
	store    *state.Store
	log      *zap.SugaredLogger

	// newClusterClient is a factory so tests can substitute a fake cluster.
	newClusterClient func(kubeconfigPath string) (ClusterClient, error)
}

// New builds an orchestrator over the given collaborators.
func New(cfg *config.Config, registry *topology.Registry, exec sshexec.Executor, store *state.Store, log *zap.SugaredLogger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		registry: registry,
		exec:     exec,
		store:    store,
		log:      log,
		newClusterClient: func(kubeconfigPath string) (ClusterClient, error) {
			return k8s.NewClient(kubeconfigPath)
		},
	}
}

// retryRemote wraps a remote operation in the configured retry policy.
// Jitter is enabled for fan-out paths so concurrent workers do not
// synchronize their retries.
func (o *Orchestrator) retryRemote(ctx context.Context, jitter bool, op func() error) error {
	opts := []retry.Option{
		retry.WithMaxAttempts(o.cfg.Retry.MaxAttempts),
		retry.WithInitialDelay(o.cfg.Retry.InitialDelay),
		retry.WithMaxDelay(o.cfg.Retry.MaxDelay),
	}
	if jitter {
		opts = append(opts, retry.WithJitter())
	}
	return retry.WithExponentialBackoff(ctx, op, opts...)
}

// clusterClient opens a client against the kubeconfig persisted by
// control-plane initialization.
func (o *Orchestrator) clusterClient() (ClusterClient, error) {
	return o.newClusterClient(o.store.KubeconfigPath())
}

// InstallDependencies ensures each node has the tools provisioning needs.
// Idempotent per node via the deps milestone.
func (o *Orchestrator) InstallDependencies(ctx context.Context, force bool) (*Summary, error) {
	summary := &Summary{Operation: "deps"}

	for _, node := range o.registry.All() {
		key := milestoneDeps(node.Address)
		if !force && o.store.IsSatisfied(key, "true") {
			summary.Outcomes = append(summary.Outcomes, newOutcome(node, StatusAlreadyDone, ""))
			continue
		}

		o.log.Infow("installing dependencies", "node", node.Address)
		err := o.retryRemote(ctx, false, func() error {
			// curl ships with macOS; Homebrew is the one tool we insist on
			// for anything beyond that.
			if _, err := o.exec.Run(ctx, node, "command -v curl >/dev/null"); err != nil {
				return err
			}
			_, err := o.exec.Run(ctx, node, "command -v brew >/dev/null")
			return err
		})
		if err != nil {
			summary.Outcomes = append(summary.Outcomes, newOutcome(node, StatusFailed, err.Error()))
			continue
		}

		if err := o.store.Record(key, "true"); err != nil {
			return summary, err
		}
		summary.Outcomes = append(summary.Outcomes, newOutcome(node, StatusReady, ""))
	}

	o.writeSummary(summary)

	if summary.AllFailed() {
		return summary, &AllFailedError{Summary: summary}
	}
	if summary.Partial() {
		return summary, &PartialFailureError{Summary: summary}
	}
	return summary, nil
}

// hostname fetches a node's short hostname, used alongside the address when
// matching the node against cluster membership.
func (o *Orchestrator) hostname(ctx context.Context, node topology.Node) string {
	result, err := o.exec.Run(ctx, node, "hostname -s", sshexec.Tolerant())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(result.Stdout)
}

// ExpectedNodeCount is the configured cluster size.
func (o *Orchestrator) ExpectedNodeCount() int {
	return 1 + len(o.registry.Workers())
}

func (o *Orchestrator) writeSummary(summary *Summary) {
	if path, err := o.store.WriteRunSummary(summary.Operation, summary); err != nil {
		o.log.Warnw("failed to persist run summary", "error", err)
	} else {
		o.log.Debugw("run summary written", "path", path)
	}
}

// joinURL is the K3s registration endpoint exposed by the control plane.
func (o *Orchestrator) joinURL() string {
	return "https://" + net.JoinHostPort(o.registry.ControlPlane().Address, "6443")
}
