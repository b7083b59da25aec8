package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/k3smac/k3smac/internal/config"
	"github.com/k3smac/k3smac/internal/state"
	"github.com/k3smac/k3smac/internal/topology"
	"github.com/k3smac/k3smac/internal/util/async"
	"github.com/k3smac/k3smac/internal/util/poll"
)

// JoinOptions controls the worker-join fan-out.
type JoinOptions struct {
	// Force re-runs the join even when the worker is already a member.
	Force bool
	// Parallel fans out one concurrent join per worker. Sequential mode
	// paces joins with the configured inter-join delay.
	Parallel bool
}

// JoinWorkers runs the join state machine for every configured worker.
//
// Per-node failures are captured into that node's outcome rather than
// aborting siblings. The run fails only when all workers fail (fatal) or a
// non-per-node error occurs; partial success returns PartialFailureError so
// the caller can exit non-zero after printing the summary.
func (o *Orchestrator) JoinWorkers(ctx context.Context, opts JoinOptions) (*Summary, error) {
	workers := o.registry.Workers()
	summary := &Summary{Operation: "join"}
	if len(workers) == 0 {
		o.log.Info("no workers configured")
		return summary, nil
	}

	token, err := o.store.ReadToken()
	if err != nil {
		return summary, &ConfigurationError{Msg: err.Error()}
	}

	client, err := o.clusterClient()
	if err != nil {
		return summary, fmt.Errorf("failed to open cluster client: %w", err)
	}

	var (
		mu       sync.Mutex
		fatalErr error
	)
	collect := func(outcome Outcome, err error) {
		mu.Lock()
		defer mu.Unlock()
		summary.Outcomes = append(summary.Outcomes, outcome)
		if err != nil && fatalErr == nil {
			fatalErr = err
		}
	}

	if opts.Parallel {
		o.log.Infow("joining workers in parallel", "count", len(workers))
		tasks := make([]async.Task, len(workers))
		for i, worker := range workers {
			tasks[i] = async.Task{
				Name: worker.Address,
				Func: func(ctx context.Context) error {
					outcome, err := o.joinWorker(ctx, worker, token, client, opts)
					collect(outcome, err)
					return err
				},
			}
		}
		async.RunAll(ctx, tasks)
	} else {
		o.log.Infow("joining workers sequentially", "count", len(workers), "delay", o.cfg.Join.Delay)
		// The limiter spaces joins so the control plane's admission path is
		// never flooded; the first join proceeds immediately.
		limiter := rate.NewLimiter(rate.Every(o.cfg.Join.Delay), 1)
		for _, worker := range workers {
			if err := limiter.Wait(ctx); err != nil {
				return summary, err
			}
			outcome, err := o.joinWorker(ctx, worker, token, client, opts)
			collect(outcome, err)
			if err != nil {
				break
			}
		}
	}

	o.writeSummary(summary)

	if fatalErr != nil {
		return summary, fatalErr
	}
	if summary.AllFailed() {
		return summary, &AllFailedError{Summary: summary}
	}
	if summary.Partial() {
		return summary, &PartialFailureError{Summary: summary}
	}
	return summary, nil
}

// joinWorker runs the strictly ordered per-node sequence: address check →
// reachability probe → membership check → orphan check and cleanup → join →
// milestone record → readiness verification.
//
// The returned error is non-nil only for failures that must abort the whole
// run (persistence); everything else lands in the outcome.
func (o *Orchestrator) joinWorker(ctx context.Context, worker topology.Node, token string, client ClusterClient, opts JoinOptions) (Outcome, error) {
	// Invalid address: no network I/O at all for this node.
	if !config.ValidAddress(worker.Address) {
		return newOutcome(worker, StatusFailed, "invalid address"), nil
	}

	if err := o.probeSSH(ctx, worker); err != nil {
		return newOutcome(worker, StatusFailed, "unreachable: "+err.Error()), nil
	}

	hostname := o.hostname(ctx, worker)

	member, err := o.isMember(ctx, client, worker.Address, hostname)
	if err != nil {
		return newOutcome(worker, StatusFailed, "membership check failed: "+err.Error()), nil
	}

	if member && !opts.Force {
		// Idempotence: the second invocation issues no mutating command.
		if !o.store.IsSatisfied(milestoneWorkerJoined(worker.Address), "true") {
			if err := o.store.Record(milestoneWorkerJoined(worker.Address), "true"); err != nil {
				return newOutcome(worker, StatusFailed, err.Error()), err
			}
		}
		return newOutcome(worker, StatusAlreadyDone, "already a cluster member"), nil
	}

	if !member {
		running, err := o.agentRunning(ctx, worker)
		if err != nil {
			return newOutcome(worker, StatusFailed, "agent probe failed: "+err.Error()), nil
		}
		if running {
			// An unregistered agent must be cleaned up before rejoining.
			o.log.Warnw("orphaned agent detected, cleaning up", "node", worker.Address)
			if err := o.retryRemote(ctx, opts.Parallel, func() error {
				_, err := o.exec.Run(ctx, worker, "sudo "+k3sAgentUninstall)
				return err
			}); err != nil {
				return newOutcome(worker, StatusOrphaned, "cleanup failed: "+err.Error()), nil
			}
		}
	}

	o.log.Infow("joining worker", "node", worker.Address)
	if err := o.retryRemote(ctx, opts.Parallel, func() error {
		_, err := o.exec.Run(ctx, worker, o.agentInstallCommand(token))
		return err
	}); err != nil {
		return newOutcome(worker, StatusFailed, "join failed: "+err.Error()), nil
	}

	if err := o.store.Record(milestoneWorkerJoined(worker.Address), "true"); err != nil {
		var persistErr *state.PersistenceError
		if errors.As(err, &persistErr) {
			// Cannot durably record progress: fatal for the whole run.
			return newOutcome(worker, StatusFailed, err.Error()), err
		}
		return newOutcome(worker, StatusFailed, err.Error()), nil
	}

	// Verification timeouts are reported, not rolled back: the node joined,
	// the operator follows up on readiness.
	target := worker.Address
	if err := client.WaitForNodeReady(ctx, target, nodeReadyTimeout); err != nil {
		if hostname != "" {
			if herr := client.WaitForNodeReady(ctx, hostname, nodeReadyTimeout); herr == nil {
				return newOutcome(worker, StatusJoined, ""), nil
			}
		}
		var timeout *poll.TimeoutError
		if errors.As(err, &timeout) {
			return newOutcome(worker, StatusJoined, "verification timed out: "+err.Error()), nil
		}
		return newOutcome(worker, StatusJoined, "verification incomplete: "+err.Error()), nil
	}

	return newOutcome(worker, StatusJoined, ""), nil
}

func (o *Orchestrator) isMember(ctx context.Context, client ClusterClient, address, hostname string) (bool, error) {
	member, err := client.IsMember(ctx, address)
	if err != nil || member {
		return member, err
	}
	if hostname != "" {
		return client.IsMember(ctx, hostname)
	}
	return false, nil
}

// agentInstallCommand builds the K3s agent join invocation.
func (o *Orchestrator) agentInstallCommand(token string) string {
	env := []string{
		"K3S_URL=" + o.joinURL(),
		"K3S_TOKEN=" + token,
	}
	if o.cfg.K3s.Version != "" {
		env = append(env, "INSTALL_K3S_CHANNEL="+o.cfg.K3s.Version)
	}

	args := append([]string{"agent"}, o.cfg.K3s.ExtraAgentArgs...)

	return fmt.Sprintf("curl -sfL %s | %s sh -s - %s",
		k3sInstallURL, strings.Join(env, " "), strings.Join(args, " "))
}
