package provision

import (
	"context"
	"fmt"
	"strings"
)

// VerifyCluster performs the cluster-wide verification pass: the node count
// matches expectation, every node reports Ready within the bound, and no
// system-critical pod sits in a Failed phase.
func (o *Orchestrator) VerifyCluster(ctx context.Context) error {
	client, err := o.clusterClient()
	if err != nil {
		return fmt.Errorf("failed to open cluster client: %w", err)
	}

	expected := o.ExpectedNodeCount()
	o.log.Infow("verifying cluster", "expectedNodes", expected)

	if err := client.WaitForNodesReady(ctx, expected, clusterReadyTimeout); err != nil {
		return fmt.Errorf("cluster verification failed: %w", err)
	}

	failed, err := client.FailedSystemPods(ctx)
	if err != nil {
		return fmt.Errorf("failed to inspect system pods: %w", err)
	}
	if len(failed) > 0 {
		return fmt.Errorf("system pods in Failed phase: %s", strings.Join(failed, ", "))
	}

	o.log.Info("cluster verified healthy")
	return nil
}
