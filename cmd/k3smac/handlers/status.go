package handlers

import (
	"context"
	"os"

	"github.com/k3smac/k3smac/internal/k8s"
)

// Status renders cluster membership alongside the recorded milestones.
// It degrades gracefully when the cluster is not reachable yet: milestones
// alone still tell the operator how far provisioning got.
func Status(ctx context.Context, opts Options) error {
	r, err := setup(opts)
	if err != nil {
		return err
	}
	defer r.close()

	var nodes []k8s.NodeStatus
	kubeconfigPath := r.store.KubeconfigPath()
	if _, err := os.Stat(kubeconfigPath); err == nil {
		client, err := newK8sClient(kubeconfigPath)
		if err == nil {
			if listed, err := client.Nodes(ctx); err == nil {
				nodes = listed
			} else {
				r.log.Warnw("cluster not reachable", "error", err)
			}
		}
	}

	r.render.Status(nodes, r.store.Snapshot())
	return nil
}
