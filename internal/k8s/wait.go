package k8s

import (
	"context"
	"fmt"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/k3smac/k3smac/internal/util/poll"
)

const waitInterval = 5 * time.Second

// WaitForNodesReady polls until expected nodes are registered and Ready.
func (c *Client) WaitForNodesReady(ctx context.Context, expected int, timeout time.Duration) error {
	what := fmt.Sprintf("%d nodes ready", expected)
	return poll.Until(ctx, what, waitInterval, timeout, func(ctx context.Context) (bool, error) {
		nodes, err := c.Nodes(ctx)
		if err != nil {
			// API may not be up yet; keep polling.
			return false, nil
		}

		ready := 0
		for _, n := range nodes {
			if n.Ready {
				ready++
			}
		}
		return len(nodes) >= expected && ready >= expected, nil
	})
}

// WaitForNodeReady polls until the node identified by internal IP or name
// is registered and Ready.
func (c *Client) WaitForNodeReady(ctx context.Context, addressOrName string, timeout time.Duration) error {
	what := fmt.Sprintf("node %s ready", addressOrName)
	return poll.Until(ctx, what, waitInterval, timeout, func(ctx context.Context) (bool, error) {
		nodes, err := c.Nodes(ctx)
		if err != nil {
			return false, nil
		}
		for _, n := range nodes {
			if (n.InternalIP == addressOrName || n.Name == addressOrName) && n.Ready {
				return true, nil
			}
		}
		return false, nil
	})
}

// WaitForDeploymentAvailable polls until the deployment reports its desired
// replica count available.
func (c *Client) WaitForDeploymentAvailable(ctx context.Context, namespace, name string, timeout time.Duration) error {
	what := fmt.Sprintf("deployment %s/%s available", namespace, name)
	return poll.Until(ctx, what, waitInterval, timeout, func(ctx context.Context) (bool, error) {
		deploy, err := c.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return false, nil
		}
		return deploymentAvailable(deploy), nil
	})
}

func deploymentAvailable(deploy *appsv1.Deployment) bool {
	desired := int32(1)
	if deploy.Spec.Replicas != nil {
		desired = *deploy.Spec.Replicas
	}
	return deploy.Status.AvailableReplicas >= desired
}
