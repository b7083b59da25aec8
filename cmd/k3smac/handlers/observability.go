package handlers

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/k3smac/k3smac/internal/config"
	"github.com/k3smac/k3smac/internal/k8s"
	"github.com/k3smac/k3smac/internal/observability"
)

// Observability stack dependencies, replaced in tests.
var (
	newK8sClient = k8s.NewClient

	newInstaller = func(kubeconfig []byte, namespace string) (observability.Installer, error) {
		return observability.NewHelmInstaller(kubeconfig, namespace)
	}

	newDeployer = func(cfg config.ObservabilityConfig, cluster observability.ClusterOps, installer observability.Installer, log *zap.SugaredLogger) *observability.Deployer {
		return observability.NewDeployer(cfg, cluster, installer, log)
	}
)

// Observability deploys the telemetry stack onto the running cluster.
func Observability(ctx context.Context, opts Options) error {
	r, err := setup(opts)
	if err != nil {
		return err
	}
	defer r.close()

	kubeconfigPath := r.store.KubeconfigPath()
	kubeconfig, err := os.ReadFile(kubeconfigPath)
	if err != nil {
		return fmt.Errorf("kubeconfig not found, run 'k3smac up' first: %w", err)
	}

	cluster, err := newK8sClient(kubeconfigPath)
	if err != nil {
		return fmt.Errorf("failed to connect to cluster: %w", err)
	}

	installer, err := newInstaller(kubeconfig, r.cfg.Observability.Namespace)
	if err != nil {
		return err
	}

	return newDeployer(r.cfg.Observability, cluster, installer, r.log).Deploy(ctx)
}
