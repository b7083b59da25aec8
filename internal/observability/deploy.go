package observability

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/k3smac/k3smac/internal/config"
)

const deployTimeout = 5 * time.Minute

// ClusterOps is the slice of the Kubernetes API the deployer needs.
type ClusterOps interface {
	EnsureNamespace(ctx context.Context, name string) error
	StorageClassExists(ctx context.Context, name string) (bool, error)
	DefaultStorageClass(ctx context.Context) (string, error)
	EnsurePVC(ctx context.Context, namespace, name, size, storageClass string) error
	WaitForDeploymentAvailable(ctx context.Context, namespace, name string, timeout time.Duration) error
}

// Deployer installs the telemetry stack in dependency order: namespace and
// claims first, then the collector, then the storage backends, then Grafana.
type Deployer struct {
	cfg       config.ObservabilityConfig
	cluster   ClusterOps
	installer Installer
	log       *zap.SugaredLogger
}

// NewDeployer wires a deployer over the given cluster and installer.
func NewDeployer(cfg config.ObservabilityConfig, cluster ClusterOps, installer Installer, log *zap.SugaredLogger) *Deployer {
	return &Deployer{cfg: cfg, cluster: cluster, installer: installer, log: log}
}

// Deploy rolls out the full stack. Re-running against a healthy stack
// upgrades in place; Helm's release history makes each layer idempotent.
func (d *Deployer) Deploy(ctx context.Context) error {
	if err := d.cluster.EnsureNamespace(ctx, d.cfg.Namespace); err != nil {
		return fmt.Errorf("failed to ensure namespace %s: %w", d.cfg.Namespace, err)
	}

	class, err := d.resolveStorageClass(ctx)
	if err != nil {
		return err
	}
	d.log.Infow("deploying observability stack", "namespace", d.cfg.Namespace, "storageClass", class)

	for _, claim := range []string{d.cfg.Prometheus.Release, d.cfg.Loki.Release, d.cfg.Tempo.Release} {
		if err := d.cluster.EnsurePVC(ctx, d.cfg.Namespace, claim+"-data", d.cfg.StorageSize, class); err != nil {
			return fmt.Errorf("failed to ensure claim for %s: %w", claim, err)
		}
	}

	if err := d.installLayer(ctx, d.cfg.Collector, d.collectorValues()); err != nil {
		return err
	}
	if err := d.cluster.WaitForDeploymentAvailable(ctx, d.cfg.Namespace, d.cfg.Collector.Release+"-opentelemetry-collector", deployTimeout); err != nil {
		return fmt.Errorf("collector not available: %w", err)
	}

	for _, backend := range []config.ChartConfig{d.cfg.Prometheus, d.cfg.Loki, d.cfg.Tempo} {
		if err := d.installLayer(ctx, backend, d.backendValues(backend, class)); err != nil {
			return err
		}
	}

	if err := d.installLayer(ctx, d.cfg.Grafana, d.grafanaValues(class)); err != nil {
		return err
	}
	if err := d.cluster.WaitForDeploymentAvailable(ctx, d.cfg.Namespace, d.cfg.Grafana.Release, deployTimeout); err != nil {
		return fmt.Errorf("grafana not available: %w", err)
	}

	d.log.Info("observability stack deployed")
	return nil
}

func (d *Deployer) installLayer(ctx context.Context, chart config.ChartConfig, values map[string]interface{}) error {
	d.log.Infow("installing chart", "release", chart.Release, "chart", chart.Chart, "version", chart.Version)
	if err := d.installer.InstallOrUpgrade(ctx, chart.Release, chart.RepoURL, chart.Chart, chart.Version, values); err != nil {
		return fmt.Errorf("failed to install %s: %w", chart.Release, err)
	}
	return nil
}

// resolveStorageClass prefers the configured class, falling back to the
// cluster default when the configured one does not exist.
func (d *Deployer) resolveStorageClass(ctx context.Context) (string, error) {
	if d.cfg.StorageClass != "" {
		exists, err := d.cluster.StorageClassExists(ctx, d.cfg.StorageClass)
		if err != nil {
			return "", fmt.Errorf("failed to check storage class: %w", err)
		}
		if exists {
			return d.cfg.StorageClass, nil
		}
		d.log.Warnw("configured storage class not found, using cluster default", "class", d.cfg.StorageClass)
	}

	class, err := d.cluster.DefaultStorageClass(ctx)
	if err != nil {
		return "", fmt.Errorf("no usable storage class: %w", err)
	}
	return class, nil
}

func (d *Deployer) collectorValues() map[string]interface{} {
	return map[string]interface{}{
		"mode": "deployment",
		"config": map[string]interface{}{
			"exporters": map[string]interface{}{
				"prometheus": map[string]interface{}{
					"endpoint": "0.0.0.0:8889",
				},
				"otlp": map[string]interface{}{
					"endpoint": fmt.Sprintf("%s.%s:4317", d.cfg.Tempo.Release, d.cfg.Namespace),
					"tls":      map[string]interface{}{"insecure": true},
				},
			},
		},
	}
}

func (d *Deployer) backendValues(chart config.ChartConfig, class string) map[string]interface{} {
	values := map[string]interface{}{
		"persistence": map[string]interface{}{
			"enabled":          true,
			"storageClassName": class,
			"size":             d.cfg.StorageSize,
		},
	}
	if chart.Chart == "loki" {
		// The loki chart runs multi-target by default; a homelab wants the
		// single binary.
		values["deploymentMode"] = "SingleBinary"
	}
	return values
}

func (d *Deployer) grafanaValues(class string) map[string]interface{} {
	ns := d.cfg.Namespace
	return map[string]interface{}{
		"persistence": map[string]interface{}{
			"enabled":          true,
			"storageClassName": class,
		},
		"datasources": map[string]interface{}{
			"datasources.yaml": map[string]interface{}{
				"apiVersion": 1,
				"datasources": []map[string]interface{}{
					{
						"name": "Prometheus",
						"type": "prometheus",
						"url":  fmt.Sprintf("http://%s-prometheus.%s:9090", d.cfg.Prometheus.Release, ns),
					},
					{
						"name": "Loki",
						"type": "loki",
						"url":  fmt.Sprintf("http://%s.%s:3100", d.cfg.Loki.Release, ns),
					},
					{
						"name": "Tempo",
						"type": "tempo",
						"url":  fmt.Sprintf("http://%s.%s:3200", d.cfg.Tempo.Release, ns),
					},
				},
			},
		},
	}
}
