// Package observability deploys the cluster telemetry stack with Helm:
// an OpenTelemetry collector, Prometheus, Loki and Tempo backends, and
// Grafana on top, layered so each tier's dependencies exist before it starts.
package observability

import (
	"context"
	"fmt"
	"os"
	"time"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/getter"
	"helm.sh/helm/v3/pkg/repo"
)

const helmTimeout = 10 * time.Minute

// Installer abstracts chart installation so the deployer can be tested
// without a live cluster.
type Installer interface {
	InstallOrUpgrade(ctx context.Context, releaseName, repoURL, chartName, version string, values map[string]interface{}) error
	ReleaseExists(releaseName string) (bool, error)
}

// HelmInstaller is the Helm-backed Installer. It reads the kubeconfig from
// memory rather than relying on ambient KUBECONFIG state.
type HelmInstaller struct {
	namespace    string
	actionConfig *action.Configuration
}

// NewHelmInstaller creates an installer scoped to one namespace.
func NewHelmInstaller(kubeconfig []byte, namespace string) (*HelmInstaller, error) {
	actionConfig := new(action.Configuration)
	restGetter := newRESTClientGetter(kubeconfig, namespace)

	if err := actionConfig.Init(restGetter, namespace, "secret", func(string, ...interface{}) {}); err != nil {
		return nil, fmt.Errorf("failed to initialize helm action config: %w", err)
	}

	return &HelmInstaller{namespace: namespace, actionConfig: actionConfig}, nil
}

// InstallOrUpgrade installs the chart, or upgrades the release if it already
// exists. Both paths wait for the release's workloads to settle.
func (h *HelmInstaller) InstallOrUpgrade(ctx context.Context, releaseName, repoURL, chartName, version string, values map[string]interface{}) error {
	exists, err := h.ReleaseExists(releaseName)
	if err != nil {
		return err
	}
	if exists {
		return h.upgrade(ctx, releaseName, repoURL, chartName, version, values)
	}
	return h.install(ctx, releaseName, repoURL, chartName, version, values)
}

// ReleaseExists reports whether a release has any history in the namespace.
func (h *HelmInstaller) ReleaseExists(releaseName string) (bool, error) {
	hist := action.NewHistory(h.actionConfig)
	hist.Max = 1
	if _, err := hist.Run(releaseName); err != nil {
		return false, nil
	}
	return true, nil
}

func (h *HelmInstaller) install(ctx context.Context, releaseName, repoURL, chartName, version string, values map[string]interface{}) error {
	client := action.NewInstall(h.actionConfig)
	client.ReleaseName = releaseName
	client.Namespace = h.namespace
	client.CreateNamespace = true
	client.Version = version
	client.Wait = true
	client.Timeout = helmTimeout

	chrt, err := h.loadChart(repoURL, chartName, version)
	if err != nil {
		return err
	}

	_, err = client.RunWithContext(ctx, chrt, values)
	return err
}

func (h *HelmInstaller) upgrade(ctx context.Context, releaseName, repoURL, chartName, version string, values map[string]interface{}) error {
	client := action.NewUpgrade(h.actionConfig)
	client.Namespace = h.namespace
	client.Version = version
	client.Wait = true
	client.Timeout = helmTimeout
	client.ReuseValues = false

	chrt, err := h.loadChart(repoURL, chartName, version)
	if err != nil {
		return err
	}

	_, err = client.RunWithContext(ctx, releaseName, chrt, values)
	return err
}

func (h *HelmInstaller) loadChart(repoURL, chartName, version string) (*chart.Chart, error) {
	settings := cli.New()

	chartPath, err := repo.FindChartInRepoURL(repoURL, chartName, version, "", "", "", getter.All(settings))
	if err != nil {
		return nil, fmt.Errorf("failed to find chart %s in repo %s: %w", chartName, repoURL, err)
	}
	defer func() { _ = os.Remove(chartPath) }()

	return loader.Load(chartPath)
}

// Uninstall removes a release and waits for its resources to go away.
func (h *HelmInstaller) Uninstall(releaseName string) error {
	client := action.NewUninstall(h.actionConfig)
	client.Wait = true
	client.Timeout = 5 * time.Minute

	_, err := client.Run(releaseName)
	return err
}
