package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/k3smac/k3smac/internal/config"
)

type fakeOps struct {
	namespaces []string
	classes    map[string]bool
	defaultCls string
	defaultErr error
	claims     []string
	waits      []string
}

func (f *fakeOps) EnsureNamespace(ctx context.Context, name string) error {
	f.namespaces = append(f.namespaces, name)
	return nil
}

func (f *fakeOps) StorageClassExists(ctx context.Context, name string) (bool, error) {
	return f.classes[name], nil
}

func (f *fakeOps) DefaultStorageClass(ctx context.Context) (string, error) {
	if f.defaultErr != nil {
		return "", f.defaultErr
	}
	return f.defaultCls, nil
}

func (f *fakeOps) EnsurePVC(ctx context.Context, namespace, name, size, storageClass string) error {
	f.claims = append(f.claims, namespace+"/"+name+"@"+storageClass)
	return nil
}

func (f *fakeOps) WaitForDeploymentAvailable(ctx context.Context, namespace, name string, timeout time.Duration) error {
	f.waits = append(f.waits, name)
	return nil
}

type fakeInstaller struct {
	releases []string
	failOn   string
}

func (f *fakeInstaller) InstallOrUpgrade(ctx context.Context, releaseName, repoURL, chartName, version string, values map[string]interface{}) error {
	if releaseName == f.failOn {
		return errors.New("chart install failed")
	}
	f.releases = append(f.releases, releaseName)
	return nil
}

func (f *fakeInstaller) ReleaseExists(releaseName string) (bool, error) {
	return false, nil
}

func testObsConfig() config.ObservabilityConfig {
	return config.ObservabilityConfig{
		Namespace:    "observability",
		StorageClass: "nfs-client",
		StorageSize:  "10Gi",
		Collector:    config.ChartConfig{Chart: "opentelemetry-collector", Release: "otel-collector"},
		Prometheus:   config.ChartConfig{Chart: "kube-prometheus-stack", Release: "prometheus"},
		Loki:         config.ChartConfig{Chart: "loki", Release: "loki"},
		Tempo:        config.ChartConfig{Chart: "tempo", Release: "tempo"},
		Grafana:      config.ChartConfig{Chart: "grafana", Release: "grafana"},
	}
}

func TestDeployOrder(t *testing.T) {
	ops := &fakeOps{classes: map[string]bool{"nfs-client": true}}
	installer := &fakeInstaller{}
	d := NewDeployer(testObsConfig(), ops, installer, zap.NewNop().Sugar())

	require.NoError(t, d.Deploy(context.Background()))

	assert.Equal(t, []string{"observability"}, ops.namespaces)
	assert.Equal(t, []string{
		"observability/prometheus-data@nfs-client",
		"observability/loki-data@nfs-client",
		"observability/tempo-data@nfs-client",
	}, ops.claims)
	assert.Equal(t, []string{"otel-collector", "prometheus", "loki", "tempo", "grafana"}, installer.releases)
}

func TestDeploy_StorageClassFallback(t *testing.T) {
	ops := &fakeOps{classes: map[string]bool{}, defaultCls: "local-path"}
	installer := &fakeInstaller{}
	d := NewDeployer(testObsConfig(), ops, installer, zap.NewNop().Sugar())

	require.NoError(t, d.Deploy(context.Background()))

	for _, claim := range ops.claims {
		assert.Contains(t, claim, "@local-path")
	}
}

func TestDeploy_NoUsableStorageClass(t *testing.T) {
	ops := &fakeOps{classes: map[string]bool{}, defaultErr: errors.New("no default storage class")}
	installer := &fakeInstaller{}
	d := NewDeployer(testObsConfig(), ops, installer, zap.NewNop().Sugar())

	err := d.Deploy(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable storage class")
	assert.Empty(t, installer.releases)
}

func TestDeploy_BackendFailureStopsGrafana(t *testing.T) {
	ops := &fakeOps{classes: map[string]bool{"nfs-client": true}}
	installer := &fakeInstaller{failOn: "loki"}
	d := NewDeployer(testObsConfig(), ops, installer, zap.NewNop().Sugar())

	err := d.Deploy(context.Background())
	require.Error(t, err)
	assert.NotContains(t, installer.releases, "grafana")
}
