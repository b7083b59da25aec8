package handlers

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/k3smac/k3smac/internal/config"
	"github.com/k3smac/k3smac/internal/config/wizard"
	"github.com/k3smac/k3smac/internal/provision"
	"github.com/k3smac/k3smac/internal/sshexec"
	"github.com/k3smac/k3smac/internal/state"
	"github.com/k3smac/k3smac/internal/topology"
	"github.com/k3smac/k3smac/internal/ui"
)

type nopExecutor struct{}

func (nopExecutor) Run(ctx context.Context, node topology.Node, command string, opts ...sshexec.RunOption) (sshexec.Result, error) {
	return sshexec.Result{}, nil
}

// saveAndRestoreFactories snapshots the package factory variables for one test.
func saveAndRestoreFactories(t *testing.T) {
	origFind := findConfigFile
	origLoad := loadConfigFile
	origLogger := newLogger
	origStore := openStore
	origExec := newExecutor
	origOrch := newOrchestrator
	origRender := newRenderer
	origWizard := runWizard
	origWrite := writeConfig

	t.Cleanup(func() {
		findConfigFile = origFind
		loadConfigFile = origLoad
		newLogger = origLogger
		openStore = origStore
		newExecutor = origExec
		newOrchestrator = origOrch
		newRenderer = origRender
		runWizard = origWizard
		writeConfig = origWrite
	})
}

// stubRuntime points the factories at an in-memory fleet under a temp state
// directory and returns the directory for assertions.
func stubRuntime(t *testing.T, workers ...string) string {
	t.Helper()
	stateDir := t.TempDir()

	cfg := &config.Config{
		ClusterName:  "test",
		ControlPlane: config.NodeConfig{Address: "192.168.1.10"},
		SSH:          config.SSHConfig{DefaultUser: "admin", ConnectTimeout: time.Second},
		Network:      config.NetworkConfig{PodCIDR: "10.42.0.0/16", ServiceCIDR: "10.43.0.0/16"},
		Retry:        config.RetryConfig{MaxAttempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond},
		Join:         config.JoinConfig{Delay: time.Millisecond},
		Storage:      config.StorageConfig{NFSExportPath: "/opt/k3smac/nfs", StorageClass: "nfs-client"},
		StateDir:     stateDir,
	}
	for _, w := range workers {
		cfg.Workers = append(cfg.Workers, config.NodeConfig{Address: w})
	}

	loadConfigFile = func(string) (*config.Config, error) { return cfg, nil }
	findConfigFile = func() (string, error) { return "k3smac.yaml", nil }
	newLogger = func(string, bool) (*zap.SugaredLogger, func(), error) {
		return zap.NewNop().Sugar(), func() {}, nil
	}
	newExecutor = func(sshexec.Resolver, *config.Config) sshexec.Executor { return nopExecutor{} }
	newRenderer = func() *ui.Renderer { return ui.NewRenderer(discard{}) }

	return stateDir
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestDeps(t *testing.T) {
	saveAndRestoreFactories(t)
	stateDir := stubRuntime(t, "192.168.1.11")

	require.NoError(t, Deps(context.Background(), Options{}, false))

	store, err := state.Open(stateDir)
	require.NoError(t, err)
	assert.True(t, store.IsSatisfied("deps_192.168.1.10_installed", "true"))
	assert.True(t, store.IsSatisfied("deps_192.168.1.11_installed", "true"))
}

func TestDeps_ReleasesLock(t *testing.T) {
	saveAndRestoreFactories(t)
	stubRuntime(t)

	require.NoError(t, Deps(context.Background(), Options{}, false))
	// A second run would fail if the first held the lock past its run.
	require.NoError(t, Deps(context.Background(), Options{}, false))
}

func TestJoin_MissingToken(t *testing.T) {
	saveAndRestoreFactories(t)
	stubRuntime(t, "192.168.1.11")

	err := Join(context.Background(), Options{}, false, false, 0)
	require.Error(t, err)
	var cfgErr *provision.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestStatus_WithoutCluster(t *testing.T) {
	saveAndRestoreFactories(t)
	stateDir := stubRuntime(t)

	store, err := state.Open(stateDir)
	require.NoError(t, err)
	require.NoError(t, store.Record("control_plane_initialized", "true"))

	require.NoError(t, Status(context.Background(), Options{}))
}

func TestInit(t *testing.T) {
	saveAndRestoreFactories(t)

	runWizard = func(context.Context, bool) (*wizard.Result, error) {
		return &wizard.Result{ClusterName: "test", ControlPlaneAddress: "192.168.1.10"}, nil
	}
	var wrotePath string
	writeConfig = func(cfg *config.Config, path string, force bool) error {
		wrotePath = path
		assert.Equal(t, "test", cfg.ClusterName)
		return nil
	}

	require.NoError(t, Init(context.Background(), false, filepath.Join(t.TempDir(), "out.yaml"), false))
	assert.Contains(t, wrotePath, "out.yaml")
}

func TestInit_WizardAborted(t *testing.T) {
	saveAndRestoreFactories(t)

	runWizard = func(context.Context, bool) (*wizard.Result, error) {
		return nil, errors.New("user aborted")
	}

	err := Init(context.Background(), false, "", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wizard aborted")
}

func TestSetup_ConfigLoadError(t *testing.T) {
	saveAndRestoreFactories(t)
	stubRuntime(t)
	loadConfigFile = func(string) (*config.Config, error) {
		return nil, errors.New("yaml: bad")
	}

	err := Deps(context.Background(), Options{ConfigPath: "broken.yaml"}, false)
	require.Error(t, err)
}

func TestSetup_StateDirOverride(t *testing.T) {
	saveAndRestoreFactories(t)
	stubRuntime(t)
	override := t.TempDir()

	require.NoError(t, Deps(context.Background(), Options{StateDir: override}, false))

	store, err := state.Open(override)
	require.NoError(t, err)
	assert.True(t, store.IsSatisfied("deps_192.168.1.10_installed", "true"))
}
