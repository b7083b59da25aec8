package wizard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/k3smac/k3smac/internal/config"
)

func TestBuildConfig(t *testing.T) {
	result := &Result{
		ClusterName:         "mac-cluster",
		ControlPlaneAddress: "192.168.1.10",
		WorkerAddresses:     []string{"192.168.1.11", "192.168.1.12"},
		SSHUser:             "admin",
		SSHKeyPath:          "~/.ssh/id_ed25519",
		K3sVersion:          "v1.31",
	}

	cfg := BuildConfig(result)
	assert.Equal(t, "mac-cluster", cfg.ClusterName)
	assert.Equal(t, "192.168.1.10", cfg.ControlPlane.Address)
	require.Len(t, cfg.Workers, 2)
	assert.Equal(t, "192.168.1.11", cfg.Workers[0].Address)
	assert.Equal(t, "admin", cfg.SSH.DefaultUser)
	assert.Equal(t, "v1.31", cfg.K3s.Version)
	assert.Empty(t, cfg.Network.PodCIDR)
}

func TestBuildConfig_Advanced(t *testing.T) {
	result := &Result{
		ClusterName:         "mac-cluster",
		ControlPlaneAddress: "192.168.1.10",
		Advanced: &AdvancedOptions{
			PodCIDR:       "10.100.0.0/16",
			ServiceCIDR:   "10.101.0.0/16",
			NFSExportPath: "/srv/nfs",
			StorageClass:  "nfs-fast",
			ParallelJoin:  true,
		},
	}

	cfg := BuildConfig(result)
	assert.Equal(t, "10.100.0.0/16", cfg.Network.PodCIDR)
	assert.Equal(t, "/srv/nfs", cfg.Storage.NFSExportPath)
	assert.True(t, cfg.Join.Parallel)
}

func TestWriteConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k3smac.yaml")
	cfg := BuildConfig(&Result{ClusterName: "test", ControlPlaneAddress: "192.168.1.10"})

	require.NoError(t, WriteConfig(cfg, path, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# k3smac cluster configuration")

	var loaded config.Config
	require.NoError(t, yaml.Unmarshal(data, &loaded))
	assert.Equal(t, "test", loaded.ClusterName)
	assert.Equal(t, "192.168.1.10", loaded.ControlPlane.Address)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestWriteConfig_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k3smac.yaml")
	cfg := BuildConfig(&Result{ClusterName: "test", ControlPlaneAddress: "192.168.1.10"})

	require.NoError(t, WriteConfig(cfg, path, false))
	err := WriteConfig(cfg, path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, WriteConfig(cfg, path, true))
}

func TestValidators(t *testing.T) {
	assert.NoError(t, validateClusterName("mac-cluster"))
	assert.Error(t, validateClusterName("Mac Cluster"))
	assert.Error(t, validateClusterName(""))

	assert.NoError(t, validateAddress("192.168.1.10"))
	assert.Error(t, validateAddress("999.1.1.1"))

	assert.NoError(t, validateAddressList(""))
	assert.NoError(t, validateAddressList("192.168.1.11, mini-2.local"))
	assert.Error(t, validateAddressList("192.168.1.11, 999.1.1.1"))

	assert.NoError(t, validateCIDR("10.42.0.0/16"))
	assert.Error(t, validateCIDR("10.42.0.0"))
}

func TestSplitAddresses(t *testing.T) {
	assert.Nil(t, splitAddresses(""))
	assert.Equal(t, []string{"a", "b"}, splitAddresses(" a , b ,"))
}
