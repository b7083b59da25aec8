package wizard

import "github.com/k3smac/k3smac/internal/config"

// BuildConfig turns the wizard answers into a Config. Fields the wizard does
// not ask about are left zero and filled in by config.ApplyDefaults at load
// time.
func BuildConfig(result *Result) *config.Config {
	cfg := &config.Config{
		ClusterName:  result.ClusterName,
		ControlPlane: config.NodeConfig{Address: result.ControlPlaneAddress},
		SSH: config.SSHConfig{
			DefaultUser: result.SSHUser,
			KeyPath:     result.SSHKeyPath,
		},
		K3s: config.K3sConfig{Version: result.K3sVersion},
	}

	for _, addr := range result.WorkerAddresses {
		cfg.Workers = append(cfg.Workers, config.NodeConfig{Address: addr})
	}

	if result.Advanced != nil {
		cfg.Network = config.NetworkConfig{
			PodCIDR:     result.Advanced.PodCIDR,
			ServiceCIDR: result.Advanced.ServiceCIDR,
		}
		cfg.Storage = config.StorageConfig{
			NFSExportPath: result.Advanced.NFSExportPath,
			StorageClass:  result.Advanced.StorageClass,
		}
		cfg.Join.Parallel = result.Advanced.ParallelJoin
	}

	return cfg
}
