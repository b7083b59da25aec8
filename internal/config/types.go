// Package config defines the cluster configuration model and loading logic.
package config

import "time"

// DefaultFileName is the config file looked up when no --config flag is given.
const DefaultFileName = "k3smac.yaml"

// Config is the root configuration for a cluster.
type Config struct {
	ClusterName string `yaml:"cluster_name"`

	ControlPlane NodeConfig   `yaml:"control_plane"`
	Workers      []NodeConfig `yaml:"workers"`

	SSH           SSHConfig           `yaml:"ssh"`
	Network       NetworkConfig       `yaml:"network"`
	K3s           K3sConfig           `yaml:"k3s"`
	Retry         RetryConfig         `yaml:"retry"`
	Preflight     PreflightConfig     `yaml:"preflight"`
	Join          JoinConfig          `yaml:"join"`
	Storage       StorageConfig       `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`

	// StateDir holds the milestone log, join token, run summaries and logs.
	// Overridable via the K3SMAC_STATE_DIR environment variable.
	StateDir string `yaml:"state_dir"`

	// LogRetention bounds how long rotated run logs are kept.
	LogRetention time.Duration `yaml:"log_retention"`
}

// NodeConfig describes one cluster member.
type NodeConfig struct {
	Address string `yaml:"address"`
	// User overrides ssh.default_user for this node.
	User string `yaml:"user,omitempty"`
	// KeyPath overrides ssh.key_path for this node.
	KeyPath string `yaml:"key_path,omitempty"`
	// Label is a free-text annotation shown in summaries.
	Label string `yaml:"label,omitempty"`
}

// SSHConfig holds fleet-wide SSH defaults.
type SSHConfig struct {
	DefaultUser    string        `yaml:"default_user"`
	KeyPath        string        `yaml:"key_path"`
	Port           int           `yaml:"port"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// NetworkConfig holds the cluster CIDRs passed to the K3s installer.
type NetworkConfig struct {
	PodCIDR     string `yaml:"pod_cidr"`
	ServiceCIDR string `yaml:"service_cidr"`
}

// K3sConfig pins the K3s release and extra installer flags.
type K3sConfig struct {
	// Version pins the K3s release channel or exact version. Empty means stable.
	Version string `yaml:"version,omitempty"`
	// ExtraServerArgs are appended to the control-plane install invocation.
	ExtraServerArgs []string `yaml:"extra_server_args,omitempty"`
	// ExtraAgentArgs are appended to every worker join invocation.
	ExtraAgentArgs []string `yaml:"extra_agent_args,omitempty"`
}

// RetryConfig tunes the retry engine around remote operations.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// PreflightConfig holds resource thresholds and the declared target platform.
type PreflightConfig struct {
	MinDiskGB   int    `yaml:"min_disk_gb"`
	MinMemGB    int    `yaml:"min_mem_gb"`
	MinCPUCores int    `yaml:"min_cpu_cores"`
	TargetOS    string `yaml:"target_os"`
	TargetArch  string `yaml:"target_arch"`
}

// JoinConfig controls worker-join fan-out.
type JoinConfig struct {
	// Parallel fans out one concurrent join per worker.
	Parallel bool `yaml:"parallel"`
	// Delay paces sequential joins to avoid flooding the control plane.
	Delay time.Duration `yaml:"delay"`
}

// StorageConfig describes the NFS-backed cluster storage.
type StorageConfig struct {
	NFSExportPath string `yaml:"nfs_export_path"`
	StorageClass  string `yaml:"storage_class"`
}

// ObservabilityConfig describes the telemetry stack deployment.
type ObservabilityConfig struct {
	Namespace string `yaml:"namespace"`
	// StorageClass preferred for backend claims; falls back to the cluster
	// default class when absent.
	StorageClass string       `yaml:"storage_class,omitempty"`
	StorageSize  string       `yaml:"storage_size"`
	Collector    ChartConfig  `yaml:"collector"`
	Prometheus   ChartConfig  `yaml:"prometheus"`
	Loki         ChartConfig  `yaml:"loki"`
	Tempo        ChartConfig  `yaml:"tempo"`
	Grafana      ChartConfig  `yaml:"grafana"`
}

// ChartConfig pins one Helm chart.
type ChartConfig struct {
	RepoURL string `yaml:"repo_url"`
	Chart   string `yaml:"chart"`
	Version string `yaml:"version,omitempty"`
	Release string `yaml:"release,omitempty"`
}
