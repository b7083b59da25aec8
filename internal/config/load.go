package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FindConfigFile locates the default config file in the current directory.
func FindConfigFile() (string, error) {
	if _, err := os.Stat(DefaultFileName); err != nil {
		return "", fmt.Errorf("%s not found in current directory", DefaultFileName)
	}
	return DefaultFileName, nil
}

// LoadFile reads, defaults, and validates the configuration from a YAML file.
func LoadFile(path string) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// ApplyDefaults fills unset fields with working defaults.
func (c *Config) ApplyDefaults() {
	if c.SSH.DefaultUser == "" {
		c.SSH.DefaultUser = "admin"
	}
	if c.SSH.KeyPath == "" {
		c.SSH.KeyPath = expandHome("~/.ssh/id_ed25519")
	} else {
		c.SSH.KeyPath = expandHome(c.SSH.KeyPath)
	}
	if c.SSH.Port == 0 {
		c.SSH.Port = 22
	}
	if c.SSH.ConnectTimeout == 0 {
		c.SSH.ConnectTimeout = 10 * time.Second
	}

	if c.Network.PodCIDR == "" {
		c.Network.PodCIDR = "10.42.0.0/16"
	}
	if c.Network.ServiceCIDR == "" {
		c.Network.ServiceCIDR = "10.43.0.0/16"
	}

	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.InitialDelay == 0 {
		c.Retry.InitialDelay = 2 * time.Second
	}
	if c.Retry.MaxDelay == 0 {
		c.Retry.MaxDelay = 30 * time.Second
	}

	if c.Preflight.MinDiskGB == 0 {
		c.Preflight.MinDiskGB = 20
	}
	if c.Preflight.MinMemGB == 0 {
		c.Preflight.MinMemGB = 4
	}
	if c.Preflight.MinCPUCores == 0 {
		c.Preflight.MinCPUCores = 2
	}
	if c.Preflight.TargetOS == "" {
		c.Preflight.TargetOS = "darwin"
	}
	if c.Preflight.TargetArch == "" {
		c.Preflight.TargetArch = "arm64"
	}

	if c.Join.Delay == 0 {
		c.Join.Delay = 10 * time.Second
	}

	if c.Storage.NFSExportPath == "" {
		c.Storage.NFSExportPath = "/opt/k3smac/nfs"
	}
	if c.Storage.StorageClass == "" {
		c.Storage.StorageClass = "nfs-client"
	}

	if c.StateDir == "" {
		c.StateDir = expandHome("~/.k3smac")
	} else {
		c.StateDir = expandHome(c.StateDir)
	}
	if dir := os.Getenv("K3SMAC_STATE_DIR"); dir != "" {
		c.StateDir = expandHome(dir)
	}
	if c.LogRetention == 0 {
		c.LogRetention = 7 * 24 * time.Hour
	}

	c.Observability.applyDefaults()

	for i := range c.Workers {
		if c.Workers[i].KeyPath != "" {
			c.Workers[i].KeyPath = expandHome(c.Workers[i].KeyPath)
		}
	}
	if c.ControlPlane.KeyPath != "" {
		c.ControlPlane.KeyPath = expandHome(c.ControlPlane.KeyPath)
	}
}

func (o *ObservabilityConfig) applyDefaults() {
	if o.Namespace == "" {
		o.Namespace = "observability"
	}
	if o.StorageSize == "" {
		o.StorageSize = "10Gi"
	}
	defaultChart(&o.Collector, "https://open-telemetry.github.io/opentelemetry-helm-charts", "opentelemetry-collector", "otel-collector")
	defaultChart(&o.Prometheus, "https://prometheus-community.github.io/helm-charts", "kube-prometheus-stack", "prometheus")
	defaultChart(&o.Loki, "https://grafana.github.io/helm-charts", "loki", "loki")
	defaultChart(&o.Tempo, "https://grafana.github.io/helm-charts", "tempo", "tempo")
	defaultChart(&o.Grafana, "https://grafana.github.io/helm-charts", "grafana", "grafana")
}

func defaultChart(c *ChartConfig, repoURL, chart, release string) {
	if c.RepoURL == "" {
		c.RepoURL = repoURL
	}
	if c.Chart == "" {
		c.Chart = chart
	}
	if c.Release == "" {
		c.Release = release
	}
}

// expandHome resolves a leading ~/ against the current user's home directory.
// Other ~ forms, like ~user/, are left untouched.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
