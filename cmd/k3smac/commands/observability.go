package commands

import (
	"github.com/spf13/cobra"

	"github.com/k3smac/k3smac/cmd/k3smac/handlers"
)

// Observability returns the telemetry stack deployment command.
func Observability(globals optionsFunc) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "observability",
		Short: "Deploy Grafana, Prometheus, Loki and Tempo",
		Long: `Deploy the telemetry stack onto the running cluster with Helm,
layered so each tier's dependencies exist before it starts. Re-running
upgrades the releases in place.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Observability(cmd.Context(), globals(configPath))
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: k3smac.yaml)")

	return cmd
}
