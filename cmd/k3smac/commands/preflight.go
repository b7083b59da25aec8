package commands

import (
	"github.com/spf13/cobra"

	"github.com/k3smac/k3smac/cmd/k3smac/handlers"
)

// Preflight returns the environment validation command.
func Preflight(globals optionsFunc) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Validate the fleet before provisioning",
		Long: `Run every read-only environment check against the configured fleet.

Checks cover reachability, SSH access, platform, disk, memory, CPU and
conflicting ports. All checks run even when early ones fail, so one
invocation reports everything that needs fixing.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Preflight(cmd.Context(), globals(configPath))
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: k3smac.yaml)")

	return cmd
}
