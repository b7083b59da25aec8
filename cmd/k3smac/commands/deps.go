package commands

import (
	"github.com/spf13/cobra"

	"github.com/k3smac/k3smac/cmd/k3smac/handlers"
)

// Deps returns the per-node dependency installation command.
func Deps(globals optionsFunc) *cobra.Command {
	var (
		configPath string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Install required tools on every node",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Deps(cmd.Context(), globals(configPath), force)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: k3smac.yaml)")
	cmd.Flags().BoolVar(&force, "force", false, "Re-run even when the milestone is already satisfied")

	return cmd
}
