package commands

import (
	"github.com/spf13/cobra"

	"github.com/k3smac/k3smac/cmd/k3smac/handlers"
)

// Storage returns the NFS storage setup command.
func Storage(globals optionsFunc) *cobra.Command {
	var (
		configPath string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Configure NFS-backed cluster storage",
		Long: `Export an NFS share from the control node, verify every worker can
reach it, and apply the cluster storage class.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Storage(cmd.Context(), globals(configPath), force)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: k3smac.yaml)")
	cmd.Flags().BoolVar(&force, "force", false, "Reconfigure even when the milestones are satisfied")

	return cmd
}
