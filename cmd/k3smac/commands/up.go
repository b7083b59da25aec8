package commands

import (
	"github.com/spf13/cobra"

	"github.com/k3smac/k3smac/cmd/k3smac/handlers"
)

// Up returns the control plane initialization command.
func Up(globals optionsFunc) *cobra.Command {
	var (
		configPath string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Initialize the K3s control plane",
		Long: `Install the K3s server on the control node, then fetch the join token
and kubeconfig into the state directory.

Safe to re-run: a control plane that is already initialized is verified
rather than reinstalled.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Up(cmd.Context(), globals(configPath), force)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: k3smac.yaml)")
	cmd.Flags().BoolVar(&force, "force", false, "Reinstall even when already initialized")

	return cmd
}
