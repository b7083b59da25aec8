package commands

import (
	"github.com/spf13/cobra"

	"github.com/k3smac/k3smac/cmd/k3smac/handlers"
)

// Bootstrap returns the full-pipeline command.
func Bootstrap(globals optionsFunc) *cobra.Command {
	var (
		configPath string
		force      bool
		parallel   bool
	)

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Provision the whole cluster in one run",
		Long: `Run the full pipeline: preflight, dependency install, control plane
initialization, worker joins, storage setup and final verification.

Every stage is milestone-gated, so re-running after a failure resumes
where the previous run stopped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Bootstrap(cmd.Context(), globals(configPath), force, parallel)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: k3smac.yaml)")
	cmd.Flags().BoolVar(&force, "force", false, "Re-run stages whose milestones are already satisfied")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "Join all workers concurrently")

	return cmd
}
