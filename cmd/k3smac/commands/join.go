package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/k3smac/k3smac/cmd/k3smac/handlers"
)

// Join returns the worker join command.
func Join(globals optionsFunc) *cobra.Command {
	var (
		configPath string
		force      bool
		parallel   bool
		joinDelay  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join the configured workers to the cluster",
		Long: `Join every configured worker to the cluster.

Workers that are already members are skipped. A worker running an agent
without being a member is treated as orphaned and cleaned up before
rejoining. One failing worker does not abort the others; a partially
failed run exits with status 2.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Join(cmd.Context(), globals(configPath), force, parallel, joinDelay)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: k3smac.yaml)")
	cmd.Flags().BoolVar(&force, "force", false, "Re-join workers that are already members")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "Join all workers concurrently")
	cmd.Flags().DurationVar(&joinDelay, "join-delay", 0, "Delay between sequential joins (default: from config)")

	return cmd
}
