package commands

import (
	"github.com/spf13/cobra"

	"github.com/k3smac/k3smac/cmd/k3smac/handlers"
)

// Init returns the interactive configuration wizard command.
func Init() *cobra.Command {
	var (
		advanced bool
		output   string
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a cluster configuration interactively",
		Long: `Create a cluster configuration file through an interactive wizard.

The wizard asks for the cluster name, node addresses and SSH access, then
writes a YAML file the other commands consume.

Examples:
  # Basic wizard
  k3smac init

  # Include network and storage questions
  k3smac init --advanced

  # Write somewhere other than ./k3smac.yaml
  k3smac init -o clusters/office.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), advanced, output, force)
		},
	}

	cmd.Flags().BoolVar(&advanced, "advanced", false, "Ask about networking, storage and join behavior")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default: k3smac.yaml)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}
