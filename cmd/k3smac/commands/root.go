// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing, flag binding, and validation. Command execution is delegated to
// handler functions in the handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/k3smac/k3smac/cmd/k3smac/handlers"
)

// Root returns the root command for the k3smac CLI.
func Root() *cobra.Command {
	var (
		debug    bool
		stateDir string
	)

	cmd := &cobra.Command{
		Use:           "k3smac",
		Short:         "Provision K3s clusters on Apple Silicon Macs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "Override the state directory (default: ~/.k3smac)")

	globals := func(configPath string) handlers.Options {
		return handlers.Options{ConfigPath: configPath, StateDir: stateDir, Debug: debug}
	}

	cmd.AddCommand(Init())
	cmd.AddCommand(Preflight(globals))
	cmd.AddCommand(Deps(globals))
	cmd.AddCommand(Up(globals))
	cmd.AddCommand(Join(globals))
	cmd.AddCommand(Storage(globals))
	cmd.AddCommand(Observability(globals))
	cmd.AddCommand(Status(globals))
	cmd.AddCommand(Bootstrap(globals))
	cmd.AddCommand(Version())

	return cmd
}

// optionsFunc builds handler options from the per-command config path and
// the root command's persistent flags.
type optionsFunc func(configPath string) handlers.Options
