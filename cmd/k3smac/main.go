// Package main is the entry point for the k3smac CLI.
//
// k3smac provisions and reconciles K3s clusters on a fleet of Apple Silicon
// Macs over SSH. Repeated invocations converge on the configured state
// without re-doing completed work.
//
// Commands: init, preflight, deps, up, join, storage, observability,
// status, bootstrap, version.
//
// For detailed usage information, run:
//
//	k3smac --help
package main

import (
	"fmt"
	"os"

	"github.com/k3smac/k3smac/cmd/k3smac/commands"
	"github.com/k3smac/k3smac/internal/provision"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if provision.IsPartialFailure(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
