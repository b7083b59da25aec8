package handlers

import (
	"context"
	"fmt"

	"github.com/k3smac/k3smac/internal/preflight"
	"github.com/k3smac/k3smac/internal/provision"
)

// Bootstrap runs the full provisioning pipeline in one invocation:
// preflight → deps → control plane → workers → storage → verification.
// Every stage is milestone-gated, so re-running after a failure resumes
// where the previous run stopped.
func Bootstrap(ctx context.Context, opts Options, force, parallel bool) error {
	r, err := setup(opts)
	if err != nil {
		return err
	}
	defer r.close()

	report, err := preflight.New(r.registry, r.exec, r.cfg).Run(ctx)
	if err != nil {
		return err
	}
	r.render.Preflight(report)
	if !report.Passed() {
		return fmt.Errorf("preflight failed: %d check(s) did not pass", len(report.Failures()))
	}

	stages := []struct {
		name string
		run  func() (*provision.Summary, error)
	}{
		{"deps", func() (*provision.Summary, error) { return r.orch.InstallDependencies(ctx, force) }},
		{"up", func() (*provision.Summary, error) { return r.orch.InitControlPlane(ctx, force) }},
		{"join", func() (*provision.Summary, error) {
			return r.orch.JoinWorkers(ctx, provision.JoinOptions{Force: force, Parallel: parallel || r.cfg.Join.Parallel})
		}},
		{"storage", func() (*provision.Summary, error) { return r.orch.SetupStorage(ctx, force) }},
	}

	for _, stage := range stages {
		summary, err := stage.run()
		if summary != nil && len(summary.Outcomes) > 0 {
			r.render.Summary(summary)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", stage.name, err)
		}
	}

	if err := r.orch.VerifyCluster(ctx); err != nil {
		return err
	}

	fmt.Println("Cluster bootstrapped and verified.")
	return nil
}
