package handlers

import "context"

// Deps ensures every node has the tools provisioning needs.
func Deps(ctx context.Context, opts Options, force bool) error {
	r, err := setup(opts)
	if err != nil {
		return err
	}
	defer r.close()

	summary, err := r.orch.InstallDependencies(ctx, force)
	if summary != nil && len(summary.Outcomes) > 0 {
		r.render.Summary(summary)
	}
	return err
}
