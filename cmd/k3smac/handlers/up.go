package handlers

import "context"

// Up initializes the K3s control plane and persists cluster access.
func Up(ctx context.Context, opts Options, force bool) error {
	r, err := setup(opts)
	if err != nil {
		return err
	}
	defer r.close()

	summary, err := r.orch.InitControlPlane(ctx, force)
	if summary != nil && len(summary.Outcomes) > 0 {
		r.render.Summary(summary)
	}
	return err
}
