package handlers

import "context"

// Storage configures NFS sharing and the cluster storage class.
func Storage(ctx context.Context, opts Options, force bool) error {
	r, err := setup(opts)
	if err != nil {
		return err
	}
	defer r.close()

	summary, err := r.orch.SetupStorage(ctx, force)
	if summary != nil && len(summary.Outcomes) > 0 {
		r.render.Summary(summary)
	}
	return err
}
