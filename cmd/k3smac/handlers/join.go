package handlers

import (
	"context"
	"time"

	"github.com/k3smac/k3smac/internal/provision"
)

// Join connects the configured workers to the cluster.
func Join(ctx context.Context, opts Options, force, parallel bool, joinDelay time.Duration) error {
	r, err := setup(opts)
	if err != nil {
		return err
	}
	defer r.close()

	if joinDelay > 0 {
		r.cfg.Join.Delay = joinDelay
	}

	summary, err := r.orch.JoinWorkers(ctx, provision.JoinOptions{
		Force:    force,
		Parallel: parallel || r.cfg.Join.Parallel,
	})
	if summary != nil && len(summary.Outcomes) > 0 {
		r.render.Summary(summary)
	}
	return err
}
