package handlers

import (
	"context"
	"fmt"

	"github.com/k3smac/k3smac/internal/preflight"
)

// Preflight runs every read-only environment check and renders the report.
// A failing report is an error so the process exits non-zero.
func Preflight(ctx context.Context, opts Options) error {
	r, err := setup(opts)
	if err != nil {
		return err
	}
	defer r.close()

	validator := preflight.New(r.registry, r.exec, r.cfg)
	report, err := validator.Run(ctx)
	if err != nil {
		return err
	}
	r.render.Preflight(report)

	if _, err := r.store.WriteRunSummary("preflight", report); err != nil {
		r.log.Warnw("failed to persist preflight report", "error", err)
	}

	if !report.Passed() {
		return fmt.Errorf("preflight failed: %d check(s) did not pass", len(report.Failures()))
	}
	return nil
}
