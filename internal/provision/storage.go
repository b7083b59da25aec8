package provision

import (
	"context"
	"fmt"
)

const nfsProvisioner = "nfs.csi.k8s.io"

// SetupStorage configures the NFS export on the control node, verifies each
// worker can see it, and applies the NFS storage class to the cluster. Each
// stage is milestone-gated.
func (o *Orchestrator) SetupStorage(ctx context.Context, force bool) (*Summary, error) {
	summary := &Summary{Operation: "storage"}
	cp := o.registry.ControlPlane()

	if force || !o.store.IsSatisfied(milestoneNFSServer, "true") {
		o.log.Infow("configuring NFS export", "node", cp.Address, "path", o.cfg.Storage.NFSExportPath)
		if err := o.retryRemote(ctx, false, func() error {
			return o.configureNFSServer(ctx)
		}); err != nil {
			summary.Outcomes = append(summary.Outcomes, newOutcome(cp, StatusFailed, err.Error()))
			o.writeSummary(summary)
			return summary, fmt.Errorf("NFS server setup failed: %w", err)
		}
		if err := o.store.Record(milestoneNFSServer, "true"); err != nil {
			return summary, err
		}
		summary.Outcomes = append(summary.Outcomes, newOutcome(cp, StatusReady, "nfs export configured"))
	} else {
		summary.Outcomes = append(summary.Outcomes, newOutcome(cp, StatusAlreadyDone, ""))
	}

	for _, worker := range o.registry.Workers() {
		key := milestoneNFSClient(worker.Address)
		if !force && o.store.IsSatisfied(key, "true") {
			summary.Outcomes = append(summary.Outcomes, newOutcome(worker, StatusAlreadyDone, ""))
			continue
		}

		probe := fmt.Sprintf("showmount -e %s", cp.Address)
		if err := o.retryRemote(ctx, false, func() error {
			_, err := o.exec.Run(ctx, worker, probe)
			return err
		}); err != nil {
			summary.Outcomes = append(summary.Outcomes, newOutcome(worker, StatusFailed, "cannot reach NFS export: "+err.Error()))
			continue
		}

		if err := o.store.Record(key, "true"); err != nil {
			return summary, err
		}
		summary.Outcomes = append(summary.Outcomes, newOutcome(worker, StatusReady, ""))
	}

	if force || !o.store.IsSatisfied(milestoneStorageClass, "true") {
		client, err := o.clusterClient()
		if err != nil {
			return summary, fmt.Errorf("failed to open cluster client: %w", err)
		}
		if err := client.EnsureStorageClass(ctx, o.cfg.Storage.StorageClass, nfsProvisioner); err != nil {
			o.writeSummary(summary)
			return summary, fmt.Errorf("storage class apply failed: %w", err)
		}
		if err := o.store.Record(milestoneStorageClass, "true"); err != nil {
			return summary, err
		}
	}

	o.writeSummary(summary)

	if summary.AllFailed() {
		return summary, &AllFailedError{Summary: summary}
	}
	if summary.Partial() {
		return summary, &PartialFailureError{Summary: summary}
	}
	return summary, nil
}

// configureNFSServer idempotently creates the export directory, registers it
// in /etc/exports, and (re)starts the macOS NFS daemon.
func (o *Orchestrator) configureNFSServer(ctx context.Context) error {
	cp := o.registry.ControlPlane()
	path := o.cfg.Storage.NFSExportPath
	exportLine := fmt.Sprintf("%s -alldirs -mapall=nobody -network 0.0.0.0 -mask 0.0.0.0", path)

	steps := []string{
		fmt.Sprintf("sudo mkdir -p %s && sudo chmod 777 %s", path, path),
		fmt.Sprintf("grep -qF %q /etc/exports 2>/dev/null || echo %q | sudo tee -a /etc/exports >/dev/null", exportLine, exportLine),
		"sudo nfsd enable >/dev/null 2>&1 || true",
		"sudo nfsd restart",
		"showmount -e localhost",
	}

	for _, step := range steps {
		if _, err := o.exec.Run(ctx, cp, step); err != nil {
			return err
		}
	}
	return nil
}
