package ports

import (
	"context"

	"ecoscale/domain/energy"
)

// ReportSinkPort is the output boundary: the anomaly report and its run
// manifest are handed to the external reporting collaborator through it.
type ReportSinkPort interface {
	Publish(ctx context.Context, report *energy.AnomalyReport, manifest *energy.RunManifest) error
}

// ReportReaderPort provides read-only access to persisted reports for
// the API surface. It can never write pipeline state.
type ReportReaderPort interface {
	LatestReport(ctx context.Context) (*energy.AnomalyReport, error)
	LatestManifest(ctx context.Context) (*energy.RunManifest, error)
}
