package tabular

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"ecoscale/domain/energy"
)

// CSVReportWriter publishes the anomaly report as a flat CSV for the
// reporting collaborator. Only boundary fields are written; feature
// columns never appear here.
type CSVReportWriter struct {
	path string
}

// NewCSVReportWriter creates a writer targeting the given path
func NewCSVReportWriter(path string) *CSVReportWriter {
	return &CSVReportWriter{path: path}
}

// Publish writes the ranked records. An empty report writes a header-only
// file - no anomalies is a valid outcome, not an error.
func (w *CSVReportWriter) Publish(ctx context.Context, report *energy.AnomalyReport, manifest *energy.RunManifest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if err := cw.Write([]string{
		"timestamp", "building_id", "meter_reading",
		"expected_reading", "wasted_kwh", "wasted_cost",
	}); err != nil {
		return err
	}
	for _, r := range report.Records {
		if err := cw.Write([]string{
			r.Timestamp.String(),
			r.BuildingID.String(),
			formatFloat(r.MeterReading),
			formatFloat(r.ExpectedReading),
			formatFloat(r.WastedKWh),
			formatFloat(r.WastedCost),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}

	log.Printf("[CSVReportWriter] %d records written to %s (run %s, %.2f total wasted cost)",
		len(report.Records), w.path, report.RunID, report.TotalWastedCost)
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
