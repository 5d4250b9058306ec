package app

import (
	"context"
	"testing"

	"ecoscale/adapters/oracle/ols"
	"ecoscale/domain/energy"
	"ecoscale/internal/config"
	"ecoscale/internal/testkit"
	"ecoscale/ports"
)

type frameSource struct {
	frame *energy.Frame
}

func (s frameSource) Load(ctx context.Context) (*energy.Frame, error) {
	return s.frame, nil
}

func defaultParams() Params {
	return ParamsFromConfig(config.PipelineConfig{
		LagHorizons:       []int{1, 24},
		RollingWindow:     6,
		ThresholdK:        2,
		UnitCostRate:      0.14,
		ReportCap:         5000,
		SplitFraction:     0.8,
		EntityConcurrency: 4,
	})
}

func TestRunEndToEnd(t *testing.T) {
	portfolio := testkit.DefaultPortfolioConfig()
	frame, planted := testkit.NewPortfolioGenerator(portfolio).Generate()

	store := NewMemoryReportStore()
	service := NewDetectionService(
		frameSource{frame}, ols.New(), defaultParams(), store)

	result, err := service.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	m := result.Manifest
	if m.RowsIn != frame.Rows() {
		t.Fatalf("manifest RowsIn = %d, want %d", m.RowsIn, frame.Rows())
	}
	// Warm-up is 24 rows per building (the largest lag horizon).
	wantFeatured := portfolio.BuildingCount * (portfolio.Hours - 24)
	if m.RowsFeatured != wantFeatured {
		t.Fatalf("manifest RowsFeatured = %d, want %d", m.RowsFeatured, wantFeatured)
	}
	if m.TrainRows+m.EvalRows != m.RowsFeatured {
		t.Fatalf("train %d + eval %d != featured %d", m.TrainRows, m.EvalRows, m.RowsFeatured)
	}
	if m.Buildings != portfolio.BuildingCount {
		t.Fatalf("manifest Buildings = %d, want %d", m.Buildings, portfolio.BuildingCount)
	}
	if len(m.FeatureNames) == 0 {
		t.Fatal("manifest should record the oracle's feature names")
	}
	if m.ThresholdK != 2 || m.UnitCostRate != 0.14 || m.SplitFraction != 0.8 {
		t.Fatalf("manifest tunables snapshot wrong: %+v", m)
	}
	for _, name := range m.FeatureNames {
		if name == energy.ColMeterReading {
			t.Fatal("the target must never be an oracle feature")
		}
	}

	// The planted 60 kWh spikes tower over the ~1.5 kWh noise floor;
	// nearly all of them should surface in the report.
	found := 0
	for _, p := range planted {
		for _, rec := range result.Report.Records {
			if rec.BuildingID == p.BuildingID && rec.Timestamp.Equal(p.Timestamp) {
				found++
				break
			}
		}
	}
	if found*3 < len(planted)*2 {
		t.Fatalf("only %d of %d planted waste events reported", found, len(planted))
	}

	// The report reached the sink.
	stored, err := store.LatestReport(context.Background())
	if err != nil {
		t.Fatalf("LatestReport: %v", err)
	}
	if stored.RunID != result.Report.RunID {
		t.Fatalf("stored run %s, expected %s", stored.RunID, result.Report.RunID)
	}
}

func TestRunQuietPortfolioReportsLittle(t *testing.T) {
	portfolio := testkit.DefaultPortfolioConfig()
	portfolio.WasteEvents = 0
	frame, _ := testkit.NewPortfolioGenerator(portfolio).Generate()

	service := NewDetectionService(frameSource{frame}, ols.New(), defaultParams())
	result, err := service.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Without planted waste only noise excursions past two sigma can be
	// flagged; that is a small fraction of the featured rows.
	if limit := result.Manifest.RowsFeatured / 10; result.Manifest.AnomaliesDetected > limit {
		t.Fatalf("%d anomalies on a quiet portfolio (limit %d)",
			result.Manifest.AnomaliesDetected, limit)
	}
}

func TestRunFailsOnEmptySource(t *testing.T) {
	empty := energy.FrameFromReadings(nil)
	service := NewDetectionService(frameSource{empty}, ols.New(), defaultParams())
	if _, err := service.Run(context.Background()); err == nil {
		t.Fatal("expected an empty source to abort the run")
	}
}

var _ ports.ReadingSourcePort = frameSource{}
