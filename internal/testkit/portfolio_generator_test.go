package testkit

import (
	"testing"
)

func TestGenerateShape(t *testing.T) {
	cfg := DefaultPortfolioConfig()
	frame, planted := NewPortfolioGenerator(cfg).Generate()

	if want := cfg.BuildingCount * cfg.Hours; frame.Rows() != want {
		t.Fatalf("expected %d readings, got %d", want, frame.Rows())
	}
	if want := cfg.BuildingCount * cfg.WasteEvents; len(planted) != want {
		t.Fatalf("expected %d planted events, got %d", want, len(planted))
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	cfg := DefaultPortfolioConfig()
	a, plantedA := NewPortfolioGenerator(cfg).Generate()
	b, plantedB := NewPortfolioGenerator(cfg).Generate()

	if a.Rows() != b.Rows() || len(plantedA) != len(plantedB) {
		t.Fatal("same seed must generate identical portfolios")
	}
	meterA, _ := a.Numeric("meter_reading")
	meterB, _ := b.Numeric("meter_reading")
	for i := range meterA {
		if meterA[i] != meterB[i] {
			t.Fatalf("row %d differs between identically seeded runs", i)
		}
	}
}

func TestPlantedWasteClearsWarmup(t *testing.T) {
	cfg := DefaultPortfolioConfig()
	_, planted := NewPortfolioGenerator(cfg).Generate()

	for _, p := range planted {
		offset := p.Timestamp.Time().Sub(cfg.Start).Hours()
		if offset < 48 {
			t.Fatalf("planted event at hour %.0f falls inside the warm-up region", offset)
		}
	}
}
