package temporal

import (
	"testing"
	"time"

	"ecoscale/domain/core"
	"ecoscale/domain/energy"
)

func sequenceFrame(t *testing.T, n int) *energy.Frame {
	t.Helper()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var readings []energy.Reading
	for i := 0; i < n; i++ {
		readings = append(readings, energy.Reading{
			BuildingID:   core.BuildingID("b1"),
			Timestamp:    core.NewTimestamp(base.Add(time.Duration(i) * time.Hour)),
			MeterReading: float64(i),
		})
	}
	return energy.FrameFromReadings(readings)
}

func TestSplitFractionBounds(t *testing.T) {
	frame := sequenceFrame(t, 10)
	for _, fraction := range []float64{0, 1, -0.5, 1.5} {
		if _, _, err := Split(frame, fraction); err == nil {
			t.Errorf("fraction %v: expected error", fraction)
		}
	}
}

func TestSplitTooFewRows(t *testing.T) {
	frame := sequenceFrame(t, 1)
	if _, _, err := Split(frame, 0.8); err == nil {
		t.Fatal("expected error splitting a single row")
	}
}

func TestSplitSizes(t *testing.T) {
	frame := sequenceFrame(t, 10)
	train, eval, err := Split(frame, 0.8)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if train.Rows() != 8 || eval.Rows() != 2 {
		t.Fatalf("expected 8/2 split, got %d/%d", train.Rows(), eval.Rows())
	}
}

func TestSplitIsChronological(t *testing.T) {
	// Interleave two buildings so the input is not globally time-sorted.
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var readings []energy.Reading
	for i := 0; i < 10; i++ {
		for _, id := range []core.BuildingID{"b1", "b2"} {
			readings = append(readings, energy.Reading{
				BuildingID:   id,
				Timestamp:    core.NewTimestamp(base.Add(time.Duration(i) * time.Hour)),
				MeterReading: float64(i),
			})
		}
	}
	frame := energy.FrameFromReadings(readings)

	train, eval, err := Split(frame, 0.8)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	// No training row may be later than any evaluation row.
	var latestTrain core.Timestamp
	for _, ts := range train.Timestamps {
		if ts.After(latestTrain) {
			latestTrain = ts
		}
	}
	for i, ts := range eval.Timestamps {
		if ts.Before(latestTrain) {
			t.Fatalf("eval row %d at %s precedes training row at %s", i, ts, latestTrain)
		}
	}
}
