package ols

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"ecoscale/domain/core"
	"ecoscale/domain/energy"
)

func featureFrame(t *testing.T, n int) *energy.Frame {
	t.Helper()
	buildings := make([]core.BuildingID, n)
	timestamps := make([]core.Timestamp, n)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		buildings[i] = "b1"
		timestamps[i] = core.NewTimestamp(base.Add(time.Duration(i) * time.Hour))
	}
	frame, err := energy.NewFrame(buildings, timestamps)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	return frame
}

func TestPredictBeforeFit(t *testing.T) {
	frame := featureFrame(t, 2)
	_ = frame.AddNumeric("x", []float64{1, 2})

	_, err := New().Predict(context.Background(), frame)
	if !errors.Is(err, core.ErrOracleNotFitted) {
		t.Fatalf("expected not-fitted error, got %v", err)
	}
}

func TestFitTargetLengthMismatch(t *testing.T) {
	frame := featureFrame(t, 3)
	_ = frame.AddNumeric("x", []float64{1, 2, 3})

	err := New().Fit(context.Background(), frame, []float64{1, 2})
	if !errors.Is(err, core.ErrColumnLengthMismatch) {
		t.Fatalf("expected length mismatch, got %v", err)
	}
}

func TestFitEmptyFrame(t *testing.T) {
	frame := featureFrame(t, 0)
	err := New().Fit(context.Background(), frame, nil)
	if !errors.Is(err, core.ErrEmptyFrame) {
		t.Fatalf("expected empty frame error, got %v", err)
	}
}

func TestLinearRecovery(t *testing.T) {
	// y = 3 + 2a - b, exactly. The fit should recover it to numerical
	// precision and predict unseen points correctly.
	n := 20
	frame := featureFrame(t, n)
	a := make([]float64, n)
	b := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		a[i] = float64(i)
		b[i] = float64(i % 5)
		y[i] = 3 + 2*a[i] - b[i]
	}
	_ = frame.AddNumeric("a", a)
	_ = frame.AddNumeric("b", b)

	oracle := New()
	if err := oracle.Fit(context.Background(), frame, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	probe := featureFrame(t, 2)
	_ = probe.AddNumeric("a", []float64{100, 7})
	_ = probe.AddNumeric("b", []float64{0, 3})
	got, err := oracle.Predict(context.Background(), probe)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	want := []float64{203, 14}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-3 {
			t.Fatalf("prediction %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCategoricalEncoding(t *testing.T) {
	// Target depends only on a categorical level offset.
	n := 12
	frame := featureFrame(t, n)
	labels := make([]string, n)
	y := make([]float64, n)
	offsets := map[string]float64{"Office": 10, "Retail": 20, "Lab": 30}
	uses := []string{"Office", "Retail", "Lab"}
	for i := 0; i < n; i++ {
		labels[i] = uses[i%3]
		y[i] = offsets[labels[i]]
	}
	_ = frame.AddCategorical("primary_use", labels)

	oracle := New()
	if err := oracle.Fit(context.Background(), frame, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	got, err := oracle.Predict(context.Background(), frame)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	for i := range got {
		if math.Abs(got[i]-y[i]) > 1e-3 {
			t.Fatalf("row %d (%s): got %v, want %v", i, labels[i], got[i], y[i])
		}
	}
}

func TestSchemaMismatchCheckedBeforePredict(t *testing.T) {
	train := featureFrame(t, 4)
	_ = train.AddNumeric("a", []float64{1, 2, 3, 4})
	_ = train.AddNumeric("b", []float64{4, 3, 2, 1})

	oracle := New()
	if err := oracle.Fit(context.Background(), train, []float64{1, 2, 3, 4}); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	// Missing column.
	missing := featureFrame(t, 2)
	_ = missing.AddNumeric("a", []float64{1, 2})
	if _, err := oracle.Predict(context.Background(), missing); !errors.Is(err, core.ErrFeatureSchemaMismatch) {
		t.Fatalf("missing column: expected schema mismatch, got %v", err)
	}

	// Same columns, different order.
	reordered := featureFrame(t, 2)
	_ = reordered.AddNumeric("b", []float64{1, 2})
	_ = reordered.AddNumeric("a", []float64{1, 2})
	if _, err := oracle.Predict(context.Background(), reordered); !errors.Is(err, core.ErrFeatureSchemaMismatch) {
		t.Fatalf("reordered columns: expected schema mismatch, got %v", err)
	}
}

func TestFeatureNames(t *testing.T) {
	train := featureFrame(t, 3)
	_ = train.AddNumeric("a", []float64{1, 2, 3})
	_ = train.AddNumeric("b", []float64{3, 2, 1})

	oracle := New()
	if err := oracle.Fit(context.Background(), train, []float64{1, 2, 3}); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	names := oracle.FeatureNames()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("unexpected recorded feature names: %v", names)
	}
}

func TestUnseenCategoricalLevel(t *testing.T) {
	train := featureFrame(t, 4)
	_ = train.AddCategorical("primary_use", []string{"Office", "Retail", "Office", "Retail"})

	oracle := New()
	if err := oracle.Fit(context.Background(), train, []float64{10, 20, 10, 20}); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	// A level never seen at fit time encodes as all zeros: prediction
	// falls back to the intercept rather than failing.
	probe := featureFrame(t, 1)
	_ = probe.AddCategorical("primary_use", []string{"Warehouse"})
	got, err := oracle.Predict(context.Background(), probe)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(got) != 1 || math.IsNaN(got[0]) {
		t.Fatalf("unexpected prediction for unseen level: %v", got)
	}
}
