package features

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"ecoscale/domain/core"
	"ecoscale/domain/energy"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.LagHorizons = []int{1, 2}
	cfg.RollingWindow = 3
	return cfg
}

func hourlyFrame(t *testing.T, perBuilding map[core.BuildingID][]float64) *energy.Frame {
	t.Helper()
	base := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC) // a Monday
	var readings []energy.Reading
	for id, values := range perBuilding {
		for i, v := range values {
			readings = append(readings, energy.Reading{
				BuildingID:   id,
				Timestamp:    core.NewTimestamp(base.Add(time.Duration(i) * time.Hour)),
				MeterReading: v,
			})
		}
	}
	return energy.FrameFromReadings(readings)
}

func TestBuildEmptyFrame(t *testing.T) {
	frame := energy.FrameFromReadings(nil)
	_, err := NewBuilder(smallConfig()).Build(context.Background(), frame)
	if !errors.Is(err, core.ErrEmptyFrame) {
		t.Fatalf("expected empty frame error, got %v", err)
	}
}

func TestBuildMissingMeterColumn(t *testing.T) {
	frame, _ := energy.NewFrame(
		[]core.BuildingID{"b1"},
		[]core.Timestamp{core.Now()},
	)
	_, err := NewBuilder(smallConfig()).Build(context.Background(), frame)
	if !errors.Is(err, core.ErrMissingColumn) {
		t.Fatalf("expected missing column error, got %v", err)
	}
}

func TestWarmupElimination(t *testing.T) {
	// With lags {1,2} and window 3 the warm-up is max(2, 3-1) = 2 rows
	// per building.
	values := []float64{10, 11, 12, 13, 14, 15}
	frame := hourlyFrame(t, map[core.BuildingID][]float64{
		"b1": values,
		"b2": values,
	})

	out, err := NewBuilder(smallConfig()).Build(context.Background(), frame)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := 2 * (len(values) - 2)
	if out.Rows() != want {
		t.Fatalf("expected %d rows after warm-up elimination, got %d", want, out.Rows())
	}
	for _, name := range NewBuilder(smallConfig()).DerivedColumns() {
		if !out.Has(name) {
			t.Fatalf("derived column %s missing from output", name)
		}
	}
}

func TestLagsAreEntityLocal(t *testing.T) {
	// b1's readings are in the hundreds, b2's in the thousands. If a lag
	// ever crossed the entity boundary, b2's first kept row would carry a
	// value from b1's tail.
	frame := hourlyFrame(t, map[core.BuildingID][]float64{
		"b1": {100, 101, 102, 103, 104},
		"b2": {1000, 1001, 1002, 1003, 1004},
	})

	out, err := NewBuilder(smallConfig()).Build(context.Background(), frame)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	lag1, err := out.Numeric(LagColumn(1))
	if err != nil {
		t.Fatalf("lag column: %v", err)
	}
	lag2, err := out.Numeric(LagColumn(2))
	if err != nil {
		t.Fatalf("lag column: %v", err)
	}
	meter, _ := out.Numeric(energy.ColMeterReading)

	for i := 0; i < out.Rows(); i++ {
		if lag1[i] != meter[i]-1 {
			t.Fatalf("row %d (%s): lag_1h = %v for reading %v",
				i, out.Buildings[i], lag1[i], meter[i])
		}
		if lag2[i] != meter[i]-2 {
			t.Fatalf("row %d (%s): lag_2h = %v for reading %v",
				i, out.Buildings[i], lag2[i], meter[i])
		}
	}
}

func TestRollingMeanOfConstantSeries(t *testing.T) {
	frame := hourlyFrame(t, map[core.BuildingID][]float64{
		"b1": {42, 42, 42, 42, 42, 42},
	})

	out, err := NewBuilder(smallConfig()).Build(context.Background(), frame)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	rolling, err := out.Numeric(RollingMeanColumn(3))
	if err != nil {
		t.Fatalf("rolling column: %v", err)
	}
	for i, v := range rolling {
		if math.Abs(v-42) > 1e-12 {
			t.Fatalf("row %d: rolling mean of constant 42 is %v", i, v)
		}
	}
}

func TestCyclicalEncodingWrapsAround(t *testing.T) {
	sin, cos := encodeCyclical([]float64{0, 23, 12}, 24)

	// Hour 23 must sit next to hour 0 on the circle, far from hour 12.
	dist := func(i, j int) float64 {
		return math.Hypot(sin[i]-sin[j], cos[i]-cos[j])
	}
	if dist(0, 1) >= dist(0, 2) {
		t.Fatalf("hour 23 (dist %v) should be closer to hour 0 than hour 12 (dist %v)",
			dist(0, 1), dist(0, 2))
	}

	// And every point stays on the unit circle.
	for i := range sin {
		if r := math.Hypot(sin[i], cos[i]); math.Abs(r-1) > 1e-12 {
			t.Fatalf("point %d off the unit circle: radius %v", i, r)
		}
	}
}

func TestCalendarFeatures(t *testing.T) {
	frame := hourlyFrame(t, map[core.BuildingID][]float64{
		"b1": {1, 2, 3, 4, 5},
	})

	out, err := NewBuilder(smallConfig()).Build(context.Background(), frame)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	dow, _ := out.Numeric("day_of_week")
	weekend, _ := out.Numeric("is_weekend")
	for i := range dow {
		// All rows fall on Monday 2024-03-04: Monday-indexed weekday 0,
		// not a weekend.
		if dow[i] != 0 {
			t.Fatalf("row %d: day_of_week %v for a Monday", i, dow[i])
		}
		if weekend[i] != 0 {
			t.Fatalf("row %d: is_weekend %v for a Monday", i, weekend[i])
		}
	}
}

func TestMondayIndexed(t *testing.T) {
	cases := map[time.Weekday]int{
		time.Monday:   0,
		time.Friday:   4,
		time.Saturday: 5,
		time.Sunday:   6,
	}
	for d, want := range cases {
		if got := mondayIndexed(d); got != want {
			t.Errorf("mondayIndexed(%s) = %d, want %d", d, got, want)
		}
	}
}
