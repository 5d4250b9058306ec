package features

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"ecoscale/domain/core"
	"ecoscale/domain/energy"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/semaphore"
)

// ============================================================================
// ENTITY-GROUPED FEATURE BUILDER
// ============================================================================
// Turns a merged reading table into the feature table the oracle consumes:
// calendar/cyclical encodings plus causally-safe lag and rolling statistics.
//
// Every windowed computation is scoped to a single building. A global shift
// over a table merely sorted by building then time would leak one building's
// tail into the next building's head; partitioning first makes that
// impossible by construction.
// ============================================================================

// Config controls feature construction
type Config struct {
	LagHorizons   []int // in steps, e.g. {1, 24} for hourly data
	RollingWindow int   // trailing window length, in steps

	HourPeriod      float64
	MonthPeriod     float64
	DayOfWeekPeriod float64

	WeekendDays map[time.Weekday]bool

	Concurrency int64 // concurrent per-building workers
}

// DefaultConfig returns the reference configuration: hourly lags of 1 and
// 24 steps, a 6-step trailing mean, Saturday/Sunday weekends.
func DefaultConfig() Config {
	return Config{
		LagHorizons:     []int{1, 24},
		RollingWindow:   6,
		HourPeriod:      24,
		MonthPeriod:     12,
		DayOfWeekPeriod: 7,
		WeekendDays: map[time.Weekday]bool{
			time.Saturday: true,
			time.Sunday:   true,
		},
		Concurrency: 8,
	}
}

// Builder derives the feature table from a reading frame
type Builder struct {
	cfg Config
}

// NewBuilder creates a feature builder
func NewBuilder(cfg Config) *Builder {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Builder{cfg: cfg}
}

// LagColumn names the lag feature for a horizon
func LagColumn(horizon int) string {
	return fmt.Sprintf("lag_%dh", horizon)
}

// RollingMeanColumn names the trailing-mean feature for a window
func RollingMeanColumn(window int) string {
	return fmt.Sprintf("rolling_mean_%dh", window)
}

// DerivedColumns lists every column Build adds, in output order
func (b *Builder) DerivedColumns() []string {
	names := []string{
		"hour", "day_of_week", "month", "is_weekend",
		"hour_sin", "hour_cos",
		"month_sin", "month_cos",
		"day_of_week_sin", "day_of_week_cos",
	}
	for _, h := range b.cfg.LagHorizons {
		names = append(names, LagColumn(h))
	}
	names = append(names, RollingMeanColumn(b.cfg.RollingWindow))
	return names
}

// warmup is the number of leading rows per building that cannot carry a
// full feature vector and are therefore eliminated.
func (b *Builder) warmup() int {
	w := b.cfg.RollingWindow - 1
	for _, h := range b.cfg.LagHorizons {
		if h > w {
			w = h
		}
	}
	return w
}

// Build produces the augmented feature frame. The input needs the axis
// columns plus meter_reading; a missing required column aborts with no
// partial output. Output rows are grouped by building, ascending in time,
// with each building's warm-up rows dropped.
func (b *Builder) Build(ctx context.Context, frame *energy.Frame) (*energy.Frame, error) {
	if frame.Rows() == 0 {
		return nil, fmt.Errorf("feature builder: %w", core.ErrEmptyFrame)
	}
	if err := frame.RequireColumns(energy.RequiredColumns()...); err != nil {
		return nil, err
	}

	// Sort by building then ascending timestamp so that every span is a
	// contiguous, time-ordered run.
	sorted := sortByEntityTime(frame)
	meter, err := sorted.Numeric(energy.ColMeterReading)
	if err != nil {
		return nil, err
	}

	n := sorted.Rows()
	spans := energy.EntitySpans(sorted)
	log.Printf("[FeatureBuilder] %d rows across %d buildings (warm-up %d rows each)",
		n, len(spans), b.warmup())

	// Calendar features come straight off the timestamp axis.
	hour := make([]float64, n)
	dayOfWeek := make([]float64, n)
	month := make([]float64, n)
	isWeekend := make([]float64, n)
	for i, ts := range sorted.Timestamps {
		t := ts.Time()
		hour[i] = float64(t.Hour())
		dayOfWeek[i] = float64(mondayIndexed(t.Weekday()))
		month[i] = float64(t.Month())
		if b.cfg.WeekendDays[t.Weekday()] {
			isWeekend[i] = 1
		}
	}

	// Lag and rolling columns, one disjoint span per building. Each
	// worker writes only its own span, so no locking is needed.
	lagCols := make([][]float64, len(b.cfg.LagHorizons))
	for i := range lagCols {
		lagCols[i] = nanSlice(n)
	}
	rolling := nanSlice(n)

	sem := semaphore.NewWeighted(b.cfg.Concurrency)
	var wg sync.WaitGroup
	for _, span := range spans {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		go func(sp energy.EntitySpan) {
			defer sem.Release(1)
			defer wg.Done()
			b.buildSpan(sp, meter, lagCols, rolling)
		}(span)
	}
	wg.Wait()

	// Row-elimination policy: a row lacking any lag/rolling value is
	// dropped. Early-history coverage loss is deliberate, not a bug.
	keep := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(rolling[i]) {
			continue
		}
		complete := true
		for _, col := range lagCols {
			if math.IsNaN(col[i]) {
				complete = false
				break
			}
		}
		if complete {
			keep = append(keep, i)
		}
	}

	out, err := energy.NewFrame(sorted.Buildings, sorted.Timestamps)
	if err != nil {
		return nil, err
	}
	for _, col := range sorted.Columns {
		switch col.Type {
		case energy.TypeNumeric:
			if err := out.AddNumeric(col.Name, col.Numeric); err != nil {
				return nil, err
			}
		case energy.TypeCategorical:
			if err := out.AddCategorical(col.Name, col.Labels); err != nil {
				return nil, err
			}
		}
	}

	hourSin, hourCos := encodeCyclical(hour, b.cfg.HourPeriod)
	monthSin, monthCos := encodeCyclical(month, b.cfg.MonthPeriod)
	dowSin, dowCos := encodeCyclical(dayOfWeek, b.cfg.DayOfWeekPeriod)

	derived := []energy.Column{
		{Name: "hour", Type: energy.TypeNumeric, Numeric: hour},
		{Name: "day_of_week", Type: energy.TypeNumeric, Numeric: dayOfWeek},
		{Name: "month", Type: energy.TypeNumeric, Numeric: month},
		{Name: "is_weekend", Type: energy.TypeNumeric, Numeric: isWeekend},
		{Name: "hour_sin", Type: energy.TypeNumeric, Numeric: hourSin},
		{Name: "hour_cos", Type: energy.TypeNumeric, Numeric: hourCos},
		{Name: "month_sin", Type: energy.TypeNumeric, Numeric: monthSin},
		{Name: "month_cos", Type: energy.TypeNumeric, Numeric: monthCos},
		{Name: "day_of_week_sin", Type: energy.TypeNumeric, Numeric: dowSin},
		{Name: "day_of_week_cos", Type: energy.TypeNumeric, Numeric: dowCos},
	}
	for _, col := range derived {
		if err := out.AddNumeric(col.Name, col.Numeric); err != nil {
			return nil, err
		}
	}
	for i, h := range b.cfg.LagHorizons {
		if err := out.AddNumeric(LagColumn(h), lagCols[i]); err != nil {
			return nil, err
		}
	}
	if err := out.AddNumeric(RollingMeanColumn(b.cfg.RollingWindow), rolling); err != nil {
		return nil, err
	}

	trimmed := out.SelectRows(keep)
	log.Printf("[FeatureBuilder] kept %d of %d rows after warm-up elimination", trimmed.Rows(), n)
	return trimmed, nil
}

// buildSpan fills the lag and rolling slots for one building's rows.
// Values before the first valid offset stay NaN and are eliminated later.
func (b *Builder) buildSpan(sp energy.EntitySpan, meter []float64, lagCols [][]float64, rolling []float64) {
	for li, h := range b.cfg.LagHorizons {
		for i := sp.Start + h; i < sp.End; i++ {
			lagCols[li][i] = meter[i-h]
		}
	}
	w := b.cfg.RollingWindow
	for i := sp.Start + w - 1; i < sp.End; i++ {
		m, err := stats.Mean(meter[i-w+1 : i+1])
		if err != nil {
			continue // empty window cannot happen for w >= 1
		}
		rolling[i] = m
	}
}

// encodeCyclical maps a bounded periodic field onto the unit circle so
// that hour 23 sits next to hour 0 in feature space. A plain integer
// encoding would falsely maximize that distance.
func encodeCyclical(values []float64, period float64) (sin, cos []float64) {
	sin = make([]float64, len(values))
	cos = make([]float64, len(values))
	for i, v := range values {
		angle := 2 * math.Pi * v / period
		sin[i] = math.Sin(angle)
		cos[i] = math.Cos(angle)
	}
	return sin, cos
}

// mondayIndexed maps Go's Sunday=0 weekday onto Monday=0, matching the
// convention the reference feature set was defined in.
func mondayIndexed(d time.Weekday) int {
	if d == time.Sunday {
		return 6
	}
	return int(d) - 1
}

func sortByEntityTime(frame *energy.Frame) *energy.Frame {
	rows := make([]int, frame.Rows())
	for i := range rows {
		rows[i] = i
	}
	sort.SliceStable(rows, func(a, b int) bool {
		i, j := rows[a], rows[b]
		if frame.Buildings[i] != frame.Buildings[j] {
			return frame.Buildings[i] < frame.Buildings[j]
		}
		return frame.Timestamps[i].Before(frame.Timestamps[j])
	})
	return frame.SelectRows(rows)
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}
