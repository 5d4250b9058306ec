package detect

import (
	"context"
	"fmt"
	"log"
	"sync"

	"ecoscale/domain/core"
	"ecoscale/domain/energy"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/semaphore"
)

// ============================================================================
// RESIDUAL & THRESHOLD ENGINE
// ============================================================================
// Compares each reading against its prediction and flags excess usage
// behind a per-building dynamic threshold. The threshold is data-derived
// (k standard deviations of that building's residual population), so a
// tightly predicted building is a sensitive detector while a noisy one
// needs a larger excursion to be flagged.
//
// The policy is asymmetric: only positive residuals qualify. A building
// using far less than expected is never flagged - this is a waste
// detector, not a general outlier detector.
// ============================================================================

// Config controls classification and costing
type Config struct {
	ThresholdK   float64 // multiplier over residual stddev
	UnitCostRate float64 // currency per kWh
	Concurrency  int64   // concurrent per-building workers
}

// DefaultConfig returns the reference policy: two sigma, $0.14/kWh.
func DefaultConfig() Config {
	return Config{ThresholdK: 2, UnitCostRate: 0.14, Concurrency: 8}
}

// Result carries everything a detection pass produced, before ranking
type Result struct {
	// Records holds every detected anomaly in natural order (building
	// group, then ascending time). Ranking and capping happen later.
	Records []energy.AnomalyRecord

	// Thresholds maps each building to its derived cutoff. Buildings
	// with an undefined threshold are absent.
	Thresholds map[core.BuildingID]float64

	// BuildingsSkipped counts buildings with too few residual samples
	// for a threshold. They degrade to "no anomalies possible" rather
	// than failing the run.
	BuildingsSkipped int
}

// Engine classifies residuals against per-building thresholds
type Engine struct {
	cfg Config
}

// NewEngine creates a detection engine
func NewEngine(cfg Config) *Engine {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Engine{cfg: cfg}
}

// Detect computes deviations for every reading with a prediction,
// derives each building's threshold over its full residual population,
// and returns the flagged excess-usage records.
func (e *Engine) Detect(ctx context.Context, frame *energy.Frame, expected []float64) (*Result, error) {
	if err := frame.RequireColumns(energy.ColMeterReading); err != nil {
		return nil, err
	}
	if len(expected) != frame.Rows() {
		return nil, fmt.Errorf("%w: %d predictions for %d rows",
			core.ErrColumnLengthMismatch, len(expected), frame.Rows())
	}

	meter, err := frame.Numeric(energy.ColMeterReading)
	if err != nil {
		return nil, err
	}

	deviation := make([]float64, frame.Rows())
	for i := range deviation {
		deviation[i] = meter[i] - expected[i]
	}

	spans := energy.EntitySpans(frame)
	perSpan := make([][]energy.AnomalyRecord, len(spans))
	thresholds := make([]float64, len(spans))
	defined := make([]bool, len(spans))

	sem := semaphore.NewWeighted(e.cfg.Concurrency)
	var wg sync.WaitGroup
	for si, span := range spans {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		go func(si int, sp energy.EntitySpan) {
			defer sem.Release(1)
			defer wg.Done()
			perSpan[si], thresholds[si], defined[si] =
				e.detectSpan(sp, frame, meter, expected, deviation)
		}(si, span)
	}
	wg.Wait()

	result := &Result{Thresholds: make(map[core.BuildingID]float64, len(spans))}
	for si, span := range spans {
		if !defined[si] {
			result.BuildingsSkipped++
			continue
		}
		result.Thresholds[span.BuildingID] = thresholds[si]
		result.Records = append(result.Records, perSpan[si]...)
	}

	log.Printf("[Detect] %d anomalies across %d buildings (%d skipped: undefined threshold)",
		len(result.Records), len(spans), result.BuildingsSkipped)
	return result, nil
}

// detectSpan derives one building's threshold and flags its rows.
// A building with fewer than two residual samples has no defined
// variance; it is skipped instead of letting a NaN comparison turn into
// silent false negatives.
func (e *Engine) detectSpan(
	sp energy.EntitySpan,
	frame *energy.Frame,
	meter, expected, deviation []float64,
) (records []energy.AnomalyRecord, threshold float64, ok bool) {
	residuals := deviation[sp.Start:sp.End]
	if len(residuals) < 2 {
		log.Printf("[Detect] warn: building %s has %d residual sample(s), threshold undefined",
			sp.BuildingID, len(residuals))
		return nil, 0, false
	}

	// Sample stddev over every residual of the building, zeros and
	// negatives included. A zero stddev is a valid threshold: any
	// strictly positive deviation then exceeds k*0 and is flagged.
	sd, err := stats.StandardDeviationSample(residuals)
	if err != nil {
		return nil, 0, false
	}
	threshold = e.cfg.ThresholdK * sd

	for i := sp.Start; i < sp.End; i++ {
		if deviation[i] > threshold && deviation[i] > 0 {
			records = append(records, energy.AnomalyRecord{
				Timestamp:       frame.Timestamps[i],
				BuildingID:      frame.Buildings[i],
				MeterReading:    meter[i],
				ExpectedReading: expected[i],
				WastedKWh:       deviation[i],
				WastedCost:      deviation[i] * e.cfg.UnitCostRate,
			})
		}
	}
	return records, threshold, true
}
