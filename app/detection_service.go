package app

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"ecoscale/adapters/detect"
	"ecoscale/adapters/features"
	"ecoscale/adapters/temporal"
	"ecoscale/domain/core"
	"ecoscale/domain/energy"
	"ecoscale/internal/config"
	"ecoscale/ports"

	"github.com/montanaflynn/stats"
)

// DetectionService runs one end-to-end detection pass: feature build,
// temporal split, oracle fit on the train prefix, prediction over the
// full feature table, residual thresholding, and report ranking. The
// report is then handed to every configured sink.
type DetectionService struct {
	source ports.ReadingSourcePort
	oracle ports.OraclePort
	sinks  []ports.ReportSinkPort
	params Params
}

// Params are the explicit pipeline tunables. They travel with the
// service instance, never as process-wide state.
type Params struct {
	Features      features.Config
	Detect        detect.Config
	SplitFraction float64
	ReportCap     int
}

// ParamsFromConfig maps loaded configuration onto pipeline parameters
func ParamsFromConfig(cfg config.PipelineConfig) Params {
	f := features.DefaultConfig()
	f.LagHorizons = cfg.LagHorizons
	f.RollingWindow = cfg.RollingWindow
	f.Concurrency = cfg.EntityConcurrency

	return Params{
		Features: f,
		Detect: detect.Config{
			ThresholdK:   cfg.ThresholdK,
			UnitCostRate: cfg.UnitCostRate,
			Concurrency:  cfg.EntityConcurrency,
		},
		SplitFraction: cfg.SplitFraction,
		ReportCap:     cfg.ReportCap,
	}
}

// NewDetectionService creates a detection service
func NewDetectionService(source ports.ReadingSourcePort, oracle ports.OraclePort, params Params, sinks ...ports.ReportSinkPort) *DetectionService {
	return &DetectionService{
		source: source,
		oracle: oracle,
		sinks:  sinks,
		params: params,
	}
}

// DetectionResult is the complete output of one run
type DetectionResult struct {
	Report   *energy.AnomalyReport
	Manifest *energy.RunManifest
}

// nonFeatureColumns are value columns excluded from the oracle's view:
// the target itself and identifiers that would let the model memorize
// entities instead of load shapes.
var nonFeatureColumns = map[string]bool{
	energy.ColMeterReading: true,
	"site_id":              true,
}

// Run executes the pipeline once. Structural errors abort; statistical
// edge cases (buildings with undefined thresholds) degrade per building
// and are counted in the manifest.
func (s *DetectionService) Run(ctx context.Context) (*DetectionResult, error) {
	startTime := time.Now()
	runID := core.NewRunID()
	log.Printf("[DetectionService] run %s starting", runID)

	raw, err := s.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading source failed: %w", err)
	}

	builder := features.NewBuilder(s.params.Features)
	featured, err := builder.Build(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("feature build failed: %w", err)
	}

	train, eval, err := temporal.Split(featured, s.params.SplitFraction)
	if err != nil {
		return nil, fmt.Errorf("temporal split failed: %w", err)
	}

	featureNames := selectFeatureNames(featured)

	trainX, err := train.SelectColumns(featureNames...)
	if err != nil {
		return nil, err
	}
	trainY, err := train.Numeric(energy.ColMeterReading)
	if err != nil {
		return nil, err
	}
	if err := s.oracle.Fit(ctx, trainX, trainY); err != nil {
		return nil, fmt.Errorf("oracle fit failed: %w", err)
	}

	evalMAE, evalRMSE, err := s.evaluate(ctx, eval, featureNames)
	if err != nil {
		return nil, err
	}
	log.Printf("[DetectionService] oracle eval: MAE %.3f, RMSE %.3f", evalMAE, evalRMSE)

	// The virtual meter: expected usage for every featured reading.
	fullX, err := featured.SelectColumns(featureNames...)
	if err != nil {
		return nil, err
	}
	expected, err := s.oracle.Predict(ctx, fullX)
	if err != nil {
		return nil, fmt.Errorf("oracle predict failed: %w", err)
	}

	engine := detect.NewEngine(s.params.Detect)
	detection, err := engine.Detect(ctx, featured, expected)
	if err != nil {
		return nil, fmt.Errorf("anomaly detection failed: %w", err)
	}

	report := detect.BuildReport(runID, detection, s.params.ReportCap)
	manifest := &energy.RunManifest{
		RunID:             runID,
		StartedAt:         core.NewTimestamp(startTime),
		FinishedAt:        core.Now(),
		RowsIn:            raw.Rows(),
		RowsFeatured:      featured.Rows(),
		TrainRows:         train.Rows(),
		EvalRows:          eval.Rows(),
		Buildings:         len(energy.EntitySpans(featured)),
		BuildingsSkipped:  detection.BuildingsSkipped,
		AnomaliesDetected: report.TotalDetected,
		AnomaliesReported: len(report.Records),
		TotalWastedCost:   report.TotalWastedCost,
		FeatureNames:      s.oracle.FeatureNames(),
		ThresholdK:        s.params.Detect.ThresholdK,
		UnitCostRate:      s.params.Detect.UnitCostRate,
		SplitFraction:     s.params.SplitFraction,
		ReportCap:         s.params.ReportCap,
		EvalMAE:           evalMAE,
		EvalRMSE:          evalRMSE,
		RuntimeMs:         time.Since(startTime).Milliseconds(),
	}

	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, report, manifest); err != nil {
			return nil, fmt.Errorf("report publish failed: %w", err)
		}
	}

	log.Printf("[DetectionService] run %s complete: %d anomalies reported, %.2f total wasted cost (%dms)",
		runID, manifest.AnomaliesReported, manifest.TotalWastedCost, manifest.RuntimeMs)
	return &DetectionResult{Report: report, Manifest: manifest}, nil
}

// evaluate scores the trained oracle on the evaluation suffix
func (s *DetectionService) evaluate(ctx context.Context, eval *energy.Frame, featureNames []string) (mae, rmse float64, err error) {
	if eval.Rows() == 0 {
		return 0, 0, nil
	}
	evalX, err := eval.SelectColumns(featureNames...)
	if err != nil {
		return 0, 0, err
	}
	evalY, err := eval.Numeric(energy.ColMeterReading)
	if err != nil {
		return 0, 0, err
	}
	predicted, err := s.oracle.Predict(ctx, evalX)
	if err != nil {
		return 0, 0, fmt.Errorf("oracle eval predict failed: %w", err)
	}

	absErrs := make([]float64, len(evalY))
	sqErrs := make([]float64, len(evalY))
	for i := range evalY {
		diff := evalY[i] - predicted[i]
		absErrs[i] = math.Abs(diff)
		sqErrs[i] = diff * diff
	}
	mae, _ = stats.Mean(absErrs)
	mse, _ := stats.Mean(sqErrs)
	return mae, math.Sqrt(mse), nil
}

// selectFeatureNames returns the oracle-visible columns in frame order
func selectFeatureNames(frame *energy.Frame) []string {
	names := make([]string, 0, len(frame.Columns))
	for _, col := range frame.Columns {
		if !nonFeatureColumns[col.Name] {
			names = append(names, col.Name)
		}
	}
	return names
}
