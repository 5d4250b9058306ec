package energy

import (
	"ecoscale/domain/core"
)

// AnomalyRecord is one flagged excess-usage reading with its financial
// translation. Only these fields cross the reporting boundary - internal
// feature columns never leak into a report.
type AnomalyRecord struct {
	Timestamp       core.Timestamp  `json:"timestamp" db:"ts"`
	BuildingID      core.BuildingID `json:"building_id" db:"building_id"`
	MeterReading    float64         `json:"meter_reading" db:"meter_reading"`
	ExpectedReading float64         `json:"expected_reading" db:"expected_reading"`
	WastedKWh       float64         `json:"wasted_kwh" db:"wasted_kwh"`
	WastedCost      float64         `json:"wasted_cost" db:"wasted_cost"`
}

// AnomalyReport is the durable output artifact of a detection run: the
// top-N records across all buildings, ordered by wasted cost descending.
type AnomalyReport struct {
	RunID       core.RunID      `json:"run_id"`
	GeneratedAt core.Timestamp  `json:"generated_at"`
	Records     []AnomalyRecord `json:"records"`

	// TotalDetected counts every anomaly before the report cap was
	// applied; len(Records) may be smaller.
	TotalDetected   int     `json:"total_detected"`
	TotalWastedCost float64 `json:"total_wasted_cost"`
}

// RunManifest records what one detection run did, for audit and for the
// report API. It is persisted alongside the report.
type RunManifest struct {
	RunID      core.RunID     `json:"run_id"`
	StartedAt  core.Timestamp `json:"started_at"`
	FinishedAt core.Timestamp `json:"finished_at"`

	RowsIn       int `json:"rows_in"`
	RowsFeatured int `json:"rows_featured"` // after warm-up row elimination
	TrainRows    int `json:"train_rows"`
	EvalRows     int `json:"eval_rows"`

	Buildings         int `json:"buildings"`
	BuildingsSkipped  int `json:"buildings_skipped"` // undefined threshold
	AnomaliesDetected int `json:"anomalies_detected"`
	AnomaliesReported int `json:"anomalies_reported"`

	TotalWastedCost float64  `json:"total_wasted_cost"`
	FeatureNames    []string `json:"feature_names"`

	// Tunables snapshot, so a persisted report stays interpretable after
	// the configuration changes.
	ThresholdK    float64 `json:"threshold_k"`
	UnitCostRate  float64 `json:"unit_cost_rate"`
	SplitFraction float64 `json:"split_fraction"`
	ReportCap     int     `json:"report_cap"`

	// Oracle accuracy over the evaluation suffix, for drift monitoring.
	EvalMAE  float64 `json:"eval_mae"`
	EvalRMSE float64 `json:"eval_rmse"`

	RuntimeMs int64 `json:"runtime_ms"`
}
