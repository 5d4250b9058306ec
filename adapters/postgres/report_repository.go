package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"ecoscale/domain/core"
	"ecoscale/domain/energy"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// reportRepository persists detection runs and their anomaly records.
// The report is the one durable artifact the pipeline produces; the API
// surface reads the latest run back through the reader methods.
type reportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates a report repository
func NewReportRepository(db *sqlx.DB) *reportRepository {
	return &reportRepository{db: db}
}

// Connect opens and pings a postgres connection
func Connect(url string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the report tables when missing
func (r *reportRepository) EnsureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS anomaly_runs (
		run_id TEXT PRIMARY KEY,
		generated_at TIMESTAMPTZ NOT NULL,
		total_detected INTEGER NOT NULL,
		total_wasted_cost DOUBLE PRECISION NOT NULL,
		manifest JSONB NOT NULL
	);
	CREATE TABLE IF NOT EXISTS anomaly_records (
		run_id TEXT NOT NULL REFERENCES anomaly_runs(run_id) ON DELETE CASCADE,
		rank INTEGER NOT NULL,
		ts TIMESTAMPTZ NOT NULL,
		building_id TEXT NOT NULL,
		meter_reading DOUBLE PRECISION NOT NULL,
		expected_reading DOUBLE PRECISION NOT NULL,
		wasted_kwh DOUBLE PRECISION NOT NULL,
		wasted_cost DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, rank)
	);`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure report schema: %w", err)
	}
	return nil
}

// Publish stores the report and manifest in one transaction
func (r *reportRepository) Publish(ctx context.Context, report *energy.AnomalyReport, manifest *energy.RunManifest) error {
	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO anomaly_runs (run_id, generated_at, total_detected, total_wasted_cost, manifest)
		 VALUES ($1, $2, $3, $4, $5)`,
		report.RunID.String(), report.GeneratedAt.Time(),
		report.TotalDetected, report.TotalWastedCost, manifestJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx,
		`INSERT INTO anomaly_records
		 (run_id, rank, ts, building_id, meter_reading, expected_reading, wasted_kwh, wasted_cost)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
	if err != nil {
		return fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer stmt.Close()

	for rank, rec := range report.Records {
		if _, err := stmt.ExecContext(ctx,
			report.RunID.String(), rank+1, rec.Timestamp.Time(), rec.BuildingID.String(),
			rec.MeterReading, rec.ExpectedReading, rec.WastedKWh, rec.WastedCost,
		); err != nil {
			return fmt.Errorf("failed to insert record %d: %w", rank+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit report: %w", err)
	}

	log.Printf("[ReportRepository] run %s persisted (%d records)", report.RunID, len(report.Records))
	return nil
}

// LatestReport loads the most recent run's records in rank order
func (r *reportRepository) LatestReport(ctx context.Context) (*energy.AnomalyReport, error) {
	var run struct {
		RunID           string    `db:"run_id"`
		GeneratedAt     time.Time `db:"generated_at"`
		TotalDetected   int       `db:"total_detected"`
		TotalWastedCost float64   `db:"total_wasted_cost"`
	}
	err := r.db.GetContext(ctx, &run,
		`SELECT run_id, generated_at, total_detected, total_wasted_cost
		 FROM anomaly_runs ORDER BY generated_at DESC LIMIT 1`)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no detection runs recorded")
		}
		return nil, fmt.Errorf("failed to load latest run: %w", err)
	}

	rows, err := r.db.QueryxContext(ctx,
		`SELECT ts, building_id, meter_reading, expected_reading, wasted_kwh, wasted_cost
		 FROM anomaly_records WHERE run_id = $1 ORDER BY rank`, run.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	defer rows.Close()

	report := &energy.AnomalyReport{
		RunID:           core.RunID(run.RunID),
		GeneratedAt:     core.NewTimestamp(run.GeneratedAt),
		TotalDetected:   run.TotalDetected,
		TotalWastedCost: run.TotalWastedCost,
	}
	for rows.Next() {
		var (
			ts  time.Time
			rec energy.AnomalyRecord
			bid string
		)
		if err := rows.Scan(&ts, &bid, &rec.MeterReading, &rec.ExpectedReading,
			&rec.WastedKWh, &rec.WastedCost); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.Timestamp = core.NewTimestamp(ts)
		rec.BuildingID = core.BuildingID(bid)
		report.Records = append(report.Records, rec)
	}
	return report, rows.Err()
}

// LatestManifest loads the most recent run's manifest
func (r *reportRepository) LatestManifest(ctx context.Context) (*energy.RunManifest, error) {
	var manifestJSON []byte
	err := r.db.GetContext(ctx, &manifestJSON,
		`SELECT manifest FROM anomaly_runs ORDER BY generated_at DESC LIMIT 1`)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no detection runs recorded")
		}
		return nil, fmt.Errorf("failed to load latest manifest: %w", err)
	}

	var manifest energy.RunManifest
	if err := json.Unmarshal(manifestJSON, &manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &manifest, nil
}
