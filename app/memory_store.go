package app

import (
	"context"
	"fmt"
	"sync"

	"ecoscale/domain/energy"
)

// MemoryReportStore is an in-process sink/reader pair for runs without a
// database: the API can serve the latest report straight from memory.
type MemoryReportStore struct {
	mu       sync.RWMutex
	report   *energy.AnomalyReport
	manifest *energy.RunManifest
}

// NewMemoryReportStore creates an empty store
func NewMemoryReportStore() *MemoryReportStore {
	return &MemoryReportStore{}
}

// Publish retains the latest report and manifest
func (m *MemoryReportStore) Publish(ctx context.Context, report *energy.AnomalyReport, manifest *energy.RunManifest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.report = report
	m.manifest = manifest
	return nil
}

// LatestReport returns the retained report
func (m *MemoryReportStore) LatestReport(ctx context.Context) (*energy.AnomalyReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.report == nil {
		return nil, fmt.Errorf("no detection runs recorded")
	}
	return m.report, nil
}

// LatestManifest returns the retained manifest
func (m *MemoryReportStore) LatestManifest(ctx context.Context) (*energy.RunManifest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.manifest == nil {
		return nil, fmt.Errorf("no detection runs recorded")
	}
	return m.manifest, nil
}
