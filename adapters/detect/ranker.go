package detect

import (
	"sort"

	"ecoscale/domain/core"
	"ecoscale/domain/energy"
)

// Rank orders anomaly records by wasted cost descending and truncates to
// the report cap. The sort is stable, so records with equal cost keep
// their natural detection order (building group, then ascending time) -
// that is the documented tie-break.
func Rank(records []energy.AnomalyRecord, limit int) []energy.AnomalyRecord {
	ranked := make([]energy.AnomalyRecord, len(records))
	copy(ranked, records)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].WastedCost > ranked[j].WastedCost
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// BuildReport assembles the durable report artifact from a detection
// result. An empty result is a valid report, not an error.
func BuildReport(runID core.RunID, result *Result, limit int) *energy.AnomalyReport {
	total := 0.0
	for _, r := range result.Records {
		total += r.WastedCost
	}
	return &energy.AnomalyReport{
		RunID:           runID,
		GeneratedAt:     core.Now(),
		Records:         Rank(result.Records, limit),
		TotalDetected:   len(result.Records),
		TotalWastedCost: total,
	}
}
