package api

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"ecoscale/domain/core"
	"ecoscale/domain/energy"
)

// BuildingSummary aggregates one building's reported waste
type BuildingSummary struct {
	BuildingID core.BuildingID `json:"building_id"`
	Anomalies  int             `json:"anomalies"`
	WastedKWh  float64         `json:"wasted_kwh"`
	WastedCost float64         `json:"wasted_cost"`
}

// ReportSummary is the aggregate view the dashboard renders
type ReportSummary struct {
	RunID             core.RunID        `json:"run_id"`
	GeneratedAt       core.Timestamp    `json:"generated_at"`
	AnomaliesReported int               `json:"anomalies_reported"`
	AnomaliesDetected int               `json:"anomalies_detected"`
	TotalWastedCost   float64           `json:"total_wasted_cost"`
	EvalMAE           float64           `json:"eval_mae"`
	EvalRMSE          float64           `json:"eval_rmse"`
	Buildings         []BuildingSummary `json:"buildings"`
}

// NewReportSummary aggregates reported records per building, most
// expensive buildings first.
func NewReportSummary(report *energy.AnomalyReport, manifest *energy.RunManifest) *ReportSummary {
	byBuilding := make(map[core.BuildingID]*BuildingSummary)
	for _, rec := range report.Records {
		b, ok := byBuilding[rec.BuildingID]
		if !ok {
			b = &BuildingSummary{BuildingID: rec.BuildingID}
			byBuilding[rec.BuildingID] = b
		}
		b.Anomalies++
		b.WastedKWh += rec.WastedKWh
		b.WastedCost += rec.WastedCost
	}

	buildings := make([]BuildingSummary, 0, len(byBuilding))
	for _, b := range byBuilding {
		buildings = append(buildings, *b)
	}
	sort.Slice(buildings, func(i, j int) bool {
		if buildings[i].WastedCost != buildings[j].WastedCost {
			return buildings[i].WastedCost > buildings[j].WastedCost
		}
		return buildings[i].BuildingID < buildings[j].BuildingID
	})

	return &ReportSummary{
		RunID:             report.RunID,
		GeneratedAt:       report.GeneratedAt,
		AnomaliesReported: len(report.Records),
		AnomaliesDetected: report.TotalDetected,
		TotalWastedCost:   report.TotalWastedCost,
		EvalMAE:           manifest.EvalMAE,
		EvalRMSE:          manifest.EvalRMSE,
		Buildings:         buildings,
	}
}

// renderSummaryHTML renders the summary as a markdown document and
// converts it to HTML for the dashboard page.
func renderSummaryHTML(s *ReportSummary) string {
	var md strings.Builder
	fmt.Fprintf(&md, "# Energy Waste Report\n\n")
	fmt.Fprintf(&md, "Run `%s`, generated %s.\n\n", s.RunID, s.GeneratedAt)
	fmt.Fprintf(&md, "- **Anomalies reported:** %d (of %d detected)\n", s.AnomaliesReported, s.AnomaliesDetected)
	fmt.Fprintf(&md, "- **Total wasted cost:** $%.2f\n", s.TotalWastedCost)
	fmt.Fprintf(&md, "- **Oracle accuracy:** MAE %.2f kWh, RMSE %.2f kWh\n\n", s.EvalMAE, s.EvalRMSE)

	if len(s.Buildings) > 0 {
		fmt.Fprintf(&md, "## Worst offenders\n\n")
		fmt.Fprintf(&md, "| Building | Anomalies | Wasted kWh | Wasted cost |\n")
		fmt.Fprintf(&md, "|---|---|---|---|\n")
		for _, b := range s.Buildings {
			fmt.Fprintf(&md, "| %s | %d | %.1f | $%.2f |\n",
				b.BuildingID, b.Anomalies, b.WastedKWh, b.WastedCost)
		}
	} else {
		fmt.Fprintf(&md, "No anomalies in the latest run.\n")
	}

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return string(markdown.ToHTML([]byte(md.String()), p, renderer))
}
