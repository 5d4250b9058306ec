package tabular

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strconv"

	"ecoscale/domain/core"
	"ecoscale/domain/energy"
	interrors "ecoscale/internal/errors"
)

// MergedSource implements the reading-source port over three raw files:
// a wide meter table (timestamp x building columns), building metadata,
// and per-site weather. It melts the meter table to long form, then
// left-merges metadata on building and weather on (site, timestamp) -
// the same merge strategy the upstream ETL applies.
type MergedSource struct {
	meterPath    string
	metadataPath string
	weatherPath  string
}

// NewMergedSource creates the source for the three raw files
func NewMergedSource(meterPath, metadataPath, weatherPath string) *MergedSource {
	return &MergedSource{
		meterPath:    meterPath,
		metadataPath: metadataPath,
		weatherPath:  weatherPath,
	}
}

type buildingMeta struct {
	siteID     core.SiteID
	primaryUse string
	squareFeet float64 // NaN when unknown
}

// Load reads, melts and merges the raw tables into a reading frame.
// Rows whose covariates cannot be resolved after the merges are dropped
// at this boundary; the pipeline itself never repairs rows.
func (s *MergedSource) Load(ctx context.Context) (*energy.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	meter, err := NewDataReader(s.meterPath).Read()
	if err != nil {
		return nil, interrors.SourceError("meter table load failed", err)
	}
	meta, err := s.loadMetadata()
	if err != nil {
		return nil, interrors.SourceError("metadata load failed", err)
	}
	weather, err := s.loadWeather()
	if err != nil {
		return nil, interrors.SourceError("weather load failed", err)
	}

	readings, err := meltMeterTable(meter)
	if err != nil {
		return nil, interrors.SourceError("meter table melt failed", err)
	}

	frame := energy.FrameFromReadings(readings)

	// Covariate columns aligned to the sorted frame. A building without
	// metadata, or a site-hour without a temperature, drops the row.
	n := frame.Rows()
	siteIDs := make([]string, n)
	primaryUse := make([]string, n)
	squareFeet := make([]float64, n)
	airTemp := make([]float64, n)
	keep := make([]int, 0, n)

	dropped := 0
	for i := 0; i < n; i++ {
		m, ok := meta[frame.Buildings[i]]
		if !ok || math.IsNaN(m.squareFeet) {
			dropped++
			continue
		}
		temp, ok := weather.tempAt(m.siteID, frame.Timestamps[i])
		if !ok {
			dropped++
			continue
		}
		siteIDs[i] = m.siteID.String()
		primaryUse[i] = m.primaryUse
		squareFeet[i] = m.squareFeet
		airTemp[i] = temp
		keep = append(keep, i)
	}

	if err := frame.AddCategorical("site_id", siteIDs); err != nil {
		return nil, err
	}
	if err := frame.AddCategorical(energy.ColPrimaryUse, primaryUse); err != nil {
		return nil, err
	}
	if err := frame.AddNumeric(energy.ColSquareFeet, squareFeet); err != nil {
		return nil, err
	}
	if err := frame.AddNumeric(energy.ColAirTemp, airTemp); err != nil {
		return nil, err
	}

	merged := frame.SelectRows(keep)
	log.Printf("[MergedSource] %d readings merged (%d dropped: unresolved covariates)",
		merged.Rows(), dropped)
	return merged, nil
}

// meltMeterTable reshapes the wide meter table (one column per building)
// into long readings, dropping blank cells the way the upstream drops
// missing meter rows.
func meltMeterTable(t *Table) ([]energy.Reading, error) {
	tsCol := t.Col("timestamp")
	if tsCol < 0 {
		return nil, core.NewMissingColumnError("timestamp")
	}

	var readings []energy.Reading
	for ri, row := range t.Rows {
		ts, err := ParseTimestamp(row[tsCol])
		if err != nil {
			return nil, fmt.Errorf("meter row %d: %w", ri+1, err)
		}
		for ci, header := range t.Headers {
			if ci == tsCol || header == "" {
				continue
			}
			cell := ""
			if ci < len(row) {
				cell = row[ci]
			}
			if cell == "" {
				continue
			}
			value, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("meter row %d, building %s: non-numeric reading %q",
					ri+1, header, cell)
			}
			readings = append(readings, energy.Reading{
				BuildingID:   core.BuildingID(header),
				Timestamp:    core.NewTimestamp(ts),
				MeterReading: value,
			})
		}
	}
	return readings, nil
}

// metadataHeaderAliases normalizes the header spellings seen in the wild
var metadataHeaderAliases = map[string]string{
	"primaryspaceusage": "primary_use",
	"sqm":               "square_feet",
	"sqft":              "square_feet",
}

func (s *MergedSource) loadMetadata() (map[core.BuildingID]buildingMeta, error) {
	t, err := NewDataReader(s.metadataPath).Read()
	if err != nil {
		return nil, err
	}

	// Normalize aliases in place; on duplicates (sqm and sqft both
	// present) the first occurrence wins, the rest are ignored.
	seen := make(map[string]bool)
	for i, h := range t.Headers {
		if alias, ok := metadataHeaderAliases[h]; ok {
			h = alias
		}
		if seen[h] {
			t.Headers[i] = ""
			continue
		}
		seen[h] = true
		t.Headers[i] = h
		t.index[h] = i
	}

	if t.Col("building_id") < 0 {
		return nil, core.NewMissingColumnError("building_id")
	}
	if t.Col("site_id") < 0 {
		return nil, core.NewMissingColumnError("site_id")
	}

	meta := make(map[core.BuildingID]buildingMeta, len(t.Rows))
	for ri := range t.Rows {
		id := core.BuildingID(t.Cell(ri, "building_id"))
		if id == "" {
			continue
		}
		sqft := math.NaN()
		if raw := t.Cell(ri, "square_feet"); raw != "" {
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				sqft = v
			}
		}
		meta[id] = buildingMeta{
			siteID:     core.SiteID(t.Cell(ri, "site_id")),
			primaryUse: t.Cell(ri, "primary_use"),
			squareFeet: sqft,
		}
	}
	return meta, nil
}

// weatherIndex holds per-site temperature series with gap interpolation
type weatherIndex struct {
	bySite map[core.SiteID][]weatherPoint
}

type weatherPoint struct {
	ts   core.Timestamp
	temp float64
}

func (w *weatherIndex) tempAt(site core.SiteID, ts core.Timestamp) (float64, bool) {
	points := w.bySite[site]
	if len(points) == 0 {
		return 0, false
	}
	// Exact match first, then nearest-neighbour fill: the upstream ETL
	// interpolates temperature gaps, so a missing site-hour borrows the
	// closest observation instead of dropping the reading.
	i := sort.Search(len(points), func(i int) bool {
		return !points[i].ts.Before(ts)
	})
	if i < len(points) && points[i].ts.Equal(ts) {
		return points[i].temp, true
	}
	if i == 0 {
		return points[0].temp, true
	}
	if i == len(points) {
		return points[len(points)-1].temp, true
	}
	before := points[i-1]
	after := points[i]
	if ts.Time().Sub(before.ts.Time()) <= after.ts.Time().Sub(ts.Time()) {
		return before.temp, true
	}
	return after.temp, true
}

func (s *MergedSource) loadWeather() (*weatherIndex, error) {
	t, err := NewDataReader(s.weatherPath).Read()
	if err != nil {
		return nil, err
	}
	for _, required := range []string{"site_id", "timestamp"} {
		if t.Col(required) < 0 {
			return nil, core.NewMissingColumnError(required)
		}
	}
	tempCol := "air_temperature"
	if t.Col(tempCol) < 0 && t.Col("airTemperature") >= 0 {
		tempCol = "airTemperature"
	}
	if t.Col(tempCol) < 0 {
		return nil, core.NewMissingColumnError("air_temperature")
	}

	idx := &weatherIndex{bySite: make(map[core.SiteID][]weatherPoint)}
	for ri := range t.Rows {
		ts, err := ParseTimestamp(t.Cell(ri, "timestamp"))
		if err != nil {
			return nil, fmt.Errorf("weather row %d: %w", ri+1, err)
		}
		raw := t.Cell(ri, tempCol)
		if raw == "" {
			continue
		}
		temp, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("weather row %d: non-numeric temperature %q", ri+1, raw)
		}
		site := core.SiteID(t.Cell(ri, "site_id"))
		idx.bySite[site] = append(idx.bySite[site], weatherPoint{
			ts:   core.NewTimestamp(ts),
			temp: temp,
		})
	}
	for site := range idx.bySite {
		points := idx.bySite[site]
		sort.Slice(points, func(i, j int) bool {
			return points[i].ts.Before(points[j].ts)
		})
		idx.bySite[site] = points
	}
	return idx, nil
}
