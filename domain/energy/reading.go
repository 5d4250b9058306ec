package energy

import (
	"sort"

	"ecoscale/domain/core"
)

// Canonical column names at the input boundary. The ETL collaborator is
// expected to deliver at least the three required columns; auxiliary
// covariates (weather, metadata) ride along untouched.
const (
	ColMeterReading = "meter_reading"
	ColSquareFeet   = "square_feet"
	ColPrimaryUse   = "primary_use"
	ColAirTemp      = "air_temperature"
)

// RequiredColumns are the fields a reading table cannot do without
func RequiredColumns() []string {
	return []string{ColMeterReading}
}

// Reading is a single meter observation for one building
type Reading struct {
	BuildingID   core.BuildingID `json:"building_id"`
	Timestamp    core.Timestamp  `json:"timestamp"`
	MeterReading float64         `json:"meter_reading"`
}

// FrameFromReadings assembles a frame from a flat reading list. Rows are
// stable-sorted by building then ascending timestamp, the ordering every
// downstream lag/rolling computation assumes.
func FrameFromReadings(readings []Reading) *Frame {
	sorted := make([]Reading, len(readings))
	copy(sorted, readings)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].BuildingID != sorted[j].BuildingID {
			return sorted[i].BuildingID < sorted[j].BuildingID
		}
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	buildings := make([]core.BuildingID, len(sorted))
	timestamps := make([]core.Timestamp, len(sorted))
	values := make([]float64, len(sorted))
	for i, r := range sorted {
		buildings[i] = r.BuildingID
		timestamps[i] = r.Timestamp
		values[i] = r.MeterReading
	}

	frame, _ := NewFrame(buildings, timestamps)
	_ = frame.AddNumeric(ColMeterReading, values)
	return frame
}

// EntitySpan is a contiguous run of rows belonging to one building
type EntitySpan struct {
	BuildingID core.BuildingID
	Start      int // inclusive row index
	End        int // exclusive row index
}

// EntitySpans partitions a building-then-time ordered frame into one
// span per building. Spans are disjoint and cover every row, so
// per-entity work can run concurrently with write-once destinations.
func EntitySpans(f *Frame) []EntitySpan {
	spans := []EntitySpan{}
	start := 0
	for i := 1; i <= f.Rows(); i++ {
		if i == f.Rows() || f.Buildings[i] != f.Buildings[start] {
			spans = append(spans, EntitySpan{
				BuildingID: f.Buildings[start],
				Start:      start,
				End:        i,
			})
			start = i
		}
	}
	return spans
}
