package temporal

import (
	"fmt"
	"log"
	"sort"

	"ecoscale/domain/energy"
)

// Split partitions a feature frame into a training prefix and an
// evaluation suffix at a fixed fraction of its globally time-sorted
// rows. The cut is one global index, not per building: the trained
// oracle never sees future information relative to any evaluation row,
// and a building with sparse history may land entirely on one side.
// That is accepted behavior, not corrected.
func Split(frame *energy.Frame, fraction float64) (train, eval *energy.Frame, err error) {
	if fraction <= 0 || fraction >= 1 {
		return nil, nil, fmt.Errorf("split fraction must be in (0, 1), got %v", fraction)
	}
	n := frame.Rows()
	if n < 2 {
		return nil, nil, fmt.Errorf("cannot split %d rows", n)
	}

	// Stable sort keeps the building-grouped order among equal
	// timestamps, so the cut is reproducible run to run.
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	sort.SliceStable(rows, func(a, b int) bool {
		return frame.Timestamps[rows[a]].Before(frame.Timestamps[rows[b]])
	})

	cut := int(float64(n) * fraction)
	chrono := frame.SelectRows(rows)
	train = chrono.SliceRows(0, cut)
	eval = chrono.SliceRows(cut, n)

	log.Printf("[TemporalSplit] %d rows -> %d train / %d eval at fraction %.2f",
		n, train.Rows(), eval.Rows(), fraction)
	return train, eval, nil
}
