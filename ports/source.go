package ports

import (
	"context"

	"ecoscale/domain/energy"
)

// ReadingSourcePort is the input boundary: it delivers a merged reading
// table (meter, metadata, weather) with the required columns present.
// Schema normalization and row repair live behind this port, not in the
// pipeline.
type ReadingSourcePort interface {
	Load(ctx context.Context) (*energy.Frame, error)
}
