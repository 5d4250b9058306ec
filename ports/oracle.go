package ports

import (
	"context"

	"ecoscale/domain/energy"
)

// OraclePort wraps an external regression model's fit/predict contract.
// The learning algorithm behind it is opaque to the pipeline; any
// concrete regressor is a pluggable variant of this interface.
//
// Contract:
//   - Fit records the feature-name set and order of the frame it was
//     trained on.
//   - Predict must be called with exactly that set and order; the
//     implementation raises a feature-schema-mismatch error before
//     producing any prediction otherwise.
//   - Categorical columns are handled by a declared encoding convention
//     applied identically at fit and predict.
type OraclePort interface {
	Fit(ctx context.Context, features *energy.Frame, target []float64) error
	Predict(ctx context.Context, features *energy.Frame) ([]float64, error)

	// FeatureNames returns the frame column names recorded at fit time,
	// in fit order. Empty until Fit has been called.
	FeatureNames() []string
}
