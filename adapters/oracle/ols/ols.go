// Package ols implements the regression oracle as a ridge-regularized
// least-squares model. It is one pluggable variant behind the oracle
// port; the pipeline treats it as an opaque fit/predict collaborator.
package ols

import (
	"context"
	"fmt"
	"sync"

	"ecoscale/domain/core"
	"ecoscale/domain/energy"

	"gonum.org/v1/gonum/mat"
)

// Regressor fits expected meter readings from a feature frame.
type Regressor struct {
	mu sync.RWMutex

	// Configuration
	ridge float64

	// Trained model
	trained   bool
	frameCols []string            // frame columns recorded at fit time, in order
	colTypes  []energy.ColumnType // matching types, enforced at predict
	encoder   *oneHotEncoder
	weights   *mat.VecDense // intercept first, then design columns
}

// Option configures a Regressor.
type Option func(*Regressor)

// WithRidge sets the L2 regularization strength.
func WithRidge(lambda float64) Option {
	return func(r *Regressor) {
		if lambda >= 0 {
			r.ridge = lambda
		}
	}
}

// New creates a regressor with default regularization.
func New(opts ...Option) *Regressor {
	r := &Regressor{ridge: 1e-6}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fit trains on the feature frame. The frame's column names, order and
// types are recorded; every later Predict call must present exactly the
// same schema.
func (r *Regressor) Fit(ctx context.Context, features *energy.Frame, target []float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if features.Rows() == 0 {
		return core.ErrEmptyFrame
	}
	if len(target) != features.Rows() {
		return fmt.Errorf("%w: %d target values for %d rows",
			core.ErrColumnLengthMismatch, len(target), features.Rows())
	}
	if err := features.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	encoder, err := fitEncoder(features)
	if err != nil {
		return err
	}
	design, err := encoder.transform(features)
	if err != nil {
		return err
	}

	weights, err := solveRidge(design, target, r.ridge)
	if err != nil {
		return fmt.Errorf("oracle fit failed: %w", err)
	}

	r.frameCols = append([]string(nil), features.ColumnNames()...)
	r.colTypes = make([]energy.ColumnType, len(features.Columns))
	for i, col := range features.Columns {
		r.colTypes[i] = col.Type
	}
	r.encoder = encoder
	r.weights = weights
	r.trained = true
	return nil
}

// Predict returns expected readings for the frame. The schema check runs
// before any prediction is computed: a feature set that differs from the
// one recorded at fit time is a contract violation, never silently
// reordered or dropped.
func (r *Regressor) Predict(ctx context.Context, features *energy.Frame) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.trained {
		return nil, core.ErrOracleNotFitted
	}
	if err := r.checkSchema(features); err != nil {
		return nil, err
	}

	design, err := r.encoder.transform(features)
	if err != nil {
		return nil, err
	}

	rows, _ := design.Dims()
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		// Intercept plus the dot product with the design row.
		y := r.weights.AtVec(0)
		for j := 0; j < r.weights.Len()-1; j++ {
			y += design.At(i, j) * r.weights.AtVec(j+1)
		}
		out[i] = y
	}
	return out, nil
}

// FeatureNames returns the frame column names recorded at fit time.
func (r *Regressor) FeatureNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.frameCols...)
}

// checkSchema enforces the exact name set, order and type recorded at
// fit time.
func (r *Regressor) checkSchema(features *energy.Frame) error {
	got := features.ColumnNames()
	if len(got) != len(r.frameCols) {
		return core.NewSchemaMismatchError(fmt.Sprintf(
			"fit saw %d columns, predict got %d", len(r.frameCols), len(got)))
	}
	for i, name := range r.frameCols {
		if got[i] != name {
			return core.NewSchemaMismatchError(fmt.Sprintf(
				"column %d: fit saw %q, predict got %q", i, name, got[i]))
		}
		if features.Columns[i].Type != r.colTypes[i] {
			return core.NewSchemaMismatchError(fmt.Sprintf(
				"column %q: fit saw %s, predict got %s",
				name, r.colTypes[i], features.Columns[i].Type))
		}
	}
	return nil
}

// solveRidge solves (X'X + lambda*I) beta = X'y with an intercept
// column prepended to X. The intercept is not regularized.
func solveRidge(design *mat.Dense, target []float64, lambda float64) (*mat.VecDense, error) {
	rows, cols := design.Dims()
	p := cols + 1 // intercept

	x := mat.NewDense(rows, p, nil)
	for i := 0; i < rows; i++ {
		x.Set(i, 0, 1)
		for j := 0; j < cols; j++ {
			x.Set(i, j+1, design.At(i, j))
		}
	}
	y := mat.NewVecDense(rows, target)

	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	for j := 1; j < p; j++ {
		xtx.Set(j, j, xtx.At(j, j)+lambda)
	}

	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	var beta mat.VecDense
	if err := beta.SolveVec(&xtx, &xty); err != nil {
		return nil, fmt.Errorf("%w: singular design matrix", core.ErrInsufficientData)
	}
	return &beta, nil
}
