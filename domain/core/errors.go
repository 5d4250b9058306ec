package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Structural/schema errors. These abort a pipeline stage outright:
	// a partially built feature table or a silently reordered design
	// matrix is worse than no result.
	ErrMissingColumn         = errors.New("required column missing")
	ErrFeatureSchemaMismatch = errors.New("feature schema mismatch")
	ErrColumnLengthMismatch  = errors.New("column length mismatch")
	ErrNonNumericColumn      = errors.New("non-numeric column")

	// Statistical edge cases. These degrade gracefully per entity
	// instead of halting the run.
	ErrUndefinedThreshold = errors.New("threshold undefined: insufficient residual samples")
	ErrInsufficientData   = errors.New("insufficient data for analysis")

	// Oracle errors
	ErrOracleNotFitted = errors.New("oracle has not been fitted")
	ErrEmptyFrame      = errors.New("empty frame")
)

// Error constructors with context
func NewMissingColumnError(column string) error {
	return fmt.Errorf("%w: %s", ErrMissingColumn, column)
}

func NewSchemaMismatchError(detail string) error {
	return fmt.Errorf("%w: %s", ErrFeatureSchemaMismatch, detail)
}

// Error checking helpers
func IsSchemaError(err error) bool {
	return errors.Is(err, ErrMissingColumn) ||
		errors.Is(err, ErrFeatureSchemaMismatch) ||
		errors.Is(err, ErrColumnLengthMismatch) ||
		errors.Is(err, ErrNonNumericColumn)
}

func IsStatisticalEdgeCase(err error) bool {
	return errors.Is(err, ErrUndefinedThreshold) ||
		errors.Is(err, ErrInsufficientData)
}
