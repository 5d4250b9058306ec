package energy

import (
	"fmt"

	"ecoscale/domain/core"
)

// ColumnType defines column types for analysis
type ColumnType string

const (
	TypeNumeric     ColumnType = "numeric"
	TypeCategorical ColumnType = "categorical"
)

// Column is a single named column of row-aligned values. Exactly one of
// Numeric/Labels is populated, selected by Type.
type Column struct {
	Name    string
	Type    ColumnType
	Numeric []float64
	Labels  []string
}

// Frame is the canonical tabular object exchanged between the pipeline
// stages: a set of named, row-aligned columns plus the two axis columns
// (building and timestamp) every reading carries. Column order is
// significant - the oracle records it at fit time and requires it
// verbatim at predict time.
type Frame struct {
	Buildings  []core.BuildingID
	Timestamps []core.Timestamp
	Columns    []Column

	index map[string]int
}

// NewFrame creates an empty frame for n rows
func NewFrame(buildings []core.BuildingID, timestamps []core.Timestamp) (*Frame, error) {
	if len(buildings) != len(timestamps) {
		return nil, fmt.Errorf("%w: %d buildings vs %d timestamps",
			core.ErrColumnLengthMismatch, len(buildings), len(timestamps))
	}
	return &Frame{
		Buildings:  buildings,
		Timestamps: timestamps,
		index:      make(map[string]int),
	}, nil
}

// Rows returns the number of rows in the frame
func (f *Frame) Rows() int {
	return len(f.Buildings)
}

// ColumnNames returns the value column names in their frame order
func (f *Frame) ColumnNames() []string {
	names := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		names[i] = c.Name
	}
	return names
}

// Has reports whether a value column with the given name exists
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// AddNumeric appends a numeric column
func (f *Frame) AddNumeric(name string, values []float64) error {
	if len(values) != f.Rows() {
		return fmt.Errorf("%w: column %s has %d values for %d rows",
			core.ErrColumnLengthMismatch, name, len(values), f.Rows())
	}
	if f.Has(name) {
		return fmt.Errorf("column %s already present", name)
	}
	f.index[name] = len(f.Columns)
	f.Columns = append(f.Columns, Column{Name: name, Type: TypeNumeric, Numeric: values})
	return nil
}

// AddCategorical appends a categorical (string-labelled) column
func (f *Frame) AddCategorical(name string, labels []string) error {
	if len(labels) != f.Rows() {
		return fmt.Errorf("%w: column %s has %d labels for %d rows",
			core.ErrColumnLengthMismatch, name, len(labels), f.Rows())
	}
	if f.Has(name) {
		return fmt.Errorf("column %s already present", name)
	}
	f.index[name] = len(f.Columns)
	f.Columns = append(f.Columns, Column{Name: name, Type: TypeCategorical, Labels: labels})
	return nil
}

// Column returns the named column or a missing-column error
func (f *Frame) Column(name string) (*Column, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, core.NewMissingColumnError(name)
	}
	return &f.Columns[i], nil
}

// Numeric returns the values of a numeric column
func (f *Frame) Numeric(name string) ([]float64, error) {
	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	if col.Type != TypeNumeric {
		return nil, fmt.Errorf("%w: %s is %s", core.ErrNonNumericColumn, name, col.Type)
	}
	return col.Numeric, nil
}

// Categorical returns the labels of a categorical column
func (f *Frame) Categorical(name string) ([]string, error) {
	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	if col.Type != TypeCategorical {
		return nil, fmt.Errorf("column %s is %s, not categorical", name, col.Type)
	}
	return col.Labels, nil
}

// RequireColumns fails fast if any of the named columns is absent.
// Used at stage entry so no partial output is ever produced.
func (f *Frame) RequireColumns(names ...string) error {
	for _, name := range names {
		if !f.Has(name) {
			return core.NewMissingColumnError(name)
		}
	}
	return nil
}

// SelectColumns builds a new frame sharing this frame's axis and the
// named value columns, in the order given. Missing names fail.
func (f *Frame) SelectColumns(names ...string) (*Frame, error) {
	out, _ := NewFrame(f.Buildings, f.Timestamps)
	for _, name := range names {
		col, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		out.index[name] = len(out.Columns)
		out.Columns = append(out.Columns, *col)
	}
	return out, nil
}

// SelectRows builds a new frame containing only the given row indices,
// in the given order. Column order is preserved.
func (f *Frame) SelectRows(rows []int) *Frame {
	buildings := make([]core.BuildingID, len(rows))
	timestamps := make([]core.Timestamp, len(rows))
	for i, r := range rows {
		buildings[i] = f.Buildings[r]
		timestamps[i] = f.Timestamps[r]
	}
	out, _ := NewFrame(buildings, timestamps)
	for _, col := range f.Columns {
		next := Column{Name: col.Name, Type: col.Type}
		switch col.Type {
		case TypeNumeric:
			next.Numeric = make([]float64, len(rows))
			for i, r := range rows {
				next.Numeric[i] = col.Numeric[r]
			}
		case TypeCategorical:
			next.Labels = make([]string, len(rows))
			for i, r := range rows {
				next.Labels[i] = col.Labels[r]
			}
		}
		out.index[col.Name] = len(out.Columns)
		out.Columns = append(out.Columns, next)
	}
	return out
}

// SliceRows builds a new frame over the half-open row range [lo, hi)
func (f *Frame) SliceRows(lo, hi int) *Frame {
	rows := make([]int, 0, hi-lo)
	for r := lo; r < hi; r++ {
		rows = append(rows, r)
	}
	return f.SelectRows(rows)
}

// Validate ensures the frame is internally consistent
func (f *Frame) Validate() error {
	n := f.Rows()
	if len(f.Timestamps) != n {
		return fmt.Errorf("%w: axis columns disagree", core.ErrColumnLengthMismatch)
	}
	for _, col := range f.Columns {
		var got int
		switch col.Type {
		case TypeNumeric:
			got = len(col.Numeric)
		case TypeCategorical:
			got = len(col.Labels)
		}
		if got != n {
			return fmt.Errorf("%w: column %s has %d values for %d rows",
				core.ErrColumnLengthMismatch, col.Name, got, n)
		}
	}
	return nil
}
