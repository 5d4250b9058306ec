package ols

import (
	"fmt"
	"sort"

	"ecoscale/domain/energy"

	"gonum.org/v1/gonum/mat"
)

// oneHotEncoder is the declared categorical-encoding convention: each
// categorical column expands into one indicator column per level seen at
// fit time, levels in sorted order. The same encoder instance runs at
// fit and predict, so the convention cannot drift between the two.
type oneHotEncoder struct {
	designNames []string
	// levels maps a categorical column to its fit-time level order.
	levels map[string][]string
}

// fitEncoder records the design layout for a frame: numeric columns pass
// through, categorical columns expand to their one-hot block.
func fitEncoder(frame *energy.Frame) (*oneHotEncoder, error) {
	enc := &oneHotEncoder{levels: make(map[string][]string)}
	for _, col := range frame.Columns {
		switch col.Type {
		case energy.TypeNumeric:
			enc.designNames = append(enc.designNames, col.Name)
		case energy.TypeCategorical:
			seen := make(map[string]bool)
			for _, label := range col.Labels {
				seen[label] = true
			}
			levels := make([]string, 0, len(seen))
			for label := range seen {
				levels = append(levels, label)
			}
			sort.Strings(levels)
			enc.levels[col.Name] = levels
			for _, level := range levels {
				enc.designNames = append(enc.designNames, fmt.Sprintf("%s=%s", col.Name, level))
			}
		default:
			return nil, fmt.Errorf("column %s has unsupported type %s", col.Name, col.Type)
		}
	}
	return enc, nil
}

// transform builds the dense design matrix for a frame. Levels unseen at
// fit time encode as the all-zeros row for that column's block.
func (enc *oneHotEncoder) transform(frame *energy.Frame) (*mat.Dense, error) {
	rows := frame.Rows()
	cols := len(enc.designNames)
	design := mat.NewDense(rows, cols, nil)

	j := 0
	for _, col := range frame.Columns {
		switch col.Type {
		case energy.TypeNumeric:
			for i, v := range col.Numeric {
				design.Set(i, j, v)
			}
			j++
		case energy.TypeCategorical:
			levels := enc.levels[col.Name]
			offset := make(map[string]int, len(levels))
			for k, level := range levels {
				offset[level] = k
			}
			for i, label := range col.Labels {
				if k, ok := offset[label]; ok {
					design.Set(i, j+k, 1)
				}
			}
			j += len(levels)
		}
	}
	return design, nil
}
