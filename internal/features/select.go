package features

import (
	"math"
	"slices"

	"rossmann/pkg/errors"
)

// Matrix is the model input: one row per surviving record, columns in
// FeatureColumns order.
type Matrix struct {
	Columns []string
	Rows    [][]float64
	// Origins[i] is the index of row i in the caller's input.
	Origins []int
}

// Len returns the number of rows.
func (m *Matrix) Len() int { return len(m.Rows) }

// Column returns the index of name in the matrix, or -1.
func (m *Matrix) Column(name string) int { return slices.Index(m.Columns, name) }

// Select extracts FeatureColumns, in order, from a prepared table. Every value
// must be finite; anything else means a transformer did not cover the column.
func Select(t *Table) (*Matrix, error) {
	columns := make([][]float64, len(FeatureColumns))
	for j, name := range FeatureColumns {
		values := t.Float(name)
		if values == nil {
			return nil, stageErr(StageSelect, -1, name, errors.Wrap(errors.ErrTransformerMismatch, "feature column not produced"))
		}
		columns[j] = values
	}

	m := &Matrix{
		Columns: slices.Clone(FeatureColumns),
		Rows:    make([][]float64, t.Len()),
		Origins: t.Origins(),
	}
	for i := range m.Rows {
		row := make([]float64, len(columns))
		for j, values := range columns {
			v := values[i]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, stageErr(StageSelect, t.origins[i], FeatureColumns[j],
					errors.Wrapf(errors.ErrTransformerMismatch, "non-finite feature value %v", v))
			}
			row[j] = v
		}
		m.Rows[i] = row
	}

	return m, nil
}
