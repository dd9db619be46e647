// Package matrix provides helpers for reference matrices stored as
// channels x nodes dense matrices.
package matrix

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// RowSums returns a slice containing m row sums.
// It panics if m is nil.
func RowSums(m *mat.Dense) []float64 {
	rows, _ := m.Dims()
	sum := make([]float64, rows)

	for i := 0; i < rows; i++ {
		sum[i] = floats.Sum(m.RawRowView(i))
	}

	return sum
}

// ColSums returns a slice containing m column sums.
// It panics if m is nil.
func ColSums(m *mat.Dense) []float64 {
	_, cols := m.Dims()
	sum := make([]float64, cols)

	for i := 0; i < cols; i++ {
		sum[i] = mat.Sum(m.ColView(i))
	}

	return sum
}

// Column returns a copy of the j-th column of m.
// It panics if m is nil or j is out of range.
func Column(m mat.Matrix, j int) []float64 {
	return mat.Col(nil, j, m)
}

// FromRows builds a dense matrix from rows of equal length.
// It returns error if rows is empty or ragged.
func FromRows(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("invalid matrix rows: empty")
	}

	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("invalid matrix row %d: %d values, expected %d", i, len(row), cols)
		}
		data = append(data, row...)
	}

	return mat.NewDense(len(rows), cols, data), nil
}

// FromColumns builds a dense matrix whose j-th column is cols[j].
// It returns error if cols is empty or ragged.
func FromColumns(cols [][]float64) (*mat.Dense, error) {
	m, err := FromRows(cols)
	if err != nil {
		return nil, err
	}

	t := &mat.Dense{}
	t.CloneFrom(m.T())

	return t, nil
}
