// Package csvio reads relaxed references and writes rounding results as CSV.
//
// A reference stores one control channel per row and one node per column.
// Results store one node per row.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/milosgajdos/go-approx/matrix"
	"gonum.org/v1/gonum/mat"
)

// ErrEmpty is returned when a reference holds no values.
var ErrEmpty = errors.New("csvio: empty reference")

// ReadReference reads a reference matrix from r.
// Blank lines are skipped. It returns error if the rows are ragged or any
// value fails to parse.
func ReadReference(r io.Reader) (*mat.Dense, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read reference: %w", err)
	}

	rows := make([][]float64, 0, len(records))
	for i, rec := range records {
		row := make([]float64, len(rec))
		for j, s := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid value at row %d, column %d: %w", i+1, j+1, err)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, ErrEmpty
	}

	return matrix.FromRows(rows)
}

// ReadReferenceFile reads a reference matrix from the file at path.
func ReadReferenceFile(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadReference(f)
}

// WriteRows writes one CSV row per vector to w.
func WriteRows(w io.Writer, rows [][]float64) error {
	cw := csv.NewWriter(w)

	for _, row := range rows {
		rec := make([]string, len(row))
		for k, v := range row {
			rec[k] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteReference writes m with one channel per row to w.
func WriteReference(w io.Writer, m mat.Matrix) error {
	r, _ := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = mat.Row(nil, i, m)
	}

	return WriteRows(w, rows)
}

// WriteFile creates the file at path and writes rows to it.
func WriteFile(path string, rows [][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := WriteRows(f, rows); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
