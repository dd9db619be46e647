// Package cost provides stage costs, objectives and cost combiners
// commonly used when rounding relaxed control trajectories.
package cost

import (
	"fmt"
	"math"

	approx "github.com/milosgajdos/go-approx"
	"github.com/milosgajdos/go-approx/matrix"
	"github.com/milosgajdos/go-approx/vec"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Rounding is the distance between the first channel of mode v and the
// first channel of reference r. It ignores the time step.
func Rounding(v, r []float64, _ int, _ float64) ([]float64, error) {
	if len(v) == 0 || len(r) == 0 {
		return nil, fmt.Errorf("invalid rounding operands: mode %d, reference %d", len(v), len(r))
	}

	return []float64{math.Abs(v[0] - r[0])}, nil
}

// Deviation returns (v - r) * dt: the signed area between mode v and
// reference r accumulated over one time step.
func Deviation(v, r []float64, _ int, dt float64) ([]float64, error) {
	diff, err := vec.Sub(v, r)
	if err != nil {
		return nil, err
	}

	return vec.Scale(diff, dt), nil
}

// First returns the first component of c.
// It returns +Inf if c is empty.
func First(c []float64) float64 {
	if len(c) == 0 {
		return math.Inf(1)
	}
	return c[0]
}

// AbsFirst returns the magnitude of the first component of c.
// It returns +Inf if c is empty.
func AbsFirst(c []float64) float64 {
	return math.Abs(First(c))
}

// Last returns the last component of c.
// It returns +Inf if c is empty.
func Last(c []float64) float64 {
	if len(c) == 0 {
		return math.Inf(1)
	}
	return c[len(c)-1]
}

// MaxAbs returns the infinity norm of c.
// It returns 0 if c is empty.
func MaxAbs(c []float64) float64 {
	if len(c) == 0 {
		return 0
	}
	return floats.Norm(c, math.Inf(1))
}

// RunningMax accumulates deviations while tracking the worst infinity norm
// seen along the path. The returned cost is the accumulated deviation with
// the running maximum appended as its last component, so it pairs with the
// Last objective to give a min-max rounding.
//
// Initial node costs carry no running maximum yet: they are recognised by
// having the same length as nextCost.
func RunningMax(next, nextCost, prev []float64, t approx.Tables, i int, _ float64) ([]float64, error) {
	prevCost, ok := t.Cost(prev, i)
	if !ok {
		return nil, fmt.Errorf("no cost for mode %v at node %d", prev, i)
	}

	acc, vmax := prevCost, MaxAbs(prevCost)
	if len(prevCost) != len(nextCost) {
		if len(prevCost) != len(nextCost)+1 {
			return nil, fmt.Errorf("invalid running max cost length: %d, expected %d", len(prevCost), len(nextCost)+1)
		}
		acc, vmax = prevCost[:len(nextCost)], prevCost[len(nextCost)]
	}

	sum, err := vec.Add(acc, nextCost)
	if err != nil {
		return nil, err
	}

	return append(sum, math.Max(MaxAbs(sum), vmax)), nil
}

// IntegralDeviation returns the per channel integral of path minus ref over
// the whole horizon. ref stores one channel per row and one node per column.
// It returns error if path and ref dimensions do not match.
func IntegralDeviation(ref *mat.Dense, path [][]float64, dt float64) ([]float64, error) {
	p, err := matrix.FromColumns(path)
	if err != nil {
		return nil, err
	}

	pr, pc := p.Dims()
	rr, rc := ref.Dims()
	if pr != rr || pc != rc {
		return nil, fmt.Errorf("invalid path dimensions: %d x %d, reference %d x %d", pr, pc, rr, rc)
	}

	dev, err := vec.Sub(matrix.RowSums(p), matrix.RowSums(ref))
	if err != nil {
		return nil, err
	}

	return vec.Scale(dev, dt), nil
}
