// Package vec implements elementwise arithmetic on real-valued vectors.
//
// Binary operations accept operands of equal length or a single-element
// operand which is broadcast over the other one.
package vec

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ErrSize is returned when operand lengths can not be broadcast together.
var ErrSize = errors.New("vec: incompatible sizes")

// Add returns a + b.
func Add(a, b []float64) ([]float64, error) {
	switch {
	case len(a) == len(b):
		out := make([]float64, len(a))
		floats.AddTo(out, a, b)
		return out, nil
	case len(a) == 1:
		out := make([]float64, len(b))
		copy(out, b)
		floats.AddConst(a[0], out)
		return out, nil
	case len(b) == 1:
		out := make([]float64, len(a))
		copy(out, a)
		floats.AddConst(b[0], out)
		return out, nil
	}

	return nil, fmt.Errorf("%w: %d + %d", ErrSize, len(a), len(b))
}

// Sub returns a - b.
func Sub(a, b []float64) ([]float64, error) {
	switch {
	case len(a) == len(b):
		out := make([]float64, len(a))
		floats.SubTo(out, a, b)
		return out, nil
	case len(a) == 1:
		out := make([]float64, len(b))
		floats.ScaleTo(out, -1, b)
		floats.AddConst(a[0], out)
		return out, nil
	case len(b) == 1:
		out := make([]float64, len(a))
		copy(out, a)
		floats.AddConst(-b[0], out)
		return out, nil
	}

	return nil, fmt.Errorf("%w: %d - %d", ErrSize, len(a), len(b))
}

// Scale returns v * s.
func Scale(v []float64, s float64) []float64 {
	out := make([]float64, len(v))
	floats.ScaleTo(out, s, v)

	return out
}

// Sum adds all vs together left to right.
// It returns error if any two partial sums can not be broadcast.
func Sum(vs ...[]float64) ([]float64, error) {
	if len(vs) == 0 {
		return nil, nil
	}

	out := make([]float64, len(vs[0]))
	copy(out, vs[0])

	var err error
	for _, v := range vs[1:] {
		if out, err = Add(out, v); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// Clone returns a copy of v.
func Clone(v []float64) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	copy(out, v)

	return out
}
