package sim

import (
	"fmt"

	approx "github.com/milosgajdos/go-approx"
	"gonum.org/v1/gonum/mat"
)

// Discrete is a basic model of a linear, discrete-time, dynamical system
type Discrete struct {
	System
}

// NewDiscrete creates a linear discrete-time model based on the control theory equation
//
//	x[n+1] = A*x[n] + B*u[n]
//
// It returns error if A is nil or the dimensions of A and B do not match.
func NewDiscrete(A, B *mat.Dense) (*Discrete, error) {
	if A == nil {
		return nil, fmt.Errorf("system matrix must be defined for a model")
	}

	sys, err := newSystem(A, B)
	if err != nil {
		return nil, err
	}

	return &Discrete{System: sys}, nil
}

// Propagate returns the next internal state of the system given
// the current state x and input vector u.
func (d *Discrete) Propagate(x, u []float64) ([]float64, error) {
	return d.affine(x, u)
}

// Transition returns the state transition driven by the mode sequence.
// The time step is implied by the discretization of the system.
func (d *Discrete) Transition() approx.Transition {
	return func(x, v []float64, _ int, _ float64) ([]float64, error) {
		return d.Propagate(x, v)
	}
}
