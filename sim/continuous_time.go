package sim

import (
	"fmt"

	approx "github.com/milosgajdos/go-approx"
	"github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/mat"
)

// Continuous is a basic model of a linear, continuous-time, dynamical system
type Continuous struct {
	System
}

// NewContinuous creates a linear continuous-time model based on the control theory equation
//
//	dx/dt = A*x + B*u
//
// It returns error if A is nil or the dimensions of A and B do not match.
func NewContinuous(A, B *mat.Dense) (*Continuous, error) {
	if A == nil {
		return nil, fmt.Errorf("system matrix must be defined for a model")
	}

	sys, err := newSystem(A, B)
	if err != nil {
		return nil, err
	}

	return &Continuous{System: sys}, nil
}

// ToDiscrete creates a discrete-time model from a continuous time model
// using Ts as the sampling time.
func (ct *Continuous) ToDiscrete(Ts float64) (*Discrete, error) {
	if Ts <= 0 {
		return nil, fmt.Errorf("invalid sampling time: %v", Ts)
	}

	nx, _ := ct.SystemDims()
	dsys := System{A: mat.DenseCopyOf(ct.A)}
	// continuous -> discrete time conversion
	// See Discrete-Time Control Systems by Katsuhiko Ogata
	// Eq. (5-73) p. 315  Second Edition (Spanish)
	dsys.A.Scale(Ts, dsys.A)
	dsys.A.Exp(dsys.A)

	if ct.B == nil {
		return &Discrete{dsys}, nil
	}

	Bd := new(mat.Dense)
	Aaux := mat.NewDense(nx, nx, nil)
	// Given A is not singular, the following is valid
	// Bd(Ts) = (exp(A*Ts) - I)*inv(A)*B  Eq. (5-74 bis) Ogata
	eye, err := matrix.NewDenseValIdentity(nx, 1.0)
	if err != nil {
		return nil, err
	}

	Aaux.Sub(dsys.A, eye)
	Ainv := mat.NewDense(nx, nx, nil)
	if err := Ainv.Inverse(ct.A); err == nil {
		Aaux.Mul(Aaux, Ainv)
		Bd.Mul(Aaux, ct.B)
		dsys.B = Bd
		return &Discrete{dsys}, nil
	}

	// A is singular: integrate exp(A*t) from 0 to Ts with the trapezoid rule
	// Bd = integrate( exp(A*t)dt, 0, Ts ) * B   Eq. (5-74) Ogata
	const n = 100
	h := Ts / float64(n-1)
	Asum := mat.NewDense(nx, nx, nil)
	for i := 0; i < n; i++ {
		Aaux.Scale(h*float64(i), ct.A)
		Aaux.Exp(Aaux)
		w := h
		if i == 0 || i == n-1 {
			w = h / 2
		}
		Aaux.Scale(w, Aaux)
		Asum.Add(Asum, Aaux)
	}
	Bd.Mul(Asum, ct.B)
	dsys.B = Bd

	return &Discrete{dsys}, nil
}

// Derivative returns dx/dt for state x and input u.
func (ct *Continuous) Derivative(x, u []float64) ([]float64, error) {
	return ct.affine(x, u)
}

// Propagate returns the next internal state of the system given the current
// state x and input vector u. It advances the solution by `dt` using RK4.
func (ct *Continuous) Propagate(x, u []float64, dt float64) ([]float64, error) {
	return RK4(ct.Derivative, x, u, dt)
}

// Transition returns the state transition driven by the mode sequence.
func (ct *Continuous) Transition() approx.Transition {
	return Integrate(ct.Derivative)
}
