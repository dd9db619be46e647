package sim

import (
	"fmt"

	approx "github.com/milosgajdos/go-approx"
	"github.com/milosgajdos/go-approx/vec"
	"gonum.org/v1/gonum/floats"
)

// Dynamics returns the time derivative of state x under input u.
type Dynamics func(x, u []float64) ([]float64, error)

// RK4 advances state x by dt under constant input u using the classic
// fourth order Runge-Kutta scheme.
func RK4(f Dynamics, x, u []float64, dt float64) ([]float64, error) {
	k1, err := f(x, u)
	if err != nil {
		return nil, err
	}
	k2, err := stage(f, x, k1, u, dt/2)
	if err != nil {
		return nil, err
	}
	k3, err := stage(f, x, k2, u, dt/2)
	if err != nil {
		return nil, err
	}
	k4, err := stage(f, x, k3, u, dt)
	if err != nil {
		return nil, err
	}

	out := vec.Clone(x)
	floats.AddScaled(out, dt/6, k1)
	floats.AddScaled(out, dt/3, k2)
	floats.AddScaled(out, dt/3, k3)
	floats.AddScaled(out, dt/6, k4)

	return out, nil
}

// stage evaluates f at x + h*k.
func stage(f Dynamics, x, k, u []float64, h float64) ([]float64, error) {
	if len(k) != len(x) {
		return nil, fmt.Errorf("invalid derivative length: %d, state length %d", len(k), len(x))
	}

	y := vec.Clone(x)
	floats.AddScaled(y, h, k)

	return f(y, u)
}

// Integrate returns a state transition which integrates f over one time step
// with the chosen mode vector as input.
func Integrate(f Dynamics) approx.Transition {
	return func(x, v []float64, _ int, dt float64) ([]float64, error) {
		return RK4(f, x, v, dt)
	}
}
