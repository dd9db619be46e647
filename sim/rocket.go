package sim

import (
	"fmt"
	"math"

	approx "github.com/milosgajdos/go-approx"
	"github.com/milosgajdos/go-approx/dp"
)

// Rocket is the vertical ascent of a rocket with bang-bang thrust.
//
// Its state is (r, v, m): altitude, velocity and mass, all normalized.
// The input is the thrust level in [0, 1].
type Rocket struct {
	// Drag is the drag coefficient
	Drag float64 `mapstructure:"A" yaml:"A"`
	// Scale is the atmosphere density decay rate
	Scale float64 `mapstructure:"k" yaml:"k"`
	// R0 is the initial altitude
	R0 float64 `mapstructure:"r0" yaml:"r0"`
	// TMax is the maximum thrust
	TMax float64 `mapstructure:"tmax" yaml:"tmax"`
	// Burn is the fuel consumption rate
	Burn float64 `mapstructure:"b" yaml:"b"`
	// DragLimit is the maximum admissible drag
	DragLimit float64 `mapstructure:"c" yaml:"c"`
}

// NewRocket returns Rocket with the standard ascent parameters.
func NewRocket() *Rocket {
	return &Rocket{
		Drag:      310,
		Scale:     500,
		R0:        1,
		TMax:      3.5,
		Burn:      7,
		DragLimit: 0.6,
	}
}

// DragForce returns the aerodynamic drag in state x.
func (r *Rocket) DragForce(x []float64) float64 {
	return r.Drag * x[1] * x[1] * math.Exp(-r.Scale*(x[0]-r.R0))
}

// Dynamics returns the time derivative of state x under thrust u.
func (r *Rocket) Dynamics(x, u []float64) ([]float64, error) {
	if len(x) != 3 {
		return nil, fmt.Errorf("invalid rocket state length: %d", len(x))
	}
	if len(u) == 0 {
		return nil, fmt.Errorf("empty rocket input")
	}

	alt, vel, mass := x[0], x[1], x[2]

	return []float64{
		vel,
		-1/(alt*alt) + (r.TMax*u[0]-r.DragForce(x))/mass,
		-r.Burn * u[0],
	}, nil
}

// Transition returns the RK4 state transition of the rocket.
func (r *Rocket) Transition() approx.Transition {
	return Integrate(r.Dynamics)
}

// StateCost returns the drag limit state cost: it is dp.InfinitePenalty
// whenever the drag exceeds DragLimit and zero otherwise.
func (r *Rocket) StateCost() approx.StateCost {
	return func(x, _ []float64, _ int, _ float64) ([]float64, error) {
		if len(x) != 3 {
			return nil, fmt.Errorf("invalid rocket state length: %d", len(x))
		}
		if r.DragForce(x) > r.DragLimit {
			return []float64{dp.InfinitePenalty}, nil
		}
		return []float64{0}, nil
	}
}
