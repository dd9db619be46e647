package config

import (
	"fmt"

	approx "github.com/milosgajdos/go-approx"
	"github.com/milosgajdos/go-approx/cost"
	"github.com/milosgajdos/go-approx/matrix"
	"github.com/milosgajdos/go-approx/sim"
	"github.com/mitchellh/mapstructure"
	"gonum.org/v1/gonum/mat"
)

// Model is a configured state model.
type Model struct {
	Transition approx.Transition
	// StateCost may be nil
	StateCost approx.StateCost
}

// ModelBuilder builds a state model from its parameters and the time step.
type ModelBuilder func(params map[string]any, dt float64) (Model, error)

var (
	stages = map[string]approx.StageCost{
		"rounding":  cost.Rounding,
		"deviation": cost.Deviation,
	}

	objectives = map[string]approx.Objective{
		"first":     cost.First,
		"abs-first": cost.AbsFirst,
		"last":      cost.Last,
		"max-abs":   cost.MaxAbs,
	}

	combiners = map[string]approx.Combiner{
		"running-max": cost.RunningMax,
	}

	models = map[string]ModelBuilder{
		"rocket": rocket,
		"linear": linear,
	}
)

// RegisterModel registers a state model builder under name.
// It overrides any builder registered under the same name.
func RegisterModel(name string, b ModelBuilder) {
	models[name] = b
}

// decode decodes params into out rejecting unknown keys.
func decode(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return err
	}

	return dec.Decode(params)
}

func rocket(params map[string]any, _ float64) (Model, error) {
	r := sim.NewRocket()
	if err := decode(params, r); err != nil {
		return Model{}, fmt.Errorf("invalid rocket params: %w", err)
	}

	return Model{
		Transition: r.Transition(),
		StateCost:  r.StateCost(),
	}, nil
}

type linearParams struct {
	A          [][]float64 `mapstructure:"a"`
	B          [][]float64 `mapstructure:"b"`
	Discretize bool        `mapstructure:"discretize"`
}

func linear(params map[string]any, dt float64) (Model, error) {
	var lp linearParams
	if err := decode(params, &lp); err != nil {
		return Model{}, fmt.Errorf("invalid linear params: %w", err)
	}

	A, err := matrix.FromRows(lp.A)
	if err != nil {
		return Model{}, fmt.Errorf("invalid system matrix: %w", err)
	}

	var B *mat.Dense
	if len(lp.B) > 0 {
		if B, err = matrix.FromRows(lp.B); err != nil {
			return Model{}, fmt.Errorf("invalid input matrix: %w", err)
		}
	}

	ct, err := sim.NewContinuous(A, B)
	if err != nil {
		return Model{}, err
	}

	if !lp.Discretize {
		return Model{Transition: ct.Transition()}, nil
	}

	d, err := ct.ToDiscrete(dt)
	if err != nil {
		return Model{}, err
	}

	return Model{Transition: d.Transition()}, nil
}
