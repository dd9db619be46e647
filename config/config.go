// Package config loads rounding problems from YAML files.
//
// A problem file names its cost functions and state model by preset; the
// presets are resolved against a registry and turned into a dp.Config.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/milosgajdos/go-approx/dp"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// ErrUnknownPreset is returned when a problem names an unregistered preset.
var ErrUnknownPreset = errors.New("config: unknown preset")

// Preset names a registered function and its parameters.
type Preset struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:"params"`
}

// State configures continuous state propagation.
type State struct {
	Model  string         `yaml:"model"`
	X0     []float64      `yaml:"x0"`
	Params map[string]any `yaml:"params"`
}

// Dwell is a minimum dwell time constraint.
type Dwell struct {
	Sequence  []float64 `yaml:"sequence"`
	Durations []float64 `yaml:"durations"`
}

// Problem is a rounding problem read from a file.
type Problem struct {
	// Nodes defaults to the number of reference columns when zero
	Nodes int     `yaml:"nodes"`
	Dt    float64 `yaml:"dt"`
	// Modes is the catalog used at every node unless Catalogs is set
	Modes      [][]float64   `yaml:"modes"`
	Catalogs   [][][]float64 `yaml:"catalogs"`
	Stage      *Preset       `yaml:"stage"`
	Objective  *Preset       `yaml:"objective"`
	Combiner   *Preset       `yaml:"combiner"`
	State      *State        `yaml:"state"`
	Dwell      []Dwell       `yaml:"dwell"`
	InitTimers [][]float64   `yaml:"init_timers"`
}

// Parse decodes a problem from r. Unknown fields are rejected.
func Parse(r io.Reader) (*Problem, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	p := new(Problem)
	if err := dec.Decode(p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty problem")
		}
		return nil, fmt.Errorf("failed to parse problem: %w", err)
	}

	return p, nil
}

// Load reads the problem file at path.
func Load(path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read problem: %w", err)
	}

	return Parse(bytes.NewReader(data))
}

// Config builds the solver configuration of p for the reference ref.
// It returns error if p names an unknown preset or a preset fails to build.
// The returned configuration is validated by dp.New.
func (p *Problem) Config(ref *mat.Dense) (*dp.Config, error) {
	nodes := p.Nodes
	if nodes == 0 && ref != nil {
		_, nodes = ref.Dims()
	}

	c := &dp.Config{
		Nodes:      nodes,
		Dt:         p.Dt,
		Catalogs:   p.Catalogs,
		InitTimers: p.InitTimers,
	}

	if len(c.Catalogs) == 0 {
		if len(p.Modes) == 0 {
			return nil, fmt.Errorf("problem defines neither modes nor catalogs")
		}
		c.Catalogs = make([][][]float64, nodes)
		for i := range c.Catalogs {
			c.Catalogs[i] = p.Modes
		}
	}

	if p.Stage != nil {
		f, ok := stages[p.Stage.Name]
		if !ok {
			return nil, fmt.Errorf("%w: stage %q", ErrUnknownPreset, p.Stage.Name)
		}
		c.Stage = f
	}

	if p.Objective != nil {
		f, ok := objectives[p.Objective.Name]
		if !ok {
			return nil, fmt.Errorf("%w: objective %q", ErrUnknownPreset, p.Objective.Name)
		}
		c.Objective = f
	}

	if p.Combiner != nil {
		f, ok := combiners[p.Combiner.Name]
		if !ok {
			return nil, fmt.Errorf("%w: combiner %q", ErrUnknownPreset, p.Combiner.Name)
		}
		c.Customize = true
		c.Combiner = f
	}

	if p.State != nil {
		build, ok := models[p.State.Model]
		if !ok {
			return nil, fmt.Errorf("%w: state model %q", ErrUnknownPreset, p.State.Model)
		}
		m, err := build(p.State.Params, p.Dt)
		if err != nil {
			return nil, fmt.Errorf("state model %q: %w", p.State.Model, err)
		}
		c.IncludeState = true
		c.X0 = p.State.X0
		c.Transition = m.Transition
		c.StateCost = m.StateCost
	}

	for _, d := range p.Dwell {
		c.Constraints = append(c.Constraints, dp.Constraint{
			Sequence:  d.Sequence,
			Durations: d.Durations,
		})
	}

	return c, nil
}
