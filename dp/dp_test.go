package dp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync/atomic"
	"testing"

	approx "github.com/milosgajdos/go-approx"
	"github.com/milosgajdos/go-approx/cost"
	"github.com/milosgajdos/go-approx/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var (
	// mweRef is a single channel reference over three nodes
	mweRef *mat.Dense
	// oneHotRef is a three channel reference over four nodes
	oneHotRef *mat.Dense
	// trjRef is a three level reference over twelve nodes
	trjRef *mat.Dense
	// oneHot is the one-hot basis of size 3
	oneHot [][]float64
)

func setup() {
	mweRef = mat.NewDense(1, 3, []float64{0.2, 0.8, 0.4})

	oneHotRef = mat.NewDense(3, 4, []float64{
		4.0 / 8.0, 0.0, 7.0 / 8.0, 7.0 / 8.0,
		3.0 / 8.0, 3.0 / 8.0, 1.0 / 8.0, 1.0 / 8.0,
		1.0 / 8.0, 5.0 / 8.0, 0.0, 0.0,
	})

	trjRef = mat.NewDense(1, 12, []float64{
		0.9, 0.7, 0.2, -0.1, -0.6, -0.9, -0.4, 0.1, 0.3, 0.8, 0.6, -0.2,
	})

	oneHot = [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

func TestMain(m *testing.M) {
	// set up tests
	setup()
	// run the tests
	retCode := m.Run()
	// call with result of m.Run()
	os.Exit(retCode)
}

func uniform(n int, modes ...[]float64) [][][]float64 {
	cats := make([][][]float64, n)
	for i := range cats {
		cats[i] = modes
	}
	return cats
}

func mweConfig() *Config {
	return &Config{
		Nodes:    3,
		Catalogs: uniform(3, []float64{0}, []float64{1}),
	}
}

func oneHotConfig() *Config {
	return &Config{
		Nodes:     4,
		Dt:        1.0,
		Catalogs:  uniform(4, oneHot...),
		Stage:     cost.Deviation,
		Objective: cost.Last,
		Customize: true,
		Combiner:  cost.RunningMax,
		Constraints: []Constraint{
			{Sequence: []float64{1}, Durations: []float64{1.5, 0.5, 0.5}},
		},
		InitTimers: [][]float64{{1.5, 0.5, 0.5}},
	}
}

func trjConfig() *Config {
	return &Config{
		Nodes:     12,
		Dt:        0.1,
		Catalogs:  uniform(12, []float64{1}, []float64{0}, []float64{-1}),
		Stage:     cost.Deviation,
		Objective: cost.AbsFirst,
		Constraints: []Constraint{
			{Sequence: []float64{1}, Durations: []float64{0.3}},
			{Sequence: []float64{0}, Durations: []float64{0.3}},
			{Sequence: []float64{-1}, Durations: []float64{0.3}},
		},
	}
}

// squared is a scalar stage cost used by the brute force oracle.
func squared(v, r []float64, _ int, _ float64) ([]float64, error) {
	var sum float64
	for k := range v {
		d := v[k] - r[k]
		sum += d * d
	}
	return []float64{sum}, nil
}

func TestNew(t *testing.T) {
	assert := assert.New(t)

	s, err := New(mweRef, mweConfig())
	assert.NotNil(s)
	assert.NoError(err)

	// defaults are filled in
	assert.NotNil(s.c.Stage)
	assert.NotNil(s.c.Objective)
	assert.NotNil(s.logger)
	assert.Equal(1, s.dim)
	assert.Len(s.cols, 3)
}

func TestNewErrors(t *testing.T) {
	assert := assert.New(t)

	identity := func(x, v []float64, _ int, _ float64) ([]float64, error) { return x, nil }

	for _, test := range []struct {
		name   string
		ref    *mat.Dense
		modify func(c *Config)
		nilCfg bool
		target error
	}{
		{name: "nil reference", ref: nil, modify: func(c *Config) {}, target: ErrInvalidConfig},
		{name: "nil config", ref: mweRef, nilCfg: true, target: ErrInvalidConfig},
		{name: "no nodes", ref: mweRef, modify: func(c *Config) { c.Nodes = 0 }, target: ErrInvalidConfig},
		{name: "node count", ref: mweRef, modify: func(c *Config) { c.Nodes = 4 }, target: ErrDimMismatch},
		{name: "catalog count", ref: mweRef, modify: func(c *Config) { c.Catalogs = c.Catalogs[:2] }, target: ErrDimMismatch},
		{name: "negative dt", ref: mweRef, modify: func(c *Config) { c.Dt = -1 }, target: ErrInvalidConfig},
		{name: "nan dt", ref: mweRef, modify: func(c *Config) { c.Dt = math.NaN() }, target: ErrInvalidConfig},
		{name: "empty first catalog", ref: mweRef, modify: func(c *Config) { c.Catalogs = [][][]float64{{}, {{0}}, {{0}}} }, target: ErrInvalidConfig},
		{name: "empty later catalog", ref: mweRef, modify: func(c *Config) { c.Catalogs = [][][]float64{{{0}}, {}, {{0}}} }, target: ErrInvalidConfig},
		{name: "mode dimension", ref: mweRef, modify: func(c *Config) { c.Catalogs = [][][]float64{{{0}}, {{0, 1}}, {{0}}} }, target: ErrInvalidConfig},
		{name: "duplicate mode", ref: mweRef, modify: func(c *Config) { c.Catalogs = uniform(3, []float64{0}, []float64{0}) }, target: ErrInvalidConfig},
		{name: "state without transition", ref: mweRef, modify: func(c *Config) { c.IncludeState = true; c.X0 = []float64{0} }, target: ErrInvalidConfig},
		{name: "state without x0", ref: mweRef, modify: func(c *Config) { c.IncludeState = true; c.Transition = identity }, target: ErrInvalidConfig},
		{name: "customize without combiner", ref: mweRef, modify: func(c *Config) { c.Customize = true }, target: ErrInvalidConfig},
		{name: "empty sequence", ref: mweRef, modify: func(c *Config) { c.Constraints = []Constraint{{Durations: []float64{1}}} }, target: ErrInvalidConfig},
		{name: "durations", ref: mweRef, modify: func(c *Config) { c.Constraints = []Constraint{{Sequence: []float64{1}, Durations: []float64{1, 1}}} }, target: ErrDimMismatch},
		{name: "negative duration", ref: mweRef, modify: func(c *Config) { c.Constraints = []Constraint{{Sequence: []float64{1}, Durations: []float64{-1}}} }, target: ErrInvalidConfig},
		{name: "timer count", ref: mweRef, modify: func(c *Config) {
			c.Constraints = []Constraint{{Sequence: []float64{1}, Durations: []float64{1}}}
			c.InitTimers = [][]float64{{1}, {1}}
		}, target: ErrDimMismatch},
		{name: "timer length", ref: mweRef, modify: func(c *Config) {
			c.Constraints = []Constraint{{Sequence: []float64{1}, Durations: []float64{1}}}
			c.InitTimers = [][]float64{{1, 1}}
		}, target: ErrDimMismatch},
		{name: "negative timer", ref: mweRef, modify: func(c *Config) {
			c.Constraints = []Constraint{{Sequence: []float64{1}, Durations: []float64{1}}}
			c.InitTimers = [][]float64{{-1}}
		}, target: ErrInvalidConfig},
		{name: "nan timer", ref: mweRef, modify: func(c *Config) {
			c.Constraints = []Constraint{{Sequence: []float64{1}, Durations: []float64{1}}}
			c.InitTimers = [][]float64{{math.NaN()}}
		}, target: ErrInvalidConfig},
		{name: "inf timer", ref: mweRef, modify: func(c *Config) {
			c.Constraints = []Constraint{{Sequence: []float64{1}, Durations: []float64{1}}}
			c.InitTimers = [][]float64{{math.Inf(1)}}
		}, target: ErrInvalidConfig},
	} {
		var c *Config
		if !test.nilCfg {
			c = mweConfig()
			test.modify(c)
		}
		s, err := New(test.ref, c)
		assert.Nil(s, test.name)
		assert.ErrorIs(err, test.target, test.name)
	}
}

func TestSolveMinimal(t *testing.T) {
	assert := assert.New(t)

	s, err := New(mweRef, mweConfig())
	require.NoError(t, err)

	var solver approx.Solver = s
	res, err := solver.Solve(context.Background())
	require.NoError(t, err)

	assert.Equal([][]float64{{0}, {1}, {0}}, res.Path())
	assert.InDelta(0.8, res.Objective(), 1e-12)
	assert.InDeltaSlice([]float64{0.8}, res.Cost(), 1e-12)
	assert.True(res.Success())
	assert.Nil(res.Trajectory())
}

func TestSolveOneHotMinMax(t *testing.T) {
	assert := assert.New(t)

	s, err := New(oneHotRef, oneHotConfig())
	require.NoError(t, err)

	sol, err := s.Run(context.Background())
	require.NoError(t, err)

	exp := [][]float64{{0, 1, 0}, {0, 0, 1}, {1, 0, 0}, {1, 0, 0}}
	assert.Equal(exp, sol.Path())
	assert.InDelta(0.625, sol.Objective(), 1e-12)
	assert.InDeltaSlice([]float64{-0.25, 0, 0.25, 0.625}, sol.Cost(), 1e-12)
	assert.True(sol.Success())

	stats := sol.Stats()
	assert.Equal(4, stats.Nodes)
	assert.Equal(int64(27), stats.Edges)
	assert.Positive(stats.Violations)
}

func TestSolveOneHotWithoutDwell(t *testing.T) {
	assert := assert.New(t)

	c := oneHotConfig()
	c.Constraints, c.InitTimers = nil, nil

	s, err := New(oneHotRef, c)
	require.NoError(t, err)

	sol, err := s.Run(context.Background())
	require.NoError(t, err)

	// every path starting in the first channel peaks at 0.75 or more
	assert.InDelta(0.625, sol.Objective(), 1e-12)
	assert.Equal([]float64{0, 1, 0}, sol.Path()[0])
	assert.Equal(int64(0), sol.Stats().Violations)
}

func TestSolveMatchesBruteForce(t *testing.T) {
	assert := assert.New(t)

	ref := mat.NewDense(2, 4, []float64{
		0.1, 0.9, 0.4, 0.7,
		0.8, 0.3, 0.6, 0.2,
	})
	catalogs := [][][]float64{
		{{0, 0}, {1, 0}, {0, 1}},
		{{1, 0}, {0, 1}},
		{{0, 0}, {1, 1}, {1, 0}},
		{{0, 0}, {1, 0}, {0, 1}, {1, 1}},
	}

	s, err := New(ref, &Config{Nodes: 4, Dt: 0.5, Catalogs: catalogs, Stage: squared})
	require.NoError(t, err)

	sol, err := s.Run(context.Background())
	require.NoError(t, err)

	// enumerate every path ending in a mode of the first catalog
	best := math.Inf(1)
	var walk func(i int, acc float64)
	walk = func(i int, acc float64) {
		if i == len(catalogs) {
			best = math.Min(best, acc)
			return
		}
		for _, v := range catalogs[i] {
			if i == len(catalogs)-1 {
				if _, ok := s.cats[0].id(v); !ok {
					continue
				}
			}
			c, _ := squared(v, mat.Col(nil, i, ref), i, 0.5)
			walk(i+1, acc+c[0])
		}
	}
	walk(0, 0)

	assert.InDelta(best, sol.Objective(), 1e-12)

	var total float64
	for i, v := range sol.Path() {
		c, _ := squared(v, mat.Col(nil, i, ref), i, 0.5)
		total += c[0]
	}
	assert.InDelta(best, total, 1e-12)
}

func TestForwardBellman(t *testing.T) {
	assert := assert.New(t)

	s, err := New(trjRef, trjConfig())
	require.NoError(t, err)

	tab, _, err := s.forward(context.Background())
	require.NoError(t, err)

	for i := 0; i < s.c.Nodes-1; i++ {
		for n, vni := range s.cats[i+1].modes {
			assert.True(tab.reached[i+1][n])

			c, err := s.c.Stage(vni, s.cols[i+1], i+1, s.c.Dt)
			require.NoError(t, err)

			best := math.Inf(1)
			for p, vi := range s.cats[i].modes {
				d := noPenalty
				for k, con := range s.c.Constraints {
					if violated([][]float64{con.advance(tab.timers[k][i][p], vi, vni, s.c.Dt)}) {
						d = penalty
					}
				}
				next := []float64{c[0] + d[0]}
				best = math.Min(best, s.c.Objective([]float64{tab.cost[i][p][0] + next[0]}))
			}
			assert.Equal(best, s.c.Objective(tab.cost[i+1][n]), fmt.Sprintf("node %d mode %v", i+1, vni))

			for k := range s.c.Constraints {
				for _, y := range tab.timers[k][i+1][n] {
					assert.True(y >= 0 || y == Violated)
				}
			}
		}
	}
}

func TestSolveDwell(t *testing.T) {
	assert := assert.New(t)

	s, err := New(trjRef, trjConfig())
	require.NoError(t, err)

	sol, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.True(sol.Success())

	path := sol.Path()
	assert.Len(path, 12)

	// every mode entered after the first node is held for at least 0.3s,
	// which is three nodes at dt = 0.1
	run := 1
	for i := 1; i < len(path); i++ {
		if path[i][0] == path[i-1][0] {
			run++
			continue
		}
		if i-run > 0 {
			assert.GreaterOrEqual(run, 3, fmt.Sprintf("mode %v left at node %d", path[i-1], i))
		}
		run = 1
	}
}

func TestSolveInfeasible(t *testing.T) {
	assert := assert.New(t)

	ref := mat.NewDense(1, 3, []float64{1, 0, 1})
	c := &Config{
		Nodes:       3,
		Dt:          1,
		Catalogs:    [][][]float64{{{1}}, {{0}}, {{1}}},
		Constraints: []Constraint{{Sequence: []float64{1}, Durations: []float64{5}}},
		InitTimers:  [][]float64{{5}},
	}

	s, err := New(ref, c)
	require.NoError(t, err)

	sol, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal([][]float64{{1}, {0}, {1}}, sol.Path())
	assert.False(sol.Success())
	assert.GreaterOrEqual(sol.Objective(), InfinitePenalty)
	assert.Equal(int64(1), sol.Stats().Violations)
}

func TestSolveState(t *testing.T) {
	assert := assert.New(t)

	ref := mat.NewDense(1, 4, []float64{1, 1, 1, 1})
	c := &Config{
		Nodes:        4,
		Dt:           1,
		Catalogs:     uniform(4, []float64{0}, []float64{1}),
		IncludeState: true,
		X0:           []float64{0},
		Transition: func(x, v []float64, _ int, dt float64) ([]float64, error) {
			return []float64{x[0] + v[0]*dt}, nil
		},
		StateCost: func(x, _ []float64, _ int, _ float64) ([]float64, error) {
			if x[0] > 2.5 {
				return []float64{100}, nil
			}
			return []float64{0}, nil
		},
	}

	s, err := New(ref, c)
	require.NoError(t, err)

	sol, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal([][]float64{{1}, {1}, {0}, {1}}, sol.Path())
	assert.Equal([][]float64{{0}, {1}, {2}, {2}, {3}}, sol.Trajectory())
	assert.InDelta(1.0, sol.Objective(), 1e-12)
	assert.True(sol.Success())

	// the trajectory follows the transition along the path
	traj, path := sol.Trajectory(), sol.Path()
	assert.Len(traj, len(path)+1)
	for i, v := range path {
		assert.Equal(traj[i][0]+v[0], traj[i+1][0])
	}
}

func TestSolveErrors(t *testing.T) {
	assert := assert.New(t)

	boom := errors.New("boom")

	c := mweConfig()
	c.Stage = func(v, r []float64, i int, _ float64) ([]float64, error) {
		if i == 2 {
			return nil, boom
		}
		return cost.Rounding(v, r, i, 0)
	}
	s, err := New(mweRef, c)
	require.NoError(t, err)
	_, err = s.Run(context.Background())
	assert.ErrorIs(err, boom)

	// objective rejecting every candidate leaves vertices unreached
	c = mweConfig()
	c.Objective = func([]float64) float64 { return math.NaN() }
	s, err = New(mweRef, c)
	require.NoError(t, err)
	_, err = s.Run(context.Background())
	assert.ErrorIs(err, ErrUnreached)

	two := mat.NewDense(1, 2, []float64{0.2, 0.8})
	c = &Config{
		Nodes:     2,
		Catalogs:  uniform(2, []float64{0}, []float64{1}),
		Objective: func([]float64) float64 { return math.Inf(1) },
	}
	s, err = New(two, c)
	require.NoError(t, err)
	_, err = s.Run(context.Background())
	assert.ErrorIs(err, ErrNoTerminal)

	// the first catalog has no counterpart in the last one
	c = &Config{Nodes: 2, Catalogs: [][][]float64{{{0}}, {{1}}}}
	s, err = New(two, c)
	require.NoError(t, err)
	_, err = s.Solve(context.Background())
	assert.ErrorIs(err, ErrNoTerminal)

	// mismatched cost sizes can not be accumulated
	c = mweConfig()
	c.Stage = func(v, r []float64, i int, _ float64) ([]float64, error) {
		return make([]float64, i+2), nil
	}
	s, err = New(mweRef, c)
	require.NoError(t, err)
	_, err = s.Run(context.Background())
	assert.Error(err)
}

func TestSolveCanceled(t *testing.T) {
	assert := assert.New(t)

	s, err := New(trjRef, trjConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sol, err := s.Run(ctx)
	assert.Nil(sol)
	assert.ErrorIs(err, context.Canceled)
}

func TestSolveCanceledWithinNode(t *testing.T) {
	assert := assert.New(t)

	const workers = 4

	modes := make([][]float64, 50)
	for k := range modes {
		modes[k] = []float64{float64(k) / 50}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	c := &Config{
		Nodes:    3,
		Dt:       1,
		Catalogs: uniform(3, modes...),
		Stage: func(v, r []float64, i int, dt float64) ([]float64, error) {
			if i == 1 {
				calls.Add(1)
				cancel()
			}
			return cost.Rounding(v, r, i, dt)
		},
	}

	s, err := New(mweRef, c, WithWorkers(workers))
	require.NoError(t, err)

	sol, err := s.Run(ctx)
	assert.Nil(sol)
	assert.ErrorIs(err, context.Canceled)
	// vertices queued after the cancellation are never relaxed
	assert.LessOrEqual(calls.Load(), int32(workers))
}

func TestSolveDeterministic(t *testing.T) {
	assert := assert.New(t)

	for _, test := range []struct {
		ref *mat.Dense
		c   func() *Config
	}{
		{ref: trjRef, c: trjConfig},
		{ref: oneHotRef, c: oneHotConfig},
	} {
		seq, err := New(test.ref, test.c())
		require.NoError(t, err)
		par, err := New(test.ref, test.c(), WithWorkers(4))
		require.NoError(t, err)

		first, err := seq.Run(context.Background())
		require.NoError(t, err)
		second, err := seq.Run(context.Background())
		require.NoError(t, err)
		parallel, err := par.Run(context.Background())
		require.NoError(t, err)

		for _, sol := range []*Solution{second, parallel} {
			assert.Equal(first.Path(), sol.Path())
			assert.Equal(first.Cost(), sol.Cost())
			assert.Equal(first.Objective(), sol.Objective())
			assert.Equal(first.Stats().Edges, sol.Stats().Edges)
			assert.Equal(first.Stats().Violations, sol.Stats().Violations)
		}
	}
}

func TestSolveLogs(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	s, err := New(mweRef, mweConfig(), WithLogger(logging.NewWithWriter(&buf, slog.LevelDebug)))
	require.NoError(t, err)

	_, err = s.Run(context.Background())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(out, "solver created")
	assert.Contains(out, "node relaxed")
	assert.Contains(out, "solve finished")
}

func TestSolutionCopies(t *testing.T) {
	assert := assert.New(t)

	s, err := New(mweRef, mweConfig())
	require.NoError(t, err)
	sol, err := s.Run(context.Background())
	require.NoError(t, err)

	path := sol.Path()
	path[0][0] = 42
	assert.Equal(0.0, sol.Path()[0][0])
	assert.Contains(sol.String(), "Success=true")
}
