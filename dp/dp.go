// Package dp implements a dynamic programming solver which rounds a relaxed
// control trajectory to a sequence of discrete modes.
//
// The solver builds memoized cost, path and state tables over the lattice of
// (mode, node) vertices, evolving minimum dwell time timers alongside the
// recursion, and reconstructs the optimal mode sequence by walking the path
// table backwards from the cheapest terminal vertex.
package dp

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	approx "github.com/milosgajdos/go-approx"
	"github.com/milosgajdos/go-approx/cost"
	"github.com/milosgajdos/go-approx/internal/logging"
	"github.com/milosgajdos/go-approx/matrix"
	"github.com/milosgajdos/go-approx/vec"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// InfinitePenalty is the cost added to transitions which violate a dwell
// time constraint. It is finite so penalized costs remain comparable.
const InfinitePenalty = 1e20

var (
	noPenalty = []float64{0}
	penalty   = []float64{InfinitePenalty}
)

// Config configures the solver.
type Config struct {
	// Nodes is the number of discretization nodes
	Nodes int
	// Dt is the discretization time step
	Dt float64
	// Catalogs holds the admissible modes of every node
	Catalogs [][][]float64
	// Stage is the stage cost; defaults to cost.Rounding
	Stage approx.StageCost
	// Objective scalarizes costs; defaults to cost.First
	Objective approx.Objective
	// IncludeState enables continuous state propagation
	IncludeState bool
	// X0 is the initial continuous state
	X0 []float64
	// Transition propagates the continuous state
	Transition approx.Transition
	// StateCost penalizes the continuous state; optional
	StateCost approx.StateCost
	// Customize replaces additive accumulation with Combiner
	Customize bool
	// Combiner combines stage costs with the memo tables
	Combiner approx.Combiner
	// Constraints are minimum dwell time constraints
	Constraints []Constraint
	// InitTimers holds initial timers per constraint; zero when empty
	InitTimers [][]float64
}

// Option configures Solver.
type Option func(*Solver)

// WithLogger sets the solver logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Solver) {
		s.logger = l
	}
}

// WithWorkers sets the number of goroutines evaluating the modes of a node.
// Values below 2 run the recursion sequentially.
func WithWorkers(n int) Option {
	return func(s *Solver) {
		s.workers = n
	}
}

// Solver is a dynamic programming rounding solver.
// Solver is immutable once created: every run builds its own tables.
type Solver struct {
	c       Config
	dim     int
	cats    []*catalog
	cols    [][]float64
	timers  [][]float64
	logger  *slog.Logger
	workers int
}

// New creates new Solver for the relaxed reference ref and returns it.
// ref stores one control channel per row and one node per column.
// It returns error if either ref or c are invalid or their dimensions do not match.
func New(ref *mat.Dense, c *Config, opts ...Option) (*Solver, error) {
	if ref == nil || ref.IsEmpty() {
		return nil, fmt.Errorf("%w: empty reference", ErrInvalidConfig)
	}

	if c == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}

	if c.Nodes < 1 {
		return nil, fmt.Errorf("%w: invalid node count: %d", ErrInvalidConfig, c.Nodes)
	}

	if _, cols := ref.Dims(); cols != c.Nodes {
		return nil, fmt.Errorf("%w: node count %d, reference columns %d", ErrDimMismatch, c.Nodes, cols)
	}

	if len(c.Catalogs) != c.Nodes {
		return nil, fmt.Errorf("%w: node count %d, catalogs %d", ErrDimMismatch, c.Nodes, len(c.Catalogs))
	}

	if math.IsNaN(c.Dt) || math.IsInf(c.Dt, 0) || c.Dt < 0 {
		return nil, fmt.Errorf("%w: invalid time step: %v", ErrInvalidConfig, c.Dt)
	}

	if len(c.Catalogs[0]) == 0 || len(c.Catalogs[0][0]) == 0 {
		return nil, fmt.Errorf("%w: empty catalog at node 0", ErrInvalidConfig)
	}
	dim := len(c.Catalogs[0][0])

	cats := make([]*catalog, c.Nodes)
	for i, modes := range c.Catalogs {
		cat, err := newCatalog(modes, dim)
		if err != nil {
			return nil, fmt.Errorf("%w: node %d: %v", ErrInvalidConfig, i, err)
		}
		cats[i] = cat
	}

	if c.IncludeState {
		if c.Transition == nil {
			return nil, fmt.Errorf("%w: state enabled without transition", ErrInvalidConfig)
		}
		if len(c.X0) == 0 {
			return nil, fmt.Errorf("%w: state enabled without initial state", ErrInvalidConfig)
		}
	}

	if c.Customize && c.Combiner == nil {
		return nil, fmt.Errorf("%w: customize enabled without combiner", ErrInvalidConfig)
	}

	for k, con := range c.Constraints {
		if len(con.Sequence) == 0 {
			return nil, fmt.Errorf("%w: constraint %d: empty sequence", ErrInvalidConfig, k)
		}
		if len(con.Durations) != dim {
			return nil, fmt.Errorf("%w: constraint %d: %d durations, mode dimension %d", ErrDimMismatch, k, len(con.Durations), dim)
		}
		for _, d := range con.Durations {
			if math.IsNaN(d) || d < 0 {
				return nil, fmt.Errorf("%w: constraint %d: invalid duration: %v", ErrInvalidConfig, k, d)
			}
		}
	}

	timers := make([][]float64, len(c.Constraints))
	switch {
	case len(c.InitTimers) == 0:
		for k := range timers {
			timers[k] = make([]float64, dim)
		}
	case len(c.InitTimers) != len(c.Constraints):
		return nil, fmt.Errorf("%w: %d initial timers, %d constraints", ErrDimMismatch, len(c.InitTimers), len(c.Constraints))
	default:
		for k, y := range c.InitTimers {
			if len(y) != dim {
				return nil, fmt.Errorf("%w: initial timer %d: length %d, mode dimension %d", ErrDimMismatch, k, len(y), dim)
			}
			for _, v := range y {
				if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
					return nil, fmt.Errorf("%w: initial timer %d: invalid value: %v", ErrInvalidConfig, k, v)
				}
			}
			timers[k] = vec.Clone(y)
		}
	}

	cols := make([][]float64, c.Nodes)
	for i := range cols {
		cols[i] = matrix.Column(ref, i)
	}

	s := &Solver{
		c:      *c,
		dim:    dim,
		cats:   cats,
		cols:   cols,
		timers: timers,
	}

	if s.c.Stage == nil {
		s.c.Stage = cost.Rounding
	}
	if s.c.Objective == nil {
		s.c.Objective = cost.First
	}
	s.c.X0 = vec.Clone(c.X0)

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logging.NewNop()
	}

	s.logger.Debug("solver created",
		"nodes", c.Nodes,
		"dim", dim,
		"constraints", len(c.Constraints),
		"state", c.IncludeState,
		"customize", c.Customize,
	)

	return s, nil
}

// Solve runs the solver and returns its result.
func (s *Solver) Solve(ctx context.Context) (approx.Result, error) {
	sol, err := s.Run(ctx)
	if err != nil {
		return nil, err
	}
	return sol, nil
}

// Run runs the forward recursion, reconstructs the optimal path and returns it.
// It returns error if ctx is canceled, any of the configured functions fails
// or the recursion reaches a vertex which has not been reached itself.
func (s *Solver) Run(ctx context.Context) (*Solution, error) {
	start := time.Now()

	t, stats, err := s.forward(ctx)
	if err != nil {
		return nil, err
	}

	sol, err := s.reconstruct(t)
	if err != nil {
		return nil, err
	}

	stats.Nodes = s.c.Nodes
	stats.Duration = time.Since(start)
	sol.stats = stats

	s.logger.Info("solve finished",
		"nodes", stats.Nodes,
		"edges", stats.Edges,
		"violations", stats.Violations,
		"objective", sol.obj,
		"success", sol.ok,
		"duration", stats.Duration,
	)

	return sol, nil
}

// forward seeds the first node and runs the recursion over all remaining nodes.
func (s *Solver) forward(ctx context.Context) (*tables, Stats, error) {
	t := newTables(s.cats, len(s.c.Constraints), s.c.IncludeState)

	if err := s.seed(t); err != nil {
		return nil, Stats{}, err
	}

	var stats Stats
	for i := 0; i < s.c.Nodes-1; i++ {
		if err := ctx.Err(); err != nil {
			return nil, Stats{}, fmt.Errorf("solve canceled at node %d: %w", i, err)
		}

		st, err := s.step(ctx, t, i)
		if err != nil {
			return nil, Stats{}, err
		}
		stats.add(st)

		s.logger.Debug("node relaxed", "node", i+1, "edges", st.Edges, "violations", st.Violations)
	}

	return t, stats, nil
}

// seed populates the tables of the first node.
func (s *Solver) seed(t *tables) error {
	for id, v := range s.cats[0].modes {
		c, err := s.c.Stage(v, s.cols[0], 0, s.c.Dt)
		if err != nil {
			return fmt.Errorf("stage cost at node 0: %w", err)
		}
		t.cost[0][id] = c
		t.reached[0][id] = true

		if s.c.IncludeState {
			x, err := s.c.Transition(s.c.X0, v, 0, s.c.Dt)
			if err != nil {
				return fmt.Errorf("state transition at node 0: %w", err)
			}
			t.state[0][id] = x
		}

		for k := range s.timers {
			t.timers[k][0][id] = vec.Clone(s.timers[k])
		}
	}

	return nil
}

// step relaxes every vertex of node i+1.
func (s *Solver) step(ctx context.Context, t *tables, i int) (Stats, error) {
	stats := make([]Stats, s.cats[i+1].size())

	if s.workers < 2 {
		for n := range stats {
			st, err := s.relax(t, i, n)
			if err != nil {
				return Stats{}, err
			}
			stats[n] = st
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.workers)
		for n := range stats {
			n := n
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return fmt.Errorf("solve canceled at node %d: %w", i+1, err)
				}
				st, err := s.relax(t, i, n)
				stats[n] = st
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return Stats{}, err
		}
	}

	var total Stats
	for _, st := range stats {
		total.add(st)
	}

	return total, nil
}

// relax finds the best predecessor of mode n at node i+1.
// It writes only the table slots of vertex (n, i+1).
func (s *Solver) relax(t *tables, i, n int) (Stats, error) {
	var stats Stats

	dt := s.c.Dt
	vni := s.cats[i+1].modes[n]

	c, err := s.c.Stage(vni, s.cols[i+1], i+1, dt)
	if err != nil {
		return stats, fmt.Errorf("stage cost at node %d: %w", i+1, err)
	}

	best := math.Inf(1)
	dwell := make([][]float64, len(s.c.Constraints))

	for p, vi := range s.cats[i].modes {
		if !t.reached[i][p] {
			return stats, fmt.Errorf("%w: mode %v at node %d", ErrUnreached, vi, i)
		}
		stats.Edges++

		for k, con := range s.c.Constraints {
			dwell[k] = con.advance(t.timers[k][i][p], vi, vni, dt)
		}

		d := noPenalty
		if violated(dwell) {
			d = penalty
			stats.Violations++
		}

		next, err := vec.Add(c, d)
		if err != nil {
			return stats, fmt.Errorf("cost at node %d: %w", i+1, err)
		}

		if s.c.IncludeState && s.c.StateCost != nil {
			sc, err := s.c.StateCost(t.state[i][p], s.cols[i], i, dt)
			if err != nil {
				return stats, fmt.Errorf("state cost at node %d: %w", i, err)
			}
			if next, err = vec.Add(next, sc); err != nil {
				return stats, fmt.Errorf("state cost at node %d: %w", i, err)
			}
		}

		var total []float64
		if s.c.Customize {
			total, err = s.c.Combiner(vni, next, vi, t, i, dt)
		} else {
			total, err = vec.Add(t.cost[i][p], next)
		}
		if err != nil {
			return stats, fmt.Errorf("cost at node %d: %w", i+1, err)
		}

		obj := s.c.Objective(total)
		if !(obj < best) {
			continue
		}
		best = obj
		stats.Improvements++

		t.cost[i+1][n] = total
		t.prev[i+1][n] = p
		t.reached[i+1][n] = true

		if s.c.IncludeState {
			x, err := s.c.Transition(t.state[i][p], vni, i+1, dt)
			if err != nil {
				return stats, fmt.Errorf("state transition at node %d: %w", i+1, err)
			}
			t.state[i+1][n] = x
		}

		for k := range dwell {
			t.timers[k][i+1][n] = dwell[k]
		}
	}

	return stats, nil
}
