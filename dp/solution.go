package dp

import (
	"fmt"
	"math"
	"time"

	"github.com/milosgajdos/go-approx/vec"
)

// Stats holds solver run statistics.
type Stats struct {
	// Nodes is the number of nodes
	Nodes int
	// Edges is the number of evaluated transitions
	Edges int64
	// Violations is the number of transitions violating a dwell constraint
	Violations int64
	// Improvements is the number of table updates
	Improvements int64
	// Duration is the wall clock duration of the run
	Duration time.Duration
}

func (s *Stats) add(o Stats) {
	s.Edges += o.Edges
	s.Violations += o.Violations
	s.Improvements += o.Improvements
}

// Solution is the optimal rounding found by Solver.
type Solution struct {
	path  [][]float64
	traj  [][]float64
	cost  []float64
	obj   float64
	ok    bool
	stats Stats
}

// Path returns the chosen mode of every node.
func (s *Solution) Path() [][]float64 {
	return clone2(s.path)
}

// Trajectory returns the continuous state trajectory with the initial
// state first. It returns nil if state propagation was disabled.
func (s *Solution) Trajectory() [][]float64 {
	return clone2(s.traj)
}

// Cost returns the terminal cost vector.
func (s *Solution) Cost() []float64 {
	return vec.Clone(s.cost)
}

// Objective returns the scalarized terminal cost.
func (s *Solution) Objective() float64 {
	return s.obj
}

// Success reports whether the terminal cost stayed below InfinitePenalty.
func (s *Solution) Success() bool {
	return s.ok
}

// Stats returns run statistics.
func (s *Solution) Stats() Stats {
	return s.stats
}

// String implements the Stringer interface.
func (s *Solution) String() string {
	return fmt.Sprintf("Solution{\nPath=%v\nObjective=%v\nSuccess=%v\n}", s.path, s.obj, s.ok)
}

// reconstruct selects the cheapest terminal vertex and walks the path table
// back to the first node.
//
// Terminal candidates are the modes of the first node looked up in the
// catalog of the last node; modes missing from the last catalog are skipped.
func (s *Solver) reconstruct(t *tables) (*Solution, error) {
	last := s.c.Nodes - 1

	end, best := -1, math.Inf(1)
	for _, v := range s.cats[0].modes {
		id, ok := t.lookup(v, last)
		if !ok {
			continue
		}
		if obj := s.c.Objective(t.cost[last][id]); obj < best {
			end, best = id, obj
		}
	}

	if end < 0 {
		return nil, ErrNoTerminal
	}

	ids := make([]int, s.c.Nodes)
	path := make([][]float64, s.c.Nodes)

	id := end
	for i := last; i >= 0; i-- {
		ids[i] = id
		path[i] = vec.Clone(s.cats[i].modes[id])
		if i > 0 {
			id = t.prev[i][id]
		}
	}

	var traj [][]float64
	if s.c.IncludeState {
		traj = make([][]float64, 0, s.c.Nodes+1)
		traj = append(traj, vec.Clone(s.c.X0))
		for i, id := range ids {
			traj = append(traj, vec.Clone(t.state[i][id]))
		}
	}

	return &Solution{
		path: path,
		traj: traj,
		cost: vec.Clone(t.cost[last][end]),
		obj:  best,
		ok:   best < InfinitePenalty,
	}, nil
}

func clone2(m [][]float64) [][]float64 {
	if m == nil {
		return nil
	}
	out := make([][]float64, len(m))
	for i, v := range m {
		out[i] = vec.Clone(v)
	}
	return out
}
