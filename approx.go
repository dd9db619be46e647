// Package approx defines the building blocks of solvers which round a relaxed
// control trajectory to a sequence of discrete modes.
package approx

import "context"

// Version is the module version.
const Version = "v0.1.0"

// StageCost returns the cost of choosing mode v at node i given the
// relaxed reference column r.
type StageCost func(v, r []float64, i int, dt float64) ([]float64, error)

// Objective reduces a cost vector to a single comparable value.
type Objective func(c []float64) float64

// Transition propagates continuous state x to the next node under mode v.
type Transition func(x, v []float64, i int, dt float64) ([]float64, error)

// StateCost returns the cost of continuous state x at node i given the
// relaxed reference column r.
type StateCost func(x, r []float64, i int, dt float64) ([]float64, error)

// Combiner combines the cost of entering mode next with the history stored
// in the memo tables. prev is the candidate predecessor mode at node i.
// Implementations must only read nodes up to and including i.
type Combiner func(next, nextCost, prev []float64, t Tables, i int, dt float64) ([]float64, error)

// Tables is a read-only view of the memo tables built by a solver.
type Tables interface {
	// Cost returns the best known cost of reaching mode v at node i
	Cost(v []float64, i int) ([]float64, bool)
	// Prev returns the best predecessor of mode v at node i
	Prev(v []float64, i int) ([]float64, bool)
}

// Result is the outcome of a solver run.
type Result interface {
	// Path returns the chosen mode per node
	Path() [][]float64
	// Trajectory returns the continuous state per node, initial state first
	Trajectory() [][]float64
	// Cost returns the terminal cost vector
	Cost() []float64
	// Objective returns the scalarized terminal cost
	Objective() float64
	// Success reports whether the terminal cost is below the penalty threshold
	Success() bool
}

// Solver approximates a relaxed control trajectory with discrete modes.
type Solver interface {
	// Solve runs the solver and returns its result
	Solve(context.Context) (Result, error)
}
