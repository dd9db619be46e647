package sim

import (
	"context"
	"math"
	"testing"

	"github.com/milosgajdos/go-approx/cost"
	"github.com/milosgajdos/go-approx/dp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestRocketDynamics(t *testing.T) {
	assert := assert.New(t)

	r := NewRocket()
	x0 := []float64{1, 0, 1}

	assert.Equal(0.0, r.DragForce(x0))

	dx, err := r.Dynamics(x0, []float64{1})
	assert.NoError(err)
	assert.InDeltaSlice([]float64{0, 2.5, -7}, dx, 1e-12)

	dx, err = r.Dynamics(x0, []float64{0})
	assert.NoError(err)
	assert.InDeltaSlice([]float64{0, -1, 0}, dx, 1e-12)

	_, err = r.Dynamics([]float64{1, 0}, []float64{1})
	assert.Error(err)

	_, err = r.Dynamics(x0, nil)
	assert.Error(err)

	// full thrust on a draining mass; drag stays negligible over one step
	dt := 0.0005
	next, err := r.Transition()(x0, []float64{1}, 0, dt)
	assert.NoError(err)
	assert.InDelta(3.5/7*math.Log(1/(1-7*dt))-dt, next[1], 5e-7)
	assert.InDelta(1-7*dt, next[2], 1e-12)
}

func TestRocketStateCost(t *testing.T) {
	assert := assert.New(t)

	sc := NewRocket().StateCost()

	c, err := sc([]float64{1, 0, 1}, nil, 0, 0)
	assert.NoError(err)
	assert.Equal([]float64{0}, c)

	// 310 * 0.05^2 exceeds the drag limit
	c, err = sc([]float64{1, 0.05, 1}, nil, 0, 0)
	assert.NoError(err)
	assert.Equal([]float64{dp.InfinitePenalty}, c)

	_, err = sc([]float64{1}, nil, 0, 0)
	assert.Error(err)
}

func TestRocketSolve(t *testing.T) {
	assert := assert.New(t)

	const nodes = 20

	r := NewRocket()
	ref := mat.NewDense(1, nodes, nil)
	for i := 0; i < nodes; i++ {
		ref.Set(0, i, 1)
	}

	catalogs := make([][][]float64, nodes)
	for i := range catalogs {
		catalogs[i] = [][]float64{{0}, {1}}
	}

	s, err := dp.New(ref, &dp.Config{
		Nodes:        nodes,
		Dt:           0.0005,
		Catalogs:     catalogs,
		Stage:        cost.Deviation,
		Objective:    cost.AbsFirst,
		IncludeState: true,
		X0:           []float64{1, 0, 1},
		Transition:   r.Transition(),
		StateCost:    r.StateCost(),
	})
	require.NoError(t, err)

	sol, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.True(sol.Success())
	for _, v := range sol.Path() {
		assert.Equal([]float64{1}, v)
	}

	traj := sol.Trajectory()
	assert.Len(traj, nodes+1)
	assert.InDelta(1-7*nodes*0.0005, traj[nodes][2], 1e-9)
}
