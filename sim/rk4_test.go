package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRK4(t *testing.T) {
	assert := assert.New(t)

	constant := func(x, u []float64) ([]float64, error) { return []float64{u[0]}, nil }
	growth := func(x, u []float64) ([]float64, error) { return []float64{x[0]}, nil }

	next, err := RK4(constant, []float64{1}, []float64{2}, 0.5)
	assert.NoError(err)
	assert.InDelta(2.0, next[0], 1e-12)

	next, err = RK4(growth, []float64{1}, nil, 0.1)
	assert.NoError(err)
	assert.InDelta(math.Exp(0.1), next[0], 1e-7)

	// the input state is not modified
	x0 := []float64{1}
	_, err = RK4(growth, x0, nil, 0.1)
	assert.NoError(err)
	assert.Equal([]float64{1}, x0)

	boom := errors.New("boom")
	failing := func(x, u []float64) ([]float64, error) { return nil, boom }
	_, err = RK4(failing, []float64{1}, nil, 0.1)
	assert.ErrorIs(err, boom)

	wide := func(x, u []float64) ([]float64, error) { return []float64{1, 2}, nil }
	_, err = RK4(wide, []float64{1}, nil, 0.1)
	assert.Error(err)
}

func TestIntegrate(t *testing.T) {
	assert := assert.New(t)

	f := Integrate(func(x, u []float64) ([]float64, error) {
		return []float64{u[0], -u[0]}, nil
	})

	next, err := f([]float64{0, 0}, []float64{1}, 7, 0.25)
	assert.NoError(err)
	assert.InDeltaSlice([]float64{0.25, -0.25}, next, 1e-12)
}
