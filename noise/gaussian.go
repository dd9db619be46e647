// Package noise provides Gaussian noise used to perturb relaxed references.
package noise

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Gaussian is gaussian noise
type Gaussian struct {
	// dist is a multivariate normal distribution
	dist *distmv.Normal
	// mean is Gaussian mean
	mean []float64
	// cov is Gaussian covariance
	cov *mat.SymDense
}

// NewGaussian creates new Gaussian noise with given mean and covariance
// whose samples are drawn from a source seeded with seed.
// It returns error if it fails to create Gaussian.
func NewGaussian(mean []float64, cov mat.Symmetric, seed uint64) (*Gaussian, error) {
	if cov == nil || cov.SymmetricDim() != len(mean) {
		return nil, fmt.Errorf("invalid noise dimensions")
	}

	c := mat.NewSymDense(cov.SymmetricDim(), nil)
	c.CopySym(cov)

	m := make([]float64, len(mean))
	copy(m, mean)

	dist, ok := newGaussianDist(m, c, seed)
	if !ok {
		return nil, fmt.Errorf("failed to create new Gaussian noise")
	}

	return &Gaussian{
		dist: dist,
		mean: m,
		cov:  c,
	}, nil
}

// NewIsotropic creates zero mean Gaussian noise of the given size with
// independent components of standard deviation sigma.
func NewIsotropic(size int, sigma float64, seed uint64) (*Gaussian, error) {
	if size < 1 {
		return nil, fmt.Errorf("invalid noise dimension: %d", size)
	}

	if sigma <= 0 || math.IsNaN(sigma) || math.IsInf(sigma, 0) {
		return nil, fmt.Errorf("invalid noise deviation: %v", sigma)
	}

	cov := mat.NewSymDense(size, nil)
	for i := 0; i < size; i++ {
		cov.SetSym(i, i, sigma*sigma)
	}

	return NewGaussian(make([]float64, size), cov, seed)
}

// Sample generates a sample from Gaussian noise and returns it.
func (g *Gaussian) Sample() []float64 {
	return g.dist.Rand(nil)
}

// Perturb adds an independent sample to every column of m and clips the
// result to [lo, hi]. It returns error if m rows do not match the noise size.
func (g *Gaussian) Perturb(m *mat.Dense, lo, hi float64) error {
	rows, cols := m.Dims()
	if rows != len(g.mean) {
		return fmt.Errorf("invalid matrix rows: %d, noise size %d", rows, len(g.mean))
	}

	for j := 0; j < cols; j++ {
		s := g.Sample()
		for i := 0; i < rows; i++ {
			m.Set(i, j, math.Min(hi, math.Max(lo, m.At(i, j)+s[i])))
		}
	}

	return nil
}

func newGaussianDist(mean []float64, cov mat.Symmetric, seed uint64) (*distmv.Normal, bool) {
	src := rand.New(rand.NewSource(seed))
	return distmv.NewNormal(mean, cov, src)
}

// String implements the Stringer interface.
func (g *Gaussian) String() string {
	return fmt.Sprintf("Gaussian{\nMean=%v\nCov=%v\n}", g.mean, mat.Formatted(g.cov, mat.Prefix("    "), mat.Squeeze()))
}
