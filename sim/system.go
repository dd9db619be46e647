package sim

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// System defines a linear model of a plant using
// traditional matrices of modern control theory.
//
// It contains the System (A) and input (B) matrices. The discrete
// mode vector chosen at every node is the input of the system.
type System struct {
	// System/State matrix A
	A *mat.Dense
	// Control/Input Matrix B
	B *mat.Dense
}

func newSystem(A, B *mat.Dense) (System, error) {
	if A == nil {
		return System{}, fmt.Errorf("system matrix must be defined for a model")
	}

	r, c := A.Dims()
	if r != c {
		return System{}, fmt.Errorf("invalid system matrix dimensions: %d x %d", r, c)
	}

	sys := System{A: mat.DenseCopyOf(A)}
	if B != nil {
		if br, _ := B.Dims(); br != r {
			return System{}, fmt.Errorf("invalid input matrix rows: %d, expected %d", br, r)
		}
		sys.B = mat.DenseCopyOf(B)
	}

	return sys, nil
}

// SystemDims returns internal state length (nx) and input vector length (nu).
func (s System) SystemDims() (nx, nu int) {
	nx, _ = s.A.Dims()
	if s.B != nil {
		_, nu = s.B.Dims()
	}
	return nx, nu
}

// affine returns A*x + B*u.
func (s System) affine(x, u []float64) ([]float64, error) {
	nx, nu := s.SystemDims()
	if len(x) != nx {
		return nil, fmt.Errorf("invalid state vector length: %d", len(x))
	}

	if s.B != nil && len(u) != nu {
		return nil, fmt.Errorf("invalid input vector length: %d", len(u))
	}

	out := mat.NewVecDense(nx, nil)
	out.MulVec(s.A, mat.NewVecDense(nx, x))

	if s.B != nil {
		outU := mat.NewVecDense(nx, nil)
		outU.MulVec(s.B, mat.NewVecDense(nu, u))

		out.AddVec(out, outU)
	}

	return out.RawVector().Data, nil
}
