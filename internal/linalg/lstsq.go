package linalg

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

var ErrFactorization = errors.New("linalg: factorization failed")

// DefaultRcond is the relative singular value cutoff used for rank
// truncation.
const DefaultRcond = 1e-12

// LeastSquares returns the minimum norm solution of min ‖a·x − b‖ using a
// thin SVD with singular values below rcond·σ_max discarded, together with
// the effective rank. A zero matrix yields the zero vector.
func LeastSquares(a mat.Matrix, b []float64, rcond float64) ([]float64, int, error) {
	r, c := a.Dims()
	if len(b) != r {
		return nil, 0, mat.ErrShape
	}
	if csr, ok := a.(*CSR); ok {
		a = csr.ToDense()
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return nil, 0, ErrFactorization
	}
	rank := svd.Rank(rcond)
	x := make([]float64, c)
	if rank == 0 {
		return x, 0, nil
	}
	dst := mat.NewVecDense(c, x)
	svd.SolveVecTo(dst, mat.NewVecDense(r, append([]float64(nil), b...)), rank)
	return x, rank, nil
}
