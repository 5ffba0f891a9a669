package solver

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajgen/internal/linalg"
)

// Newton takes the minimum norm least squares step of the linearization,
// which also covers rank deficient and non-square Jacobians.
type Newton struct {
	Rcond float64
}

func NewNewton() *Newton { return &Newton{Rcond: linalg.DefaultRcond} }

func (n *Newton) Name() string { return "newton" }

func (n *Newton) Step(jac mat.Matrix, res []float64) ([]float64, error) {
	neg := append([]float64(nil), res...)
	floats.Scale(-1, neg)
	s, rank, err := linalg.LeastSquares(jac, neg, n.Rcond)
	if err != nil {
		return nil, err
	}
	if rank == 0 {
		return nil, ErrSingular
	}
	return s, nil
}

// LevenbergMarquardt solves (JᵀJ + μ²I)·s = −JᵀF. A step with reduction
// ratio ρ ≤ B0 is rejected and μ doubled, ρ ≥ B1 halves μ. JᵀJ is kept
// between calls with the same Jacobian, so a rejected trial only costs a
// new factorization; the Jacobian must not be modified in between.
type LevenbergMarquardt struct {
	Mu0 float64
	B0  float64
	B1  float64

	mu  float64
	jac mat.Matrix
	jtj *mat.SymDense
}

func NewLevenbergMarquardt() *LevenbergMarquardt {
	lm := &LevenbergMarquardt{Mu0: 1e-4, B0: 0.2, B1: 0.8}
	lm.Reset()
	return lm
}

func (lm *LevenbergMarquardt) Name() string { return "leven" }
func (lm *LevenbergMarquardt) Mu() float64  { return lm.mu }

func (lm *LevenbergMarquardt) Reset() {
	lm.mu = lm.Mu0
	lm.jac, lm.jtj = nil, nil
}

func (lm *LevenbergMarquardt) Adapt(rho float64) bool {
	if rho <= lm.B0 {
		lm.mu *= 2
		return false
	}
	if rho >= lm.B1 {
		lm.mu *= 0.5
	}
	return true
}

func (lm *LevenbergMarquardt) Step(jac mat.Matrix, res []float64) ([]float64, error) {
	if !sameMatrix(lm.jac, jac) {
		lm.jac, lm.jtj = jac, gram(jac)
	}
	n := lm.jtj.SymmetricDim()
	g := mat.NewSymDense(n, nil)
	g.CopySym(lm.jtj)
	mu2 := lm.mu * lm.mu
	for i := 0; i < n; i++ {
		g.SetSym(i, i, g.At(i, i)+mu2)
	}

	rhs := mulTransVec(jac, res)
	floats.Scale(-1, rhs)

	var chol mat.Cholesky
	if !chol.Factorize(g) {
		return nil, ErrSingular
	}
	s := mat.NewVecDense(n, nil)
	if err := chol.SolveVecTo(s, mat.NewVecDense(n, rhs)); err != nil {
		return nil, err
	}
	return s.RawVector().Data, nil
}

// sameMatrix reports whether a and b are the same sparse or dense matrix
// value.
func sameMatrix(a, b mat.Matrix) bool {
	switch a := a.(type) {
	case *linalg.CSR:
		b, ok := b.(*linalg.CSR)
		return ok && a == b
	case *mat.Dense:
		b, ok := b.(*mat.Dense)
		return ok && a == b
	}
	return false
}

func gram(jac mat.Matrix) *mat.SymDense {
	if c, ok := jac.(*linalg.CSR); ok {
		return c.Gram()
	}
	var g mat.SymDense
	g.SymOuterK(1, jac.T())
	return &g
}

func mulVec(jac mat.Matrix, x []float64) []float64 {
	r, _ := jac.Dims()
	out := make([]float64, r)
	if c, ok := jac.(*linalg.CSR); ok {
		c.MulVecTo(out, x)
		return out
	}
	mat.NewVecDense(r, out).MulVec(jac, mat.NewVecDense(len(x), x))
	return out
}

func mulTransVec(jac mat.Matrix, x []float64) []float64 {
	_, c := jac.Dims()
	out := make([]float64, c)
	if m, ok := jac.(*linalg.CSR); ok {
		m.MulTransVecTo(out, x)
		return out
	}
	mat.NewVecDense(c, out).MulVec(jac.T(), mat.NewVecDense(len(x), x))
	return out
}
