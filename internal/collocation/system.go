package collocation

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajgen/internal/linalg"
	"github.com/san-kum/trajgen/internal/symbolic"
	"github.com/san-kum/trajgen/internal/trajectory"
)

var ErrNonFinite = errors.New("collocation: vector field evaluated to NaN or Inf")

// Field is a vector field ẋ = f(x,u) compiled together with its Jacobian
// with respect to (x,u). It is immutable and shared across iterations.
type Field struct {
	States []string
	Inputs []string
	Exprs  []symbolic.Expr

	f  *symbolic.Program
	df *symbolic.Program
}

func NewField(f []symbolic.Expr, states, inputs []string) (*Field, error) {
	if len(f) != len(states) {
		return nil, fmt.Errorf("collocation: %d equations for %d states", len(f), len(states))
	}
	vars := append(append([]string(nil), states...), inputs...)
	fp, err := symbolic.Compile(f, vars)
	if err != nil {
		return nil, fmt.Errorf("compile vector field: %w", err)
	}
	dfp, err := symbolic.Compile(symbolic.Flatten(symbolic.Jacobian(f, vars)), vars)
	if err != nil {
		return nil, fmt.Errorf("compile jacobian: %w", err)
	}
	return &Field{
		States: append([]string(nil), states...),
		Inputs: append([]string(nil), inputs...),
		Exprs:  f,
		f:      fp,
		df:     dfp,
	}, nil
}

// Eval returns f(x,u) at a single point.
func (f *Field) Eval(x, u []float64) []float64 {
	return f.f.EvalAt(append(append([]float64(nil), x...), u...))
}

// Jacobian returns ∂f/∂(x,u) at a single point.
func (f *Field) Jacobian(x, u []float64) *mat.Dense {
	n, w := len(f.States), len(f.States)+len(f.Inputs)
	return mat.NewDense(n, w, f.df.EvalAt(append(append([]float64(nil), x...), u...)))
}

// System is the collocation equation system G(c) = 0 for one spline set and
// node set. Residual rows are ordered node by node, and within a node by the
// retained state equations.
type System struct {
	field  *Field
	set    *trajectory.Set
	nodes  []float64
	eqs    []int
	sparse bool

	// xu maps c to the values of every state and input at every node, row
	// v·M + j for variable v and node j.
	xu    *linalg.CSR
	xuOff []float64

	// dx maps c to the derivatives of the retained states, row j·E + e.
	dx    *linalg.CSR
	dxOff []float64
}

// Build precomputes the linear maps from the free coefficients of set to the
// values and derivatives at the nodes.
func Build(field *Field, set *trajectory.Set, nodes []float64, eqs []int, sparse bool) (*System, error) {
	vars := set.Variables()
	if len(vars) != len(field.States)+len(field.Inputs) {
		return nil, fmt.Errorf("collocation: spline set has %d variables, field has %d",
			len(vars), len(field.States)+len(field.Inputs))
	}
	nfree := set.FreeCount()
	m := len(nodes)

	s := &System{
		field:  field,
		set:    set,
		nodes:  append([]float64(nil), nodes...),
		eqs:    append([]int(nil), eqs...),
		sparse: sparse,
	}

	xb := linalg.NewBuilder(nfree, len(vars)*m, len(vars)*m*4)
	s.xuOff = make([]float64, 0, len(vars)*m)
	for _, v := range vars {
		for _, t := range nodes {
			cols, vals, off, err := set.Dependence(v, t, 0)
			if err != nil {
				return nil, err
			}
			xb.AppendRow(cols, vals)
			s.xuOff = append(s.xuOff, off)
		}
	}
	s.xu = xb.Build()

	db := linalg.NewBuilder(nfree, len(eqs)*m, len(eqs)*m*4)
	s.dxOff = make([]float64, 0, len(eqs)*m)
	for _, t := range nodes {
		for _, e := range eqs {
			cols, vals, off, err := set.Dependence(field.States[e], t, 1)
			if err != nil {
				return nil, err
			}
			db.AppendRow(cols, vals)
			s.dxOff = append(s.dxOff, off)
		}
	}
	s.dx = db.Build()
	return s, nil
}

func (s *System) Nodes() []float64       { return s.nodes }
func (s *System) Equations() []int       { return s.eqs }
func (s *System) Set() *trajectory.Set   { return s.set }
func (s *System) Dims() (rows, cols int) { return len(s.eqs) * len(s.nodes), s.set.FreeCount() }

// columns evaluates every variable at every node, one column per variable.
func (s *System) columns(c []float64) [][]float64 {
	m := len(s.nodes)
	r, _ := s.xu.Dims()
	buf := make([]float64, r)
	s.xu.MulVecTo(buf, c)
	for i := range buf {
		buf[i] += s.xuOff[i]
	}
	cols := make([][]float64, r/m)
	for v := range cols {
		cols[v] = buf[v*m : (v+1)*m]
	}
	return cols
}

// G returns f(X,U) − Ẋ on the retained equations at every node.
func (s *System) G(c []float64) ([]float64, error) {
	if len(c) != s.set.FreeCount() {
		return nil, fmt.Errorf("collocation: got %d coefficients, want %d", len(c), s.set.FreeCount())
	}
	f, err := s.field.f.Eval(s.columns(c))
	if err != nil {
		return nil, err
	}
	if !symbolic.IsFinite(f) {
		return nil, ErrNonFinite
	}

	rows, _ := s.Dims()
	res := make([]float64, rows)
	s.dx.MulVecTo(res, c)
	ne := len(s.eqs)
	for j := range s.nodes {
		for k, e := range s.eqs {
			r := j*ne + k
			res[r] = f[e][j] - res[r] - s.dxOff[r]
		}
	}
	return res, nil
}

// DG returns the Jacobian of G. Row (j,e) is Σ_v ∂f_e/∂v (node j) times the
// dependence row of v at node j, minus the derivative dependence row.
func (s *System) DG(c []float64) (mat.Matrix, error) {
	if len(c) != s.set.FreeCount() {
		return nil, fmt.Errorf("collocation: got %d coefficients, want %d", len(c), s.set.FreeCount())
	}
	jac, err := s.field.df.Eval(s.columns(c))
	if err != nil {
		return nil, err
	}
	if !symbolic.IsFinite(jac) {
		return nil, ErrNonFinite
	}

	rows, nfree := s.Dims()
	m := len(s.nodes)
	nvar := len(s.field.States) + len(s.field.Inputs)
	b := linalg.NewBuilder(nfree, rows, s.xu.NNZ()*len(s.eqs)+s.dx.NNZ())
	acc := linalg.NewAccumulator(nfree)
	for j := range s.nodes {
		for k, e := range s.eqs {
			for v := 0; v < nvar; v++ {
				d := jac[e*nvar+v][j]
				if d == 0 {
					continue
				}
				cols, vals := s.xu.Row(v*m + j)
				acc.AddScaled(cols, vals, d)
			}
			cols, vals := s.dx.Row(j*len(s.eqs) + k)
			acc.AddScaled(cols, vals, -1)
			b.AppendRow(acc.Flush())
		}
	}
	dg := b.Build()
	if s.sparse {
		return dg, nil
	}
	return dg.ToDense(), nil
}
