package symbolic

import (
	"errors"
	"fmt"
	"math"
)

var ErrUnknownSymbol = errors.New("symbolic: expression references an unknown symbol")

// kernel evaluates one expression node over n points. The returned slice may
// alias an input column and must not be modified by the caller.
type kernel func(in [][]float64, n int) []float64

// Program is a list of expressions compiled for vectorized evaluation over a
// fixed variable ordering.
type Program struct {
	vars    []string
	kernels []kernel
}

// Compile prepares exprs for evaluation with the variables laid out in vars.
func Compile(exprs []Expr, vars []string) (*Program, error) {
	index := make(map[string]int, len(vars))
	for i, v := range vars {
		index[v] = i
	}

	p := &Program{
		vars:    append([]string(nil), vars...),
		kernels: make([]kernel, len(exprs)),
	}
	for i, e := range exprs {
		k, err := build(e, index)
		if err != nil {
			return nil, fmt.Errorf("expression %d (%s): %w", i, e, err)
		}
		p.kernels[i] = k
	}
	return p, nil
}

func (p *Program) Vars() []string { return p.vars }
func (p *Program) Len() int       { return len(p.kernels) }

// Eval evaluates every expression at every point. in holds one column per
// variable, all of the same length; the result holds one row per expression.
func (p *Program) Eval(in [][]float64) ([][]float64, error) {
	if len(in) != len(p.vars) {
		return nil, fmt.Errorf("symbolic: got %d input columns, want %d", len(in), len(p.vars))
	}
	n := 0
	if len(in) > 0 {
		n = len(in[0])
	}
	for i, col := range in {
		if len(col) != n {
			return nil, fmt.Errorf("symbolic: column %d (%s) has %d points, want %d", i, p.vars[i], len(col), n)
		}
	}

	out := make([][]float64, len(p.kernels))
	for i, k := range p.kernels {
		row := k(in, n)
		out[i] = make([]float64, n)
		copy(out[i], row)
	}
	return out, nil
}

// EvalAt evaluates every expression at a single point.
func (p *Program) EvalAt(point []float64) []float64 {
	in := make([][]float64, len(point))
	for i, v := range point {
		in[i] = []float64{v}
	}
	out := make([]float64, len(p.kernels))
	for i, k := range p.kernels {
		out[i] = k(in, 1)[0]
	}
	return out
}

func build(e Expr, index map[string]int) (kernel, error) {
	switch v := e.(type) {
	case *Num:
		c := v.v
		return func(_ [][]float64, n int) []float64 {
			out := make([]float64, n)
			for i := range out {
				out[i] = c
			}
			return out
		}, nil

	case *Sym:
		idx, ok := index[v.name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, v.name)
		}
		return func(in [][]float64, _ int) []float64 { return in[idx] }, nil

	case *AddExpr:
		children, err := buildAll(v.terms, index)
		if err != nil {
			return nil, err
		}
		return func(in [][]float64, n int) []float64 {
			out := make([]float64, n)
			for _, c := range children {
				vals := c(in, n)
				for i := range out {
					out[i] += vals[i]
				}
			}
			return out
		}, nil

	case *MulExpr:
		children, err := buildAll(v.factors, index)
		if err != nil {
			return nil, err
		}
		return func(in [][]float64, n int) []float64 {
			out := make([]float64, n)
			copy(out, children[0](in, n))
			for _, c := range children[1:] {
				vals := c(in, n)
				for i := range out {
					out[i] *= vals[i]
				}
			}
			return out
		}, nil

	case *PowExpr:
		base, err := build(v.base, index)
		if err != nil {
			return nil, err
		}
		p := v.exp
		return func(in [][]float64, n int) []float64 {
			vals := base(in, n)
			out := make([]float64, n)
			for i, x := range vals {
				out[i] = powf(x, p)
			}
			return out
		}, nil

	case *FuncExpr:
		arg, err := build(v.arg, index)
		if err != nil {
			return nil, err
		}
		fn := elementary[v.name]
		return func(in [][]float64, n int) []float64 {
			vals := arg(in, n)
			out := make([]float64, n)
			for i, x := range vals {
				out[i] = fn(x)
			}
			return out
		}, nil
	}
	return nil, fmt.Errorf("symbolic: unsupported expression %T", e)
}

func buildAll(exprs []Expr, index map[string]int) ([]kernel, error) {
	ks := make([]kernel, len(exprs))
	for i, e := range exprs {
		k, err := build(e, index)
		if err != nil {
			return nil, err
		}
		ks[i] = k
	}
	return ks, nil
}

// IsFinite reports whether all values are neither NaN nor infinite.
func IsFinite(rows [][]float64) bool {
	for _, row := range rows {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
