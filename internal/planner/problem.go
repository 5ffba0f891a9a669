package planner

import (
	"fmt"
	"math"

	"go.uber.org/multierr"

	"github.com/san-kum/trajgen/internal/dynamo"
	"github.com/san-kum/trajgen/internal/symbolic"
)

// Dynamics builds the right-hand side ẋ = f(x, u) from the state symbols
// x1…xn and the input symbols u1…um.
type Dynamics func(x, u []symbolic.Expr) []symbolic.Expr

// Problem is a two point boundary value problem for a controlled system:
// find u on [A,B] steering x from XA to XB. UA and UB are optional.
type Problem struct {
	Name     string
	Dynamics Dynamics
	A, B     float64
	XA, XB   []float64
	UA, UB   []float64
	Inputs   int
}

func (p Problem) States() int { return len(p.XA) }

// Validate reports every structural problem at once.
func (p Problem) Validate() error {
	var errs error
	if p.Dynamics == nil {
		errs = multierr.Append(errs, fmt.Errorf("%w: no dynamics", dynamo.ErrInvalidProblem))
	}
	if !(p.B > p.A) {
		errs = multierr.Append(errs, fmt.Errorf("%w: empty interval [%g,%g]", dynamo.ErrInvalidProblem, p.A, p.B))
	}
	if len(p.XA) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("%w: no states", dynamo.ErrInvalidProblem))
	}
	if p.Inputs < 1 {
		errs = multierr.Append(errs, fmt.Errorf("%w: at least one input is required, got %d", dynamo.ErrInvalidProblem, p.Inputs))
	}
	if len(p.XB) != len(p.XA) {
		errs = multierr.Append(errs, fmt.Errorf("%w: xa has %d entries, xb has %d", dynamo.ErrDimensionMismatch, len(p.XA), len(p.XB)))
	}
	for name, v := range map[string][]float64{"ua": p.UA, "ub": p.UB} {
		if v != nil && len(v) != p.Inputs {
			errs = multierr.Append(errs, fmt.Errorf("%w: %s has %d entries for %d inputs", dynamo.ErrDimensionMismatch, name, len(v), p.Inputs))
		}
	}
	for _, v := range [][]float64{p.XA, p.XB, p.UA, p.UB} {
		for _, x := range v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				errs = multierr.Append(errs, fmt.Errorf("%w: boundary values must be finite", dynamo.ErrInvalidProblem))
				return errs
			}
		}
	}
	return errs
}

// vectorField evaluates the dynamics on fresh symbols and checks the result.
func (p Problem) vectorField() ([]symbolic.Expr, []string, []string, error) {
	x := symbolic.Symbols("x", p.States())
	u := symbolic.Symbols("u", p.Inputs)
	f := p.Dynamics(x, u)
	if len(f) != len(x) {
		return nil, nil, nil, fmt.Errorf("%w: dynamics returned %d equations for %d states", dynamo.ErrDimensionMismatch, len(f), len(x))
	}
	states, inputs := symbolic.Names(x), symbolic.Names(u)
	known := make(map[string]bool, len(states)+len(inputs))
	for _, v := range append(append([]string(nil), states...), inputs...) {
		known[v] = true
	}
	for i, e := range f {
		if e == nil {
			return nil, nil, nil, fmt.Errorf("%w: equation %d is nil", dynamo.ErrInvalidProblem, i+1)
		}
		for _, s := range symbolic.FreeSymbols(e) {
			if !known[s] {
				return nil, nil, nil, fmt.Errorf("%w: equation %d uses unknown symbol %q", dynamo.ErrInvalidProblem, i+1, s)
			}
		}
	}
	return f, states, inputs, nil
}
