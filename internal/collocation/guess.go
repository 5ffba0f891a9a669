package collocation

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajgen/internal/linalg"
	"github.com/san-kum/trajgen/internal/spline"
	"github.com/san-kum/trajgen/internal/trajectory"
)

// InitialValue fills the free coefficients on the first iteration.
const InitialValue = 0.1

// Guess returns a starting point for the solver on next. Without a solved
// previous set every coefficient is InitialValue. Otherwise each state
// spline of next is fitted to the corresponding spline of prev, by Taylor
// re-expansion when fast is set and the spline uses standard nodes, or by a
// least squares fit at sample points. Input splines of unchanged size keep
// their previous coefficients; refined ones are fitted like state splines.
func Guess(prev, next *trajectory.Set, fast bool) ([]float64, error) {
	guess := make([]float64, next.FreeCount())
	if prev == nil || !prev.HasCoefficients() {
		for i := range guess {
			guess[i] = InitialValue
		}
		return guess, nil
	}

	for _, o := range next.Owners() {
		n := o.Spline.FreeCount()
		if n == 0 {
			continue
		}
		dst := guess[o.Offset : o.Offset+n]

		old, ok := prev.Owner(o.Name)
		if !ok {
			for i := range dst {
				dst[i] = InitialValue
			}
			continue
		}

		var vals []float64
		var err error
		switch {
		case o.Spline.Kind() == spline.Input && old.Spline.FreeCount() == n:
			vals, err = old.Spline.Free()
		case fast && o.Spline.Standard():
			vals, err = o.Spline.Reexpand(old.Spline)
		default:
			vals, err = fit(o.Spline, old.Spline)
		}
		if err != nil {
			return nil, fmt.Errorf("collocation: guess for %s: %w", o.Name, err)
		}
		copy(dst, vals)
	}
	return guess, nil
}

// fit matches next to old in the least squares sense at 2·n equidistant
// points, where n is the number of free coefficients of next.
func fit(next, old *spline.Spline) ([]float64, error) {
	n := next.FreeCount()
	pts := floats.Span(make([]float64, 2*n), next.A(), next.B())
	a := mat.NewDense(len(pts), n, nil)
	rhs := make([]float64, len(pts))
	for i, t := range pts {
		row, off := next.DependenceVector(t, 0)
		a.SetRow(i, row)
		v, err := old.Eval(t, 0)
		if err != nil {
			return nil, err
		}
		rhs[i] = v - off
	}
	x, _, err := linalg.LeastSquares(a, rhs, linalg.DefaultRcond)
	return x, err
}
