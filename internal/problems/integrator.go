package problems

import (
	"github.com/san-kum/trajgen/internal/planner"
	"github.com/san-kum/trajgen/internal/symbolic"
)

// DoubleIntegrator moves a unit mass from rest at 0 to rest at dist.
func DoubleIntegrator(a, b, dist float64) planner.Problem {
	return planner.Problem{
		Name: "double_integrator",
		Dynamics: func(x, u []symbolic.Expr) []symbolic.Expr {
			return []symbolic.Expr{x[1], u[0]}
		},
		A:      a,
		B:      b,
		XA:     []float64{0, 0},
		XB:     []float64{dist, 0},
		Inputs: 1,
	}
}
