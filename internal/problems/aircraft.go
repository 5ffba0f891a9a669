package problems

import (
	"math"

	"github.com/san-kum/trajgen/internal/planner"
	"github.com/san-kum/trajgen/internal/symbolic"
)

// Aircraft is a planar vertical take-off vehicle. The two engine thrusts
// are the inputs; each engine is mounted at lateral offset ArmLength and
// height Height and tilted inwards by Deflection radians. State is
// (x, ẋ, y, ẏ, θ, θ̇).
type Aircraft struct {
	Mass       float64
	Inertia    float64
	ArmLength  float64
	Height     float64
	Deflection float64
	Gravity    float64
}

func NewAircraft() *Aircraft {
	return &Aircraft{
		Mass:       50.0,
		Inertia:    25.0,
		ArmLength:  1.0,
		Height:     0.1,
		Deflection: 5.0 / 360.0 * 2 * math.Pi,
		Gravity:    9.81,
	}
}

func (a *Aircraft) Dynamics(x, u []symbolic.Expr) []symbolic.Expr {
	sa, ca := math.Sin(a.Deflection), math.Cos(a.Deflection)
	s, c := symbolic.Sin(x[4]), symbolic.Cos(x[4])
	total := symbolic.Add(u[0], u[1])
	diff := symbolic.Sub(u[0], u[1])
	m := symbolic.N(1 / a.Mass)

	return []symbolic.Expr{
		x[1],
		symbolic.Add(
			symbolic.Neg(symbolic.Mul(m, s, total)),
			symbolic.Mul(symbolic.N(sa/a.Mass), c, diff),
		),
		x[3],
		symbolic.Add(
			symbolic.N(-a.Gravity),
			symbolic.Mul(m, c, total),
			symbolic.Mul(symbolic.N(sa/a.Mass), s, diff),
		),
		x[5],
		symbolic.Mul(symbolic.N((a.ArmLength*ca+a.Height*sa)/a.Inertia), diff),
	}
}

// HoverThrust is the per-engine thrust at both ends of a transfer.
func (a *Aircraft) HoverThrust() float64 {
	return 0.5 * a.Gravity * a.Mass / math.Cos(a.Deflection)
}

// Transfer flies from hover at the origin to hover at (dx, dy).
func (a *Aircraft) Transfer(duration, dx, dy float64) planner.Problem {
	hover := a.HoverThrust()
	return planner.Problem{
		Name:     "aircraft",
		Dynamics: a.Dynamics,
		A:        0,
		B:        duration,
		XA:       []float64{0, 0, 0, 0, 0, 0},
		XB:       []float64{dx, 0, dy, 0, 0, 0},
		UA:       []float64{hover, hover},
		UB:       []float64{hover, hover},
		Inputs:   2,
	}
}
