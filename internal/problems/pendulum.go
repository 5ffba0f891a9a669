package problems

import (
	"math"

	"github.com/san-kum/trajgen/internal/planner"
	"github.com/san-kum/trajgen/internal/symbolic"
)

// Pendulum is a point mass on a rigid rod with viscous joint friction,
// actuated by a torque at the joint. State is (θ, ω), θ measured from the
// hanging position.
type Pendulum struct {
	Mass    float64
	Length  float64
	Damping float64
	Gravity float64
}

func NewPendulum() *Pendulum {
	return &Pendulum{
		Mass:    1.0,
		Length:  1.0,
		Damping: 0.1,
		Gravity: 9.81,
	}
}

func (p *Pendulum) Dynamics(x, u []symbolic.Expr) []symbolic.Expr {
	theta, omega := x[0], x[1]
	inertia := p.Mass * p.Length * p.Length
	return []symbolic.Expr{
		omega,
		symbolic.Add(
			symbolic.Mul(symbolic.N(-p.Gravity/p.Length), symbolic.Sin(theta)),
			symbolic.Mul(symbolic.N(-p.Damping/inertia), omega),
			symbolic.Mul(symbolic.N(1/inertia), u[0]),
		),
	}
}

// SwingUp brings the pendulum from rest hanging down to rest upright in
// the given time. The torque is free at both ends.
func (p *Pendulum) SwingUp(duration float64) planner.Problem {
	return planner.Problem{
		Name:     "pendulum",
		Dynamics: p.Dynamics,
		A:        0,
		B:        duration,
		XA:       []float64{0, 0},
		XB:       []float64{math.Pi, 0},
		Inputs:   1,
	}
}
