package problems

import (
	"math"

	"github.com/san-kum/trajgen/internal/planner"
	"github.com/san-kum/trajgen/internal/symbolic"
)

// CartPole is a pendulum on a cart whose acceleration is the input. State
// is (x, ẋ, φ, φ̇) with φ = 0 upright.
type CartPole struct {
	PoleLength float64
	Gravity    float64
}

func NewCartPole() *CartPole {
	return &CartPole{
		PoleLength: 0.5,
		Gravity:    9.81,
	}
}

func (c *CartPole) Dynamics(x, u []symbolic.Expr) []symbolic.Expr {
	phi, omega := x[2], x[3]
	accel := u[0]
	return []symbolic.Expr{
		x[1],
		accel,
		omega,
		symbolic.Mul(symbolic.N(1/c.PoleLength), symbolic.Add(
			symbolic.Mul(symbolic.N(c.Gravity), symbolic.Sin(phi)),
			symbolic.Mul(accel, symbolic.Cos(phi)),
		)),
	}
}

// SwingUp moves the pole from hanging to upright with the cart returning to
// its start, at rest and unaccelerated at both ends.
func (c *CartPole) SwingUp(duration float64) planner.Problem {
	return planner.Problem{
		Name:     "cartpole",
		Dynamics: c.Dynamics,
		A:        0,
		B:        duration,
		XA:       []float64{0, 0, math.Pi, 0},
		XB:       []float64{0, 0, 0, 0},
		UA:       []float64{0},
		UB:       []float64{0},
		Inputs:   1,
	}
}
