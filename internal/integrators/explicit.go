package integrators

import "github.com/san-kum/trajgen/internal/dynamo"

// tableau is the Butcher tableau of an explicit Runge-Kutta method. a is
// strictly lower triangular and stored row by row without the zero
// diagonal.
type tableau struct {
	a [][]float64
	b []float64
	c []float64
}

var (
	eulerTableau = tableau{
		a: [][]float64{{}},
		b: []float64{1},
		c: []float64{0},
	}
	rk4Tableau = tableau{
		a: [][]float64{{}, {0.5}, {0, 0.5}, {0, 0, 1}},
		b: []float64{1.0 / 6, 1.0 / 3, 1.0 / 3, 1.0 / 6},
		c: []float64{0, 0.5, 0.5, 1},
	}
)

// stages evaluates the stage derivatives k_i of one step.
func (tb *tableau) stages(sys dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) []dynamo.State {
	k := make([]dynamo.State, len(tb.c))
	for i, row := range tb.a {
		xi := x.Clone()
		for j, aij := range row {
			if aij != 0 {
				for n := range xi {
					xi[n] += dt * aij * k[j][n]
				}
			}
		}
		k[i] = sys.Derive(xi, u, t+tb.c[i]*dt)
	}
	return k
}

// combine returns x + dt·Σ w_i k_i.
func combine(x dynamo.State, dt float64, w []float64, k []dynamo.State) dynamo.State {
	out := x.Clone()
	for i, wi := range w {
		if wi != 0 {
			out = out.Axpy(dt*wi, k[i])
		}
	}
	return out
}

// Explicit is a fixed step explicit Runge-Kutta integrator.
type Explicit struct {
	name string
	tb   tableau
}

func NewEuler() *Explicit { return &Explicit{name: "euler", tb: eulerTableau} }
func NewRK4() *Explicit   { return &Explicit{name: "rk4", tb: rk4Tableau} }

func (e *Explicit) Name() string { return e.name }

func (e *Explicit) Step(sys dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	return combine(x, dt, e.tb.b, e.tb.stages(sys, x, u, t, dt))
}
