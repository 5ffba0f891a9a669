package integrators

import (
	"math"

	"github.com/san-kum/trajgen/internal/dynamo"
)

// Dormand-Prince 5(4). The seventh stage is evaluated at the fifth order
// solution and only enters the error estimate.
var dopri = tableau{
	a: [][]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	},
	b: []float64{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84, 0},
	c: []float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1},
}

// dopriLow are the weights of the embedded fourth order solution.
var dopriLow = []float64{5179.0 / 57600, 0, 7571.0 / 16695, 393.0 / 640, -92097.0 / 339200, 187.0 / 2100, 1.0 / 40}

// Embedded is an adaptive Runge-Kutta pair that advances with the higher
// order solution.
type Embedded struct {
	tb   tableau
	errw []float64
	// order of the lower solution, sets the step control exponents
	order float64

	safety   float64
	minScale float64
	maxScale float64
}

func NewRK45() *Embedded {
	errw := make([]float64, len(dopri.b))
	for i := range errw {
		errw[i] = dopri.b[i] - dopriLow[i]
	}
	return &Embedded{
		tb:       dopri,
		errw:     errw,
		order:    4,
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10,
	}
}

func (e *Embedded) Name() string { return "rk45" }

// Step takes a single step of size dt and ignores the error estimate.
func (e *Embedded) Step(sys dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	return combine(x, dt, e.tb.b, e.tb.stages(sys, x, u, t, dt))
}

func (e *Embedded) StepAdaptive(sys dynamo.System, x dynamo.State, u dynamo.Control, t, dt, tol float64) (dynamo.State, float64, error) {
	k := e.tb.stages(sys, x, u, t, dt)
	next := combine(x, dt, e.tb.b, k)

	// mixed absolute/relative error norm
	ratio := 0.0
	for n := range x {
		est := 0.0
		for i, w := range e.errw {
			est += w * k[i][n]
		}
		scale := math.Abs(x[n]) + math.Abs(dt*k[0][n]) + 1e-10
		ratio = math.Max(ratio, math.Abs(dt*est)/scale)
	}
	ratio /= tol

	if ratio > 1 {
		f := math.Max(e.minScale, e.safety*math.Pow(ratio, -1/e.order))
		return next, dt * f, dynamo.ErrStepRejected
	}
	if ratio == 0 {
		return next, dt * e.maxScale, nil
	}
	f := math.Min(e.maxScale, e.safety*math.Pow(ratio, -1/(e.order+1)))
	return next, dt * f, nil
}
