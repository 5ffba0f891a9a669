package planner

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/trajgen/internal/collocation"
	"github.com/san-kum/trajgen/internal/dynamo"
	"github.com/san-kum/trajgen/internal/integrators"
	"github.com/san-kum/trajgen/internal/sim"
	"github.com/san-kum/trajgen/internal/trajectory"
)

// boundaryTol bounds the boundary mismatch. The conditions are built into
// the splines, so anything above round-off indicates a broken elimination.
const boundaryTol = 1e-6

// errorGridPoints is the number of sample points of the collocation error
// check.
const errorGridPoints = 1000

// fieldSystem exposes a compiled vector field as a dynamo.System.
type fieldSystem struct {
	field *collocation.Field
}

func (f fieldSystem) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return f.field.Eval(x, u)
}

func (f fieldSystem) StateDim() int   { return len(f.field.States) }
func (f fieldSystem) ControlDim() int { return len(f.field.Inputs) }

func (p *Planner) boundaryError(set *trajectory.Set) float64 {
	worst := 0.0
	cmp := func(got []float64, want []float64) {
		for i := range want {
			worst = math.Max(worst, math.Abs(got[i]-want[i]))
		}
	}
	xa, _ := set.X(p.problem.A)
	xb, _ := set.X(p.problem.B)
	cmp(xa, p.problem.XA)
	cmp(xb, p.problem.XB)
	if p.problem.UA != nil {
		ua, _ := set.U(p.problem.A)
		cmp(ua, p.problem.UA)
	}
	if p.problem.UB != nil {
		ub, _ := set.U(p.problem.B)
		cmp(ub, p.problem.UB)
	}
	return worst
}

// collocationError is the largest defect |f(x,u) − ẋ| over a fine grid on
// the retained equations.
func (p *Planner) collocationError(set *trajectory.Set) float64 {
	worst := 0.0
	for _, t := range floats.Span(make([]float64, errorGridPoints), p.problem.A, p.problem.B) {
		x, err := set.X(t)
		if err != nil {
			return math.Inf(1)
		}
		u, _ := set.U(t)
		dx, _ := set.DX(t)
		f := p.field.Eval(x, u)
		for _, e := range p.eqs {
			d := math.Abs(f[e] - dx[e])
			if math.IsNaN(d) {
				return math.Inf(1)
			}
			worst = math.Max(worst, d)
		}
	}
	return worst
}

// simulationError replays the planned input open loop from XA and returns
// the distance of the final state to XB.
func (p *Planner) simulationError(ctx context.Context, set *trajectory.Set) (float64, error) {
	res, err := p.simulate(ctx, set)
	if err != nil {
		return math.Inf(1), err
	}
	return res.Final().MaxAbsDiff(p.problem.XB), nil
}

// Replay simulates the system under the planned input of res with the
// configured verification integrator, observing the given metrics.
func (p *Planner) Replay(ctx context.Context, res *Result, metrics ...dynamo.Metric) (*dynamo.Result, error) {
	if res == nil || res.Trajectory == nil || !res.Trajectory.HasCoefficients() {
		return nil, fmt.Errorf("planner: result has no trajectory")
	}
	return p.simulate(ctx, res.Trajectory, metrics...)
}

func (p *Planner) simulate(ctx context.Context, set *trajectory.Set, metrics ...dynamo.Metric) (*dynamo.Result, error) {
	integ, err := integrators.ByName(p.cfg.SimIntegrator)
	if err != nil {
		return nil, err
	}
	span := p.problem.B - p.problem.A
	step := p.cfg.SimStep
	if step <= 0 {
		step = span / 1000
	}
	_, adaptive := integ.(dynamo.AdaptiveIntegrator)
	input := func(t float64) dynamo.Control {
		u, err := set.U(t)
		if err != nil {
			return make(dynamo.Control, p.problem.Inputs)
		}
		return u
	}
	cfg := dynamo.Config{
		Dt:            step,
		Start:         p.problem.A,
		Duration:      span,
		Tolerance:     1e-8,
		MinDt:         1e-10,
		MaxDt:         span / 10,
		Adaptive:      adaptive,
		ValidateState: true,
	}
	return sim.RunOpenLoop(ctx, fieldSystem{p.field}, input, integ, dynamo.State(p.problem.XA).Clone(), cfg, metrics...)
}
