package sim

import (
	"context"

	"github.com/san-kum/trajgen/internal/dynamo"
)

// feedForward evaluates the input inside the derivative so that
// integrators sample it at their own stage times instead of holding it
// over a step.
type feedForward struct {
	dynamo.System
	input dynamo.Input
}

func (f feedForward) Derive(x dynamo.State, _ dynamo.Control, t float64) dynamo.State {
	return f.System.Derive(x, f.input(t), t)
}

// RunOpenLoop integrates sys from x0 under input and observes metrics at
// every accepted step.
func RunOpenLoop(ctx context.Context, sys dynamo.System, input dynamo.Input, integ dynamo.Integrator, x0 dynamo.State, cfg dynamo.Config, metrics ...dynamo.Metric) (*dynamo.Result, error) {
	return New(feedForward{System: sys, input: input}, integ, input, metrics...).Run(ctx, x0, cfg)
}
