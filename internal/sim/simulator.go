// Package sim integrates a system forward in time under an open-loop input.
// The planner uses it to replay a planned input and compare the reached
// state with the target.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/trajgen/internal/dynamo"
)

type Simulator struct {
	sys     dynamo.System
	integ   dynamo.Integrator
	input   dynamo.Input
	metrics []dynamo.Metric
}

// New returns a simulator for sys driven by input. A nil input is the zero
// input.
func New(sys dynamo.System, integ dynamo.Integrator, input dynamo.Input, metrics ...dynamo.Metric) *Simulator {
	if input == nil {
		zero := make(dynamo.Control, sys.ControlDim())
		input = func(float64) dynamo.Control { return zero }
	}
	return &Simulator{sys: sys, integ: integ, input: input, metrics: metrics}
}

// Run integrates from x0 over [cfg.Start, cfg.Start+cfg.Duration]. Fixed
// step runs shrink Dt slightly so that the last step lands exactly on the
// end time; adaptive runs clip their last step.
func (s *Simulator) Run(ctx context.Context, x0 dynamo.State, cfg dynamo.Config) (*dynamo.Result, error) {
	if err := s.validate(cfg, x0); err != nil {
		return nil, err
	}

	end := cfg.Start + cfg.Duration
	dt := cfg.Dt
	if !cfg.Adaptive {
		dt = cfg.Duration / math.Ceil(cfg.Duration/cfg.Dt-1e-9)
	}
	for _, m := range s.metrics {
		m.Reset()
	}

	res := &dynamo.Result{Metrics: make(map[string]float64)}
	x, t := x0.Clone(), cfg.Start
	record := func(x dynamo.State, t float64) dynamo.Control {
		u := s.input(t)
		for _, m := range s.metrics {
			m.Observe(x, u, t)
		}
		res.Times = append(res.Times, t)
		res.States = append(res.States, x.Clone())
		res.Inputs = append(res.Inputs, u)
		return u
	}

	u := record(x, t)
	for step := 0; end-t > 1e-12*math.Max(1, math.Abs(end)); step++ {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("%w: %v", dynamo.ErrContextCanceled, err)
		}

		h := math.Min(dt, end-t)
		var next dynamo.State
		if cfg.Adaptive {
			var err error
			next, h, dt, err = s.adaptiveStep(x, u, t, h, cfg)
			if err != nil {
				return res, &dynamo.SimulationError{Step: step, Time: t, State: x, Wrapped: err}
			}
		} else {
			next = s.integ.Step(s.sys, x, u, t, h)
		}
		if cfg.ValidateState && !next.IsValid() {
			return res, &dynamo.SimulationError{Step: step, Time: t, State: x, Wrapped: dynamo.ErrInvalidState}
		}

		x, t = next, t+h
		res.StepsTaken++
		u = record(x, t)
	}

	for _, m := range s.metrics {
		res.Metrics[m.Name()] = m.Value()
	}
	return res, nil
}

func (s *Simulator) validate(cfg dynamo.Config, x0 dynamo.State) error {
	switch {
	case cfg.Dt <= 0:
		return fmt.Errorf("dt must be positive, got %g", cfg.Dt)
	case cfg.Duration <= 0:
		return fmt.Errorf("duration must be positive, got %g", cfg.Duration)
	case cfg.Adaptive && cfg.Tolerance <= 0:
		return errors.New("tolerance must be positive for adaptive stepping")
	case len(x0) != s.sys.StateDim():
		return fmt.Errorf("%w: initial state has %d entries, system has %d states",
			dynamo.ErrDimensionMismatch, len(x0), s.sys.StateDim())
	}
	return nil
}

// adaptiveStep returns the new state, the step taken and the next step to
// try. Integrators without an error estimate are controlled by comparing
// one full step against two half steps.
func (s *Simulator) adaptiveStep(x dynamo.State, u dynamo.Control, t, h float64, cfg dynamo.Config) (dynamo.State, float64, float64, error) {
	ai, embedded := s.integ.(dynamo.AdaptiveIntegrator)
	shrink := func(to float64) error {
		if to < cfg.MinDt {
			return dynamo.ErrStepTooSmall
		}
		h = to
		return nil
	}
	for {
		if embedded {
			next, proposal, err := ai.StepAdaptive(s.sys, x, u, t, h, cfg.Tolerance)
			if errors.Is(err, dynamo.ErrStepRejected) {
				if err := shrink(proposal); err != nil {
					return nil, 0, 0, err
				}
				continue
			}
			if err != nil {
				return nil, 0, 0, err
			}
			return next, h, clamp(proposal, cfg), nil
		}

		full := s.integ.Step(s.sys, x, u, t, h)
		half := s.integ.Step(s.sys, x, u, t, h/2)
		fine := s.integ.Step(s.sys, half, u, t+h/2, h/2)
		e := full.MaxAbsDiff(fine)
		if e > cfg.Tolerance {
			if err := shrink(h / 2); err != nil {
				return nil, 0, 0, err
			}
			continue
		}
		proposal := h
		if e < cfg.Tolerance/10 {
			proposal = 2 * h
		}
		return fine, h, clamp(proposal, cfg), nil
	}
}

func clamp(dt float64, cfg dynamo.Config) float64 {
	if cfg.MaxDt > 0 && dt > cfg.MaxDt {
		return cfg.MaxDt
	}
	return dt
}
