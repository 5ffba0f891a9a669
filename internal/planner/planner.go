// Package planner runs the refinement loop that turns a control problem into
// a feed-forward trajectory: build splines and the collocation system, solve
// it, check the result, and refine the splines until the checks pass.
package planner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/san-kum/trajgen/internal/chains"
	"github.com/san-kum/trajgen/internal/collocation"
	"github.com/san-kum/trajgen/internal/dynamo"
	"github.com/san-kum/trajgen/internal/solver"
	"github.com/san-kum/trajgen/internal/trajectory"
)

type Option func(*Planner)

// WithLogger sets the logger for phase transitions and iteration events.
func WithLogger(log *zap.Logger) Option {
	return func(p *Planner) {
		if log != nil {
			p.log = log
		}
	}
}

// Planner holds a validated problem with its compiled vector field. A
// Planner is not safe for concurrent use; Solve may be called repeatedly and
// always starts from scratch.
type Planner struct {
	problem Problem
	cfg     Config
	log     *zap.Logger

	field    *collocation.Field
	chains   []chains.Chain
	eqs      []int
	nodeKind string
	phase    Phase
}

func New(problem Problem, cfg Config, opts ...Option) (*Planner, error) {
	if err := multierr.Combine(problem.Validate(), cfg.Validate()); err != nil {
		return nil, err
	}

	p := &Planner{
		problem: problem,
		cfg:     cfg,
		log:     zap.NewNop(),
		phase:   PhaseInit,
	}
	for _, opt := range opts {
		opt(p)
	}
	if problem.Name != "" {
		p.log = p.log.With(zap.String("problem", problem.Name))
	}

	var known bool
	if p.nodeKind, known = collocation.NodeKind(cfg.NodeType); !known {
		p.log.Warn("unknown collocation node type, using equidistant nodes",
			zap.String("node_type", cfg.NodeType))
	}

	f, states, inputs, err := problem.vectorField()
	if err != nil {
		return nil, err
	}
	p.field, err = collocation.NewField(f, states, inputs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrInvalidProblem, err)
	}
	if cfg.UseChains {
		p.chains = chains.Find(f, states, inputs)
	}
	p.eqs = chains.Equations(p.chains, states)

	chainNames := make([]string, len(p.chains))
	for i, c := range p.chains {
		chainNames[i] = c.String()
	}
	p.log.Debug("planner initialized",
		zap.Int("states", len(states)),
		zap.Int("inputs", len(inputs)),
		zap.Strings("chains", chainNames),
		zap.Ints("equations", p.eqs))
	return p, nil
}

func (p *Planner) Phase() Phase           { return p.phase }
func (p *Planner) Chains() []chains.Chain { return p.chains }
func (p *Planner) Equations() []int       { return p.eqs }
func (p *Planner) Config() Config         { return p.cfg }

func (p *Planner) transition(to Phase) {
	p.log.Debug("phase", zap.Stringer("from", p.phase), zap.Stringer("to", to))
	p.phase = to
}

// Solve runs BUILD → SOLVE → CHECK and refines until the checks pass or the
// refinement budget is spent. On failure the result describes the best
// iteration and the error is a *RefinementError. The context is checked
// between phases and between solver iterations.
func (p *Planner) Solve(ctx context.Context) (*Result, error) {
	start := time.Now()
	p.phase = PhaseInit

	layout := trajectory.Layout{
		SegmentsX:     p.cfg.SegmentsX,
		SegmentsU:     p.cfg.SegmentsU,
		Degree:        p.cfg.Degree,
		StandardNodes: true,
	}
	bc := trajectory.Boundary{XA: p.problem.XA, XB: p.problem.XB, UA: p.problem.UA, UB: p.problem.UB}
	states, inputs := p.field.States, p.field.Inputs

	var prev *trajectory.Set
	var best *Result
	iterations := 0
	lastStatus := solver.MaxIterations

	for refinement := 0; ; refinement++ {
		if err := ctx.Err(); err != nil {
			return best, fmt.Errorf("%w: %v", dynamo.ErrContextCanceled, err)
		}

		p.transition(PhaseBuild)
		set, err := trajectory.New(p.problem.A, p.problem.B, states, inputs, p.chains, bc, layout)
		if err != nil {
			p.transition(PhaseFailed)
			return best, err
		}
		nodes := collocation.Nodes(p.problem.A, p.problem.B, layout.SegmentsX*p.cfg.Delta+1, p.nodeKind, p.log)
		sys, err := collocation.Build(p.field, set, nodes, p.eqs, p.cfg.UseSparse)
		if err != nil {
			p.transition(PhaseFailed)
			return best, err
		}
		guess, err := collocation.Guess(prev, set, p.cfg.UseFastInterpolation)
		if err != nil {
			p.transition(PhaseFailed)
			return best, err
		}
		rows, cols := sys.Dims()
		p.log.Debug("collocation system built",
			zap.Int("segments_x", layout.SegmentsX),
			zap.Int("segments_u", layout.SegmentsU),
			zap.Int("nodes", len(nodes)),
			zap.Int("equations", rows),
			zap.Int("unknowns", cols))

		p.transition(PhaseSolve)
		method, _ := solver.MethodByName(p.cfg.Method)
		sr, err := solver.Solve(ctx, sys, method, guess, solver.Options{
			Tolerance:     p.cfg.Tolerance,
			MaxIterations: p.cfg.MaxSolverIterations,
			RelTol:        solver.DefaultOptions().RelTol,
			MaxRejections: solver.DefaultOptions().MaxRejections,
			Log:           p.log,
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return best, fmt.Errorf("%w: %v", dynamo.ErrContextCanceled, ctxErr)
			}
			p.transition(PhaseFailed)
			return best, fmt.Errorf("solve with %d segments: %w", layout.SegmentsX, err)
		}
		iterations += sr.Iterations
		lastStatus = sr.Status
		if err := set.SetCoefficients(sr.X); err != nil {
			p.transition(PhaseFailed)
			return best, err
		}

		p.transition(PhaseCheck)
		checks, err := p.check(ctx, set, sr)
		if err != nil && ctx.Err() != nil {
			return best, fmt.Errorf("%w: %v", dynamo.ErrContextCanceled, ctx.Err())
		}
		p.log.Info("iteration finished",
			zap.Int("refinement", refinement),
			zap.Int("segments_x", layout.SegmentsX),
			zap.Stringer("solver_status", sr.Status),
			zap.Int("solver_iterations", sr.Iterations),
			zap.Float64("residual", sr.Residual),
			zap.Float64("collocation_error", checks.CollocationError),
			zap.Float64("simulation_error", checks.SimulationError),
			zap.Bool("passed", checks.Passed))

		res := &Result{
			Problem:          p.problem.Name,
			Residual:         sr.Residual,
			Refinements:      refinement,
			SolverIterations: iterations,
			SegmentsX:        layout.SegmentsX,
			SegmentsU:        layout.SegmentsU,
			Coefficients:     append([]float64(nil), sr.X...),
			Trajectory:       set,
			Chains:           p.chains,
			Checks:           checks,
		}
		if best == nil || betterThan(res, best) {
			best = res
		}
		best.SolverIterations = iterations
		best.Duration = time.Since(start)

		if checks.Passed {
			p.transition(PhaseDone)
			res.Success = true
			res.Phase = PhaseDone
			res.Duration = time.Since(start)
			return res, nil
		}
		if refinement >= p.cfg.MaxRefinements {
			p.transition(PhaseFailed)
			best.Phase = PhaseFailed
			return best, &RefinementError{
				Refinements: refinement,
				Iterations:  iterations,
				Residual:    best.Residual,
				Status:      lastStatus,
			}
		}

		p.transition(PhaseRefine)
		prev = set
		layout.SegmentsX *= p.cfg.RefinementFactor
		layout.SegmentsU *= p.cfg.RefinementFactor
		p.log.Info("refining splines",
			zap.Int("segments_x", layout.SegmentsX),
			zap.Int("segments_u", layout.SegmentsU))
	}
}

func (p *Planner) check(ctx context.Context, set *trajectory.Set, sr *solver.Result) (Checks, error) {
	c := Checks{SolverStatus: sr.Status.String()}
	c.BoundaryError = p.boundaryError(set)
	passed := sr.Converged() && c.BoundaryError <= boundaryTol

	if p.cfg.ErrorTolerance > 0 {
		c.CollocationError = p.collocationError(set)
		passed = passed && c.CollocationError <= p.cfg.ErrorTolerance
	}

	var simErr error
	if p.cfg.SimTolerance > 0 && passed {
		c.SimulationError, simErr = p.simulationError(ctx, set)
		if simErr != nil {
			p.log.Debug("verification simulation failed", zap.Error(simErr))
		}
		passed = passed && simErr == nil && c.SimulationError <= p.cfg.SimTolerance
	}
	c.Passed = passed
	return c, simErr
}

// betterThan prefers passing checks, then a smaller residual.
func betterThan(a, b *Result) bool {
	if a.Checks.Passed != b.Checks.Passed {
		return a.Checks.Passed
	}
	ra, rb := a.Residual, b.Residual
	if math.IsNaN(rb) {
		return !math.IsNaN(ra)
	}
	return ra < rb
}

// IsNotConverged reports whether err means the refinement budget was spent.
func IsNotConverged(err error) bool {
	return errors.Is(err, dynamo.ErrNotConverged)
}
