// Package solver finds roots of overdetermined or square nonlinear systems
// F(x) = 0 in the least squares sense with a pluggable step method.
package solver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrUnknownMethod = errors.New("solver: unknown method")
	ErrSingular      = errors.New("solver: step system is singular")
)

// Problem is a residual function together with its Jacobian.
type Problem interface {
	G(x []float64) ([]float64, error)
	DG(x []float64) (mat.Matrix, error)
}

// Method computes a step s for the linearization F + J·s ≈ 0.
type Method interface {
	Name() string
	Step(jac mat.Matrix, res []float64) ([]float64, error)
}

// Damped is a Method whose step depends on an internal damping parameter
// that is adapted from the ratio of actual to predicted reduction.
type Damped interface {
	Method
	// Adapt updates the damping and reports whether a step with the given
	// ratio is accepted.
	Adapt(rho float64) bool
	Reset()
}

type Status int

const (
	Converged Status = iota
	MaxIterations
	Stagnated
	Degenerate
)

func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case MaxIterations:
		return "max-iterations"
	case Stagnated:
		return "stagnated"
	case Degenerate:
		return "degenerate"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

type Options struct {
	Tolerance     float64
	MaxIterations int
	// RelTol stops the iteration when the residual norm changes by less
	// than RelTol times its previous value.
	RelTol float64
	// MaxRejections bounds the consecutive rejected trial steps of a damped
	// method.
	MaxRejections int
	Log           *zap.Logger
}

func DefaultOptions() Options {
	return Options{
		Tolerance:     1e-5,
		MaxIterations: 100,
		RelTol:        1e-6,
		MaxRejections: 50,
	}
}

type Result struct {
	X          []float64
	Residual   float64
	Iterations int
	Status     Status
}

func (r *Result) Converged() bool { return r.Status == Converged }

// MethodByName returns a fresh method instance.
func MethodByName(name string) (Method, error) {
	switch name {
	case "newton":
		return NewNewton(), nil
	case "leven", "levenberg-marquardt", "lm":
		return NewLevenbergMarquardt(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
}

// Solve iterates from x0 until ‖F‖ drops below the tolerance, the iteration
// budget is spent, or progress stalls. Without unknowns there is nothing to
// step and a residual above the tolerance is reported as Degenerate. The returned result always holds the
// best point seen. An error is returned only when F or its Jacobian cannot be
// evaluated at x0 or ctx is done.
func Solve(ctx context.Context, p Problem, m Method, x0 []float64, opts Options) (*Result, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxRejections <= 0 {
		opts.MaxRejections = DefaultOptions().MaxRejections
	}
	if d, ok := m.(Damped); ok {
		d.Reset()
	}

	x := append([]float64(nil), x0...)
	f, err := p.G(x)
	if err != nil {
		return nil, fmt.Errorf("solver: residual at initial guess: %w", err)
	}
	norm := floats.Norm(f, 2)
	res := &Result{X: append([]float64(nil), x...), Residual: norm, Status: MaxIterations}

	for k := 0; ; k++ {
		if norm <= opts.Tolerance {
			res.Status = Converged
			break
		}
		if k >= opts.MaxIterations {
			res.Status = MaxIterations
			break
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if len(x) == 0 {
			res.Status = Degenerate
			break
		}

		jac, err := p.DG(x)
		if err != nil {
			log.Debug("jacobian evaluation failed", zap.Error(err))
			res.Status = Degenerate
			break
		}

		xn, fn, ok := advance(p, m, jac, x, f, norm, opts, log)
		res.Iterations = k + 1
		if !ok {
			res.Status = Degenerate
			break
		}

		prev := norm
		x, f, norm = xn, fn, floats.Norm(fn, 2)
		if norm < res.Residual {
			res.X = append(res.X[:0], x...)
			res.Residual = norm
		}
		log.Debug("solver iteration",
			zap.String("method", m.Name()),
			zap.Int("iteration", k+1),
			zap.Float64("residual", norm))

		if norm > opts.Tolerance && math.Abs(prev-norm) < opts.RelTol*prev {
			res.Status = Stagnated
			break
		}
	}
	return res, nil
}

// advance computes one accepted step. Damped methods retry with adapted
// damping until the trial point reduces the residual sufficiently.
func advance(p Problem, m Method, jac mat.Matrix, x, f []float64, norm float64, opts Options, log *zap.Logger) ([]float64, []float64, bool) {
	damped, isDamped := m.(Damped)
	for tries := 0; ; tries++ {
		if isDamped && tries > opts.MaxRejections {
			return nil, nil, false
		}
		s, err := m.Step(jac, f)
		if err != nil {
			if isDamped {
				damped.Adapt(math.Inf(-1))
				continue
			}
			log.Debug("step failed", zap.Error(err))
			return nil, nil, false
		}

		xn := make([]float64, len(x))
		floats.AddTo(xn, x, s)
		fn, err := p.G(xn)
		if !isDamped {
			if err != nil {
				return nil, nil, false
			}
			return xn, fn, true
		}

		rho := math.Inf(-1)
		if err == nil {
			rho = ratio(jac, f, s, fn, norm)
		}
		if damped.Adapt(rho) {
			return xn, fn, true
		}
	}
}

// ratio returns (‖F‖² − ‖F(x+s)‖²) / (‖F‖² − ‖F + J·s‖²).
func ratio(jac mat.Matrix, f, s, fn []float64, norm float64) float64 {
	lin := mulVec(jac, s)
	floats.Add(lin, f)
	actual := norm*norm - floats.Dot(fn, fn)
	predicted := norm*norm - floats.Dot(lin, lin)
	if predicted == 0 {
		if actual >= 0 {
			return 1
		}
		return math.Inf(-1)
	}
	return actual / predicted
}
