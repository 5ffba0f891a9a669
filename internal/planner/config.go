package planner

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/san-kum/trajgen/internal/dynamo"
	"github.com/san-kum/trajgen/internal/integrators"
	"github.com/san-kum/trajgen/internal/solver"
)

// Config controls discretization, solving and the acceptance checks.
type Config struct {
	SegmentsX            int     `yaml:"segments_x" json:"segments_x"`
	SegmentsU            int     `yaml:"segments_u" json:"segments_u"`
	Degree               int     `yaml:"degree" json:"degree"`
	Delta                int     `yaml:"delta" json:"delta"`
	RefinementFactor     int     `yaml:"refinement_factor" json:"refinement_factor"`
	NodeType             string  `yaml:"node_type" json:"node_type"`
	UseSparse            bool    `yaml:"use_sparse" json:"use_sparse"`
	UseChains            bool    `yaml:"use_chains" json:"use_chains"`
	UseFastInterpolation bool    `yaml:"use_fast_interpolation" json:"use_fast_interpolation"`
	Tolerance            float64 `yaml:"tolerance" json:"tolerance"`
	MaxSolverIterations  int     `yaml:"max_solver_iterations" json:"max_solver_iterations"`
	Method               string  `yaml:"method" json:"method"`
	MaxRefinements       int     `yaml:"max_refinements" json:"max_refinements"`

	// ErrorTolerance bounds |f(x,u) − ẋ| between the nodes. Zero disables
	// the check.
	ErrorTolerance float64 `yaml:"error_tolerance" json:"error_tolerance"`
	// SimTolerance bounds the distance between the state reached by
	// replaying the input and the target state. Zero disables the check.
	SimTolerance  float64 `yaml:"sim_tolerance" json:"sim_tolerance"`
	SimStep       float64 `yaml:"sim_step" json:"sim_step"`
	SimIntegrator string  `yaml:"sim_integrator" json:"sim_integrator"`
}

func DefaultConfig() Config {
	return Config{
		SegmentsX:            5,
		SegmentsU:            5,
		Degree:               3,
		Delta:                2,
		RefinementFactor:     2,
		NodeType:             "equidistant",
		UseSparse:            true,
		UseChains:            true,
		UseFastInterpolation: true,
		Tolerance:            1e-5,
		MaxSolverIterations:  100,
		Method:               "leven",
		MaxRefinements:       6,
		ErrorTolerance:       1e-1,
		SimTolerance:         1e-2,
		SimStep:              0,
		SimIntegrator:        "rk4",
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("%w: "+format, append([]any{dynamo.ErrInvalidConfig}, args...)...))
		}
	}

	check(c.SegmentsX >= 1, "segments_x must be at least 1, got %d", c.SegmentsX)
	check(c.SegmentsU >= 1, "segments_u must be at least 1, got %d", c.SegmentsU)
	check(c.Degree >= 1, "degree must be at least 1, got %d", c.Degree)
	check(c.Delta >= 1, "delta must be at least 1, got %d", c.Delta)
	check(c.RefinementFactor >= 2, "refinement_factor must be at least 2, got %d", c.RefinementFactor)
	check(c.Tolerance > 0, "tolerance must be positive, got %g", c.Tolerance)
	check(c.MaxSolverIterations >= 1, "max_solver_iterations must be at least 1, got %d", c.MaxSolverIterations)
	check(c.MaxRefinements >= 0, "max_refinements must not be negative, got %d", c.MaxRefinements)
	check(c.ErrorTolerance >= 0, "error_tolerance must not be negative, got %g", c.ErrorTolerance)
	check(c.SimTolerance >= 0, "sim_tolerance must not be negative, got %g", c.SimTolerance)
	check(c.SimStep >= 0, "sim_step must not be negative, got %g", c.SimStep)

	if _, err := solver.MethodByName(c.Method); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("%w: %v", dynamo.ErrInvalidConfig, err))
	}
	if c.SimTolerance > 0 {
		if _, err := integrators.ByName(c.SimIntegrator); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%w: %v", dynamo.ErrInvalidConfig, err))
		}
	}
	return errs
}
