package planner

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/trajgen/internal/chains"
	"github.com/san-kum/trajgen/internal/dynamo"
	"github.com/san-kum/trajgen/internal/solver"
	"github.com/san-kum/trajgen/internal/trajectory"
)

type Phase int

const (
	PhaseInit Phase = iota
	PhaseBuild
	PhaseSolve
	PhaseCheck
	PhaseRefine
	PhaseDone
	PhaseFailed
)

var phaseNames = [...]string{"INIT", "BUILD", "SOLVE", "CHECK", "REFINE", "DONE", "FAILED"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Checks holds the acceptance measures of one iteration. Disabled checks
// are reported as zero.
type Checks struct {
	BoundaryError    float64 `json:"boundary_error"`
	CollocationError float64 `json:"collocation_error"`
	SimulationError  float64 `json:"simulation_error"`
	SolverStatus     string  `json:"solver_status"`
	Passed           bool    `json:"passed"`
}

type Result struct {
	Problem          string
	Success          bool
	Phase            Phase
	Residual         float64
	Refinements      int
	SolverIterations int
	SegmentsX        int
	SegmentsU        int
	Coefficients     []float64
	Trajectory       *trajectory.Set
	Chains           []chains.Chain
	Checks           Checks
	Duration         time.Duration
}

// SimData is the trajectory sampled on an equidistant grid.
type SimData struct {
	Times      []float64
	States     [][]float64
	Inputs     [][]float64
	StateNames []string
	InputNames []string
}

// Sample evaluates the planned trajectory at n equidistant times.
func (r *Result) Sample(n int) (*SimData, error) {
	if r.Trajectory == nil || !r.Trajectory.HasCoefficients() {
		return nil, fmt.Errorf("planner: result has no trajectory")
	}
	if n < 2 {
		n = 2
	}
	set := r.Trajectory
	data := &SimData{
		Times:      floats.Span(make([]float64, n), set.A(), set.B()),
		States:     make([][]float64, n),
		Inputs:     make([][]float64, n),
		StateNames: set.States(),
		InputNames: set.Inputs(),
	}
	for i, t := range data.Times {
		x, err := set.X(t)
		if err != nil {
			return nil, err
		}
		u, err := set.U(t)
		if err != nil {
			return nil, err
		}
		data.States[i], data.Inputs[i] = x, u
	}
	return data, nil
}

// RefinementError reports that no iteration produced an acceptable
// trajectory. It matches dynamo.ErrNotConverged.
type RefinementError struct {
	Refinements int
	Iterations  int
	Residual    float64
	Status      solver.Status
}

func (e *RefinementError) Error() string {
	return fmt.Sprintf("no acceptable trajectory after %d refinements and %d solver iterations (best residual %.3g, last solver status %s)",
		e.Refinements, e.Iterations, e.Residual, e.Status)
}

func (e *RefinementError) Unwrap() error {
	return dynamo.ErrNotConverged
}
