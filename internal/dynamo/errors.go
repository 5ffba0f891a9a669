package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors shared by the planner and the verification simulation.
var (
	// ErrInvalidState indicates a state vector containing NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrContextCanceled indicates a run was interrupted.
	ErrContextCanceled = errors.New("dynamo: run canceled by context")

	// ErrStepRejected is returned by adaptive integrators when the error
	// estimate exceeds the tolerance; the returned step is the retry size.
	ErrStepRejected = errors.New("dynamo: adaptive step rejected")

	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")

	// ErrDimensionMismatch indicates boundary vectors or equations that do
	// not match the number of states and inputs.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrInvalidProblem indicates a structurally unusable control problem.
	ErrInvalidProblem = errors.New("dynamo: invalid control problem")

	// ErrInvalidConfig indicates an unusable planner configuration.
	ErrInvalidConfig = errors.New("dynamo: invalid configuration")

	// ErrNotConverged indicates that no refinement produced a trajectory
	// within tolerance.
	ErrNotConverged = errors.New("dynamo: trajectory did not converge")
)

// SimulationError locates a failed simulation step.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
