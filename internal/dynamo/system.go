package dynamo

// System is an ODE ẋ = f(x, u, t).
type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(sys System, x State, u Control, t, dt float64) State
}

// AdaptiveIntegrator takes steps with an embedded error estimate. A step
// whose error exceeds tol returns ErrStepRejected together with the step
// size to retry with; an accepted step returns the proposed next size.
type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(sys System, x State, u Control, t, dt, tol float64) (State, float64, error)
}

// Input is an open-loop input signal.
type Input func(t float64) Control

// Metric accumulates a scalar over the samples of a run.
type Metric interface {
	Name() string
	Observe(x State, u Control, t float64)
	Value() float64
	Reset()
}

// Config controls a simulation run over [Start, Start+Duration].
type Config struct {
	Dt            float64
	Start         float64
	Duration      float64
	Tolerance     float64
	MaxDt         float64
	MinDt         float64
	Adaptive      bool
	ValidateState bool
}

type Result struct {
	Times      []float64
	States     []State
	Inputs     []Control
	Metrics    map[string]float64
	StepsTaken int
}

// Final returns the last state of the run.
func (r *Result) Final() State {
	if len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}
