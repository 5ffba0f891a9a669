package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/trajgen/internal/dynamo"
)

type harmonicOscillator struct{}

func (h *harmonicOscillator) StateDim() int   { return 2 }
func (h *harmonicOscillator) ControlDim() int { return 0 }

func (h *harmonicOscillator) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

// drivenIntegrator is ẋ = u(t) with the input evaluated inside the
// derivative, as the feed-forward replay does.
type drivenIntegrator struct{}

func (d *drivenIntegrator) StateDim() int   { return 1 }
func (d *drivenIntegrator) ControlDim() int { return 1 }

func (d *drivenIntegrator) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{math.Cos(t)}
}

func integrate(integ dynamo.Integrator, dyn dynamo.System, x dynamo.State, dt float64, steps int) dynamo.State {
	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, nil, float64(i)*dt, dt)
	}
	return x
}

func TestAccuracy(t *testing.T) {
	tests := []struct {
		name string
		tol  float64
	}{
		{"euler", 1e-1},
		{"rk4", 1e-6},
		{"rk45", 1e-6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			integ, err := ByName(tt.name)
			if err != nil {
				t.Fatal(err)
			}
			x := integrate(integ, &harmonicOscillator{}, dynamo.State{1, 0}, 0.01, 100)
			if math.Abs(x[0]-math.Cos(1)) > tt.tol || math.Abs(x[1]+math.Sin(1)) > tt.tol {
				t.Errorf("expected [%.6f %.6f], got %v", math.Cos(1), -math.Sin(1), x)
			}

			integ, _ = ByName(tt.name)
			x = integrate(integ, &drivenIntegrator{}, dynamo.State{0}, 0.01, 100)
			if math.Abs(x[0]-math.Sin(1)) > tt.tol {
				t.Errorf("driven: expected %.6f, got %.6f", math.Sin(1), x[0])
			}
		})
	}
}

func TestRK45RejectsLargeSteps(t *testing.T) {
	integ := NewRK45()
	dyn := &harmonicOscillator{}

	_, next, err := integ.StepAdaptive(dyn, dynamo.State{1, 0}, nil, 0, 2.0, 1e-10)
	if !errors.Is(err, dynamo.ErrStepRejected) {
		t.Fatalf("expected ErrStepRejected, got %v", err)
	}
	if next >= 2.0 || next <= 0 {
		t.Errorf("expected a smaller retry step, got %f", next)
	}

	x, next, err := integ.StepAdaptive(dyn, dynamo.State{1, 0}, nil, 0, 1e-3, 1e-6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !x.IsValid() || next <= 0 {
		t.Errorf("invalid accepted step: x=%v next=%f", x, next)
	}
}

func TestTableauConsistency(t *testing.T) {
	for name, tb := range map[string]tableau{"euler": eulerTableau, "rk4": rk4Tableau, "dopri": dopri} {
		sum := 0.0
		for _, b := range tb.b {
			sum += b
		}
		if math.Abs(sum-1) > 1e-12 {
			t.Errorf("%s: weights sum to %v", name, sum)
		}
		for i, row := range tb.a {
			ci := 0.0
			for _, a := range row {
				ci += a
			}
			if math.Abs(ci-tb.c[i]) > 1e-12 {
				t.Errorf("%s: row %d sums to %v, node is %v", name, i, ci, tb.c[i])
			}
		}
	}
	low := 0.0
	for _, w := range dopriLow {
		low += w
	}
	if math.Abs(low-1) > 1e-12 {
		t.Errorf("embedded weights sum to %v", low)
	}
}

func TestByNameUnknown(t *testing.T) {
	if _, err := ByName("verlet"); err == nil {
		t.Error("expected error for unknown integrator")
	}
	if len(Names()) != 3 {
		t.Errorf("expected 3 integrators, got %v", Names())
	}
}

func BenchmarkRK4(b *testing.B) {
	integ := NewRK4()
	x := dynamo.State{1, 0}
	for i := 0; i < b.N; i++ {
		x = integ.Step(&harmonicOscillator{}, x, nil, 0, 0.01)
	}
}
