package dynamo

import (
	"errors"
	"math"
	"testing"
)

func TestStateIsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"finite", State{1, -2, 3}, true},
		{"nan", State{1, math.NaN()}, false},
		{"inf", State{math.Inf(-1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestStateArithmetic(t *testing.T) {
	a := State{1, 2, 3}

	got := a.Axpy(0.5, State{2, 4, -2})
	if got[0] != 2 || got[1] != 4 || got[2] != 2 {
		t.Errorf("Axpy = %v, want [2 4 2]", got)
	}
	if a[0] != 1 {
		t.Error("Axpy modified its receiver")
	}
	if d := a.MaxAbsDiff(State{1, 0, 3.5}); d != 2 {
		t.Errorf("MaxAbsDiff = %v, want 2", d)
	}
	if d := a.MaxAbsDiff(State{1}); d != 0 {
		t.Errorf("MaxAbsDiff over shared prefix = %v, want 0", d)
	}
}

func TestSimulationError(t *testing.T) {
	err := &SimulationError{Time: 1.5, Step: 150, Wrapped: ErrInvalidState}
	want := "step 150 (t=1.5000): dynamo: invalid state (NaN or Inf detected)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrInvalidState) {
		t.Error("expected errors.Is to match the wrapped error")
	}
}

func TestResultFinal(t *testing.T) {
	r := &Result{}
	if r.Final() != nil {
		t.Error("expected nil final state for an empty result")
	}
	r.States = []State{{0}, {1}}
	if r.Final()[0] != 1 {
		t.Errorf("final = %v, want [1]", r.Final())
	}
}
