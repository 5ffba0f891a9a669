package dynamo

import "math"

// State is a state vector in the canonical order of a problem's states.
type State []float64

// Control is an input vector in the canonical order of a problem's inputs.
type Control []float64

func (s State) Clone() State {
	return append(State(nil), s...)
}

// IsValid reports whether every component is finite.
func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// MaxAbsDiff returns the largest componentwise distance to other over the
// shared components.
func (s State) MaxAbsDiff(other State) float64 {
	m := 0.0
	for i := 0; i < len(s) && i < len(other); i++ {
		m = math.Max(m, math.Abs(s[i]-other[i]))
	}
	return m
}

// Axpy returns s + a·d.
func (s State) Axpy(a float64, d State) State {
	out := s.Clone()
	for i := range out {
		out[i] += a * d[i]
	}
	return out
}
