// Package metrics measures the planned input and the replayed state during
// an open-loop verification run.
package metrics

import (
	"math"

	"github.com/san-kum/trajgen/internal/dynamo"
)

// integral accumulates ∫ g dt with the trapezoidal rule over irregular
// sample times.
type integral struct {
	sum   float64
	lastT float64
	lastG float64
	seen  bool
}

func (in *integral) add(t, g float64) {
	if in.seen {
		in.sum += 0.5 * (g + in.lastG) * (t - in.lastT)
	}
	in.lastT, in.lastG, in.seen = t, g, true
}

func (in *integral) reset() { *in = integral{} }

// InputEnergy is ∫ ‖u(t)‖² dt.
type InputEnergy struct{ in integral }

func NewInputEnergy() *InputEnergy { return &InputEnergy{} }

func (e *InputEnergy) Name() string { return "input_energy" }

func (e *InputEnergy) Observe(_ dynamo.State, u dynamo.Control, t float64) {
	sq := 0.0
	for _, v := range u {
		sq += v * v
	}
	e.in.add(t, sq)
}

func (e *InputEnergy) Value() float64 { return e.in.sum }
func (e *InputEnergy) Reset()         { e.in.reset() }

// InputEffort is ∫ Σ|u_i(t)| dt, the L1 effort of the input.
type InputEffort struct{ in integral }

func NewInputEffort() *InputEffort { return &InputEffort{} }

func (e *InputEffort) Name() string { return "input_effort" }

func (e *InputEffort) Observe(_ dynamo.State, u dynamo.Control, t float64) {
	s := 0.0
	for _, v := range u {
		s += math.Abs(v)
	}
	e.in.add(t, s)
}

func (e *InputEffort) Value() float64 { return e.in.sum }
func (e *InputEffort) Reset()         { e.in.reset() }

// PeakInput is the largest absolute input component.
type PeakInput struct{ peak float64 }

func NewPeakInput() *PeakInput { return &PeakInput{} }

func (p *PeakInput) Name() string { return "peak_input" }

func (p *PeakInput) Observe(_ dynamo.State, u dynamo.Control, _ float64) {
	for _, v := range u {
		p.peak = math.Max(p.peak, math.Abs(v))
	}
}

func (p *PeakInput) Value() float64 { return p.peak }
func (p *PeakInput) Reset()         { p.peak = 0 }

// WithinBound is the fraction of samples whose state stays inside
// [-bound, bound] in every component. An empty run counts as bounded.
type WithinBound struct {
	bound   float64
	outside int
	samples int
}

func NewWithinBound(bound float64) *WithinBound { return &WithinBound{bound: bound} }

func (w *WithinBound) Name() string { return "within_bound" }

func (w *WithinBound) Observe(x dynamo.State, _ dynamo.Control, _ float64) {
	w.samples++
	for _, v := range x {
		if math.Abs(v) > w.bound || math.IsNaN(v) {
			w.outside++
			return
		}
	}
}

func (w *WithinBound) Value() float64 {
	if w.samples == 0 {
		return 1
	}
	return 1 - float64(w.outside)/float64(w.samples)
}

func (w *WithinBound) Reset() { w.outside, w.samples = 0, 0 }
