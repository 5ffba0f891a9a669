package linalg

import "sort"

// Accumulator sums scaled sparse rows into a single sparse row without
// touching the full width on every flush.
type Accumulator struct {
	vals    []float64
	touched []bool
	idx     []int
}

func NewAccumulator(width int) *Accumulator {
	return &Accumulator{
		vals:    make([]float64, width),
		touched: make([]bool, width),
	}
}

// AddScaled adds s·row to the accumulated row.
func (a *Accumulator) AddScaled(cols []int, vals []float64, s float64) {
	if s == 0 {
		return
	}
	for k, c := range cols {
		if !a.touched[c] {
			a.touched[c] = true
			a.idx = append(a.idx, c)
		}
		a.vals[c] += s * vals[k]
	}
}

// Flush returns the accumulated row with increasing column indices and
// resets the accumulator. The returned slices are freshly allocated.
func (a *Accumulator) Flush() ([]int, []float64) {
	sort.Ints(a.idx)
	cols := make([]int, len(a.idx))
	vals := make([]float64, len(a.idx))
	for k, c := range a.idx {
		cols[k] = c
		vals[k] = a.vals[c]
		a.vals[c] = 0
		a.touched[c] = false
	}
	a.idx = a.idx[:0]
	return cols, vals
}
