package spline

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// constraints returns the smoothness and boundary equations A·c = r over the
// full coefficient vector.
func (s *Spline) constraints() ([][]float64, []float64) {
	k := s.degree
	n := s.coefficientCount()
	col := func(i, j int) int { return i*(k+1) + j }

	var rows [][]float64
	var rhs []float64

	for i := 0; i+1 < s.segments; i++ {
		for d := 0; d < k; d++ {
			row := make([]float64, n)
			for j := d; j <= k; j++ {
				row[col(i, j)] = falling(j, d) * math.Pow(s.h, float64(j-d))
			}
			row[col(i+1, d)] -= falling(d, d)
			rows = append(rows, row)
			rhs = append(rhs, 0)
		}
	}

	last := s.segments - 1
	for _, c := range s.conds {
		row := make([]float64, n)
		if c.AtEnd {
			for j := c.Order; j <= k; j++ {
				row[col(last, j)] = falling(j, c.Order) * math.Pow(s.h, float64(j-c.Order))
			}
		} else {
			row[col(0, c.Order)] = falling(c.Order, c.Order)
		}
		rows = append(rows, row)
		rhs = append(rhs, c.Value)
	}
	return rows, rhs
}

// preference lists the coefficients in the order they are made dependent:
// all lower-order coefficients first, then the leading coefficients from the
// last segment backwards. Whatever is left over is free.
func (s *Spline) preference() []int {
	k := s.degree
	order := make([]int, 0, s.coefficientCount())
	for i := 0; i < s.segments; i++ {
		for j := 0; j < k; j++ {
			order = append(order, i*(k+1)+j)
		}
	}
	for i := s.segments - 1; i >= 0; i-- {
		order = append(order, i*(k+1)+k)
	}
	return order
}

// eliminate reduces the constraint system to row echelon form and records
// the affine map from free to full coefficients.
func (s *Spline) eliminate() error {
	rows, rhs := s.constraints()
	n := s.coefficientCount()

	used := make([]bool, len(rows))
	pivotRow := make([]int, n)
	for i := range pivotRow {
		pivotRow[i] = -1
	}

	for _, c := range s.preference() {
		best, bestAbs := -1, pivotTol
		for r, row := range rows {
			if used[r] {
				continue
			}
			if v := math.Abs(row[c]); v > bestAbs {
				best, bestAbs = r, v
			}
		}
		if best < 0 {
			continue
		}
		used[best] = true
		pivotRow[c] = best

		prow := rows[best]
		inv := 1 / prow[c]
		for j := range prow {
			prow[j] *= inv
		}
		rhs[best] *= inv
		prow[c] = 1

		for r, row := range rows {
			if r == best {
				continue
			}
			f := row[c]
			if f == 0 {
				continue
			}
			for j, v := range prow {
				if v != 0 {
					row[j] -= f * v
				}
			}
			row[c] = 0
			rhs[r] -= f * rhs[best]
		}
	}

	for r := range rows {
		if !used[r] && math.Abs(rhs[r]) > 1e-9 {
			return fmt.Errorf("%w: %d segments, degree %d, %d conditions", ErrOverconstrained, s.segments, s.degree, len(s.conds))
		}
	}

	s.free = s.free[:0]
	for c := 0; c < n; c++ {
		if pivotRow[c] < 0 {
			s.free = append(s.free, c)
		}
	}

	s.off = make([]float64, n)
	if len(s.free) > 0 {
		s.dep = mat.NewDense(n, len(s.free), nil)
	}
	for q, f := range s.free {
		s.dep.Set(f, q, 1)
	}
	for c := 0; c < n; c++ {
		p := pivotRow[c]
		if p < 0 {
			continue
		}
		s.off[c] = rhs[p]
		for q, f := range s.free {
			if v := rows[p][f]; v != 0 {
				s.dep.Set(c, q, -v)
			}
		}
	}
	return nil
}
