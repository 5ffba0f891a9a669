// Package linalg holds the compressed sparse row matrix used for the
// collocation maps. It implements gonum's mat.Matrix so sparse and dense
// matrices can be handed to the same consumers.
package linalg

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// CSR is an immutable compressed sparse row matrix.
type CSR struct {
	rows, cols int
	indptr     []int
	indices    []int
	data       []float64
}

var _ mat.Matrix = (*CSR)(nil)

// Builder assembles a CSR matrix one row at a time.
type Builder struct {
	cols    int
	indptr  []int
	indices []int
	data    []float64
}

func NewBuilder(cols, rowHint, nnzHint int) *Builder {
	b := &Builder{
		cols:    cols,
		indptr:  make([]int, 1, rowHint+1),
		indices: make([]int, 0, nnzHint),
		data:    make([]float64, 0, nnzHint),
	}
	return b
}

// AppendRow adds the next row. cols must be strictly increasing; zero
// values are dropped.
func (b *Builder) AppendRow(cols []int, vals []float64) {
	for k, c := range cols {
		if vals[k] == 0 {
			continue
		}
		if c < 0 || c >= b.cols {
			panic(fmt.Sprintf("linalg: column %d out of range [0,%d)", c, b.cols))
		}
		b.indices = append(b.indices, c)
		b.data = append(b.data, vals[k])
	}
	b.indptr = append(b.indptr, len(b.indices))
}

func (b *Builder) Build() *CSR {
	return &CSR{
		rows:    len(b.indptr) - 1,
		cols:    b.cols,
		indptr:  b.indptr,
		indices: b.indices,
		data:    b.data,
	}
}

// FromDense converts a dense matrix, dropping exact zeros.
func FromDense(m mat.Matrix) *CSR {
	r, c := m.Dims()
	b := NewBuilder(c, r, r)
	cols := make([]int, 0, c)
	vals := make([]float64, 0, c)
	for i := 0; i < r; i++ {
		cols, vals = cols[:0], vals[:0]
		for j := 0; j < c; j++ {
			if v := m.At(i, j); v != 0 {
				cols = append(cols, j)
				vals = append(vals, v)
			}
		}
		b.AppendRow(cols, vals)
	}
	return b.Build()
}

func (m *CSR) Dims() (int, int) { return m.rows, m.cols }
func (m *CSR) T() mat.Matrix    { return mat.Transpose{Matrix: m} }
func (m *CSR) NNZ() int         { return len(m.data) }

func (m *CSR) At(i, j int) float64 {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic(mat.ErrIndexOutOfRange)
	}
	lo, hi := m.indptr[i], m.indptr[i+1]
	k := lo + sort.SearchInts(m.indices[lo:hi], j)
	if k < hi && m.indices[k] == j {
		return m.data[k]
	}
	return 0
}

// Row returns the column indices and values of row i. The slices alias the
// matrix storage.
func (m *CSR) Row(i int) ([]int, []float64) {
	lo, hi := m.indptr[i], m.indptr[i+1]
	return m.indices[lo:hi], m.data[lo:hi]
}

// MulVecTo sets dst = m·x.
func (m *CSR) MulVecTo(dst, x []float64) {
	if len(x) != m.cols || len(dst) != m.rows {
		panic(mat.ErrShape)
	}
	for i := 0; i < m.rows; i++ {
		sum := 0.0
		for k := m.indptr[i]; k < m.indptr[i+1]; k++ {
			sum += m.data[k] * x[m.indices[k]]
		}
		dst[i] = sum
	}
}

// MulTransVecTo sets dst = mᵀ·x.
func (m *CSR) MulTransVecTo(dst, x []float64) {
	if len(x) != m.rows || len(dst) != m.cols {
		panic(mat.ErrShape)
	}
	for j := range dst {
		dst[j] = 0
	}
	for i := 0; i < m.rows; i++ {
		xi := x[i]
		if xi == 0 {
			continue
		}
		for k := m.indptr[i]; k < m.indptr[i+1]; k++ {
			dst[m.indices[k]] += m.data[k] * xi
		}
	}
}

// Gram returns mᵀ·m as a dense symmetric matrix. Only the entries of each
// row are visited, and every product lands in the upper triangle since the
// column indices of a row increase.
func (m *CSR) Gram() *mat.SymDense {
	g := mat.NewSymDense(m.cols, nil)
	raw := g.RawSymmetric()
	for i := 0; i < m.rows; i++ {
		lo, hi := m.indptr[i], m.indptr[i+1]
		for a := lo; a < hi; a++ {
			dst := raw.Data[m.indices[a]*raw.Stride:]
			va := m.data[a]
			for b := a; b < hi; b++ {
				dst[m.indices[b]] += va * m.data[b]
			}
		}
	}
	return g
}

func (m *CSR) ToDense() *mat.Dense {
	d := mat.NewDense(m.rows, m.cols, nil)
	for i := 0; i < m.rows; i++ {
		for k := m.indptr[i]; k < m.indptr[i+1]; k++ {
			d.Set(i, m.indices[k], m.data[k])
		}
	}
	return d
}
