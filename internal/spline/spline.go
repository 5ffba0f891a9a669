package spline

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrNoCoefficients  = errors.New("spline: coefficients not set")
	ErrOverconstrained = errors.New("spline: conditions are inconsistent with the partition")
	ErrFreeLength      = errors.New("spline: free coefficient vector has wrong length")
	ErrEvaluationOnly  = errors.New("spline: restored spline has no free parameterization")
)

// pivotTol bounds the magnitude below which an eliminated entry is treated as
// zero.
const pivotTol = 1e-12

type Kind int

const (
	State Kind = iota
	Input
)

func (k Kind) String() string {
	if k == Input {
		return "u"
	}
	return "x"
}

// Condition fixes the derivative of the given order at one end of the
// domain.
type Condition struct {
	AtEnd bool
	Order int
	Value float64
}

func (c Condition) String() string {
	end := "a"
	if c.AtEnd {
		end = "b"
	}
	return fmt.Sprintf("S^(%d)(%s)=%g", c.Order, end, c.Value)
}

// Spline is a piecewise polynomial of fixed degree k over equal-width
// segments of [a,b], with value and derivatives up to order k-1 continuous at
// every interior breakpoint. On segment i the polynomial is
// Σ_j c[i][j]·(t-t_i)^j. The full coefficient vector is an affine function of
// the free coefficients: full = dep·free + off.
type Spline struct {
	a, b     float64
	segments int
	degree   int
	h        float64
	kind     Kind
	standard bool
	conds    []Condition

	dep      *mat.Dense
	off      []float64
	free     []int
	restored bool

	coeffs []float64
}

type Option func(*Spline)

// WithStandardNodes marks whether the free coefficients follow the default
// layout, which lets a refined spline be warm-started by re-expansion.
func WithStandardNodes(standard bool) Option {
	return func(s *Spline) { s.standard = standard }
}

// New builds the spline and eliminates the smoothness and boundary
// conditions once. The coefficients stay unset until SetFree is called.
func New(a, b float64, segments, degree int, kind Kind, conds []Condition, opts ...Option) (*Spline, error) {
	if !(b > a) {
		return nil, fmt.Errorf("spline: empty domain [%g,%g]", a, b)
	}
	if segments < 1 {
		return nil, fmt.Errorf("spline: need at least one segment, got %d", segments)
	}
	if degree < 1 {
		return nil, fmt.Errorf("spline: degree must be positive, got %d", degree)
	}
	for _, c := range conds {
		if c.Order < 0 || c.Order > degree {
			return nil, fmt.Errorf("spline: condition %s exceeds degree %d", c, degree)
		}
	}

	s := &Spline{
		a:        a,
		b:        b,
		segments: segments,
		degree:   degree,
		h:        (b - a) / float64(segments),
		kind:     kind,
		standard: true,
		conds:    append([]Condition(nil), conds...),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.eliminate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Spline) A() float64            { return s.a }
func (s *Spline) B() float64            { return s.b }
func (s *Spline) Segments() int         { return s.segments }
func (s *Spline) Degree() int           { return s.degree }
func (s *Spline) Kind() Kind            { return s.kind }
func (s *Spline) Standard() bool        { return s.standard }
func (s *Spline) FreeCount() int        { return len(s.free) }
func (s *Spline) HasCoefficients() bool { return s.coeffs != nil }
func (s *Spline) Conditions() []Condition {
	return append([]Condition(nil), s.conds...)
}

// Breakpoints returns a = t_0 < t_1 < … < t_N = b.
func (s *Spline) Breakpoints() []float64 {
	pts := make([]float64, s.segments+1)
	for i := range pts {
		pts[i] = s.a + float64(i)*s.h
	}
	pts[s.segments] = s.b
	return pts
}

// FreeIndices returns the positions of the free coefficients in the full
// coefficient vector.
func (s *Spline) FreeIndices() []int { return append([]int(nil), s.free...) }

// Coefficients returns a copy of the full coefficient vector, segment-major.
func (s *Spline) Coefficients() ([]float64, error) {
	if s.coeffs == nil {
		return nil, ErrNoCoefficients
	}
	return append([]float64(nil), s.coeffs...), nil
}

// Free returns the current values of the free coefficients.
func (s *Spline) Free() ([]float64, error) {
	if s.coeffs == nil {
		return nil, ErrNoCoefficients
	}
	out := make([]float64, len(s.free))
	for q, idx := range s.free {
		out[q] = s.coeffs[idx]
	}
	return out, nil
}

// SetFree assigns every coefficient from the free coefficient values.
func (s *Spline) SetFree(values []float64) error {
	if s.restored {
		return ErrEvaluationOnly
	}
	if len(values) != len(s.free) {
		return fmt.Errorf("%w: got %d, want %d", ErrFreeLength, len(values), len(s.free))
	}
	n := s.coefficientCount()
	full := make([]float64, n)
	if len(values) > 0 {
		v := mat.NewVecDense(n, full)
		v.MulVec(s.dep, mat.NewVecDense(len(values), append([]float64(nil), values...)))
	}
	for i := range full {
		full[i] += s.off[i]
	}
	s.coeffs = full
	return nil
}

// Eval returns the derivative of the given order at t. Points outside [a,b]
// are extrapolated from the end segments.
func (s *Spline) Eval(t float64, order int) (float64, error) {
	if s.coeffs == nil {
		return 0, ErrNoCoefficients
	}
	i, tau := s.locate(t)
	base := i * (s.degree + 1)
	sum := 0.0
	for j := order; j <= s.degree; j++ {
		sum += s.coeffs[base+j] * falling(j, order) * math.Pow(tau, float64(j-order))
	}
	return sum, nil
}

// DependenceVector returns row and offset with
// S^(order)(t) = row·free + offset for every assignment of the free
// coefficients.
func (s *Spline) DependenceVector(t float64, order int) ([]float64, float64) {
	if s.restored {
		panic(ErrEvaluationOnly)
	}
	i, tau := s.locate(t)
	base := i * (s.degree + 1)
	row := make([]float64, len(s.free))
	offset := 0.0
	for j := order; j <= s.degree; j++ {
		w := falling(j, order) * math.Pow(tau, float64(j-order))
		if w == 0 {
			continue
		}
		offset += w * s.off[base+j]
		for q := range row {
			row[q] += w * s.dep.At(base+j, q)
		}
	}
	return row, offset
}

// Reexpand re-expands old onto this spline's partition by Taylor shifting
// each old polynomial to the new segment starts, and returns the values the
// free coefficients take in that expansion. The result reproduces old
// exactly when this partition refines the old one.
func (s *Spline) Reexpand(old *Spline) ([]float64, error) {
	if old.coeffs == nil {
		return nil, ErrNoCoefficients
	}
	k := s.degree
	full := make([]float64, s.coefficientCount())
	for i := 0; i < s.segments; i++ {
		start := s.a + float64(i)*s.h
		oi, _ := old.locate(start + s.h/2)
		tau0 := start - (old.a + float64(oi)*old.h)
		obase := oi * (old.degree + 1)
		for j := 0; j <= k && j <= old.degree; j++ {
			sum := 0.0
			for l := j; l <= old.degree; l++ {
				sum += old.coeffs[obase+l] * binomial(l, j) * math.Pow(tau0, float64(l-j))
			}
			full[i*(k+1)+j] = sum
		}
	}
	out := make([]float64, len(s.free))
	for q, idx := range s.free {
		out[q] = full[idx]
	}
	return out, nil
}

func (s *Spline) coefficientCount() int { return s.segments * (s.degree + 1) }

func (s *Spline) locate(t float64) (int, float64) {
	i := int(math.Floor((t - s.a) / s.h))
	if i < 0 {
		i = 0
	}
	if i >= s.segments {
		i = s.segments - 1
	}
	return i, t - (s.a + float64(i)*s.h)
}

// falling returns j!/(j-d)!, the factor produced by differentiating τ^j d
// times.
func falling(j, d int) float64 {
	if d > j {
		return 0
	}
	f := 1.0
	for m := j - d + 1; m <= j; m++ {
		f *= float64(m)
	}
	return f
}

func binomial(n, k int) float64 {
	if k < 0 || k > n {
		return 0
	}
	r := 1.0
	for i := 1; i <= k; i++ {
		r = r * float64(n-k+i) / float64(i)
	}
	return r
}
