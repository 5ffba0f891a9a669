package trajectory

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/trajgen/internal/chains"
)

func doubleIntegrator(t *testing.T, useChains bool) *Set {
	t.Helper()
	var cs []chains.Chain
	if useChains {
		cs = []chains.Chain{{"x1", "x2", "u1"}}
	}
	s, err := New(0, 2, []string{"x1", "x2"}, []string{"u1"}, cs,
		Boundary{XA: []float64{0, 0}, XB: []float64{1, 0}},
		Layout{SegmentsX: 4, SegmentsU: 4, Degree: 3, StandardNodes: true})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func fill(s *Set) []float64 {
	c := make([]float64, s.FreeCount())
	for i := range c {
		c[i] = math.Sin(float64(i+1)) * 0.5
	}
	_ = s.SetCoefficients(c)
	return c
}

func TestOwnersCanonicalOrder(t *testing.T) {
	s := doubleIntegrator(t, false)
	owners := s.Owners()
	want := []string{"u1", "x1", "x2"}
	if len(owners) != len(want) {
		t.Fatalf("expected %d owners, got %d", len(want), len(owners))
	}
	offset := 0
	for i, o := range owners {
		if o.Name != want[i] {
			t.Errorf("owner %d: expected %s, got %s", i, want[i], o.Name)
		}
		if o.Offset != offset {
			t.Errorf("owner %s: expected offset %d, got %d", o.Name, offset, o.Offset)
		}
		offset += o.Spline.FreeCount()
	}
	if offset != s.FreeCount() {
		t.Errorf("expected %d free coefficients, got %d", offset, s.FreeCount())
	}
}

func TestChainSharesSpline(t *testing.T) {
	s := doubleIntegrator(t, true)
	if len(s.Owners()) != 1 {
		t.Fatalf("expected a single owner, got %d", len(s.Owners()))
	}
	fill(s)

	for _, tm := range []float64{0.1, 0.7, 1.3, 1.9} {
		dx1, _ := s.Value("x1", tm, 1)
		x2, _ := s.Value("x2", tm, 0)
		if math.Abs(dx1-x2) > 1e-12 {
			t.Errorf("t=%g: x1' = %f but x2 = %f", tm, dx1, x2)
		}
		dx2, _ := s.Value("x2", tm, 1)
		u1, _ := s.Value("u1", tm, 0)
		if math.Abs(dx2-u1) > 1e-12 {
			t.Errorf("t=%g: x2' = %f but u1 = %f", tm, dx2, u1)
		}
	}
}

func TestBoundaryValuesHold(t *testing.T) {
	for _, useChains := range []bool{false, true} {
		s := doubleIntegrator(t, useChains)
		fill(s)

		xa, _ := s.X(0)
		xb, _ := s.X(2)
		if math.Abs(xa[0]) > 1e-9 || math.Abs(xa[1]) > 1e-9 {
			t.Errorf("chains=%v: expected x(a)=[0 0], got %v", useChains, xa)
		}
		if math.Abs(xb[0]-1) > 1e-9 || math.Abs(xb[1]) > 1e-9 {
			t.Errorf("chains=%v: expected x(b)=[1 0], got %v", useChains, xb)
		}
	}
}

func TestDependenceMatchesValue(t *testing.T) {
	s := doubleIntegrator(t, false)
	c := fill(s)

	for _, name := range []string{"x1", "x2", "u1"} {
		for _, order := range []int{0, 1} {
			cols, vals, off, err := s.Dependence(name, 0.77, order)
			if err != nil {
				t.Fatal(err)
			}
			want := off
			for k, col := range cols {
				want += vals[k] * c[col]
			}
			got, _ := s.Value(name, 0.77, order)
			if math.Abs(got-want) > 1e-9 {
				t.Errorf("%s order %d: expected %f, got %f", name, order, want, got)
			}
		}
	}
}

func TestCoefficientsRoundTrip(t *testing.T) {
	s := doubleIntegrator(t, true)
	c := fill(s)
	got, err := s.Coefficients()
	if err != nil {
		t.Fatal(err)
	}
	for i := range c {
		if math.Abs(got[i]-c[i]) > 1e-12 {
			t.Errorf("coefficient %d: expected %f, got %f", i, c[i], got[i])
		}
	}
}

func TestErrors(t *testing.T) {
	s := doubleIntegrator(t, false)
	if _, _, _, err := s.Dependence("x7", 0, 0); !errors.Is(err, ErrUnknownVariable) {
		t.Errorf("expected ErrUnknownVariable, got %v", err)
	}
	if err := s.SetCoefficients([]float64{1}); err == nil {
		t.Error("expected length error")
	}

	_, err := New(0, 1, []string{"x1"}, nil, nil, Boundary{XA: []float64{0}}, Layout{SegmentsX: 2, Degree: 3})
	if err == nil {
		t.Error("expected boundary length error")
	}
}
