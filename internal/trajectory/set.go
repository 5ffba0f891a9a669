// Package trajectory holds the splines of one refinement iteration and the
// layout of the free parameter vector across them.
package trajectory

import (
	"errors"
	"fmt"

	"github.com/san-kum/trajgen/internal/chains"
	"github.com/san-kum/trajgen/internal/spline"
)

var ErrUnknownVariable = errors.New("trajectory: unknown variable")

// Layout is the discretization of one iteration.
type Layout struct {
	SegmentsX     int
	SegmentsU     int
	Degree        int
	StandardNodes bool
}

// Boundary holds the boundary values. UA and UB may be nil, in which case
// the inputs are free at the corresponding end.
type Boundary struct {
	XA, XB []float64
	UA, UB []float64
}

// Owner is a spline that carries free coefficients: the upper end of a chain
// or a variable outside every chain.
type Owner struct {
	Name   string
	Chain  chains.Chain
	Spline *spline.Spline
	Offset int
}

type binding struct {
	owner int
	order int
}

// Set is the collection of owner splines for a fixed layout. The free
// parameter vector is the concatenation of the owners' free coefficients in
// canonical owner order.
type Set struct {
	a, b   float64
	states []string
	inputs []string
	chains []chains.Chain
	layout Layout

	owners []*Owner
	vars   map[string]binding
	nfree  int
}

func New(a, b float64, states, inputs []string, cs []chains.Chain, bc Boundary, layout Layout) (*Set, error) {
	if len(bc.XA) != len(states) || len(bc.XB) != len(states) {
		return nil, fmt.Errorf("trajectory: %d states but boundary vectors of length %d and %d",
			len(states), len(bc.XA), len(bc.XB))
	}
	for _, ub := range [][]float64{bc.UA, bc.UB} {
		if ub != nil && len(ub) != len(inputs) {
			return nil, fmt.Errorf("trajectory: %d inputs but input boundary vector of length %d", len(inputs), len(ub))
		}
	}

	s := &Set{
		a:      a,
		b:      b,
		states: append([]string(nil), states...),
		inputs: append([]string(nil), inputs...),
		chains: cs,
		layout: layout,
		vars:   make(map[string]binding, len(states)+len(inputs)),
	}

	isState := make(map[string]int, len(states))
	for i, v := range states {
		isState[v] = i
	}
	isInput := make(map[string]int, len(inputs))
	for i, v := range inputs {
		isInput[v] = i
	}
	boundary := func(name string, atEnd bool) (float64, bool) {
		if i, ok := isState[name]; ok {
			if atEnd {
				return bc.XB[i], true
			}
			return bc.XA[i], true
		}
		i := isInput[name]
		if atEnd && bc.UB != nil {
			return bc.UB[i], true
		}
		if !atEnd && bc.UA != nil {
			return bc.UA[i], true
		}
		return 0, false
	}

	var names []string
	members := make(map[string]chains.Chain)
	for _, c := range cs {
		names = append(names, c.Upper())
		members[c.Upper()] = c
	}
	for _, v := range append(append([]string(nil), states...), inputs...) {
		if _, chained := chains.Of(cs, v); !chained {
			names = append(names, v)
			members[v] = chains.Chain{v}
		}
	}
	chains.Sort(names)

	for _, name := range names {
		c := members[name]
		kind := spline.State
		segments := layout.SegmentsX
		if _, ok := isInput[name]; ok {
			kind = spline.Input
			segments = layout.SegmentsU
		}
		degree := layout.Degree
		if len(c) > degree {
			degree = len(c)
		}

		var conds []spline.Condition
		for d, m := range c {
			for _, atEnd := range []bool{false, true} {
				if v, ok := boundary(m, atEnd); ok {
					conds = append(conds, spline.Condition{AtEnd: atEnd, Order: d, Value: v})
				}
			}
		}

		sp, err := spline.New(a, b, segments, degree, kind, conds, spline.WithStandardNodes(layout.StandardNodes))
		if err != nil {
			return nil, fmt.Errorf("trajectory: spline for %s: %w", name, err)
		}

		o := &Owner{Name: name, Spline: sp, Offset: s.nfree}
		if len(c) > 1 {
			o.Chain = c
		}
		for d, m := range c {
			s.vars[m] = binding{owner: len(s.owners), order: d}
		}
		s.owners = append(s.owners, o)
		s.nfree += sp.FreeCount()
	}
	return s, nil
}

func (s *Set) A() float64             { return s.a }
func (s *Set) B() float64             { return s.b }
func (s *Set) States() []string       { return s.states }
func (s *Set) Inputs() []string       { return s.inputs }
func (s *Set) Chains() []chains.Chain { return s.chains }
func (s *Set) Layout() Layout         { return s.layout }
func (s *Set) FreeCount() int         { return s.nfree }
func (s *Set) Owners() []*Owner       { return append([]*Owner(nil), s.owners...) }
func (s *Set) Variables() []string    { return append(append([]string(nil), s.states...), s.inputs...) }
func (s *Set) HasCoefficients() bool  { return len(s.owners) > 0 && s.owners[0].Spline.HasCoefficients() }

func (s *Set) owner(name string) (*Owner, int, bool) {
	b, ok := s.vars[name]
	if !ok {
		return nil, 0, false
	}
	return s.owners[b.owner], b.order, true
}

// Owner returns the owner spline that carries name.
func (s *Set) Owner(name string) (*Owner, bool) {
	o, _, ok := s.owner(name)
	return o, ok
}

// Dependence returns the sparse row over the full free parameter vector and
// the offset with d^order name/dt^order (t) = row·c + offset.
func (s *Set) Dependence(name string, t float64, order int) ([]int, []float64, float64, error) {
	o, base, ok := s.owner(name)
	if !ok {
		return nil, nil, 0, fmt.Errorf("%w: %s", ErrUnknownVariable, name)
	}
	row, off := o.Spline.DependenceVector(t, base+order)
	cols := make([]int, 0, len(row))
	vals := make([]float64, 0, len(row))
	for q, v := range row {
		if v != 0 {
			cols = append(cols, o.Offset+q)
			vals = append(vals, v)
		}
	}
	return cols, vals, off, nil
}

// SetCoefficients distributes c over the owner splines.
func (s *Set) SetCoefficients(c []float64) error {
	if len(c) != s.nfree {
		return fmt.Errorf("trajectory: got %d coefficients, want %d", len(c), s.nfree)
	}
	for _, o := range s.owners {
		n := o.Spline.FreeCount()
		if err := o.Spline.SetFree(c[o.Offset : o.Offset+n]); err != nil {
			return fmt.Errorf("trajectory: %s: %w", o.Name, err)
		}
	}
	return nil
}

// Coefficients collects the free coefficients of all owners.
func (s *Set) Coefficients() ([]float64, error) {
	c := make([]float64, 0, s.nfree)
	for _, o := range s.owners {
		f, err := o.Spline.Free()
		if err != nil {
			return nil, err
		}
		c = append(c, f...)
	}
	return c, nil
}

// Value evaluates the derivative of the given order of one variable.
func (s *Set) Value(name string, t float64, order int) (float64, error) {
	o, base, ok := s.owner(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownVariable, name)
	}
	return o.Spline.Eval(t, base+order)
}

func (s *Set) eval(names []string, t float64, order int) ([]float64, error) {
	out := make([]float64, len(names))
	for i, v := range names {
		val, err := s.Value(v, t, order)
		if err != nil {
			return nil, err
		}
		out[i] = val
	}
	return out, nil
}

// X returns the state vector at t.
func (s *Set) X(t float64) ([]float64, error) { return s.eval(s.states, t, 0) }

// DX returns the time derivative of the state vector at t.
func (s *Set) DX(t float64) ([]float64, error) { return s.eval(s.states, t, 1) }

// U returns the input vector at t.
func (s *Set) U(t float64) ([]float64, error) { return s.eval(s.inputs, t, 0) }
