package collocation

import (
	"math"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/san-kum/trajgen/internal/chains"
	"github.com/san-kum/trajgen/internal/symbolic"
	"github.com/san-kum/trajgen/internal/trajectory"
)

func TestNodes(t *testing.T) {
	tests := []struct {
		kind string
		n    int
	}{
		{Equidistant, 11},
		{Chebyshev, 11},
		{Chebyshev, 3},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			pts := Nodes(1, 3, tt.n, tt.kind, nil)
			if len(pts) != tt.n {
				t.Fatalf("expected %d nodes, got %d", tt.n, len(pts))
			}
			if pts[0] != 1 || pts[len(pts)-1] != 3 {
				t.Errorf("endpoints not included: %v", pts)
			}
			for i := 1; i < len(pts); i++ {
				if pts[i] <= pts[i-1] {
					t.Errorf("nodes not increasing at %d: %v", i, pts)
				}
			}
		})
	}
}

func TestNodesUnknownKindWarns(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	pts := Nodes(0, 1, 5, "gauss", zap.New(core))

	want := Nodes(0, 1, 5, Equidistant, nil)
	for i := range want {
		if math.Abs(pts[i]-want[i]) > 1e-15 {
			t.Errorf("node %d: expected %f, got %f", i, want[i], pts[i])
		}
	}
	if logs.Len() != 1 {
		t.Errorf("expected one warning, got %d", logs.Len())
	}
}

func TestNodeKind(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		known bool
	}{
		{"", Equidistant, true},
		{"equidistant", Equidistant, true},
		{"chebychev", Chebyshev, true},
		{"gauss", Equidistant, false},
	}
	for _, tt := range tests {
		got, known := NodeKind(tt.in)
		if got != tt.want || known != tt.known {
			t.Errorf("NodeKind(%q) = %q, %v; want %q, %v", tt.in, got, known, tt.want, tt.known)
		}
	}
}

// pendulum-like field with a chain x1 -> x2 and a nonlinear lower equation.
func testField(t *testing.T) (*Field, []string, []string) {
	t.Helper()
	x := symbolic.Symbols("x", 2)
	u := symbolic.Symbols("u", 1)
	f := []symbolic.Expr{
		x[1],
		symbolic.Add(symbolic.Mul(symbolic.N(-2), symbolic.Sin(x[0])), symbolic.Mul(x[1], u[0]), u[0]),
	}
	states, inputs := symbolic.Names(x), symbolic.Names(u)
	field, err := NewField(f, states, inputs)
	if err != nil {
		t.Fatal(err)
	}
	return field, states, inputs
}

func testSet(t *testing.T, states, inputs []string, cs []chains.Chain, sx int) *trajectory.Set {
	t.Helper()
	set, err := trajectory.New(0, 1, states, inputs, cs,
		trajectory.Boundary{XA: []float64{0, 0}, XB: []float64{1, 0}},
		trajectory.Layout{SegmentsX: sx, SegmentsU: 3, Degree: 3, StandardNodes: true})
	if err != nil {
		t.Fatal(err)
	}
	return set
}

func coefficients(n int) []float64 {
	c := make([]float64, n)
	for i := range c {
		c[i] = 0.3 * math.Cos(float64(3*i+1))
	}
	return c
}

func TestResidualMatchesSplines(t *testing.T) {
	field, states, inputs := testField(t)
	for _, useChains := range []bool{false, true} {
		var cs []chains.Chain
		if useChains {
			cs = chains.Find(field.Exprs, states, inputs)
		}
		set := testSet(t, states, inputs, cs, 4)
		eqs := chains.Equations(cs, states)
		nodes := Nodes(0, 1, 9, Equidistant, nil)

		sys, err := Build(field, set, nodes, eqs, true)
		if err != nil {
			t.Fatal(err)
		}
		c := coefficients(set.FreeCount())
		g, err := sys.G(c)
		if err != nil {
			t.Fatal(err)
		}
		if len(g) != len(eqs)*len(nodes) {
			t.Fatalf("chains=%v: expected %d rows, got %d", useChains, len(eqs)*len(nodes), len(g))
		}

		if err := set.SetCoefficients(c); err != nil {
			t.Fatal(err)
		}
		for j, tm := range nodes {
			x, _ := set.X(tm)
			u, _ := set.U(tm)
			dx, _ := set.DX(tm)
			f := field.Eval(x, u)
			for k, e := range eqs {
				want := f[e] - dx[e]
				if got := g[j*len(eqs)+k]; math.Abs(got-want) > 1e-9 {
					t.Errorf("chains=%v node %d eq %d: expected %f, got %f", useChains, j, e, want, got)
				}
			}
		}
	}
}

func TestChainsOmitRedundantRows(t *testing.T) {
	field, states, inputs := testField(t)
	cs := chains.Find(field.Exprs, states, inputs)
	if len(cs) != 1 || cs[0].String() != "x1 -> x2" {
		t.Fatalf("expected chain x1 -> x2, got %v", cs)
	}
	eqs := chains.Equations(cs, states)
	if len(eqs) != 1 || eqs[0] != 1 {
		t.Fatalf("expected only the x2 equation, got %v", eqs)
	}

	withChains := testSet(t, states, inputs, cs, 4)
	without := testSet(t, states, inputs, nil, 4)
	if withChains.FreeCount() >= without.FreeCount() {
		t.Errorf("expected fewer unknowns with chains: %d vs %d", withChains.FreeCount(), without.FreeCount())
	}
}

func TestJacobianMatchesFiniteDifferences(t *testing.T) {
	field, states, inputs := testField(t)
	for _, sparse := range []bool{false, true} {
		set := testSet(t, states, inputs, nil, 3)
		sys, err := Build(field, set, Nodes(0, 1, 7, Chebyshev, nil), chains.Equations(nil, states), sparse)
		if err != nil {
			t.Fatal(err)
		}
		c := coefficients(set.FreeCount())
		dg, err := sys.DG(c)
		if err != nil {
			t.Fatal(err)
		}
		rows, cols := dg.Dims()

		const h = 1e-6
		for q := 0; q < cols; q++ {
			cp := append([]float64(nil), c...)
			cm := append([]float64(nil), c...)
			cp[q] += h
			cm[q] -= h
			gp, _ := sys.G(cp)
			gm, _ := sys.G(cm)
			for r := 0; r < rows; r++ {
				fd := (gp[r] - gm[r]) / (2 * h)
				if math.Abs(fd-dg.At(r, q)) > 1e-5 {
					t.Errorf("sparse=%v DG[%d,%d]: expected %f, got %f", sparse, r, q, fd, dg.At(r, q))
				}
			}
		}
	}
}

func TestGuessFirstIteration(t *testing.T) {
	_, states, inputs := testField(t)
	set := testSet(t, states, inputs, nil, 3)
	g, err := Guess(nil, set, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(g) != set.FreeCount() {
		t.Fatalf("expected %d values, got %d", set.FreeCount(), len(g))
	}
	for i, v := range g {
		if v != InitialValue {
			t.Errorf("entry %d: expected %f, got %f", i, InitialValue, v)
		}
	}
}

func TestGuessReproducesPreviousTrajectory(t *testing.T) {
	field, states, inputs := testField(t)
	cs := chains.Find(field.Exprs, states, inputs)

	for _, fast := range []bool{false, true} {
		prev := testSet(t, states, inputs, cs, 3)
		if err := prev.SetCoefficients(coefficients(prev.FreeCount())); err != nil {
			t.Fatal(err)
		}
		next := testSet(t, states, inputs, cs, 6)

		g, err := Guess(prev, next, fast)
		if err != nil {
			t.Fatal(err)
		}
		if len(g) != next.FreeCount() {
			t.Fatalf("expected %d values, got %d", next.FreeCount(), len(g))
		}
		if err := next.SetCoefficients(g); err != nil {
			t.Fatal(err)
		}
		for i := 0; i <= 20; i++ {
			tm := float64(i) / 20
			xo, _ := prev.X(tm)
			xn, _ := next.X(tm)
			uo, _ := prev.U(tm)
			un, _ := next.U(tm)
			for k := range xo {
				if math.Abs(xo[k]-xn[k]) > 1e-6 {
					t.Errorf("fast=%v t=%g x%d: expected %f, got %f", fast, tm, k+1, xo[k], xn[k])
				}
			}
			if math.Abs(uo[0]-un[0]) > 1e-9 {
				t.Errorf("fast=%v t=%g u1: expected %f, got %f", fast, tm, uo[0], un[0])
			}
		}
	}
}
