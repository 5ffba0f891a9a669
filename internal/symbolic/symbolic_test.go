package symbolic

import (
	"errors"
	"math"
	"testing"
)

func TestConstructorsFold(t *testing.T) {
	x := S("x")

	tests := []struct {
		name string
		expr Expr
		want string
	}{
		{"add zero", Add(x, N(0)), "x"},
		{"mul one", Mul(N(1), x), "x"},
		{"mul zero", Mul(N(0), x), "0"},
		{"numbers", Add(N(1), N(2)), "3"},
		{"pow one", Pow(x, 1), "x"},
		{"pow zero", Pow(x, 0), "1"},
		{"sin const", Sin(N(0)), "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.expr.String(); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestDiffMatchesFiniteDifference(t *testing.T) {
	x, y := S("x"), S("y")
	exprs := []Expr{
		Mul(x, y),
		Add(Pow(x, 3), Mul(N(2), y)),
		Mul(Div(N(1), N(0.5)), Add(Mul(N(9.81), Sin(x)), Mul(y, Cos(x)))),
		Exp(Mul(x, y)),
		Div(x, Add(N(1), Pow(y, 2))),
		Sqrt(Add(N(2), Pow(x, 2))),
		Tanh(x),
		Atan(Mul(x, y)),
		Log(Add(N(3), x)),
		Tan(y),
	}

	env := map[string]float64{"x": 0.3, "y": -1.2}
	const h = 1e-6

	for _, e := range exprs {
		for _, v := range []string{"x", "y"} {
			plus := copyEnv(env)
			minus := copyEnv(env)
			plus[v] += h
			minus[v] -= h
			fd := (e.Eval(plus) - e.Eval(minus)) / (2 * h)
			got := e.Diff(v).Eval(env)
			if math.Abs(got-fd) > 1e-5 {
				t.Errorf("d/d%s %s: expected %.8f, got %.8f", v, e, fd, got)
			}
		}
	}
}

func TestSymbolName(t *testing.T) {
	if name, ok := SymbolName(S("x2")); !ok || name != "x2" {
		t.Errorf("expected symbol x2, got %q %v", name, ok)
	}
	if _, ok := SymbolName(Mul(N(2), S("x2"))); ok {
		t.Error("product should not be a bare symbol")
	}
	if _, ok := SymbolName(Mul(N(1), S("x2"))); !ok {
		t.Error("1*x2 should fold to a bare symbol")
	}
}

func TestCompileVectorized(t *testing.T) {
	x, u := Symbols("x", 2), Symbols("u", 1)
	f := []Expr{x[1], Add(Mul(N(-2), x[0]), u[0])}

	prog, err := Compile(f, Names(x, u))
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	in := [][]float64{
		{1, 2, 3},
		{4, 5, 6},
		{0.5, 0.5, 0.5},
	}
	out, err := prog.Eval(in)
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}

	for k := 0; k < 3; k++ {
		if out[0][k] != in[1][k] {
			t.Errorf("row 0 point %d: expected %f, got %f", k, in[1][k], out[0][k])
		}
		want := -2*in[0][k] + 0.5
		if math.Abs(out[1][k]-want) > 1e-12 {
			t.Errorf("row 1 point %d: expected %f, got %f", k, want, out[1][k])
		}
	}

	out[0][0] = 99
	if in[1][0] != 4 {
		t.Error("evaluation result must not alias the input columns")
	}
}

func TestCompileUnknownSymbol(t *testing.T) {
	_, err := Compile([]Expr{S("z")}, []string{"x"})
	if !errors.Is(err, ErrUnknownSymbol) {
		t.Errorf("expected ErrUnknownSymbol, got %v", err)
	}
}

func TestJacobianCompiled(t *testing.T) {
	x, u := Symbols("x", 2), Symbols("u", 1)
	vars := Names(x, u)
	f := []Expr{x[1], Mul(u[0], Cos(x[0]))}

	jac := Jacobian(f, vars)
	prog, err := Compile(Flatten(jac), vars)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	got := prog.EvalAt([]float64{0.4, 1.0, 2.0})
	want := []float64{
		0, 1, 0,
		-2.0 * math.Sin(0.4), 0, math.Cos(0.4),
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("entry %d: expected %f, got %f", i, want[i], got[i])
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		src  string
		env  map[string]float64
		want float64
	}{
		{"x2", map[string]float64{"x2": 3}, 3},
		{"-x1 + 2*u1", map[string]float64{"x1": 1, "u1": 2}, 3},
		{"(1/0.5)*(9.81*sin(x3)+u1*cos(x3))", map[string]float64{"x3": 0, "u1": 1}, 2},
		{"pow(x1, 2) / 4", map[string]float64{"x1": 4}, 4},
		{"math.Sqrt(x1) + pi", map[string]float64{"x1": 9}, 3 + math.Pi},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			e, err := Parse(tt.src)
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if got := e.Eval(tt.env); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("expected %f, got %f", tt.want, got)
			}
		})
	}
}

func TestParseAllWithConstants(t *testing.T) {
	consts := map[string]float64{"l": 0.5, "g": 9.81}
	exprs, err := ParseAll([]string{"x2", "(1/l)*(g*sin(x1)+u1*cos(x1))"}, consts)
	if err != nil {
		t.Fatal(err)
	}
	got := FreeSymbols(exprs[1])
	if len(got) != 2 || got[0] != "u1" || got[1] != "x1" {
		t.Errorf("constants left as symbols: %v", got)
	}
	v := exprs[1].Eval(map[string]float64{"x1": math.Pi / 2, "u1": 3})
	if math.Abs(v-2*9.81) > 1e-12 {
		t.Errorf("expected %f, got %f", 2*9.81, v)
	}
}

func TestParseErrors(t *testing.T) {
	bad := []string{
		"x1 +",
		"pow(x1, x2)",
		"foo(x1)",
		"sin(x1, x2)",
		"x1 % 2",
		`"text"`,
	}
	for _, src := range bad {
		if _, err := Parse(src); err == nil {
			t.Errorf("expected error for %q", src)
		}
	}
}

func TestFreeSymbols(t *testing.T) {
	e := Add(Mul(S("x2"), Sin(S("x1"))), Pow(S("u1"), 2))
	got := FreeSymbols(e)
	want := []string{"u1", "x1", "x2"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
		}
	}
}

func copyEnv(env map[string]float64) map[string]float64 {
	c := make(map[string]float64, len(env))
	for k, v := range env {
		c[k] = v
	}
	return c
}
