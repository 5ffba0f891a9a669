package symbolic

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

type Expr interface {
	String() string
	// Diff returns the partial derivative with respect to the named symbol.
	Diff(name string) Expr
	// Eval evaluates the expression with the given symbol values. Missing
	// symbols evaluate to NaN.
	Eval(env map[string]float64) float64
}

type Num struct{ v float64 }

func N(v float64) *Num { return &Num{v: v} }

func (n *Num) Value() float64                  { return n.v }
func (n *Num) Diff(string) Expr                { return N(0) }
func (n *Num) Eval(map[string]float64) float64 { return n.v }
func (n *Num) String() string {
	return strconv.FormatFloat(n.v, 'g', -1, 64)
}

type Sym struct{ name string }

func S(name string) *Sym { return &Sym{name: name} }

func (s *Sym) Name() string   { return s.name }
func (s *Sym) String() string { return s.name }
func (s *Sym) Diff(name string) Expr {
	if s.name == name {
		return N(1)
	}
	return N(0)
}
func (s *Sym) Eval(env map[string]float64) float64 {
	v, ok := env[s.name]
	if !ok {
		return math.NaN()
	}
	return v
}

type AddExpr struct{ terms []Expr }

// Add returns the sum of the terms with nested sums flattened and numeric
// terms folded into a single constant.
func Add(terms ...Expr) Expr {
	flat := make([]Expr, 0, len(terms))
	acc := 0.0
	for _, t := range terms {
		switch v := t.(type) {
		case *Num:
			acc += v.v
		case *AddExpr:
			for _, inner := range v.terms {
				if n, ok := inner.(*Num); ok {
					acc += n.v
				} else {
					flat = append(flat, inner)
				}
			}
		default:
			flat = append(flat, t)
		}
	}
	if acc != 0 {
		flat = append(flat, N(acc))
	}
	switch len(flat) {
	case 0:
		return N(0)
	case 1:
		return flat[0]
	}
	return &AddExpr{terms: flat}
}

func Sub(a, b Expr) Expr { return Add(a, Neg(b)) }

func Neg(a Expr) Expr { return Mul(N(-1), a) }

func (a *AddExpr) Terms() []Expr { return a.terms }

func (a *AddExpr) String() string {
	var sb strings.Builder
	sb.WriteString("(")
	for i, t := range a.terms {
		if i > 0 {
			sb.WriteString(" + ")
		}
		sb.WriteString(t.String())
	}
	sb.WriteString(")")
	return sb.String()
}

func (a *AddExpr) Diff(name string) Expr {
	d := make([]Expr, len(a.terms))
	for i, t := range a.terms {
		d[i] = t.Diff(name)
	}
	return Add(d...)
}

func (a *AddExpr) Eval(env map[string]float64) float64 {
	sum := 0.0
	for _, t := range a.terms {
		sum += t.Eval(env)
	}
	return sum
}

type MulExpr struct{ factors []Expr }

// Mul returns the product of the factors. A zero constant annihilates the
// product and the numeric coefficient, if any, is kept as the first factor.
func Mul(factors ...Expr) Expr {
	flat := make([]Expr, 0, len(factors))
	coeff := 1.0
	for _, f := range factors {
		switch v := f.(type) {
		case *Num:
			coeff *= v.v
		case *MulExpr:
			for _, inner := range v.factors {
				if n, ok := inner.(*Num); ok {
					coeff *= n.v
				} else {
					flat = append(flat, inner)
				}
			}
		default:
			flat = append(flat, f)
		}
	}
	if coeff == 0 {
		return N(0)
	}
	if len(flat) == 0 {
		return N(coeff)
	}
	if coeff != 1 {
		flat = append([]Expr{N(coeff)}, flat...)
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return &MulExpr{factors: flat}
}

func Div(a, b Expr) Expr {
	if n, ok := b.(*Num); ok && n.v != 0 {
		return Mul(N(1/n.v), a)
	}
	return Mul(a, Pow(b, -1))
}

func (m *MulExpr) Factors() []Expr { return m.factors }

func (m *MulExpr) String() string {
	parts := make([]string, len(m.factors))
	for i, f := range m.factors {
		parts[i] = f.String()
	}
	return strings.Join(parts, "*")
}

func (m *MulExpr) Diff(name string) Expr {
	terms := make([]Expr, 0, len(m.factors))
	for i, f := range m.factors {
		df := f.Diff(name)
		if isZero(df) {
			continue
		}
		prod := make([]Expr, 0, len(m.factors))
		for j, g := range m.factors {
			if j == i {
				prod = append(prod, df)
			} else {
				prod = append(prod, g)
			}
		}
		terms = append(terms, Mul(prod...))
	}
	return Add(terms...)
}

func (m *MulExpr) Eval(env map[string]float64) float64 {
	p := 1.0
	for _, f := range m.factors {
		p *= f.Eval(env)
	}
	return p
}

// PowExpr raises an expression to a constant exponent.
type PowExpr struct {
	base Expr
	exp  float64
}

func Pow(base Expr, exp float64) Expr {
	switch {
	case exp == 0:
		return N(1)
	case exp == 1:
		return base
	}
	switch v := base.(type) {
	case *Num:
		return N(math.Pow(v.v, exp))
	case *PowExpr:
		if isInteger(v.exp) && isInteger(exp) {
			return Pow(v.base, v.exp*exp)
		}
	}
	return &PowExpr{base: base, exp: exp}
}

func (p *PowExpr) Base() Expr        { return p.base }
func (p *PowExpr) Exponent() float64 { return p.exp }

func (p *PowExpr) String() string {
	return fmt.Sprintf("pow(%s, %s)", p.base, strconv.FormatFloat(p.exp, 'g', -1, 64))
}

func (p *PowExpr) Diff(name string) Expr {
	db := p.base.Diff(name)
	if isZero(db) {
		return N(0)
	}
	return Mul(N(p.exp), Pow(p.base, p.exp-1), db)
}

func (p *PowExpr) Eval(env map[string]float64) float64 {
	return powf(p.base.Eval(env), p.exp)
}

// FuncExpr applies one of the supported elementary functions.
type FuncExpr struct {
	name string
	arg  Expr
}

var elementary = map[string]func(float64) float64{
	"sin":  math.Sin,
	"cos":  math.Cos,
	"tan":  math.Tan,
	"exp":  math.Exp,
	"log":  math.Log,
	"sqrt": math.Sqrt,
	"tanh": math.Tanh,
	"atan": math.Atan,
}

func apply(name string, arg Expr) Expr {
	if n, ok := arg.(*Num); ok {
		return N(elementary[name](n.v))
	}
	return &FuncExpr{name: name, arg: arg}
}

func Sin(a Expr) Expr  { return apply("sin", a) }
func Cos(a Expr) Expr  { return apply("cos", a) }
func Tan(a Expr) Expr  { return apply("tan", a) }
func Exp(a Expr) Expr  { return apply("exp", a) }
func Log(a Expr) Expr  { return apply("log", a) }
func Sqrt(a Expr) Expr { return apply("sqrt", a) }
func Tanh(a Expr) Expr { return apply("tanh", a) }
func Atan(a Expr) Expr { return apply("atan", a) }

func (f *FuncExpr) Name() string   { return f.name }
func (f *FuncExpr) Arg() Expr      { return f.arg }
func (f *FuncExpr) String() string { return f.name + "(" + f.arg.String() + ")" }

func (f *FuncExpr) Diff(name string) Expr {
	da := f.arg.Diff(name)
	if isZero(da) {
		return N(0)
	}
	var outer Expr
	switch f.name {
	case "sin":
		outer = Cos(f.arg)
	case "cos":
		outer = Neg(Sin(f.arg))
	case "tan":
		outer = Pow(Cos(f.arg), -2)
	case "exp":
		outer = f
	case "log":
		outer = Pow(f.arg, -1)
	case "sqrt":
		outer = Mul(N(0.5), Pow(f, -1))
	case "tanh":
		outer = Sub(N(1), Pow(f, 2))
	case "atan":
		outer = Pow(Add(N(1), Pow(f.arg, 2)), -1)
	}
	return Mul(outer, da)
}

func (f *FuncExpr) Eval(env map[string]float64) float64 {
	return elementary[f.name](f.arg.Eval(env))
}

// SymbolName reports whether e is a bare symbol and returns its name.
func SymbolName(e Expr) (string, bool) {
	s, ok := e.(*Sym)
	if !ok {
		return "", false
	}
	return s.name, true
}

// Symbols returns prefix1 … prefixN.
func Symbols(prefix string, n int) []Expr {
	out := make([]Expr, n)
	for i := range out {
		out[i] = S(prefix + strconv.Itoa(i+1))
	}
	return out
}

// Names returns the symbol names of all groups, in order.
func Names(groups ...[]Expr) []string {
	var names []string
	for _, g := range groups {
		for _, e := range g {
			names = append(names, e.String())
		}
	}
	return names
}

// FreeSymbols returns the sorted names of all symbols occurring in e.
func FreeSymbols(e Expr) []string {
	seen := map[string]struct{}{}
	collect(e, seen)
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func collect(e Expr, seen map[string]struct{}) {
	switch v := e.(type) {
	case *Sym:
		seen[v.name] = struct{}{}
	case *AddExpr:
		for _, t := range v.terms {
			collect(t, seen)
		}
	case *MulExpr:
		for _, f := range v.factors {
			collect(f, seen)
		}
	case *PowExpr:
		collect(v.base, seen)
	case *FuncExpr:
		collect(v.arg, seen)
	}
}

// Jacobian returns the matrix of partial derivatives d exprs[i] / d vars[j].
func Jacobian(exprs []Expr, vars []string) [][]Expr {
	jac := make([][]Expr, len(exprs))
	for i, e := range exprs {
		jac[i] = make([]Expr, len(vars))
		for j, v := range vars {
			jac[i][j] = e.Diff(v)
		}
	}
	return jac
}

// Flatten returns the rows of m concatenated.
func Flatten(m [][]Expr) []Expr {
	var out []Expr
	for _, row := range m {
		out = append(out, row...)
	}
	return out
}

func isZero(e Expr) bool {
	n, ok := e.(*Num)
	return ok && n.v == 0
}

func isInteger(f float64) bool { return f == math.Trunc(f) }

func powf(x, p float64) float64 {
	switch p {
	case 2:
		return x * x
	case -1:
		return 1 / x
	case 0.5:
		return math.Sqrt(x)
	case 3:
		return x * x * x
	}
	return math.Pow(x, p)
}
