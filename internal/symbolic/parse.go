package symbolic

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"strconv"
	"strings"
)

// Parse reads an expression written in Go syntax, e.g.
// "(1/l)*(g*sin(x3) + u1*cos(x3))". Function calls may be bare
// (sin, cos, …) or qualified with the math package (math.Sin). Powers are
// written pow(base, exponent) with a constant exponent. The identifiers pi
// and e name the usual constants; every other identifier is a symbol.
func Parse(src string) (Expr, error) {
	return ParseWith(src, nil)
}

// ParseWith is Parse with named constants: identifiers found in consts are
// replaced by their value.
func ParseWith(src string, consts map[string]float64) (Expr, error) {
	node, err := parser.ParseExpr(src)
	if err != nil {
		return nil, fmt.Errorf("symbolic: parse %q: %w", src, err)
	}
	e, err := (converter{consts}).convert(node)
	if err != nil {
		return nil, fmt.Errorf("symbolic: parse %q: %w", src, err)
	}
	return e, nil
}

// ParseAll parses each source expression in turn with the same constants.
func ParseAll(srcs []string, consts map[string]float64) ([]Expr, error) {
	out := make([]Expr, len(srcs))
	for i, s := range srcs {
		e, err := ParseWith(s, consts)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

type converter struct {
	consts map[string]float64
}

func (c converter) convert(node ast.Expr) (Expr, error) {
	switch n := node.(type) {
	case *ast.ParenExpr:
		return c.convert(n.X)

	case *ast.BasicLit:
		if n.Kind != token.INT && n.Kind != token.FLOAT {
			return nil, fmt.Errorf("unsupported literal %s", n.Value)
		}
		v, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, err
		}
		return N(v), nil

	case *ast.Ident:
		switch n.Name {
		case "pi", "Pi":
			return N(math.Pi), nil
		case "e", "E":
			return N(math.E), nil
		}
		if v, ok := c.consts[n.Name]; ok {
			return N(v), nil
		}
		return S(n.Name), nil

	case *ast.UnaryExpr:
		x, err := c.convert(n.X)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case token.SUB:
			return Neg(x), nil
		case token.ADD:
			return x, nil
		}
		return nil, fmt.Errorf("unsupported unary operator %s", n.Op)

	case *ast.BinaryExpr:
		x, err := c.convert(n.X)
		if err != nil {
			return nil, err
		}
		y, err := c.convert(n.Y)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case token.ADD:
			return Add(x, y), nil
		case token.SUB:
			return Sub(x, y), nil
		case token.MUL:
			return Mul(x, y), nil
		case token.QUO:
			return Div(x, y), nil
		}
		return nil, fmt.Errorf("unsupported operator %s", n.Op)

	case *ast.CallExpr:
		return c.convertCall(n)
	}
	return nil, fmt.Errorf("unsupported syntax %T", node)
}

func (c converter) convertCall(call *ast.CallExpr) (Expr, error) {
	var name string
	switch fn := call.Fun.(type) {
	case *ast.Ident:
		name = fn.Name
	case *ast.SelectorExpr:
		pkg, ok := fn.X.(*ast.Ident)
		if !ok || pkg.Name != "math" {
			return nil, fmt.Errorf("unsupported function %T", call.Fun)
		}
		name = strings.ToLower(fn.Sel.Name)
	default:
		return nil, fmt.Errorf("unsupported function %T", call.Fun)
	}

	args := make([]Expr, len(call.Args))
	for i, a := range call.Args {
		e, err := c.convert(a)
		if err != nil {
			return nil, err
		}
		args[i] = e
	}

	if name == "pow" {
		if len(args) != 2 {
			return nil, fmt.Errorf("pow takes 2 arguments, got %d", len(args))
		}
		exp, ok := args[1].(*Num)
		if !ok {
			return nil, fmt.Errorf("pow exponent must be constant, got %s", args[1])
		}
		return Pow(args[0], exp.v), nil
	}

	if _, ok := elementary[name]; !ok {
		return nil, fmt.Errorf("unknown function %s", name)
	}
	if len(args) != 1 {
		return nil, fmt.Errorf("%s takes 1 argument, got %d", name, len(args))
	}
	return apply(name, args[0]), nil
}
