// Package symbolic provides the small expression kernel used to describe
// control system vector fields.
//
// Expressions are immutable trees built from constructors that fold
// constants as they go:
//
//   - [Num], [Sym]: leaves
//   - [Add], [Mul], [Pow]: arithmetic
//   - [Sin], [Cos], [Tan], [Exp], [Log], [Sqrt], [Tanh], [Atan]: functions
//
// Every expression can be differentiated symbolically ([Expr.Diff]) and a
// list of expressions can be compiled into a [Program] that evaluates all of
// them over many points at once:
//
//	x, u := symbolic.Symbols("x", 2), symbolic.Symbols("u", 1)
//	f := []symbolic.Expr{x[1], u[0]}
//	jac := symbolic.Jacobian(f, symbolic.Names(x, u))
//	prog, _ := symbolic.Compile(symbolic.Flatten(jac), symbolic.Names(x, u))
//
// # Thread Safety
//
// Expressions and compiled programs are read-only after construction and can
// be shared between goroutines.
package symbolic
