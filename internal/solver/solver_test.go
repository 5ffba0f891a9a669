package solver

import (
	"context"
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajgen/internal/linalg"
)

type funcProblem struct {
	f      func(x []float64) []float64
	j      func(x []float64) *mat.Dense
	sparse bool
}

func (p funcProblem) G(x []float64) ([]float64, error) { return p.f(x), nil }

func (p funcProblem) DG(x []float64) (mat.Matrix, error) {
	if p.sparse {
		return linalg.FromDense(p.j(x)), nil
	}
	return p.j(x), nil
}

func rosenbrock(sparse bool) funcProblem {
	return funcProblem{
		f: func(x []float64) []float64 {
			return []float64{10 * (x[1] - x[0]*x[0]), 1 - x[0]}
		},
		j: func(x []float64) *mat.Dense {
			return mat.NewDense(2, 2, []float64{-20 * x[0], 10, -1, 0})
		},
		sparse: sparse,
	}
}

func TestSolveRosenbrock(t *testing.T) {
	for _, name := range []string{"newton", "leven"} {
		for _, sparse := range []bool{false, true} {
			m, err := MethodByName(name)
			if err != nil {
				t.Fatal(err)
			}
			res, err := Solve(context.Background(), rosenbrock(sparse), m, []float64{-1.2, 1}, DefaultOptions())
			if err != nil {
				t.Fatal(err)
			}
			if !res.Converged() {
				t.Errorf("%s sparse=%v: expected convergence, got %s after %d iterations (residual %g)",
					name, sparse, res.Status, res.Iterations, res.Residual)
				continue
			}
			if math.Abs(res.X[0]-1) > 1e-4 || math.Abs(res.X[1]-1) > 1e-4 {
				t.Errorf("%s sparse=%v: expected (1,1), got %v", name, sparse, res.X)
			}
		}
	}
}

func TestSolveOverdeterminedLinear(t *testing.T) {
	a := mat.NewDense(3, 2, []float64{1, 0, 0, 1, 1, 1})
	p := funcProblem{
		f: func(x []float64) []float64 {
			return []float64{x[0] - 2, x[1] + 1, x[0] + x[1] - 1}
		},
		j: func([]float64) *mat.Dense { return a },
	}
	res, err := Solve(context.Background(), p, NewNewton(), []float64{0, 0}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Converged() || res.Iterations != 1 {
		t.Errorf("expected convergence in one step, got %s after %d", res.Status, res.Iterations)
	}
}

func TestNewtonSingularJacobian(t *testing.T) {
	p := funcProblem{
		f: func(x []float64) []float64 { return []float64{x[0] * x[0], x[1] - 1} },
		j: func(x []float64) *mat.Dense { return mat.NewDense(2, 2, []float64{2 * x[0], 0, 0, 1}) },
	}
	res, err := Solve(context.Background(), p, NewNewton(), []float64{0, 5}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Converged() {
		t.Errorf("expected convergence, got %s", res.Status)
	}
}

func TestSolveUnsolvable(t *testing.T) {
	p := funcProblem{
		f: func(x []float64) []float64 { return []float64{x[0]*x[0] + 1} },
		j: func(x []float64) *mat.Dense { return mat.NewDense(1, 1, []float64{2 * x[0]}) },
	}
	opts := DefaultOptions()
	opts.MaxIterations = 30
	res, err := Solve(context.Background(), p, NewLevenbergMarquardt(), []float64{2}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.Converged() {
		t.Fatal("expected failure for a system without roots")
	}
	if res.Residual < 1 || res.Residual > 5 {
		t.Errorf("expected best residual in [1,5], got %f", res.Residual)
	}
}

func TestSolveWithoutUnknowns(t *testing.T) {
	tests := []struct {
		name     string
		residual float64
		want     Status
	}{
		{"satisfied", 0, Converged},
		{"violated", 0.5, Degenerate},
	}
	for _, tt := range tests {
		for _, method := range []string{"newton", "leven"} {
			t.Run(tt.name+"/"+method, func(t *testing.T) {
				p := funcProblem{
					f: func([]float64) []float64 { return []float64{tt.residual} },
					j: func([]float64) *mat.Dense {
						t.Fatal("jacobian evaluated without unknowns")
						return nil
					},
				}
				m, _ := MethodByName(method)
				res, err := Solve(context.Background(), p, m, nil, DefaultOptions())
				if err != nil {
					t.Fatal(err)
				}
				if res.Status != tt.want || res.Iterations != 0 {
					t.Errorf("expected %s after 0 iterations, got %s after %d", tt.want, res.Status, res.Iterations)
				}
				if res.Residual != tt.residual {
					t.Errorf("expected residual %g, got %g", tt.residual, res.Residual)
				}
			})
		}
	}
}

func TestSolveCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Solve(ctx, rosenbrock(false), NewNewton(), []float64{-1.2, 1}, DefaultOptions())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestLevenbergMarquardtAdapt(t *testing.T) {
	lm := NewLevenbergMarquardt()
	mu := lm.Mu()

	if lm.Adapt(0.1) {
		t.Error("expected rejection for rho below B0")
	}
	if lm.Mu() != 2*mu {
		t.Errorf("expected mu %g, got %g", 2*mu, lm.Mu())
	}
	if !lm.Adapt(0.5) || lm.Mu() != 2*mu {
		t.Error("expected acceptance without change for moderate rho")
	}
	if !lm.Adapt(0.9) || lm.Mu() != mu {
		t.Errorf("expected mu back to %g, got %g", mu, lm.Mu())
	}
	lm.Adapt(0)
	lm.Reset()
	if lm.Mu() != lm.Mu0 {
		t.Errorf("expected reset to %g, got %g", lm.Mu0, lm.Mu())
	}
}

func TestSparseAndDenseStepsAgree(t *testing.T) {
	j := mat.NewDense(3, 2, []float64{1, 2, 0, 1, 3, 0})
	f := []float64{1, -1, 2}

	lm := NewLevenbergMarquardt()
	sd, err := lm.Step(j, f)
	if err != nil {
		t.Fatal(err)
	}
	ss, err := lm.Step(linalg.FromDense(j), f)
	if err != nil {
		t.Fatal(err)
	}
	for i := range sd {
		if math.Abs(sd[i]-ss[i]) > 1e-12 {
			t.Errorf("component %d: dense %f, sparse %f", i, sd[i], ss[i])
		}
	}
}

func TestLevenbergMarquardtReusesNormalEquations(t *testing.T) {
	j := linalg.FromDense(mat.NewDense(3, 2, []float64{1, 2, 0, 1, 3, 0}))
	f := []float64{1, -1, 2}

	lm := NewLevenbergMarquardt()
	lm.Mu0 = 0.5
	lm.Reset()
	first, err := lm.Step(j, f)
	if err != nil {
		t.Fatal(err)
	}
	lm.Adapt(0)
	retry, err := lm.Step(j, f)
	if err != nil {
		t.Fatal(err)
	}

	fresh := NewLevenbergMarquardt()
	fresh.Mu0 = 1
	fresh.Reset()
	want, err := fresh.Step(j, f)
	if err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if math.Abs(retry[i]-want[i]) > 1e-12 {
			t.Errorf("component %d: retried step %f, fresh step %f", i, retry[i], want[i])
		}
	}
	if math.Abs(first[0]-retry[0]) < 1e-6 {
		t.Errorf("larger damping should shorten the step: %v vs %v", first, retry)
	}
}

func TestMethodByNameUnknown(t *testing.T) {
	if _, err := MethodByName("bisection"); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("expected ErrUnknownMethod, got %v", err)
	}
}
