package planner_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/trajgen/internal/dynamo"
	"github.com/san-kum/trajgen/internal/planner"
	"github.com/san-kum/trajgen/internal/symbolic"
)

var _ = Describe("Planner", func() {
	var (
		ctx context.Context
		cfg planner.Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		cfg = planner.DefaultConfig()
	})

	Describe("double integrator rest to rest", func() {
		problem := planner.Problem{
			Name: "double_integrator",
			Dynamics: func(x, u []symbolic.Expr) []symbolic.Expr {
				return []symbolic.Expr{x[1], u[0]}
			},
			A:      0,
			B:      2,
			XA:     []float64{0, 0},
			XB:     []float64{1, 0},
			Inputs: 1,
		}

		It("reaches the target without refinement", func() {
			p, err := planner.New(problem, cfg)
			Expect(err).NotTo(HaveOccurred())

			res, err := p.Solve(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Success).To(BeTrue())
			Expect(res.Phase).To(Equal(planner.PhaseDone))
			Expect(res.Refinements).To(BeZero())
			Expect(res.Checks.SimulationError).To(BeNumerically("<", cfg.SimTolerance))
		})

		It("keeps the chain relation between position, velocity and input", func() {
			p, err := planner.New(problem, cfg)
			Expect(err).NotTo(HaveOccurred())
			res, err := p.Solve(ctx)
			Expect(err).NotTo(HaveOccurred())

			set := res.Trajectory
			for _, t := range []float64{0.13, 0.7, 1.0, 1.55} {
				dx, err := set.DX(t)
				Expect(err).NotTo(HaveOccurred())
				x, _ := set.X(t)
				u, _ := set.U(t)
				Expect(dx[0]).To(BeNumerically("~", x[1], 1e-9))
				Expect(dx[1]).To(BeNumerically("~", u[0], 1e-9))
			}
		})

		It("stores a sampled trajectory that starts and ends on the boundary values", func() {
			p, err := planner.New(problem, cfg)
			Expect(err).NotTo(HaveOccurred())
			res, err := p.Solve(ctx)
			Expect(err).NotTo(HaveOccurred())

			data, err := res.Sample(101)
			Expect(err).NotTo(HaveOccurred())
			Expect(data.Times).To(HaveLen(101))
			Expect(data.States[0]).To(HaveEach(BeNumerically("~", 0, 1e-9)))
			Expect(data.States[100][0]).To(BeNumerically("~", 1, 1e-9))
			Expect(data.States[100][1]).To(BeNumerically("~", 0, 1e-9))
		})
	})

	Describe("damped pendulum swing", func() {
		problem := planner.Problem{
			Name: "pendulum",
			Dynamics: func(x, u []symbolic.Expr) []symbolic.Expr {
				return []symbolic.Expr{
					x[1],
					symbolic.Add(symbolic.Neg(symbolic.Sin(x[0])), symbolic.Mul(symbolic.N(-0.1), x[1]), u[0]),
				}
			},
			A:      0,
			B:      2,
			XA:     []float64{0, 0},
			XB:     []float64{0.5, 0},
			Inputs: 1,
		}

		DescribeTable("converges with",
			func(method string, sparse bool) {
				cfg.Method = method
				cfg.UseSparse = sparse
				p, err := planner.New(problem, cfg)
				Expect(err).NotTo(HaveOccurred())
				Expect(p.Equations()).To(Equal([]int{1}))

				res, err := p.Solve(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Success).To(BeTrue())
				Expect(res.Checks.CollocationError).To(BeNumerically("<=", cfg.ErrorTolerance))
				Expect(res.Residual).To(BeNumerically("<=", cfg.Tolerance))
			},
			Entry("Levenberg-Marquardt on a sparse Jacobian", "leven", true),
			Entry("Levenberg-Marquardt on a dense Jacobian", "leven", false),
		)

		It("follows the dynamics when replayed open loop", func() {
			p, err := planner.New(problem, cfg)
			Expect(err).NotTo(HaveOccurred())
			res, err := p.Solve(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Checks.SimulationError).To(BeNumerically("<", cfg.SimTolerance))
			Expect(math.IsNaN(res.Checks.SimulationError)).To(BeFalse())
		})
	})

	Describe("an unreachable target", func() {
		problem := planner.Problem{
			Name: "monotone",
			Dynamics: func(x, u []symbolic.Expr) []symbolic.Expr {
				return []symbolic.Expr{symbolic.Add(symbolic.Pow(u[0], 2), symbolic.N(1))}
			},
			A:      0,
			B:      1,
			XA:     []float64{1},
			XB:     []float64{0},
			Inputs: 1,
		}

		It("fails after the refinement budget with the best iterate", func() {
			cfg.MaxRefinements = 1
			cfg.MaxSolverIterations = 10
			p, err := planner.New(problem, cfg)
			Expect(err).NotTo(HaveOccurred())

			res, err := p.Solve(ctx)
			Expect(err).To(MatchError(dynamo.ErrNotConverged))
			var rerr *planner.RefinementError
			Expect(err).To(BeAssignableToTypeOf(rerr))
			Expect(res).NotTo(BeNil())
			Expect(res.Success).To(BeFalse())
			Expect(res.Phase).To(Equal(planner.PhaseFailed))
			Expect(p.Phase()).To(Equal(planner.PhaseFailed))
		})
	})
})
