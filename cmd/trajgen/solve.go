package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/san-kum/trajgen/internal/config"
	"github.com/san-kum/trajgen/internal/dynamo"
	"github.com/san-kum/trajgen/internal/metrics"
	"github.com/san-kum/trajgen/internal/planner"
	"github.com/san-kum/trajgen/internal/storage"
)

// solveFlags mirrors the planner settings that can be given on the command
// line. Only flags the user set override the loaded configuration.
type solveFlags struct {
	configFile     string
	preset         string
	segmentsX      int
	segmentsU      int
	degree         int
	delta          int
	kx             int
	nodes          string
	method         string
	tol            float64
	maxIter        int
	maxRefinements int
	ierr           float64
	eps            float64
	simIntegrator  string
	noChains       bool
	dense          bool
	noFast         bool
	samples        int
	noSave         bool
}

func (f *solveFlags) register(cmd *cobra.Command) {
	d := planner.DefaultConfig()
	fs := cmd.Flags()
	fs.StringVar(&f.configFile, "config", "", "config file path (yaml)")
	fs.StringVar(&f.preset, "preset", "", "configuration preset")
	fs.IntVar(&f.segmentsX, "segments-x", d.SegmentsX, "initial state spline segments")
	fs.IntVar(&f.segmentsU, "segments-u", d.SegmentsU, "initial input spline segments")
	fs.IntVar(&f.degree, "degree", d.Degree, "spline degree")
	fs.IntVar(&f.delta, "delta", d.Delta, "collocation points per segment")
	fs.IntVar(&f.kx, "kx", d.RefinementFactor, "segment multiplier per refinement")
	fs.StringVar(&f.nodes, "nodes", d.NodeType, "collocation node placement (equidistant, chebyshev)")
	fs.StringVar(&f.method, "method", d.Method, "solver method (leven, newton)")
	fs.Float64Var(&f.tol, "tol", d.Tolerance, "solver residual tolerance")
	fs.IntVar(&f.maxIter, "max-iter", d.MaxSolverIterations, "solver iterations per refinement")
	fs.IntVar(&f.maxRefinements, "max-refinements", d.MaxRefinements, "refinement budget")
	fs.Float64Var(&f.ierr, "ierr", d.ErrorTolerance, "collocation error bound between nodes (0 disables)")
	fs.Float64Var(&f.eps, "eps", d.SimTolerance, "simulated end state tolerance (0 disables)")
	fs.StringVar(&f.simIntegrator, "sim-integrator", d.SimIntegrator, "verification integrator (euler, rk4, rk45)")
	fs.BoolVar(&f.noChains, "no-chains", false, "ignore integrator chains")
	fs.BoolVar(&f.dense, "dense", false, "use dense Jacobians")
	fs.BoolVar(&f.noFast, "no-fast-interpolation", false, "warm start by least squares instead of re-expansion")
	fs.IntVar(&f.samples, "samples", config.DefaultSamples, "stored trajectory samples")
	fs.BoolVar(&f.noSave, "no-save", false, "do not store the run")
}

// load resolves the configuration: defaults, problem tuning, preset, file,
// then changed flags.
func (f *solveFlags) load(cmd *cobra.Command, problem string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if f.configFile != "" {
		cfg, err = config.Load(f.configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if problem != "" {
			cfg.Problem, cfg.System = problem, nil
		}
	} else {
		cfg, err = config.New(problem, f.preset)
		if err != nil {
			return nil, err
		}
	}
	if f.configFile != "" && f.preset != "" {
		p, ok := config.GetPreset(f.preset)
		if !ok {
			return nil, fmt.Errorf("%w: %s", config.ErrUnknownPreset, f.preset)
		}
		p.Apply(&cfg.Planner)
		cfg.Preset = f.preset
	}
	f.apply(cmd, cfg)
	return cfg, nil
}

func (f *solveFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	pc := &cfg.Planner
	if changed("segments-x") {
		pc.SegmentsX = f.segmentsX
	}
	if changed("segments-u") {
		pc.SegmentsU = f.segmentsU
	}
	if changed("degree") {
		pc.Degree = f.degree
	}
	if changed("delta") {
		pc.Delta = f.delta
	}
	if changed("kx") {
		pc.RefinementFactor = f.kx
	}
	if changed("nodes") {
		pc.NodeType = f.nodes
	}
	if changed("method") {
		pc.Method = f.method
	}
	if changed("tol") {
		pc.Tolerance = f.tol
	}
	if changed("max-iter") {
		pc.MaxSolverIterations = f.maxIter
	}
	if changed("max-refinements") {
		pc.MaxRefinements = f.maxRefinements
	}
	if changed("ierr") {
		pc.ErrorTolerance = f.ierr
	}
	if changed("eps") {
		pc.SimTolerance = f.eps
	}
	if changed("sim-integrator") {
		pc.SimIntegrator = f.simIntegrator
	}
	if changed("no-chains") {
		pc.UseChains = !f.noChains
	}
	if changed("dense") {
		pc.UseSparse = !f.dense
	}
	if changed("no-fast-interpolation") {
		pc.UseFastInterpolation = !f.noFast
	}
	if changed("samples") {
		cfg.Output.Samples = f.samples
	}
	if changed("data") {
		cfg.Output.Dir = dataDir
	}
}

func newSolveCmd() *cobra.Command {
	var flags solveFlags
	cmd := &cobra.Command{
		Use:   "solve [problem]",
		Short: "plan a trajectory for a built-in or configured problem",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			problem := ""
			if len(args) > 0 {
				problem = args[0]
			}
			cfg, err := flags.load(cmd, problem)
			if err != nil {
				return err
			}
			return runSolve(cmd.Context(), cfg, flags.noSave)
		},
	}
	flags.register(cmd)
	return cmd
}

func runSolve(ctx context.Context, cfg *config.Config, noSave bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if err := cfg.Validate(); err != nil {
		return err
	}
	problem, err := cfg.BuildProblem()
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	pl, err := planner.New(problem, cfg.Planner, planner.WithLogger(log))
	if err != nil {
		return err
	}

	fmt.Printf("solving %s...\n", cfg.Name())
	res, solveErr := pl.Solve(ctx)
	if res == nil {
		return solveErr
	}
	if solveErr != nil && !errors.Is(solveErr, dynamo.ErrNotConverged) {
		return solveErr
	}

	observed, err := pl.Replay(ctx, res,
		metrics.NewInputEnergy(),
		metrics.NewPeakInput(),
		metrics.NewInputEffort(),
		metrics.NewWithinBound(stateBound(problem)),
	)
	var runMetrics map[string]float64
	if err != nil {
		log.Warn("replay failed", zap.Error(err))
	} else {
		runMetrics = observed.Metrics
	}

	runID := ""
	if !noSave {
		st := storage.New(cfg.Output.Dir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err = st.Save(res, cfg.Planner, cfg.Output.Samples, runMetrics)
		if err != nil {
			return err
		}
	}

	fmt.Println(renderSummary(res, runID, runMetrics))
	if solveErr != nil {
		printWarning("no acceptable trajectory; stored the best iterate\n")
	}
	return solveErr
}

func newBatchCmd() *cobra.Command {
	var (
		file    string
		preset  string
		workers int
		noSave  bool
	)
	cmd := &cobra.Command{
		Use:   "batch [problem...]",
		Short: "plan several problems concurrently",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgs, err := batchConfigs(file, preset, args)
			if err != nil {
				return err
			}
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Sync()

			jobs := make([]planner.Job, len(cfgs))
			for i, cfg := range cfgs {
				p, err := cfg.BuildProblem()
				if err != nil {
					return err
				}
				jobs[i] = planner.Job{Problem: p, Config: cfg.Planner}
			}

			results, batchErr := planner.SolveBatch(cmd.Context(), jobs, workers, log)

			w := newTable()
			fmt.Fprintln(w, "PROBLEM\tSTATUS\tRESIDUAL\tREFINEMENTS\tSEGMENTS\tTIME\tRUN")
			for i, res := range results {
				name := cfgs[i].Name()
				if res == nil {
					fmt.Fprintf(w, "%s\terror\t-\t-\t-\t-\t-\n", name)
					continue
				}
				runID := "-"
				if !noSave {
					st := storage.New(cfgs[i].Output.Dir)
					id, err := st.Save(res, cfgs[i].Planner, cfgs[i].Output.Samples, nil)
					if err != nil {
						batchErr = multierr.Append(batchErr, err)
					} else {
						runID = id
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%.3g\t%d\t%d\t%s\t%s\n",
					name, statusText(res), res.Residual, res.Refinements, res.SegmentsX,
					res.Duration.Round(time.Millisecond), runID)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			return batchErr
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "batch file (yaml) listing the runs")
	cmd.Flags().StringVar(&preset, "preset", "", "configuration preset for problems given as arguments")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent problems (0 uses all CPUs)")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")
	return cmd
}

// batchConfigs resolves the runs of a batch file followed by the named
// problems. Runs without an explicit output directory use --data.
func batchConfigs(file, preset string, names []string) ([]*config.Config, error) {
	var cfgs []*config.Config
	if file != "" {
		name, loaded, err := config.LoadBatch(file)
		if err != nil {
			return nil, err
		}
		if name != "" {
			fmt.Printf("batch %s: %d runs\n", name, len(loaded))
		}
		cfgs = loaded
	}
	for _, name := range names {
		cfg, err := config.New(name, preset)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		cfgs = append(cfgs, cfg)
	}
	if len(cfgs) == 0 {
		return nil, errors.New("batch: name at least one problem or pass --file")
	}
	for _, cfg := range cfgs {
		if cfg.Output.Dir == config.DefaultDir {
			cfg.Output.Dir = dataDir
		}
	}
	return cfgs, nil
}
