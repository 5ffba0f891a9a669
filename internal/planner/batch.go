package planner

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Job is one independent planning run of a batch.
type Job struct {
	Problem Problem
	Config  Config
}

// SolveBatch plans every job on its own Planner, running at most workers
// jobs at a time (GOMAXPROCS when workers < 1). Results keep the job order;
// a failed job leaves its best result (possibly nil) in place and its error
// is combined into the returned error.
func SolveBatch(ctx context.Context, jobs []Job, workers int, log *zap.Logger) ([]*Result, error) {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	if log == nil {
		log = zap.NewNop()
	}

	results := make([]*Result, len(jobs))
	errs := make([]error, len(jobs))
	sem := make(chan struct{}, workers)

	var wg sync.WaitGroup
	for i := range jobs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				errs[idx] = ctx.Err()
				return
			}
			defer func() { <-sem }()

			job := jobs[idx]
			p, err := New(job.Problem, job.Config, WithLogger(log.With(zap.Int("job", idx))))
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx], errs[idx] = p.Solve(ctx)
		}(i)
	}
	wg.Wait()

	var combined error
	for i, err := range errs {
		if err != nil {
			combined = multierr.Append(combined, fmt.Errorf("job %d (%s): %w", i, jobs[i].Problem.Name, err))
		}
	}
	return results, combined
}
