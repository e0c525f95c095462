package sim

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/hydrosim/internal/dynamo"
)

// Job is one independent trajectory: a parameterised system and its
// initial condition.
type Job struct {
	Name    string
	System  dynamo.System
	X0      dynamo.State
	Options dynamo.Options
}

// Ensemble runs independent jobs over the same output times concurrently.
// Each job gets its own Simulator, so no scratch is shared.
type Ensemble struct {
	tout    []float64
	workers int
	metrics func(dynamo.System) []dynamo.Metric
}

func NewEnsemble(tout []float64, workers int) *Ensemble {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Ensemble{tout: tout, workers: workers}
}

// WithMetrics sets a factory producing fresh metrics for each job.
func (e *Ensemble) WithMetrics(factory func(dynamo.System) []dynamo.Metric) *Ensemble {
	e.metrics = factory
	return e
}

func (e *Ensemble) Run(ctx context.Context, jobs []Job) ([]*Result, error) {
	results := make([]*Result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, job := range jobs {
		g.Go(func() error {
			res, err := e.run(gctx, job)
			if err != nil {
				return fmt.Errorf("job %d (%s): %w", i, job.Name, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// RunAll runs every job to completion. A failing job does not cancel the
// others; its error is reported at the same index and its result holds
// whatever was integrated before the failure.
func (e *Ensemble) RunAll(ctx context.Context, jobs []Job) ([]*Result, []error) {
	results := make([]*Result, len(jobs))
	errs := make([]error, len(jobs))

	var g errgroup.Group
	g.SetLimit(e.workers)

	for i, job := range jobs {
		g.Go(func() error {
			results[i], errs[i] = e.run(ctx, job)
			if errs[i] != nil {
				errs[i] = fmt.Errorf("job %d (%s): %w", i, job.Name, errs[i])
			}
			return nil
		})
	}

	_ = g.Wait()
	return results, errs
}

func (e *Ensemble) run(ctx context.Context, job Job) (*Result, error) {
	s := New(job.System, job.Options)
	if e.metrics != nil {
		for _, m := range e.metrics(job.System) {
			s.AddMetric(m)
		}
	}
	return s.Run(ctx, job.X0, e.tout)
}
