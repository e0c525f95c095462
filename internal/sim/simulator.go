package sim

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/hydrosim/internal/dynamo"
	"github.com/san-kum/hydrosim/internal/integrators"
)

// Simulator walks a System through a sequence of output times, running
// the adaptive controller once per interval.
type Simulator struct {
	dyn          dynamo.System
	opts         dynamo.Options
	metrics      []dynamo.Metric
	observers    []dynamo.Observer
	stepObserver dynamo.StepObserver
}

func New(dyn dynamo.System, opts dynamo.Options) *Simulator {
	return &Simulator{
		dyn:       dyn,
		opts:      opts,
		metrics:   make([]dynamo.Metric, 0),
		observers: make([]dynamo.Observer, 0),
	}
}

func (s *Simulator) AddMetric(m dynamo.Metric)             { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer)         { s.observers = append(s.observers, o) }
func (s *Simulator) SetStepObserver(o dynamo.StepObserver) { s.stepObserver = o }

func (s *Simulator) validate(x0 dynamo.State, tout []float64) error {
	n := s.dyn.StateDim()
	if len(x0) != n {
		return fmt.Errorf("%w: initial state has %d entries, system has %d", dynamo.ErrDimensionMismatch, len(x0), n)
	}
	if len(s.opts.AbsTol) != n {
		return fmt.Errorf("%w: abs_tol has %d entries, system has %d", dynamo.ErrDimensionMismatch, len(s.opts.AbsTol), n)
	}
	if !x0.IsValid() {
		return dynamo.ErrInvalidState
	}
	if len(tout) < 2 {
		return dynamo.ErrTimes
	}
	for i := 1; i < len(tout); i++ {
		if !(tout[i] > tout[i-1]) {
			return fmt.Errorf("%w: tout[%d]=%g follows %g", dynamo.ErrTimes, i, tout[i], tout[i-1])
		}
	}
	if f, ok := s.dyn.(dynamo.Forced); ok && len(tout)-1 > f.Intervals() {
		return fmt.Errorf("%w: %d intervals requested, forcing covers %d", dynamo.ErrTimes, len(tout)-1, f.Intervals())
	}
	return nil
}

// Integrate fills the caller-allocated trajectory traj (StateDim x
// len(tout)). Intervals run strictly in order, each seeded with the state
// written for the previous output time. The per-interval statistics are
// returned even when an interval fails.
func (s *Simulator) Integrate(ctx context.Context, x0 dynamo.State, tout []float64, traj *mat.Dense) ([]integrators.Stats, error) {
	if err := s.validate(x0, tout); err != nil {
		return nil, err
	}
	n := s.dyn.StateDim()
	if rows, cols := traj.Dims(); rows != n || cols != len(tout) {
		return nil, fmt.Errorf("%w: trajectory is %dx%d, want %dx%d", dynamo.ErrDimensionMismatch, rows, cols, n, len(tout))
	}

	adaptive := integrators.NewAdaptive(n, s.opts)
	adaptive.SetObserver(s.stepObserver)

	x := x0.Clone()
	traj.SetCol(0, x0)

	stats := make([]integrators.Stats, 0, len(tout)-1)
	for k := 1; k < len(tout); k++ {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		st, err := adaptive.Interval(s.dyn, k, tout[k-1], tout[k], x)
		stats = append(stats, st)
		if err != nil {
			return stats, err
		}

		traj.SetCol(k, x)

		for _, m := range s.metrics {
			m.Observe(k, tout[k], x)
		}
		for _, obs := range s.observers {
			obs.OnInterval(k, tout[k], x)
		}
	}

	return stats, nil
}

// Run allocates the trajectory, integrates and collects metrics.
func (s *Simulator) Run(ctx context.Context, x0 dynamo.State, tout []float64) (*Result, error) {
	if err := s.validate(x0, tout); err != nil {
		return nil, err
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	result := &Result{
		Times:      append([]float64(nil), tout...),
		Trajectory: mat.NewDense(s.dyn.StateDim(), len(tout), nil),
		Metrics:    make(map[string]float64),
	}

	intervals, err := s.Integrate(ctx, x0, tout, result.Trajectory)
	result.Intervals = intervals
	for _, st := range intervals {
		result.Stats.Add(st)
	}
	if err != nil {
		return result, err
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}
