package dynamo

import (
	"fmt"
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// System is the right-hand side of an ODE whose forcing is piecewise
// constant over output intervals. Derive writes f(s, t, x) into dx, where s
// is the 1-based interval index. Implementations must not retain x or dx.
type System interface {
	StateDim() int
	Derive(s int, t float64, x, dx State)
}

// Outflow is implemented by systems that drain to an outlet.
type Outflow interface {
	Discharge(x State) float64
}

// Forced is implemented by systems that read one forcing sample per
// interval. Intervals is the number of samples available.
type Forced interface {
	Intervals() int
}

type Metric interface {
	Name() string
	Observe(s int, t float64, x State)
	Value() float64
	Reset()
}

// Configurable is implemented by systems with named, tunable parameters.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64)
}

// Observer is notified once per completed output interval.
type Observer interface {
	OnInterval(s int, t float64, x State)
}

// StepEvent describes one attempted sub-step of the adaptive controller.
type StepEvent struct {
	Interval int
	T        float64 // time at the start of the attempt
	H        float64
	Norm     float64
	Accepted bool
}

type StepObserver interface {
	OnStep(ev StepEvent)
}

// Options controls the adaptive integrator. All fields are read-only to
// the integrator; validate once with Validate before running.
type Options struct {
	InitialStep float64   `yaml:"initial_step" json:"initial_step"`
	MaxStep     float64   `yaml:"max_step" json:"max_step"`
	MinStep     float64   `yaml:"min_step" json:"min_step"`
	RelTol      float64   `yaml:"rel_tol" json:"rel_tol"`
	AbsTol      []float64 `yaml:"abs_tol" json:"abs_tol"`
	Order       float64   `yaml:"order" json:"order"`

	// MaxSteps caps step attempts per interval. Zero means unbounded.
	MaxSteps int `yaml:"max_steps,omitempty" json:"max_steps,omitempty"`
}

func DefaultOptions(n int) Options {
	absTol := make([]float64, n)
	for i := range absTol {
		absTol[i] = 1e-3
	}
	return Options{
		InitialStep: 0.1,
		MaxStep:     1.0,
		MinStep:     1e-6,
		RelTol:      1e-3,
		AbsTol:      absTol,
		Order:       2,
	}
}

func (o Options) Validate(n int) error {
	switch {
	case o.MinStep <= 0:
		return fmt.Errorf("%w: min_step must be positive, got %g", ErrInvalidOptions, o.MinStep)
	case o.MaxStep <= 0:
		return fmt.Errorf("%w: max_step must be positive, got %g", ErrInvalidOptions, o.MaxStep)
	case o.MinStep > o.MaxStep:
		return fmt.Errorf("%w: min_step %g exceeds max_step %g", ErrInvalidOptions, o.MinStep, o.MaxStep)
	case o.InitialStep <= 0:
		return fmt.Errorf("%w: initial_step must be positive, got %g", ErrInvalidOptions, o.InitialStep)
	case o.RelTol < 0:
		return fmt.Errorf("%w: rel_tol must be non-negative, got %g", ErrInvalidOptions, o.RelTol)
	case o.Order <= 0:
		return fmt.Errorf("%w: order must be positive, got %g", ErrInvalidOptions, o.Order)
	case o.MaxSteps < 0:
		return fmt.Errorf("%w: max_steps must be non-negative, got %d", ErrInvalidOptions, o.MaxSteps)
	}
	if len(o.AbsTol) != n {
		return fmt.Errorf("%w: abs_tol has %d entries, want %d", ErrDimensionMismatch, len(o.AbsTol), n)
	}
	for i, v := range o.AbsTol {
		if v <= 0 && o.RelTol == 0 {
			return fmt.Errorf("%w: abs_tol[%d] must be positive when rel_tol is zero", ErrInvalidOptions, i)
		}
		if v < 0 {
			return fmt.Errorf("%w: abs_tol[%d] must be non-negative, got %g", ErrInvalidOptions, i, v)
		}
	}
	return nil
}

// Labeled is implemented by systems that name their state components.
type Labeled interface {
	StateNames() []string
}
