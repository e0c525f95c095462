package integrators

import (
	"math"

	"github.com/san-kum/hydrosim/internal/dynamo"
)

// Controller constants for the step-size update h <- h*clamp(safety*norm^(-1/order)).
const (
	safety   = 0.9
	minScale = 0.2
	maxScale = 5.0
)

// Stats counts the work done by the controller.
type Stats struct {
	Accepted    int     `json:"accepted"`
	Rejected    int     `json:"rejected"`
	Evaluations int     `json:"evaluations"`
	MinStep     float64 `json:"min_step"` // smallest accepted step
	MaxStep     float64 `json:"max_step"` // largest accepted step
	LastStep    float64 `json:"last_step"`
}

// Add accumulates o into st.
func (st *Stats) Add(o Stats) {
	if o.Accepted > 0 {
		if st.Accepted == 0 || o.MinStep < st.MinStep {
			st.MinStep = o.MinStep
		}
		if o.MaxStep > st.MaxStep {
			st.MaxStep = o.MaxStep
		}
		st.LastStep = o.LastStep
	}
	st.Accepted += o.Accepted
	st.Rejected += o.Rejected
	st.Evaluations += o.Evaluations
}

// Adaptive drives Heun across one output interval, accepting steps whose
// weighted RMS error is at most one.
type Adaptive struct {
	opts     dynamo.Options
	heun     *Heun
	cand     dynamo.State
	lte      dynamo.State
	observer dynamo.StepObserver
}

// NewAdaptive allocates all scratch for n-dimensional states once. opts
// is assumed valid.
func NewAdaptive(n int, opts dynamo.Options) *Adaptive {
	return &Adaptive{
		opts: opts,
		heun: NewHeun(n),
		cand: make(dynamo.State, n),
		lte:  make(dynamo.State, n),
	}
}

func (a *Adaptive) SetObserver(o dynamo.StepObserver) { a.observer = o }

// ClampStep bounds h to [minStep, maxStep] and then to the remaining span.
// The remaining-span bound wins, so the last step of an interval may be
// shorter than minStep.
func ClampStep(h, minStep, maxStep, remaining float64) float64 {
	h = math.Max(minStep, math.Min(h, maxStep))
	return math.Min(h, remaining)
}

// StepFactor is the multiplicative step change for an error norm.
func StepFactor(norm, order float64) float64 {
	return math.Max(minScale, math.Min(maxScale, safety*math.Pow(norm, -1/order)))
}

// WRMS is the weighted root-mean-square of lte, weighting each component
// by 1/(relTol*|x[i]| + absTol[i]).
func WRMS(x, lte dynamo.State, relTol float64, absTol []float64) float64 {
	sum := 0.0
	for i := range x {
		w := 1.0 / (relTol*math.Abs(x[i]) + absTol[i])
		e := w * lte[i]
		sum += e * e
	}
	return math.Sqrt(sum / float64(len(x)))
}

// Interval integrates x in place over [t1, t2] for forcing interval s.
func (a *Adaptive) Interval(dyn dynamo.System, s int, t1, t2 float64, x dynamo.State) (Stats, error) {
	opts := a.opts
	var st Stats

	h := ClampStep(opts.InitialStep, opts.MinStep, opts.MaxStep, t2-t1)
	t := t1
	attempts := 0

	for t < t2 {
		if opts.MaxSteps > 0 && attempts >= opts.MaxSteps {
			return st, &dynamo.SimulationError{Interval: s, Time: t, State: x.Clone(), Wrapped: dynamo.ErrStepLimit}
		}
		attempts++

		a.heun.Advance(dyn, s, t, h, x, a.cand, a.lte)
		st.Evaluations += 2

		norm := WRMS(a.cand, a.lte, opts.RelTol, opts.AbsTol)
		if math.IsNaN(norm) || math.IsInf(norm, 1) {
			return st, &dynamo.SimulationError{Interval: s, Time: t, State: a.cand.Clone(), Wrapped: dynamo.ErrInvalidState}
		}

		accepted := norm <= 1
		if a.observer != nil {
			a.observer.OnStep(dynamo.StepEvent{Interval: s, T: t, H: h, Norm: norm, Accepted: accepted})
		}

		if accepted {
			copy(x, a.cand)
			if h >= t2-t {
				t = t2
			} else {
				t += h
			}
			if st.Accepted == 0 || h < st.MinStep {
				st.MinStep = h
			}
			st.MaxStep = math.Max(st.MaxStep, h)
			st.LastStep = h
			st.Accepted++
		} else {
			st.Rejected++
		}

		h = ClampStep(h*StepFactor(norm, opts.Order), opts.MinStep, opts.MaxStep, t2-t)
	}

	return st, nil
}
