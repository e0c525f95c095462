package integrators

import (
	"math"

	"github.com/san-kum/hydrosim/internal/dynamo"
)

// Heun is the embedded Euler/Heun pair. The Euler predictor is first
// order, the Heun corrector second order, and their difference is the
// local truncation error estimate.
type Heun struct {
	k1, k2, euler dynamo.State
}

func NewHeun(n int) *Heun {
	h := &Heun{}
	h.ensureScratch(n)
	return h
}

func (h *Heun) ensureScratch(n int) {
	if len(h.k1) != n {
		h.k1 = make(dynamo.State, n)
		h.k2 = make(dynamo.State, n)
		h.euler = make(dynamo.State, n)
	}
}

// Advance takes one step of size dt from (t, x) in interval s. The Heun
// solution is written to xNew and the per-component error to lte; x is
// left untouched. Exactly two Derive calls are made.
func (h *Heun) Advance(dyn dynamo.System, s int, t, dt float64, x, xNew, lte dynamo.State) {
	n := len(x)
	h.ensureScratch(n)

	dyn.Derive(s, t, x, h.k1)
	for i := 0; i < n; i++ {
		h.euler[i] = x[i] + dt*h.k1[i]
	}

	dyn.Derive(s, t+dt, h.euler, h.k2)
	half := 0.5 * dt
	for i := 0; i < n; i++ {
		xNew[i] = x[i] + half*(h.k1[i]+h.k2[i])
	}

	for i := 0; i < n; i++ {
		lte[i] = math.Abs(h.euler[i] - xNew[i])
	}
}

// Step is the fixed-step form of Advance, discarding the error estimate.
func (h *Heun) Step(dyn dynamo.System, s int, t, dt float64, x dynamo.State) dynamo.State {
	xNew := make(dynamo.State, len(x))
	lte := make(dynamo.State, len(x))
	h.Advance(dyn, s, t, dt, x, xNew, lte)
	return xNew
}
