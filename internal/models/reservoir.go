package models

import (
	"math"

	"github.com/san-kum/hydrosim/internal/dynamo"
)

// Reservoir is a single linear reservoir:
//
//	dS/dt = P(s) - S/K
type Reservoir struct {
	K float64   // time constant
	P []float64 // inflow per interval
}

func NewReservoir(k float64, inflow []float64) *Reservoir {
	return &Reservoir{K: k, P: inflow}
}

func (r *Reservoir) StateDim() int { return 1 }

func (r *Reservoir) Intervals() int { return len(r.P) }

func (r *Reservoir) StateNames() []string { return []string{"s"} }

func (r *Reservoir) Derive(s int, _ float64, x, dx dynamo.State) {
	dx[0] = r.P[s-1] - x[0]/r.K
}

func (r *Reservoir) Discharge(x dynamo.State) float64 {
	return x[0] / r.K
}

// Exact returns the analytic storage after dt under constant inflow p.
func (r *Reservoir) Exact(s0, p, dt float64) float64 {
	eq := p * r.K
	return eq + (s0-eq)*math.Exp(-dt/r.K)
}

func (r *Reservoir) GetParams() map[string]float64 {
	return map[string]float64{"k": r.K}
}

func (r *Reservoir) SetParam(name string, value float64) {
	if name == "k" {
		r.K = value
	}
}
