package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/hydrosim/internal/dynamo"
)

// pairs collects simulated discharge against observations. The state at
// the end of interval s is matched with obs[s-1]; intervals without a
// finite observation are skipped.
type pairs struct {
	out dynamo.Outflow
	obs []float64
	sim []float64
	ref []float64
}

func (p *pairs) observe(s int, x dynamo.State) {
	if s < 1 || s > len(p.obs) {
		return
	}
	o := p.obs[s-1]
	if math.IsNaN(o) || math.IsInf(o, 0) {
		return
	}
	p.sim = append(p.sim, p.out.Discharge(x))
	p.ref = append(p.ref, o)
}

func (p *pairs) reset() {
	p.sim = p.sim[:0]
	p.ref = p.ref[:0]
}

// RMSE is the root mean square error of simulated against observed
// discharge.
type RMSE struct {
	pairs
}

func NewRMSE(out dynamo.Outflow, observed []float64) *RMSE {
	return &RMSE{pairs{out: out, obs: observed}}
}

func (r *RMSE) Name() string { return "rmse" }

func (r *RMSE) Observe(s int, t float64, x dynamo.State) {
	r.observe(s, x)
}

func (r *RMSE) Value() float64 {
	if len(r.sim) == 0 {
		return math.NaN()
	}
	return floats.Distance(r.sim, r.ref, 2) / math.Sqrt(float64(len(r.sim)))
}

func (r *RMSE) Reset() { r.reset() }

// NSE is the Nash-Sutcliffe efficiency. 1 is a perfect fit, 0 is no
// better than the observed mean.
type NSE struct {
	pairs
}

func NewNSE(out dynamo.Outflow, observed []float64) *NSE {
	return &NSE{pairs{out: out, obs: observed}}
}

func (n *NSE) Name() string { return "nse" }

func (n *NSE) Observe(s int, t float64, x dynamo.State) {
	n.observe(s, x)
}

func (n *NSE) Value() float64 {
	if len(n.sim) < 2 {
		return math.NaN()
	}
	mean := stat.Mean(n.ref, nil)
	var num, den float64
	for i, o := range n.ref {
		d := n.sim[i] - o
		num += d * d
		m := o - mean
		den += m * m
	}
	if den == 0 {
		return math.NaN()
	}
	return 1 - num/den
}

func (n *NSE) Reset() { n.reset() }

// Score maps a metric value onto an objective where lower is always
// better. NSE is the only metric here that improves upward.
func Score(name string, value float64) float64 {
	if name == "nse" {
		return 1 - value
	}
	return value
}
