package metrics

import (
	"math"

	"github.com/san-kum/hydrosim/internal/dynamo"
)

// Discharge is the mean outlet discharge over the output times.
type Discharge struct {
	name    string
	out     dynamo.Outflow
	sum     float64
	samples int
}

func NewDischarge(out dynamo.Outflow) *Discharge {
	return &Discharge{
		name: "mean_discharge",
		out:  out,
	}
}

func (d *Discharge) Name() string { return d.name }

func (d *Discharge) Observe(s int, t float64, x dynamo.State) {
	d.sum += d.out.Discharge(x)
	d.samples++
}

func (d *Discharge) Value() float64 {
	if d.samples == 0 {
		return 0
	}
	return d.sum / float64(d.samples)
}

func (d *Discharge) Reset() {
	d.sum = 0
	d.samples = 0
}

type PeakDischarge struct {
	name string
	out  dynamo.Outflow
	peak float64
	seen bool
}

func NewPeakDischarge(out dynamo.Outflow) *PeakDischarge {
	return &PeakDischarge{
		name: "peak_discharge",
		out:  out,
	}
}

func (p *PeakDischarge) Name() string { return p.name }

func (p *PeakDischarge) Observe(s int, t float64, x dynamo.State) {
	q := p.out.Discharge(x)
	if !p.seen {
		p.peak = q
		p.seen = true
		return
	}
	p.peak = math.Max(p.peak, q)
}

func (p *PeakDischarge) Value() float64 {
	return p.peak
}

func (p *PeakDischarge) Reset() {
	p.peak = 0
	p.seen = false
}
