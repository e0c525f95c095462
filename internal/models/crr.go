package models

import (
	"math"

	"github.com/san-kum/hydrosim/internal/dynamo"
)

// Interception shapes are fixed: evaporation drains the store quickly,
// throughfall only starts near capacity.
const (
	interceptionEvapShape = 50.0
	throughfallShape      = -50.0
)

// CRR state indices.
const (
	Interception = iota
	Unsaturated
	FastStore
	SlowStore
)

// CRRParams are the catchment constants of the conceptual rainfall-runoff
// model. Kf and Ks are reservoir time constants in output time units.
type CRRParams struct {
	Imax  float64 `yaml:"imax" json:"imax"`   // interception capacity
	Sumax float64 `yaml:"sumax" json:"sumax"` // unsaturated zone capacity
	Qsmax float64 `yaml:"qsmax" json:"qsmax"` // maximum percolation rate
	AE    float64 `yaml:"ae" json:"ae"`       // evaporation shape
	AF    float64 `yaml:"af" json:"af"`       // runoff shape
	AS    float64 `yaml:"as" json:"as"`       // percolation shape
	Kf    float64 `yaml:"kf" json:"kf"`
	Ks    float64 `yaml:"ks" json:"ks"`
}

// Forcing holds one precipitation and one potential evapotranspiration
// sample per output interval.
type Forcing struct {
	P  []float64
	Ep []float64
}

// Intervals returns the number of forcing intervals.
func (f Forcing) Intervals() int {
	return len(f.P)
}

// Fluxes are the intermediate rates of one CRR evaluation.
type Fluxes struct {
	Precip      float64
	EvapI       float64
	EffPrecip   float64
	EffPET      float64
	Evap        float64
	Percolation float64
	Runoff      float64
	FastQ       float64
	SlowQ       float64
}

// CRR is a four-reservoir bucket model: interception, unsaturated zone,
// fast routing and slow routing.
type CRR struct {
	Params  CRRParams
	Forcing Forcing
}

func NewCRR(params CRRParams, forcing Forcing) *CRR {
	return &CRR{Params: params, Forcing: forcing}
}

func (m *CRR) StateDim() int { return 4 }

func (m *CRR) Intervals() int { return m.Forcing.Intervals() }

func (m *CRR) StateNames() []string { return []string{"si", "su", "sf", "ss"} }

// Fluxes evaluates the model rates for interval s (1-based).
func (m *CRR) Fluxes(s int, x dynamo.State) Fluxes {
	p := m.Params
	si, su, sf, ss := x[Interception], x[Unsaturated], x[FastStore], x[SlowStore]
	precip := m.Forcing.P[s-1]
	pet := m.Forcing.Ep[s-1]

	f := Fluxes{Precip: precip}
	if p.Imax > 0 {
		f.EvapI = pet * ExpFlux(si/p.Imax, interceptionEvapShape)
		f.EffPrecip = precip * ExpFlux(si/p.Imax, throughfallShape)
		f.EffPET = math.Max(0, pet-f.EvapI)
	} else {
		f.EffPrecip = precip
		f.EffPET = pet
	}

	ratio := su / p.Sumax
	f.Evap = f.EffPET * ExpFlux(ratio, p.AE)
	f.Percolation = p.Qsmax * ExpFlux(ratio, p.AS)
	f.Runoff = f.EffPrecip * ExpFlux(ratio, p.AF)
	f.FastQ = sf / p.Kf
	f.SlowQ = ss / p.Ks
	return f
}

func (m *CRR) Derive(s int, _ float64, x, dx dynamo.State) {
	f := m.Fluxes(s, x)
	dx[Interception] = f.Precip - f.EvapI - f.EffPrecip
	dx[Unsaturated] = f.EffPrecip - f.Evap - f.Percolation - f.Runoff
	dx[FastStore] = f.Runoff - f.FastQ
	dx[SlowStore] = f.Percolation - f.SlowQ
}

// Discharge is the outlet flow: the sum of both routing reservoirs.
func (m *CRR) Discharge(x dynamo.State) float64 {
	return x[FastStore]/m.Params.Kf + x[SlowStore]/m.Params.Ks
}

func (m *CRR) GetParams() map[string]float64 {
	p := m.Params
	return map[string]float64{
		"imax": p.Imax, "sumax": p.Sumax, "qsmax": p.Qsmax,
		"ae": p.AE, "af": p.AF, "as": p.AS, "kf": p.Kf, "ks": p.Ks,
	}
}

func (m *CRR) SetParam(name string, value float64) {
	switch name {
	case "imax":
		m.Params.Imax = value
	case "sumax":
		m.Params.Sumax = value
	case "qsmax":
		m.Params.Qsmax = value
	case "ae":
		m.Params.AE = value
	case "af":
		m.Params.AF = value
	case "as":
		m.Params.AS = value
	case "kf":
		m.Params.Kf = value
	case "ks":
		m.Params.Ks = value
	}
}
