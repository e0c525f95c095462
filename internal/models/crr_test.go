package models

import (
	"math"
	"testing"

	"github.com/san-kum/hydrosim/internal/dynamo"
)

func testParams() CRRParams {
	return CRRParams{
		Imax: 2, Sumax: 100, Qsmax: 5,
		AE: 2, AF: -3, AS: 1.5,
		Kf: 3, Ks: 60,
	}
}

func TestCRRDimensions(t *testing.T) {
	m := NewCRR(testParams(), Forcing{})
	if m.StateDim() != 4 {
		t.Errorf("expected state dim 4, got %d", m.StateDim())
	}
	if names := m.StateNames(); len(names) != m.StateDim() || names[SlowStore] != "ss" {
		t.Errorf("unexpected state names %v", names)
	}
}

func TestCRRLinearLimit(t *testing.T) {
	params := CRRParams{Imax: 0, Sumax: 100, Qsmax: 4, Kf: 2, Ks: 50}
	forcing := Forcing{P: []float64{0, 10}, Ep: []float64{0, 3}}
	m := NewCRR(params, forcing)

	x := dynamo.State{1.0, 25.0, 6.0, 40.0}
	dx := make(dynamo.State, 4)
	m.Derive(2, 0, x, dx)

	ratio := 25.0 / 100.0
	evap := 3 * ratio
	perc := 4 * ratio
	runoff := 10 * ratio

	want := dynamo.State{
		10 - 0 - 10,
		10 - evap - perc - runoff,
		runoff - 6.0/2,
		perc - 40.0/50,
	}
	for i := range want {
		if math.Abs(dx[i]-want[i]) > 1e-12 {
			t.Errorf("dx[%d] = %v, want %v", i, dx[i], want[i])
		}
	}
}

func TestCRRZeroCapacity(t *testing.T) {
	params := CRRParams{Imax: 0, Sumax: 0, Qsmax: 2, AE: 2, AF: -3, AS: 1, Kf: 2, Ks: 4}
	m := NewCRR(params, Forcing{P: []float64{5}, Ep: []float64{1}})

	x := dynamo.State{0, 0, 1, 1}
	dx := make(dynamo.State, 4)
	m.Derive(1, 0, x, dx)

	// A zero-capacity soil store behaves as full.
	want := dynamo.State{0, 5 - 1 - 2 - 5, 5 - 0.5, 2 - 0.25}
	for i := range want {
		if math.IsNaN(dx[i]) || math.Abs(dx[i]-want[i]) > 1e-12 {
			t.Errorf("dx[%d] = %v, want %v", i, dx[i], want[i])
		}
	}
}

func TestCRRInterceptionPassThrough(t *testing.T) {
	params := testParams()
	params.Imax = 0
	m := NewCRR(params, Forcing{P: []float64{8}, Ep: []float64{2}})

	f := m.Fluxes(1, dynamo.State{0, 50, 0, 0})
	if f.EvapI != 0 || f.EffPrecip != 8 || f.EffPET != 2 {
		t.Errorf("unexpected pass-through fluxes: %+v", f)
	}
}

func TestCRRInterception(t *testing.T) {
	m := NewCRR(testParams(), Forcing{P: []float64{8}, Ep: []float64{2}})

	empty := m.Fluxes(1, dynamo.State{0, 50, 0, 0})
	if empty.EvapI != 0 {
		t.Errorf("empty interception store should not evaporate, got %v", empty.EvapI)
	}
	if empty.EffPrecip != 0 {
		t.Errorf("empty interception store should not pass throughfall, got %v", empty.EffPrecip)
	}
	if empty.EffPET != 2 {
		t.Errorf("expected full effective PET, got %v", empty.EffPET)
	}

	full := m.Fluxes(1, dynamo.State{2, 50, 0, 0})
	if math.Abs(full.EffPrecip-8) > 1e-12 {
		t.Errorf("full interception store should pass all rain, got %v", full.EffPrecip)
	}
	if math.Abs(full.EvapI-2) > 1e-12 || full.EffPET > 1e-12 {
		t.Errorf("full interception store should consume PET, got evapI=%v effPET=%v", full.EvapI, full.EffPET)
	}
}

func TestCRRZeroForcingDrains(t *testing.T) {
	m := NewCRR(testParams(), Forcing{P: []float64{0}, Ep: []float64{0}})
	dx := make(dynamo.State, 4)

	for _, x := range []dynamo.State{
		{1, 80, 10, 400},
		{0.5, 10, 1, 100},
		{0, 0, 0, 0},
	} {
		m.Derive(1, 0, x, dx)
		for i, v := range dx {
			if v > 0 {
				t.Errorf("state %v: dx[%d] = %v, expected non-positive", x, i, v)
			}
		}
	}
}

func TestCRRWaterBalance(t *testing.T) {
	m := NewCRR(testParams(), Forcing{P: []float64{12}, Ep: []float64{4}})
	x := dynamo.State{1.2, 55, 7, 120}
	dx := make(dynamo.State, 4)
	m.Derive(1, 0, x, dx)

	f := m.Fluxes(1, x)
	storage := dx[0] + dx[1] + dx[2] + dx[3]
	budget := f.Precip - f.EvapI - f.Evap - f.FastQ - f.SlowQ
	if math.Abs(storage-budget) > 1e-12 {
		t.Errorf("storage change %v does not close budget %v", storage, budget)
	}
}

func TestCRRDischarge(t *testing.T) {
	m := NewCRR(testParams(), Forcing{})
	q := m.Discharge(dynamo.State{0, 0, 6, 120})
	if math.Abs(q-(2+2)) > 1e-12 {
		t.Errorf("expected discharge 4, got %v", q)
	}
}

func TestCRRParams(t *testing.T) {
	m := NewCRR(testParams(), Forcing{})
	m.SetParam("kf", 7)
	m.SetParam("unknown", 1)
	if m.GetParams()["kf"] != 7 {
		t.Errorf("SetParam did not update kf")
	}
	if len(m.GetParams()) != 8 {
		t.Errorf("expected 8 params, got %d", len(m.GetParams()))
	}
}

func TestReservoir(t *testing.T) {
	r := NewReservoir(4, []float64{2})
	dx := make(dynamo.State, 1)
	r.Derive(1, 0, dynamo.State{4}, dx)
	if dx[0] != 1 {
		t.Errorf("expected dS/dt = 1, got %v", dx[0])
	}

	if got := r.Exact(8, 2, 0); got != 8 {
		t.Errorf("Exact at dt=0 = %v, want 8", got)
	}
	if got := r.Exact(0, 2, 1e6); math.Abs(got-8) > 1e-9 {
		t.Errorf("Exact should approach equilibrium 8, got %v", got)
	}
}
