package models

import (
	"math"
	"testing"
)

var testShapes = []float64{-1000, -50, -5, -0.5, -1e-5, 0, 1e-7, 1e-5, 0.5, 5, 50, 1000}

func TestExpFlux_Bounds(t *testing.T) {
	for _, a := range testShapes {
		for r := 0.0; r <= 1.0; r += 0.01 {
			v := ExpFlux(r, a)
			if v < 0 || v > 1 || math.IsNaN(v) {
				t.Fatalf("ExpFlux(%v, %v) = %v, outside [0,1]", r, a, v)
			}
		}
	}
}

func TestExpFlux_Endpoints(t *testing.T) {
	for _, a := range testShapes {
		if got := ExpFlux(0, a); math.Abs(got) > 1e-12 {
			t.Errorf("ExpFlux(0, %v) = %v, want 0", a, got)
		}
		if got := ExpFlux(1, a); math.Abs(got-1) > 1e-12 {
			t.Errorf("ExpFlux(1, %v) = %v, want 1", a, got)
		}
	}
}

func TestExpFlux_Monotone(t *testing.T) {
	for _, a := range testShapes {
		prev := ExpFlux(0, a)
		for i := 1; i <= 200; i++ {
			r := float64(i) / 200
			v := ExpFlux(r, a)
			if v < prev-1e-15 {
				t.Fatalf("shape %v: ExpFlux decreased at ratio %v (%v < %v)", a, r, v, prev)
			}
			prev = v
		}
	}
}

func TestExpFlux_Clamping(t *testing.T) {
	for _, a := range testShapes {
		if ExpFlux(-0.5, a) != ExpFlux(0, a) {
			t.Errorf("shape %v: negative ratio not clamped", a)
		}
		if ExpFlux(1.5, a) != ExpFlux(1, a) {
			t.Errorf("shape %v: ratio above one not clamped", a)
		}
	}
}

func TestExpFlux_NaNRatio(t *testing.T) {
	for _, a := range testShapes {
		got := ExpFlux(math.NaN(), a)
		if want := ExpFlux(1, a); got != want {
			t.Errorf("shape %v: ExpFlux(NaN) = %v, want %v", a, got, want)
		}
	}
}

func TestExpFlux_LinearLimit(t *testing.T) {
	for _, r := range []float64{0, 0.1, 0.37, 0.5, 0.99, 1} {
		if got := ExpFlux(r, 0); got != r {
			t.Errorf("ExpFlux(%v, 0) = %v, want identity", r, got)
		}
		if got := ExpFlux(r, 5e-7); got != r {
			t.Errorf("ExpFlux(%v, 5e-7) = %v, want identity", r, got)
		}
	}
}

func TestExpFlux_Shape(t *testing.T) {
	// positive shapes respond early, negative shapes late
	if ExpFlux(0.5, 5) <= 0.5 {
		t.Error("positive shape should lie above the linear response")
	}
	if ExpFlux(0.5, -5) >= 0.5 {
		t.Error("negative shape should lie below the linear response")
	}

	want := (1 - math.Exp(-2.5)) / (1 - math.Exp(-5))
	if got := ExpFlux(0.5, 5); math.Abs(got-want) > 1e-15 {
		t.Errorf("ExpFlux(0.5, 5) = %v, want %v", got, want)
	}
}

func TestExpFlux_NoOverflow(t *testing.T) {
	for _, a := range []float64{-1e6, -700, 700, 1e6} {
		for _, r := range []float64{0, 1e-4, 0.3, 1} {
			v := ExpFlux(r, a)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Errorf("ExpFlux(%v, %v) = %v", r, a, v)
			}
		}
	}
}
