package models

import "math"

// expCap bounds exponent arguments so transfer functions never overflow.
const expCap = 300.0

// linearShape is the shape magnitude below which ExpFlux is linear.
const linearShape = 1e-6

func exponen(x float64) float64 {
	return math.Exp(math.Min(expCap, x))
}

// ExpFlux maps a storage ratio to a flux fraction in [0,1].
//
// The ratio is clamped to [0,1], with NaN (an empty store of zero capacity)
// treated as full. Positive shapes give a concave response
// (fast at low storage), negative shapes a convex one (saturation excess),
// and shapes near zero reduce to the identity.
func ExpFlux(ratio, shape float64) float64 {
	if !(ratio < 1) {
		ratio = 1
	} else if ratio < 0 {
		ratio = 0
	}
	if math.Abs(shape) < linearShape {
		return ratio
	}
	return (1 - exponen(-shape*ratio)) / (1 - exponen(-shape))
}
