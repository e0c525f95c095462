package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/stat"
)

// PowerSpectrum returns the magnitudes of frequency bins 0..n/2 of the
// mean-removed series.
func PowerSpectrum(data []float64) []float64 {
	if len(data) < 2 {
		return nil
	}
	mean := stat.Mean(data, nil)
	centred := make([]float64, len(data))
	for i, v := range data {
		centred[i] = v - mean
	}

	coeffs := fft.FFTReal(centred)
	ps := make([]float64, len(coeffs)/2+1)
	for i := range ps {
		ps[i] = cmplx.Abs(coeffs[i])
	}
	return ps
}

// DominantPeriod returns the period, in time units of dt, of the strongest
// non-zero frequency. It returns 0 when the series carries no signal.
func DominantPeriod(data []float64, dt float64) float64 {
	ps := PowerSpectrum(data)
	best, peak := 0, 0.0
	for k := 1; k < len(ps); k++ {
		if ps[k] > peak {
			best, peak = k, ps[k]
		}
	}
	if best == 0 || peak < 1e-12 {
		return 0
	}
	return float64(len(data)) * dt / float64(best)
}

// FlowDuration returns the series sorted in descending order along with
// the exceedance probability of each value.
func FlowDuration(data []float64) (values, exceedance []float64) {
	values = make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) {
			values = append(values, v)
		}
	}
	sortDescending(values)
	exceedance = make([]float64, len(values))
	for i := range values {
		exceedance[i] = float64(i+1) / float64(len(values)+1)
	}
	return values, exceedance
}
