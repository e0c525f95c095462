// Package analysis provides post-run tools for simulated series.
//
//   - [PowerSpectrum]: magnitude spectrum of a series via FFT
//   - [DominantPeriod]: period of the strongest non-zero frequency
//   - [NewPortrait]: paired series for a storage-discharge plot
//
// # Seasonality
//
// A discharge record driven by seasonal forcing shows a peak at its
// forcing period:
//
//	period := analysis.DominantPeriod(q, 1.0)
//	// period is close to 365 for a daily series with annual forcing
package analysis
