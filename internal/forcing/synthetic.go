package forcing

import (
	"encoding/csv"
	"io"
	"math"
	"math/rand"
	"strconv"
)

// Synthetic generates a daily series with intermittent exponential
// storms and seasonal evaporative demand. The same seed always yields the
// same series.
func Synthetic(days int, seed int64) *Series {
	rng := rand.New(rand.NewSource(seed))
	s := &Series{
		P:  make([]float64, days),
		Ep: make([]float64, days),
	}
	for i := 0; i < days; i++ {
		if rng.Float64() < 0.3 {
			s.P[i] = 8 * rng.ExpFloat64()
		}
		s.Ep[i] = 2.5 + 1.5*math.Sin(2*math.Pi*float64(i)/365)
	}
	return s
}

// Write writes the series as CSV with a P,Ep[,Q] header. Missing
// observations are written as NaN.
func Write(w io.Writer, s *Series) error {
	cw := csv.NewWriter(w)
	header := []string{"P", "Ep"}
	if s.HasObserved() {
		header = append(header, "Q")
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := range s.P {
		row := []string{
			strconv.FormatFloat(s.P[i], 'g', -1, 64),
			strconv.FormatFloat(s.Ep[i], 'g', -1, 64),
		}
		if s.HasObserved() {
			row = append(row, strconv.FormatFloat(s.Q[i], 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
