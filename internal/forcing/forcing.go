// Package forcing reads meteorological forcing and observed discharge
// series, one row per output interval.
package forcing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/san-kum/hydrosim/internal/models"
)

var (
	ErrMissingColumn = errors.New("forcing: missing column")
	ErrEmpty         = errors.New("forcing: no data rows")
)

// Series holds per-interval precipitation, potential evapotranspiration
// and optional observed discharge. Missing observations are NaN.
type Series struct {
	P  []float64
	Ep []float64
	Q  []float64
}

var aliases = map[string]string{
	"p": "p", "precip": "p", "precipitation": "p", "rain": "p",
	"ep": "ep", "pet": "ep", "evap": "ep",
	"q": "q", "qobs": "q", "discharge": "q",
}

func Load(path string) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read parses CSV with a header row. Column names are matched case
// insensitively; unknown columns such as dates are skipped.
func Read(r io.Reader) (*Series, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("forcing: %w", err)
	}
	if len(records) < 2 {
		return nil, ErrEmpty
	}

	cols := map[string]int{}
	for i, name := range records[0] {
		if key, ok := aliases[strings.ToLower(strings.TrimSpace(name))]; ok {
			cols[key] = i
		}
	}
	for _, key := range []string{"p", "ep"} {
		if _, ok := cols[key]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, key)
		}
	}
	qCol, hasQ := cols["q"]

	s := &Series{
		P:  make([]float64, 0, len(records)-1),
		Ep: make([]float64, 0, len(records)-1),
	}
	if hasQ {
		s.Q = make([]float64, 0, len(records)-1)
	}

	for line, rec := range records[1:] {
		p, err := parseField(rec, cols["p"])
		if err != nil {
			return nil, fmt.Errorf("forcing: row %d: P: %w", line+2, err)
		}
		ep, err := parseField(rec, cols["ep"])
		if err != nil {
			return nil, fmt.Errorf("forcing: row %d: Ep: %w", line+2, err)
		}
		s.P = append(s.P, p)
		s.Ep = append(s.Ep, ep)

		if hasQ {
			q := math.NaN()
			if qCol < len(rec) && strings.TrimSpace(rec[qCol]) != "" {
				if q, err = parseField(rec, qCol); err != nil {
					return nil, fmt.Errorf("forcing: row %d: Q: %w", line+2, err)
				}
			}
			s.Q = append(s.Q, q)
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func parseField(rec []string, col int) (float64, error) {
	if col >= len(rec) {
		return 0, fmt.Errorf("column %d missing", col)
	}
	return strconv.ParseFloat(strings.TrimSpace(rec[col]), 64)
}

func (s *Series) Len() int { return len(s.P) }

// HasObserved reports whether discharge observations were loaded.
func (s *Series) HasObserved() bool { return len(s.Q) > 0 }

func (s *Series) Validate() error {
	if len(s.P) == 0 {
		return ErrEmpty
	}
	if len(s.Ep) != len(s.P) {
		return fmt.Errorf("forcing: %d Ep samples for %d P samples", len(s.Ep), len(s.P))
	}
	if s.Q != nil && len(s.Q) != len(s.P) {
		return fmt.Errorf("forcing: %d Q samples for %d P samples", len(s.Q), len(s.P))
	}
	for i := range s.P {
		if !(s.P[i] >= 0) || math.IsInf(s.P[i], 0) {
			return fmt.Errorf("forcing: P[%d] = %g must be finite and non-negative", i, s.P[i])
		}
		if !(s.Ep[i] >= 0) || math.IsInf(s.Ep[i], 0) {
			return fmt.Errorf("forcing: Ep[%d] = %g must be finite and non-negative", i, s.Ep[i])
		}
	}
	return nil
}

// Times returns the Len()+1 output times start, start+step, ...
func (s *Series) Times(start, step float64) []float64 {
	tout := make([]float64, s.Len()+1)
	for i := range tout {
		tout[i] = start + float64(i)*step
	}
	return tout
}

func (s *Series) Model() models.Forcing {
	return models.Forcing{P: s.P, Ep: s.Ep}
}
