package viz

import (
	"math"

	"github.com/guptarohit/asciigraph"
)

// Plot renders data as an asciigraph line chart. Series longer than width
// are thinned by striding; non-finite samples are dropped.
func Plot(data []float64, caption string, width, height int) string {
	clean := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return "(no data)"
	}

	if width > 0 && len(clean) > width {
		step := len(clean) / width
		thinned := make([]float64, 0, width)
		for i := 0; i < len(clean); i += step {
			thinned = append(thinned, clean[i])
		}
		clean = thinned
	}

	return asciigraph.Plot(clean,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}
