package metrics

import (
	"github.com/san-kum/hydrosim/internal/dynamo"
)

// Bounds reports the fraction of output states whose components all lie in
// [-tol, limit]. Stores are physically non-negative, so a value below 1
// flags undershoot or runaway storage.
type Bounds struct {
	name       string
	tol        float64
	limit      float64
	violations int
	samples    int
}

func NewBounds(tol, limit float64) *Bounds {
	return &Bounds{
		name:  "bounds",
		tol:   tol,
		limit: limit,
	}
}

func (b *Bounds) Name() string {
	return b.name
}

func (b *Bounds) Observe(s int, t float64, x dynamo.State) {
	b.samples++
	if !x.IsValid() {
		b.violations++
		return
	}
	for _, val := range x {
		if val < -b.tol || val > b.limit {
			b.violations++
			break
		}
	}
}

func (b *Bounds) Value() float64 {
	if b.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(b.violations)/float64(b.samples)
}

func (b *Bounds) Reset() {
	b.violations = 0
	b.samples = 0
}
