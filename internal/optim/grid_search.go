package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/san-kum/hydrosim/internal/config"
	"github.com/san-kum/hydrosim/internal/experiment"
	"github.com/san-kum/hydrosim/internal/metrics"
	"github.com/san-kum/hydrosim/internal/sim"
)

var ErrNoCandidate = errors.New("optim: no candidate produced a finite score")

// GridSearch evaluates every combination of candidate parameter values.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

func FromAxes(axes []config.GridAxis) *GridSearch {
	g := &GridSearch{}
	for _, ax := range axes {
		g.paramNames = append(g.paramNames, ax.Name)
		g.ranges = append(g.ranges, ax.Values)
	}
	return g
}

// WithWorkers limits concurrent evaluations; 0 uses GOMAXPROCS.
func (g *GridSearch) WithWorkers(n int) *GridSearch {
	g.workers = n
	return g
}

// Candidate is one evaluated parameter set. Score is the metric mapped so
// that lower is better.
type Candidate struct {
	Params map[string]float64
	Value  float64
	Score  float64
	Err    error
}

func (c Candidate) Label() string {
	keys := make([]string, 0, len(c.Params))
	for k := range c.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%g", k, c.Params[k])
	}
	return strings.Join(parts, ",")
}

// Points returns the cartesian product of the grid in axis order.
func (g *GridSearch) Points() []map[string]float64 {
	var points []map[string]float64
	g.collect(0, make(map[string]float64), &points)
	return points
}

func (g *GridSearch) collect(depth int, current map[string]float64, points *[]map[string]float64) {
	if depth == len(g.paramNames) {
		p := make(map[string]float64, len(current))
		for k, v := range current {
			p[k] = v
		}
		*points = append(*points, p)
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		current[paramName] = val
		g.collect(depth+1, current, points)
	}
	delete(current, paramName)
}

// Search runs every grid point through the experiment's ensemble and
// returns the best candidate by metricName along with all candidates.
// Candidates that fail to integrate are kept with their error.
func (g *GridSearch) Search(ctx context.Context, exp *experiment.Experiment, metricName string) (*Candidate, []Candidate, error) {
	points := g.Points()
	candidates := make([]Candidate, len(points))
	jobs := make([]sim.Job, len(points))

	for i, p := range points {
		candidates[i] = Candidate{Params: p, Value: math.NaN(), Score: math.NaN()}
		job, err := exp.Job(candidates[i].Label(), p)
		if err != nil {
			return nil, nil, err
		}
		jobs[i] = job
	}

	results, errs := exp.Ensemble(g.workers).RunAll(ctx, jobs)
	if err := ctx.Err(); err != nil {
		return nil, candidates, err
	}

	var best *Candidate
	for i := range candidates {
		c := &candidates[i]
		if errs[i] != nil {
			c.Err = errs[i]
			continue
		}
		val, ok := results[i].Metrics[metricName]
		if !ok {
			return nil, candidates, fmt.Errorf("optim: run produced no metric %q", metricName)
		}
		c.Value = val
		c.Score = metrics.Score(metricName, val)
		if math.IsNaN(c.Score) {
			continue
		}
		if best == nil || c.Score < best.Score {
			best = c
		}
	}

	if best == nil {
		return nil, candidates, ErrNoCandidate
	}
	return best, candidates, nil
}
