package sim

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/hydrosim/internal/dynamo"
	"github.com/san-kum/hydrosim/internal/integrators"
)

// Result of a simulation run. Trajectory is StateDim x len(Times); column 0
// is the initial condition and column s the state at Times[s].
type Result struct {
	Times      []float64
	Trajectory *mat.Dense
	Intervals  []integrators.Stats
	Stats      integrators.Stats
	Metrics    map[string]float64
}

// State returns a copy of the state at output index s.
func (r *Result) State(s int) dynamo.State {
	return mat.Col(nil, s, r.Trajectory)
}

// Series returns a copy of state component i across all output times.
func (r *Result) Series(i int) []float64 {
	return mat.Row(nil, i, r.Trajectory)
}

// States returns the trajectory as one state per output time.
func (r *Result) States() []dynamo.State {
	_, cols := r.Trajectory.Dims()
	states := make([]dynamo.State, cols)
	for s := range states {
		states[s] = r.State(s)
	}
	return states
}
