package optim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/hydrosim/internal/config"
	"github.com/san-kum/hydrosim/internal/dynamo"
	"github.com/san-kum/hydrosim/internal/experiment"
	"github.com/san-kum/hydrosim/internal/forcing"
	"github.com/san-kum/hydrosim/internal/models"
	"github.com/san-kum/hydrosim/internal/sim"
)

// observedReservoir returns forcing whose Q was produced by a reservoir
// with time constant k under the preset's integration options.
func observedReservoir(t *testing.T, cfg *config.Config, k float64) *forcing.Series {
	t.Helper()
	f := &forcing.Series{
		P:  []float64{0, 4, 10, 2, 0, 0, 6, 1, 0, 0},
		Ep: make([]float64, 10),
	}
	res := models.NewReservoir(k, f.P)
	result, err := sim.New(res, cfg.Options).Run(context.Background(), cfg.InitialState(), f.Times(cfg.Start, cfg.Step))
	if err != nil {
		t.Fatalf("reference run failed: %v", err)
	}
	f.Q = make([]float64, f.Len())
	for s := 1; s <= f.Len(); s++ {
		f.Q[s-1] = res.Discharge(result.State(s))
	}
	return f
}

func TestGridPoints(t *testing.T) {
	g := NewGridSearch([]string{"kf", "ks"}, [][]float64{{1, 2, 3}, {50, 80}})
	points := g.Points()
	if len(points) != 6 {
		t.Fatalf("expected 6 points, got %d", len(points))
	}
	if points[0]["kf"] != 1 || points[0]["ks"] != 50 || points[5]["kf"] != 3 || points[5]["ks"] != 80 {
		t.Errorf("unexpected order %v", points)
	}

	points[0]["kf"] = 42
	if points[1]["kf"] == 42 {
		t.Error("points share a map")
	}

	if n := len(NewGridSearch(nil, nil).Points()); n != 1 {
		t.Errorf("expected a single empty point for an empty grid, got %d", n)
	}
}

func TestFromAxes(t *testing.T) {
	g := FromAxes([]config.GridAxis{{Name: "k", Values: []float64{1, 2}}})
	if len(g.Points()) != 2 {
		t.Errorf("expected 2 points, got %d", len(g.Points()))
	}
}

func TestCandidateLabel(t *testing.T) {
	c := Candidate{Params: map[string]float64{"ks": 80, "kf": 2.5}}
	if c.Label() != "kf=2.5,ks=80" {
		t.Errorf("unexpected label %q", c.Label())
	}
}

func TestSearchRecoversParameter(t *testing.T) {
	cfg := config.GetPreset(config.ModelReservoir, "slow")
	cfg.InitState = []float64{5}
	exp := experiment.New(cfg, observedReservoir(t, cfg, 10))
	if err := exp.Setup(experiment.NewRegistry()); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	g := NewGridSearch([]string{"k"}, [][]float64{{2, 5, 10, 20}}).WithWorkers(2)

	for _, metric := range []string{"rmse", "nse"} {
		best, all, err := g.Search(context.Background(), exp, metric)
		if err != nil {
			t.Fatalf("%s: search failed: %v", metric, err)
		}
		if len(all) != 4 {
			t.Errorf("%s: expected 4 candidates, got %d", metric, len(all))
		}
		if best.Params["k"] != 10 {
			t.Errorf("%s: expected k=10, got %v", metric, best.Params)
		}
		if math.Abs(best.Score) > 1e-12 {
			t.Errorf("%s: expected zero score for the generating parameter, got %g", metric, best.Score)
		}
	}
}

func TestSearchKeepsFailures(t *testing.T) {
	cfg := config.GetPreset(config.ModelReservoir, "fast")
	exp := experiment.New(cfg, observedReservoir(t, cfg, 2))
	if err := exp.Setup(experiment.NewRegistry()); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	// k=0 divides by zero at the first evaluation
	best, all, err := NewGridSearch([]string{"k"}, [][]float64{{0, 2}}).Search(context.Background(), exp, "rmse")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !errors.Is(all[0].Err, dynamo.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState for k=0, got %v", all[0].Err)
	}
	if best.Params["k"] != 2 {
		t.Errorf("expected k=2, got %v", best.Params)
	}
}

func TestSearchErrors(t *testing.T) {
	cfg := config.GetPreset(config.ModelReservoir, "fast")
	exp := experiment.New(cfg, observedReservoir(t, cfg, 2))
	if err := exp.Setup(experiment.NewRegistry()); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if _, _, err := NewGridSearch([]string{"kf"}, [][]float64{{1}}).Search(context.Background(), exp, "rmse"); err == nil {
		t.Error("expected error for unknown parameter")
	}
	if _, _, err := NewGridSearch([]string{"k"}, [][]float64{{2}}).Search(context.Background(), exp, "kge"); err == nil {
		t.Error("expected error for unknown metric")
	}
	if _, _, err := NewGridSearch([]string{"k"}, [][]float64{{0}}).Search(context.Background(), exp, "rmse"); !errors.Is(err, ErrNoCandidate) {
		t.Errorf("expected ErrNoCandidate, got %v", err)
	}
}
