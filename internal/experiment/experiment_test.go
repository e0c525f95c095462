package experiment

import (
	"context"
	"testing"

	"github.com/san-kum/hydrosim/internal/config"
	"github.com/san-kum/hydrosim/internal/dynamo"
	"github.com/san-kum/hydrosim/internal/forcing"
	"github.com/san-kum/hydrosim/internal/models"
	"github.com/san-kum/hydrosim/internal/sim"
)

func stormForcing() *forcing.Series {
	return &forcing.Series{
		P:  []float64{0, 12, 25, 3, 0, 0, 8, 0},
		Ep: []float64{2, 1, 0.5, 1.5, 3, 3, 2, 2.5},
	}
}

func TestRegistryModels(t *testing.T) {
	reg := NewRegistry()

	names := reg.ListModels()
	if len(names) != 2 || names[0] != "crr" || names[1] != "reservoir" {
		t.Errorf("unexpected models %v", names)
	}

	cfg := config.DefaultConfig()
	sys, err := reg.GetModel("crr", cfg, stormForcing())
	if err != nil {
		t.Fatalf("get model failed: %v", err)
	}
	if sys.StateDim() != 4 {
		t.Errorf("expected 4 states, got %d", sys.StateDim())
	}

	a, _ := reg.GetModel("crr", cfg, stormForcing())
	a.(dynamo.Configurable).SetParam("kf", 99)
	if sys.(*models.CRR).Params.Kf == 99 {
		t.Error("registry returned a shared instance")
	}

	if _, err := reg.GetModel("topmodel", cfg, stormForcing()); err == nil {
		t.Error("expected error for unknown model")
	}
}

func TestDefaultMetrics(t *testing.T) {
	reg := NewRegistry()
	f := stormForcing()
	sys, _ := reg.GetModel("crr", config.DefaultConfig(), f)

	if got := len(reg.DefaultMetrics(sys, f)); got != 3 {
		t.Errorf("expected 3 metrics without observations, got %d", got)
	}

	f.Q = make([]float64, f.Len())
	if got := len(reg.DefaultMetrics(sys, f)); got != 5 {
		t.Errorf("expected 5 metrics with observations, got %d", got)
	}
}

func TestExperimentRun(t *testing.T) {
	cfg := config.DefaultConfig()
	exp := New(cfg, stormForcing())

	if _, err := exp.Run(context.Background()); err == nil {
		t.Error("expected error before setup")
	}
	if err := exp.Setup(NewRegistry()); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	result, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(result.Times) != 9 {
		t.Errorf("expected 9 output times, got %d", len(result.Times))
	}
	if result.Metrics["bounds"] != 1 {
		t.Errorf("expected all storages in bounds, got %f", result.Metrics["bounds"])
	}
	if result.Metrics["peak_discharge"] < result.Metrics["mean_discharge"] {
		t.Errorf("peak %f below mean %f", result.Metrics["peak_discharge"], result.Metrics["mean_discharge"])
	}

	run := exp.Record(exp.System(), result)
	if run.Model != "crr" || len(run.Labels) != 4 || run.Outflow == nil || run.Params["sumax"] != cfg.CRR.Sumax {
		t.Errorf("unexpected record %+v", run)
	}
}

func TestExperimentSetupErrors(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Step = 0
	if err := New(cfg, stormForcing()).Setup(NewRegistry()); err == nil {
		t.Error("expected config error")
	}

	if err := New(config.DefaultConfig(), nil).Setup(NewRegistry()); err == nil {
		t.Error("expected error without forcing")
	}

	bad := stormForcing()
	bad.P[0] = -1
	if err := New(config.DefaultConfig(), bad).Setup(NewRegistry()); err == nil {
		t.Error("expected forcing error")
	}
}

func TestExperimentJob(t *testing.T) {
	cfg := config.GetPreset(config.ModelReservoir, "slow")
	exp := New(cfg, stormForcing())
	if err := exp.Setup(NewRegistry()); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	job, err := exp.Job("k=5", map[string]float64{"k": 5})
	if err != nil {
		t.Fatalf("job failed: %v", err)
	}
	if job.System.(*models.Reservoir).K != 5 {
		t.Errorf("expected k=5, got %f", job.System.(*models.Reservoir).K)
	}
	if exp.System().(*models.Reservoir).K != 30 {
		t.Error("job mutated the experiment's own model")
	}

	if _, err := exp.Job("bad", map[string]float64{"kf": 1}); err == nil {
		t.Error("expected error for unknown parameter")
	}

	results, err := exp.Ensemble(2).Run(context.Background(), []sim.Job{job})
	if err != nil {
		t.Fatalf("ensemble failed: %v", err)
	}
	if _, ok := results[0].Metrics["mean_discharge"]; !ok {
		t.Error("expected default metrics on ensemble jobs")
	}
}
