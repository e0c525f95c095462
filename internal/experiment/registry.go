package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/hydrosim/internal/config"
	"github.com/san-kum/hydrosim/internal/dynamo"
	"github.com/san-kum/hydrosim/internal/forcing"
	"github.com/san-kum/hydrosim/internal/metrics"
	"github.com/san-kum/hydrosim/internal/models"
)

// Physically plausible storage range (mm) for the bounds metric. Explicit
// steps may undershoot an emptying store by up to the absolute tolerance.
const (
	storageUndershoot = 1e-2
	storageCap        = 1e5
)

// ModelFactory builds a fresh system from a run configuration and its
// forcing. Each call returns an independent instance.
type ModelFactory func(cfg *config.Config, f *forcing.Series) dynamo.System

type Registry struct {
	models map[string]ModelFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		models: make(map[string]ModelFactory),
	}

	r.models[config.ModelCRR] = func(cfg *config.Config, f *forcing.Series) dynamo.System {
		return models.NewCRR(cfg.CRR, f.Model())
	}
	r.models[config.ModelReservoir] = func(cfg *config.Config, f *forcing.Series) dynamo.System {
		return models.NewReservoir(cfg.Reservoir.K, f.P)
	}

	return r
}

// Register adds or replaces a model constructor.
func (r *Registry) Register(name string, fn ModelFactory) {
	r.models[name] = fn
}

func (r *Registry) GetModel(name string, cfg *config.Config, f *forcing.Series) (dynamo.System, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	return fn(cfg, f), nil
}

func (r *Registry) ListModels() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics returns fresh metrics for sys. Discharge metrics need an
// outlet; fit metrics also need observed discharge.
func (r *Registry) DefaultMetrics(sys dynamo.System, f *forcing.Series) []dynamo.Metric {
	ms := []dynamo.Metric{
		metrics.NewBounds(storageUndershoot, storageCap),
	}
	out, ok := sys.(dynamo.Outflow)
	if !ok {
		return ms
	}
	ms = append(ms, metrics.NewDischarge(out), metrics.NewPeakDischarge(out))
	if f != nil && f.HasObserved() {
		ms = append(ms, metrics.NewRMSE(out, f.Q), metrics.NewNSE(out, f.Q))
	}
	return ms
}
