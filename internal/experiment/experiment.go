package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/hydrosim/internal/config"
	"github.com/san-kum/hydrosim/internal/dynamo"
	"github.com/san-kum/hydrosim/internal/forcing"
	"github.com/san-kum/hydrosim/internal/sim"
	"github.com/san-kum/hydrosim/internal/storage"
)

// Experiment is one configured run: a model instance, its forcing and the
// simulator driving it.
type Experiment struct {
	cfg       *config.Config
	forcing   *forcing.Series
	registry  *Registry
	system    dynamo.System
	simulator *sim.Simulator
}

func New(cfg *config.Config, f *forcing.Series) *Experiment {
	return &Experiment{
		cfg:     cfg,
		forcing: f,
	}
}

// Setup validates the configuration and forcing, builds the model and
// attaches the default metrics.
func (e *Experiment) Setup(reg *Registry) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	if e.forcing == nil {
		return fmt.Errorf("experiment: no forcing")
	}
	if err := e.forcing.Validate(); err != nil {
		return err
	}

	sys, err := reg.GetModel(e.cfg.Model, e.cfg, e.forcing)
	if err != nil {
		return err
	}

	e.registry = reg
	e.system = sys
	e.simulator = sim.New(sys, e.cfg.Options)
	for _, m := range reg.DefaultMetrics(sys, e.forcing) {
		e.simulator.AddMetric(m)
	}
	return nil
}

// Times returns the output times: one more than the number of forcing
// intervals.
func (e *Experiment) Times() []float64 {
	return e.forcing.Times(e.cfg.Start, e.cfg.Step)
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulator.Run(ctx, e.cfg.InitialState(), e.Times())
}

// Job builds an ensemble job for a fresh model instance with params
// applied on top of the configuration.
func (e *Experiment) Job(name string, params map[string]float64) (sim.Job, error) {
	if e.registry == nil {
		return sim.Job{}, fmt.Errorf("experiment not setup")
	}
	sys, err := e.registry.GetModel(e.cfg.Model, e.cfg, e.forcing)
	if err != nil {
		return sim.Job{}, err
	}
	if len(params) > 0 {
		c, ok := sys.(dynamo.Configurable)
		if !ok {
			return sim.Job{}, fmt.Errorf("model %s has no tunable parameters", e.cfg.Model)
		}
		known := c.GetParams()
		for k, v := range params {
			if _, ok := known[k]; !ok {
				return sim.Job{}, fmt.Errorf("model %s has no parameter %q", e.cfg.Model, k)
			}
			c.SetParam(k, v)
		}
	}
	return sim.Job{
		Name:    name,
		System:  sys,
		X0:      e.cfg.InitialState(),
		Options: e.cfg.Options,
	}, nil
}

// Ensemble returns an ensemble over this experiment's output times with
// the default metrics attached to every job.
func (e *Experiment) Ensemble(workers int) *sim.Ensemble {
	return sim.NewEnsemble(e.Times(), workers).WithMetrics(func(sys dynamo.System) []dynamo.Metric {
		return e.registry.DefaultMetrics(sys, e.forcing)
	})
}

// Record packages a finished run of sys for the store.
func (e *Experiment) Record(sys dynamo.System, result *sim.Result) storage.Run {
	run := storage.Run{
		Model:   e.cfg.Model,
		Forcing: e.cfg.Forcing,
		Options: e.cfg.Options,
		Result:  result,
	}
	if c, ok := sys.(dynamo.Configurable); ok {
		run.Params = c.GetParams()
	}
	if l, ok := sys.(dynamo.Labeled); ok {
		run.Labels = l.StateNames()
	}
	if out, ok := sys.(dynamo.Outflow); ok {
		run.Outflow = out
	}
	return run
}

func (e *Experiment) Config() *config.Config   { return e.cfg }
func (e *Experiment) Forcing() *forcing.Series { return e.forcing }
func (e *Experiment) System() dynamo.System    { return e.system }

// Simulator is nil until Setup succeeds.
func (e *Experiment) Simulator() *sim.Simulator { return e.simulator }
