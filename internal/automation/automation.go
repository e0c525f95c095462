package automation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/hydrosim/internal/config"
	"github.com/san-kum/hydrosim/internal/dynamo"
	"github.com/san-kum/hydrosim/internal/experiment"
	"github.com/san-kum/hydrosim/internal/forcing"
	"github.com/san-kum/hydrosim/internal/sim"
)

// Scenario defines a scripted sequence of runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single run in a scenario. Config names a run file;
// otherwise Preset (with Model) or the defaults apply. Params override
// model parameters by name.
type ScenarioStep struct {
	Config  string             `yaml:"config"`
	Model   string             `yaml:"model"`
	Preset  string             `yaml:"preset"`
	Forcing string             `yaml:"forcing"`
	Params  map[string]float64 `yaml:"params"`
	SaveAs  string             `yaml:"save_as"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}

	return &scenario, nil
}

// StepConfig resolves the run configuration of one step.
func (s ScenarioStep) StepConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	switch {
	case s.Config != "":
		loaded, err := config.Load(s.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case s.Preset != "":
		model := s.Model
		if model == "" {
			model = config.DefaultModel
		}
		cfg = config.GetPreset(model, s.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset %s/%s", model, s.Preset)
		}
	case s.Model != "":
		cfg.UseModel(s.Model)
	}
	if s.Forcing != "" {
		cfg.Forcing = s.Forcing
	}
	return cfg, nil
}

// ForcingLoader supplies the forcing series for a run configuration.
type ForcingLoader func(cfg *config.Config) (*forcing.Series, error)

// StepResult is the outcome of one scenario step.
type StepResult struct {
	Step       ScenarioStep
	Experiment *experiment.Experiment
	Result     *sim.Result
}

// RunScenario executes all steps in order and stops at the first failure.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, load ForcingLoader) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := step.StepConfig()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		f, err := load(cfg)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		exp := experiment.New(cfg, f)
		if err := exp.Setup(registry); err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		if len(step.Params) > 0 {
			c, ok := exp.System().(dynamo.Configurable)
			if !ok {
				return results, fmt.Errorf("step %d: model %s is not tunable", i+1, cfg.Model)
			}
			for k, v := range step.Params {
				c.SetParam(k, v)
			}
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		results = append(results, StepResult{Step: step, Experiment: exp, Result: result})
	}

	return results, nil
}

// ParameterSweep varies one parameter linearly between Min and Max.
type ParameterSweep struct {
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
}

// SweepResult holds results from one sweep point
type SweepResult struct {
	ParamValue    float64
	FinalState    dynamo.State
	MeanDischarge float64
	PeakDischarge float64
	Err           error
}

func (sw *ParameterSweep) Values() []float64 {
	if sw.NumSteps <= 1 {
		return []float64{sw.ParamMin}
	}
	vals := make([]float64, sw.NumSteps)
	paramStep := (sw.ParamMax - sw.ParamMin) / float64(sw.NumSteps-1)
	for i := range vals {
		vals[i] = sw.ParamMin + float64(i)*paramStep
	}
	return vals
}

// RunSweep evaluates every sweep point concurrently. Failed points keep
// their error.
func RunSweep(ctx context.Context, exp *experiment.Experiment, sweep *ParameterSweep, workers int) ([]SweepResult, error) {
	vals := sweep.Values()
	jobs := make([]sim.Job, len(vals))
	for i, v := range vals {
		job, err := exp.Job(fmt.Sprintf("%s=%g", sweep.ParamName, v), map[string]float64{sweep.ParamName: v})
		if err != nil {
			return nil, err
		}
		jobs[i] = job
	}

	runs, errs := exp.Ensemble(workers).RunAll(ctx, jobs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]SweepResult, len(vals))
	for i, v := range vals {
		results[i] = SweepResult{ParamValue: v, Err: errs[i]}
		if errs[i] != nil {
			continue
		}
		r := runs[i]
		_, cols := r.Trajectory.Dims()
		results[i].FinalState = r.State(cols - 1)
		results[i].MeanDischarge = r.Metrics["mean_discharge"]
		results[i].PeakDischarge = r.Metrics["peak_discharge"]
	}
	return results, nil
}

// ParamRange bounds one sampled parameter.
type ParamRange struct {
	Name     string
	Min, Max float64
}

// MonteCarloConfig defines Monte Carlo sampling of model parameters
type MonteCarloConfig struct {
	Ranges    []ParamRange
	NumTrials int
	Seed      int64
}

// MonteCarloResult holds one sampled parameter set and its metrics
type MonteCarloResult struct {
	TrialID int
	Params  map[string]float64
	Metrics map[string]float64
	Stable  bool // every stored state stayed within bounds
	Err     error
}

// Sample draws NumTrials parameter sets uniformly within the ranges.
func (cfg *MonteCarloConfig) Sample() []map[string]float64 {
	rng := rand.New(rand.NewSource(cfg.Seed))
	sets := make([]map[string]float64, cfg.NumTrials)
	for i := range sets {
		p := make(map[string]float64, len(cfg.Ranges))
		for _, r := range cfg.Ranges {
			p[r.Name] = r.Min + rng.Float64()*(r.Max-r.Min)
		}
		sets[i] = p
	}
	return sets
}

var ErrNoTrials = errors.New("automation: no trials requested")

// RunMonteCarlo evaluates randomly sampled parameter sets concurrently.
func RunMonteCarlo(ctx context.Context, exp *experiment.Experiment, cfg *MonteCarloConfig, workers int) ([]MonteCarloResult, error) {
	if cfg.NumTrials <= 0 {
		return nil, ErrNoTrials
	}
	sets := cfg.Sample()
	jobs := make([]sim.Job, len(sets))
	for i, p := range sets {
		job, err := exp.Job(fmt.Sprintf("trial %d", i), p)
		if err != nil {
			return nil, err
		}
		jobs[i] = job
	}

	runs, errs := exp.Ensemble(workers).RunAll(ctx, jobs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]MonteCarloResult, len(sets))
	for i, p := range sets {
		results[i] = MonteCarloResult{TrialID: i, Params: p, Err: errs[i]}
		if errs[i] != nil {
			continue
		}
		results[i].Metrics = runs[i].Metrics
		results[i].Stable = runs[i].Metrics["bounds"] == 1
	}
	return results, nil
}

// MonteCarloStats counts trials that stayed in bounds, left them, or
// failed to integrate.
func MonteCarloStats(results []MonteCarloResult) (stableCount, unstableCount, failedCount int) {
	for _, r := range results {
		switch {
		case r.Err != nil:
			failedCount++
		case r.Stable:
			stableCount++
		default:
			unstableCount++
		}
	}
	return
}
