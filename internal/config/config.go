package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/hydrosim/internal/dynamo"
	"github.com/san-kum/hydrosim/internal/models"
)

const (
	ModelCRR       = "crr"
	ModelReservoir = "reservoir"

	DefaultStep  = 1.0
	DefaultModel = ModelCRR
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Model       string            `yaml:"model"`
	Forcing     string            `yaml:"forcing"`
	Start       float64           `yaml:"start"`
	Step        float64           `yaml:"step"`
	InitState   []float64         `yaml:"init_state"`
	CRR         models.CRRParams  `yaml:"crr"`
	Reservoir   ReservoirParams   `yaml:"reservoir"`
	Options     dynamo.Options    `yaml:"options"`
	Calibration CalibrationConfig `yaml:"calibration,omitempty"`
}

type ReservoirParams struct {
	K float64 `yaml:"k"`
}

// GridAxis lists the candidate values for one named model parameter.
type GridAxis struct {
	Name   string    `yaml:"name"`
	Values []float64 `yaml:"values"`
}

type CalibrationConfig struct {
	Metric string     `yaml:"metric,omitempty"`
	Grid   []GridAxis `yaml:"grid,omitempty"`
}

// StateDim returns the number of states of a model, or 0 if unknown.
func StateDim(model string) int {
	switch model {
	case ModelCRR:
		return 4
	case ModelReservoir:
		return 1
	default:
		return 0
	}
}

func DefaultConfig() *Config {
	return &Config{
		Model:     DefaultModel,
		Step:      DefaultStep,
		InitState: []float64{0, 50, 0, 50},
		CRR: models.CRRParams{
			Imax: 2, Sumax: 150, Qsmax: 3,
			AE: 2, AF: -2, AS: 1,
			Kf: 3, Ks: 80,
		},
		Reservoir: ReservoirParams{K: 10},
		Options:   dynamo.DefaultOptions(4),
		Calibration: CalibrationConfig{
			Metric: "rmse",
		},
	}
}

// Load reads a run file on top of the defaults for the model it names, so
// a file may omit init_state and abs_tol for any model.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var head struct {
		Model string `yaml:"model"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if head.Model != "" {
		cfg.UseModel(head.Model)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Clone() *Config {
	cp := *c
	cp.InitState = append([]float64(nil), c.InitState...)
	cp.Options.AbsTol = append([]float64(nil), c.Options.AbsTol...)
	cp.Calibration.Grid = make([]GridAxis, len(c.Calibration.Grid))
	for i, ax := range c.Calibration.Grid {
		cp.Calibration.Grid[i] = GridAxis{Name: ax.Name, Values: append([]float64(nil), ax.Values...)}
	}
	return &cp
}

func (c *Config) InitialState() dynamo.State {
	return dynamo.State(append([]float64(nil), c.InitState...))
}

// Validate checks everything the integrator assumes about its inputs.
// The core never re-checks these.
func (c *Config) Validate() error {
	n := StateDim(c.Model)
	if n == 0 {
		return fmt.Errorf("%w: unknown model %q", ErrInvalidConfig, c.Model)
	}
	if !(c.Step > 0) {
		return fmt.Errorf("%w: step must be positive, got %g", ErrInvalidConfig, c.Step)
	}
	if len(c.InitState) != n {
		return fmt.Errorf("%w: init_state has %d entries, model %s has %d states", ErrInvalidConfig, len(c.InitState), c.Model, n)
	}
	for i, v := range c.InitState {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: init_state[%d] is not finite", ErrInvalidConfig, i)
		}
	}

	switch c.Model {
	case ModelCRR:
		if err := validateCRR(c.CRR); err != nil {
			return err
		}
	case ModelReservoir:
		if !(c.Reservoir.K > 0) {
			return fmt.Errorf("%w: reservoir k must be positive, got %g", ErrInvalidConfig, c.Reservoir.K)
		}
	}

	if err := c.Options.Validate(n); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	for _, ax := range c.Calibration.Grid {
		if ax.Name == "" || len(ax.Values) == 0 {
			return fmt.Errorf("%w: calibration axis needs a name and values", ErrInvalidConfig)
		}
	}
	return nil
}

func validateCRR(p models.CRRParams) error {
	switch {
	case p.Imax < 0:
		return fmt.Errorf("%w: imax must be non-negative, got %g", ErrInvalidConfig, p.Imax)
	case !(p.Sumax >= 0):
		return fmt.Errorf("%w: sumax must be non-negative, got %g", ErrInvalidConfig, p.Sumax)
	case p.Qsmax < 0:
		return fmt.Errorf("%w: qsmax must be non-negative, got %g", ErrInvalidConfig, p.Qsmax)
	case !(p.Kf > 0):
		return fmt.Errorf("%w: kf must be positive, got %g", ErrInvalidConfig, p.Kf)
	case !(p.Ks > 0):
		return fmt.Errorf("%w: ks must be positive, got %g", ErrInvalidConfig, p.Ks)
	}
	return nil
}

// UseModel switches the model. When the state dimension changes,
// init_state is reset to zeros and abs_tol is resized with its first value.
func (c *Config) UseModel(model string) {
	c.Model = model
	n := StateDim(model)
	if n == 0 {
		return
	}
	if len(c.InitState) != n {
		c.InitState = make([]float64, n)
	}
	if len(c.Options.AbsTol) != n {
		tol := dynamo.DefaultOptions(1).AbsTol[0]
		if len(c.Options.AbsTol) > 0 {
			tol = c.Options.AbsTol[0]
		}
		c.Options.AbsTol = make([]float64, n)
		for i := range c.Options.AbsTol {
			c.Options.AbsTol[i] = tol
		}
	}
}
