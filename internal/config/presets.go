package config

import (
	"sort"

	"github.com/san-kum/hydrosim/internal/dynamo"
	"github.com/san-kum/hydrosim/internal/models"
)

func crrPreset(p models.CRRParams, init []float64) *Config {
	return &Config{
		Model: ModelCRR, Step: DefaultStep, InitState: init, CRR: p,
		Options: dynamo.DefaultOptions(4),
	}
}

func reservoirPreset(k float64) *Config {
	return &Config{
		Model: ModelReservoir, Step: DefaultStep, InitState: []float64{0},
		Reservoir: ReservoirParams{K: k}, Options: dynamo.DefaultOptions(1),
	}
}

var Presets = map[string]map[string]*Config{
	ModelCRR: {
		"humid": crrPreset(models.CRRParams{
			Imax: 3, Sumax: 250, Qsmax: 5, AE: 3, AF: -1, AS: 2, Kf: 2, Ks: 60,
		}, []float64{1, 150, 2, 100}),
		"semiarid": crrPreset(models.CRRParams{
			Imax: 1, Sumax: 80, Qsmax: 0.5, AE: 5, AF: -6, AS: 0.5, Kf: 1, Ks: 120,
		}, []float64{0, 20, 0, 10}),
		"linear": crrPreset(models.CRRParams{
			Imax: 0, Sumax: 150, Qsmax: 3, AE: 0, AF: 0, AS: 0, Kf: 3, Ks: 80,
		}, []float64{0, 50, 0, 50}),
	},
	ModelReservoir: {
		"fast": reservoirPreset(2),
		"slow": reservoirPreset(30),
	},
}

// GetPreset returns a copy of a named preset, or nil.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
