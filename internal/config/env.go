package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds settings taken from the process environment.
type Env struct {
	DataDir    string `env:"HYDROSIM_DATA" envDefault:".hydrosim"`
	ConfigFile string `env:"HYDROSIM_CONFIG"`
	Workers    int    `env:"HYDROSIM_WORKERS" envDefault:"0"`
}

func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return e, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}
