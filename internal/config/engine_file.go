package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/meridianlabs/meridian/internal/modules/features"
	"github.com/meridianlabs/meridian/internal/modules/risk"
	"github.com/meridianlabs/meridian/internal/modules/scoring"
)

// EngineConfig bundles the tunable module configurations. It starts
// from the shipped defaults; a yaml engine file overrides the parts
// it names. Loaded once at startup, never mutated afterwards.
type EngineConfig struct {
	Features features.Config `yaml:"features"`
	Scoring  scoring.Config  `yaml:"scoring"`
	Risk     risk.Config     `yaml:"risk"`
}

// DefaultEngineConfig returns the shipped defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Features: features.DefaultConfig(),
		Scoring:  scoring.DefaultConfig(),
		Risk:     risk.DefaultConfig(),
	}
}

// Validate delegates to each module configuration. Any failure is an
// ErrStructuralConfig and fatal at startup; weights must never
// silently default.
func (ec EngineConfig) Validate() error {
	if err := ec.Features.Validate(); err != nil {
		return err
	}
	if err := ec.Scoring.Validate(); err != nil {
		return err
	}
	return ec.Risk.Validate()
}

// LoadEngineConfig reads the engine file when a path is given,
// overlaying it on the defaults. An empty path returns the validated
// defaults.
func LoadEngineConfig(path string) (EngineConfig, error) {
	cfg := DefaultEngineConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return EngineConfig{}, fmt.Errorf("reading engine file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return EngineConfig{}, fmt.Errorf("parsing engine file %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return EngineConfig{}, err
	}
	return cfg, nil
}
