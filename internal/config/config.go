// Package config loads the toolkit's optional YAML configuration file,
// following the same gopkg.in/yaml.v3 read-and-unmarshal style used for
// rule configuration elsewhere in this codebase's lineage.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the toolkit's tunables. Every field has a sensible
// default so an absent config file is equivalent to Default().
type Config struct {
	// UnrollBudget caps trip * bodySize for full loop unrolling.
	UnrollBudget int `yaml:"unroll_budget"`
	// DefaultAnalysis names the dataflow analysis cmd/tacpass runs
	// when run-dataflow is invoked without an explicit -analysis flag.
	DefaultAnalysis string `yaml:"default_analysis"`
}

// Default returns the toolkit's built-in configuration.
func Default() Config {
	return Config{
		UnrollBudget:    1024,
		DefaultAnalysis: "live",
	}
}

// Load reads and parses a YAML config file at path, overlaying it onto
// Default() so that a file specifying only one field leaves the rest
// at their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports whether cfg's fields are usable.
func (c Config) Validate() error {
	if c.UnrollBudget <= 0 {
		return fmt.Errorf("config: unroll_budget must be positive, got %d", c.UnrollBudget)
	}
	switch c.DefaultAnalysis {
	case "defined", "live", "rd", "cprop":
	default:
		return fmt.Errorf("config: unknown default_analysis %q", c.DefaultAnalysis)
	}
	return nil
}
