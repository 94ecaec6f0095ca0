package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	domaincfg "lifetree-backend/domain/config"
)

// LoadTuningFile reads a physics tuning YAML file. Fields absent from the
// file keep their defaults, so a file only needs to name what it changes.
func LoadTuningFile(path string) (domaincfg.PhysicsConfig, error) {
	var cfg domaincfg.PhysicsConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read tuning file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse tuning file %s: %w", path, err)
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid tuning in %s: %w", path, err)
	}
	return cfg, nil
}
