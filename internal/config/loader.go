package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file and expands environment references.
// Both ${VAR} and the shell-style ${VAR:-fallback} forms are understood;
// an unset variable without a fallback expands to the empty string.
func Load(path string) (*TrackerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg TrackerConfig
	if err := yaml.Unmarshal([]byte(expandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads the file and fills unset fields from the
// Default* constants.
func LoadWithDefaults(path string) (*TrackerConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate is the entrypoint the binaries use: load, apply
// defaults, then reject inconsistent values before anything starts.
func LoadAndValidate(path string) (*TrackerConfig, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// expandEnv substitutes environment references. A fallback after :- is
// used when the variable is unset or empty, matching shell behavior.
func expandEnv(s string) string {
	return os.Expand(s, func(ref string) string {
		name, fallback, hasFallback := strings.Cut(ref, ":-")
		if v, ok := os.LookupEnv(name); ok && v != "" {
			return v
		}
		if hasFallback {
			return fallback
		}
		return ""
	})
}
