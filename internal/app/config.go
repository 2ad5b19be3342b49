package app

import (
	"errors"
	"fmt"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PlanPath string // hcl file or directory

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	// Workers overrides the plan's worker count when positive.
	Workers int
	// Buffer overrides the plan's result buffer when not negative.
	Buffer int
	// DebugReport selects the detailed final report.
	DebugReport bool
}

// Defaults applied when neither the CLI nor the plan sets a value.
const (
	DefaultWorkers = 10
)

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PlanPath == "" {
		return nil, errors.New("PlanPath is a required configuration field and cannot be empty")
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("workers must not be negative, got %d", cfg.Workers)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("healthcheck port out of range: %d", cfg.HealthcheckPort)
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	switch cfg.LogFormat {
	case "", "text", "json":
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}
	return &cfg, nil
}
