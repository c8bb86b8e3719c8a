package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration for errors.
//
// Struct tags cover the mechanical constraints (required fields, value
// ranges); cross-field rules that tags cannot express are checked
// explicitly afterwards.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return err
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry is enabled but no endpoint is configured")
	}
	if cfg.Telemetry.Profiling.Enabled && cfg.Telemetry.Profiling.Endpoint == "" {
		return fmt.Errorf("profiling is enabled but no endpoint is configured")
	}

	if cfg.Cache.SweepInterval <= 0 {
		return fmt.Errorf("cache sweep_interval must be positive, got %s", cfg.Cache.SweepInterval)
	}

	return nil
}
