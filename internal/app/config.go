package app

import "errors"

// DefaultTask is run when no task is named on the command line.
const DefaultTask = "build"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPaths []string // pipeline files or directories

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	// StateFile overrides the pipeline's state_file for incremental tasks.
	StateFile string

	Task string
	List bool // print the registered tasks instead of running
	Plan bool // print the resolved plan of Task instead of running
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.ConfigPaths) == 0 {
		return nil, errors.New("at least one pipeline path is required")
	}
	if cfg.List && cfg.Plan {
		return nil, errors.New("-list and -plan are mutually exclusive")
	}
	if cfg.Task == "" {
		cfg.Task = DefaultTask
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, errors.New("healthcheck port must be between 0 and 65535")
	}
	return &cfg, nil
}
