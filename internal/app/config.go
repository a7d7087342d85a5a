package app

import (
	"fmt"

	"github.com/vk/microform/internal/executor"
)

// DefaultStatePath is where runs record state unless told otherwise.
const DefaultStatePath = "microform.state.json"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPath string // directory or file with .hcl configuration
	StatePath  string
	Vars       map[string]string

	LogFormat string
	LogLevel  string
	Workers   int
}

// NewConfig validates a config and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = "."
	}
	if cfg.StatePath == "" {
		cfg.StatePath = DefaultStatePath
	}
	if cfg.Workers <= 0 {
		cfg.Workers = executor.DefaultWorkers
	}

	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "text"
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", cfg.LogFormat)
	}

	switch cfg.LogLevel {
	case "":
		cfg.LogLevel = "info"
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}

	return &cfg, nil
}
