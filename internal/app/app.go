// Package app wires the application together: logger, filesystem, module
// registry, and the plan/apply/destroy entrypoints the CLI calls.
package app

import (
	"io"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/vk/microform/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle. Logs go to errW; plan and apply output goes to outW.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	fs       afero.Fs
	registry *registry.Registry
	config   *Config
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
func NewApp(outW, errW io.Writer, fs afero.Fs, config *Config, modules ...registry.Module) *App {
	logger := newLogger(config.LogLevel, config.LogFormat, errW)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules(fs)
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All resource modules registered.", "count", len(modules))

	return &App{
		outW:     outW,
		logger:   logger,
		fs:       fs,
		registry: reg,
		config:   config,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}
