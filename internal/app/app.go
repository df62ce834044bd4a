package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/kartoza/cplus-engine/internal/config"
	"github.com/kartoza/cplus-engine/internal/ctxlog"
	"github.com/kartoza/cplus-engine/internal/model"
	"github.com/kartoza/cplus-engine/internal/pipeline"
	"github.com/kartoza/cplus-engine/internal/registry"
	"github.com/kartoza/cplus-engine/internal/scenariohcl"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	config    *Config
	profile   *config.Profile
	scenarios []*model.Scenario
	registry  *registry.Registry
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and operation
// registry. Configuration that cannot be loaded is a fatal startup error
// and panics; the entrypoint recovers and reports it.
func NewApp(outW io.Writer, appConfig *Config, loader *scenariohcl.Loader) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:   outW,
		logger: logger,
		config: appConfig,
	}

	// History commands run against the store alone; profiles and scenario
	// definitions only load for an analysis run.
	if appConfig.analysisRun() {
		profile, err := config.Load(appConfig.ProfilesDir)
		if err != nil {
			panic(fmt.Errorf("failed to load profile: %w", err))
		}
		logger.Debug("Profile loaded.",
			"pathways", len(profile.Pathways),
			"activities", len(profile.Activities),
			"priorityLayers", len(profile.PriorityLayers))

		scenarios, err := loader.Load(ctx, appConfig.ScenarioPath, profile)
		if err != nil {
			panic(fmt.Errorf("failed to load scenarios: %w", err))
		}
		logger.Debug("Scenario definitions loaded.", "count", len(scenarios))

		a.profile = profile
		a.scenarios = scenarios
	}

	reg := registry.New()
	pipeline.RegisterCoreOperations(reg)
	logger.Debug("Analysis operations registered.", "operations", reg.Names())
	a.registry = reg

	return a
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Scenarios returns the loaded scenario definitions. Primarily for testing.
func (a *App) Scenarios() []*model.Scenario {
	return a.scenarios
}
