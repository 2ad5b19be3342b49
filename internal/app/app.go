package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/registry"
	"github.com/vk/taskgrid/internal/runners"
	"github.com/vk/taskgrid/internal/stream"
)

// DefaultPollInterval is used for remote jobs when the plan sets none.
const DefaultPollInterval = time.Second

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	model    *config.Model
	registry *registry.Registry

	workers int
	buffer  int

	closers    []io.Closer
	httpServer *http.Server
}

// New loads the plan at cfg.PlanPath, connects its remote job services and
// builds every task into a validated registry. Modules default to the
// built-in task kinds.
func New(outW io.Writer, cfg *Config, loader config.Loader, modules ...runners.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, cfg.PlanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Debug("Configuration loaded and translated into unified model.", "tasks", len(model.Tasks), "remotes", len(model.Remotes))

	a := &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		model:    model,
		registry: registry.New(),
	}
	a.applySettings()

	if len(modules) == 0 {
		modules = coreModules
	}
	catalog := runners.New(modules...)
	logger.Debug("All Go modules registered.", "kinds", catalog.Kinds())

	remotes, err := a.connectRemotes(ctx, model.Remotes)
	if err != nil {
		return nil, err
	}

	env := &runners.Env{
		Remotes:      remotes,
		PollInterval: DefaultPollInterval,
		EvalContext:  model.EvalContext,
		Out:          outW,
	}
	if model.Settings.PollInterval != nil {
		env.PollInterval = *model.Settings.PollInterval
	}

	for _, spec := range model.Tasks {
		t, err := catalog.Build(ctx, spec, env)
		if err == nil {
			err = a.registry.Add(t)
		}
		if err != nil {
			a.closeRemotes()
			return nil, err
		}
	}

	if err := a.registry.Validate(); err != nil {
		a.closeRemotes()
		return nil, err
	}
	logger.Debug("Registry validation passed.", "tasks", a.registry.Len())

	return a, nil
}

// applySettings merges plan settings with CLI overrides. The CLI wins.
func (a *App) applySettings() {
	a.workers = DefaultWorkers
	if w := a.model.Settings.Workers; w != nil {
		a.workers = *w
	}
	if a.config.Workers > 0 {
		a.workers = a.config.Workers
	}

	a.buffer = stream.DefaultCapacity
	if b := a.model.Settings.Buffer; b != nil {
		a.buffer = *b
	}
	if a.config.Buffer >= 0 {
		a.buffer = a.config.Buffer
	}
}

// Registry returns the application's task registry.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Close releases the connections to remote job services.
func (a *App) Close() error {
	a.closeRemotes()
	return nil
}
