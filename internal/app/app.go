package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/RoJaebl/portfolio/internal/config"
	"github.com/RoJaebl/portfolio/internal/ctxlog"
	"github.com/RoJaebl/portfolio/internal/devserver"
	"github.com/RoJaebl/portfolio/internal/filestore"
	"github.com/RoJaebl/portfolio/internal/inmemorystore"
	"github.com/RoJaebl/portfolio/internal/registry"
	"github.com/RoJaebl/portfolio/internal/runner"
	"github.com/RoJaebl/portfolio/internal/runstore"
	"github.com/RoJaebl/portfolio/internal/task"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	model    *config.Model
	registry *registry.Registry
	runner   *runner.Runner
	hub      *devserver.Hub

	activeRuns atomic.Int64
}

// NewApp is the constructor for the main application. It loads the pipeline,
// builds every declared task through the registered modules and registers
// the result with a fresh runner. Any error here is a configuration error.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, converter, err := loader.Load(ctx, cfg.ConfigPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Debug("Configuration loaded.", "tasks", len(model.Tasks), "composites", len(model.Composites), "routes", len(model.Routes))

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	if err := reg.ValidateModel(ctx, model); err != nil {
		return nil, err
	}

	a := &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		model:    model,
		registry: reg,
		hub:      devserver.NewHub(),
	}

	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	a.runner = runner.New(runner.WithStore(store), runner.WithObserver(runner.ObserverFunc(a.trackRun)))

	if err := a.registerTasks(ctx, converter); err != nil {
		return nil, err
	}
	if err := a.runner.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline: %w", err)
	}
	logger.Debug("Runner validation passed.", "tasks", len(a.runner.Names()))
	return a, nil
}

// openStore picks where incremental timestamps live. The command line wins
// over the pipeline file; without either they are kept in memory.
func (a *App) openStore() (runstore.Store, error) {
	path := a.config.StateFile
	if path == "" {
		path = a.model.StateFile
	}
	if path == "" {
		return inmemorystore.New(), nil
	}
	a.logger.Debug("Using state file.", "path", path)
	return filestore.Open(path)
}

func (a *App) registerTasks(ctx context.Context, converter config.Converter) error {
	deps := &registry.Deps{
		Routes:  a.model.Routes,
		Watches: a.model.Watches,
		Trigger: a.runner,
		Reload:  a.hub,
	}

	for _, decl := range a.model.Tasks {
		action, err := a.registry.Build(ctx, deps, converter, decl)
		if err != nil {
			return err
		}
		if decl.ContinueOnError {
			a.logger.Debug("Failures of this task will be tolerated.", "task", decl.Name)
			action = tolerant(action)
		}
		opts := []task.Option{task.Describe(decl.Description)}
		if decl.Incremental {
			opts = append(opts, task.Incremental())
		}
		if err := a.runner.Register(decl.Name, task.Leaf(action, opts...)); err != nil {
			return fmt.Errorf("%s: %w", decl.DeclRange, err)
		}
	}

	for _, c := range a.model.Composites {
		var t *task.Task
		switch c.Mode {
		case config.SeriesMode:
			t = task.Series(c.Tasks...)
		case config.ParallelMode:
			t = task.Parallel(c.Tasks...)
		default:
			return fmt.Errorf("%s: composite %q has unknown mode %q", c.DeclRange, c.Name, c.Mode)
		}
		if err := a.runner.Register(c.Name, t.With(task.Describe(c.Description))); err != nil {
			return fmt.Errorf("%s: %w", c.DeclRange, err)
		}
	}
	return nil
}

// tolerant makes a failing action log its error and report success.
func tolerant(action task.Action) task.Action {
	return func(ctx context.Context, rc task.RunContext) error {
		if err := action(ctx, rc); err != nil {
			ctxlog.FromContext(ctx).Warn("⚠️ Task failed, continuing", "error", err)
		}
		return nil
	}
}

func (a *App) trackRun(e runner.Event) {
	switch {
	case e.To == runner.Running:
		a.activeRuns.Add(1)
	case e.To.IsTerminal():
		a.activeRuns.Add(-1)
	}
}

// Runner returns the application's runner. This is primarily for testing.
func (a *App) Runner() *runner.Runner {
	return a.runner
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}
