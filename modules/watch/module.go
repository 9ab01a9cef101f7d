// Package watch implements the `watch` task kind, which starts the
// pipeline's watch bindings and blocks until cancelled.
package watch

import (
	"context"
	"errors"
	"fmt"

	"github.com/RoJaebl/portfolio/internal/config"
	"github.com/RoJaebl/portfolio/internal/ctxlog"
	"github.com/RoJaebl/portfolio/internal/registry"
	"github.com/RoJaebl/portfolio/internal/task"
	filewatch "github.com/RoJaebl/portfolio/internal/watch"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'arguments' HCL block.
type Input struct {
	// Bindings restricts the task to the named watch blocks. Empty means all.
	Bindings []string `hcl:"bindings,optional"`
}

// Bindings turns watch declarations into watcher bindings. A binding re-runs
// its task through deps.Trigger and, once the run succeeds, asks the dev
// server to reload. Runs for the same binding may overlap.
func Bindings(deps *registry.Deps, watches []*config.Watch) []filewatch.Binding {
	out := make([]filewatch.Binding, 0, len(watches))
	for _, w := range watches {
		out = append(out, filewatch.Binding{
			Name:     w.Name,
			Patterns: w.Patterns,
			Delay:    w.Delay,
			Fire: func(ctx context.Context, changed []string) {
				logger := ctxlog.FromContext(ctx).With("watch", w.Name)
				if err := deps.Trigger.Run(ctx, w.Task); err != nil {
					// A failed rebuild must not stop watching.
					logger.Error("❌ Rebuild failed", "task", w.Task, "error", err)
					return
				}
				if deps.Reload != nil {
					n := deps.Reload.Broadcast(changed[0])
					logger.Debug("Reload broadcast.", "subscribers", n)
				}
			},
		})
	}
	return out
}

// selectWatches returns the declared watches named in names, or all of them.
func selectWatches(all []*config.Watch, names []string) ([]*config.Watch, error) {
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]*config.Watch, len(all))
	for _, w := range all {
		byName[w.Name] = w
	}
	out := make([]*config.Watch, 0, len(names))
	for _, name := range names {
		w, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown watch binding %q", name)
		}
		out = append(out, w)
	}
	return out, nil
}

func build(_ context.Context, deps *registry.Deps, _ *config.Task, in any) (task.Action, error) {
	input := in.(*Input)
	if deps.Trigger == nil {
		return nil, errors.New("watch needs a task trigger")
	}
	watches, err := selectWatches(deps.Watches, input.Bindings)
	if err != nil {
		return nil, err
	}
	if len(watches) == 0 {
		return nil, errors.New("the pipeline declares no watch blocks")
	}
	if _, err := filewatch.New(Bindings(deps, watches)...); err != nil {
		return nil, err
	}
	return func(ctx context.Context, _ task.RunContext) error {
		// Each run gets fresh debounce state.
		w, err := filewatch.New(Bindings(deps, watches)...)
		if err != nil {
			return err
		}
		return w.Run(ctx)
	}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind("watch", &registry.RegisteredKind{
		NewInput: func() any { return new(Input) },
		Build:    build,
	})
}
