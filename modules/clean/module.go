// Package clean implements the `clean` task kind: it deletes every path
// matched by a set of glob patterns, directories included.
package clean

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/RoJaebl/portfolio/internal/config"
	"github.com/RoJaebl/portfolio/internal/ctxlog"
	"github.com/RoJaebl/portfolio/internal/fsutil"
	"github.com/RoJaebl/portfolio/internal/registry"
	"github.com/RoJaebl/portfolio/internal/task"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'arguments' HCL block.
type Input struct {
	Patterns []string `hcl:"patterns"`
}

// OnRunClean removes everything matched by input.Patterns. Missing paths are
// not an error.
func OnRunClean(ctx context.Context, input *Input) error {
	logger := ctxlog.FromContext(ctx)

	paths, err := fsutil.Paths(input.Patterns)
	if err != nil {
		return err
	}
	var errs []error
	for _, p := range paths {
		if err := os.RemoveAll(p); err != nil {
			errs = append(errs, fmt.Errorf("removing %s: %w", p, err))
			continue
		}
		logger.Debug("Removed path.", "path", p)
	}
	logger.Info("🧹 Cleaned", "removed", len(paths)-len(errs))
	return errors.Join(errs...)
}

func build(_ context.Context, _ *registry.Deps, _ *config.Task, in any) (task.Action, error) {
	input := in.(*Input)
	if len(input.Patterns) == 0 {
		return nil, errors.New("patterns must not be empty")
	}
	return func(ctx context.Context, _ task.RunContext) error {
		return OnRunClean(ctx, input)
	}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind("clean", &registry.RegisteredKind{
		NewInput: func() any { return new(Input) },
		Build:    build,
	})
}
