// Package command implements the `command` task kind, which runs one
// external command and fails when it exits non-zero.
package command

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/RoJaebl/portfolio/internal/config"
	"github.com/RoJaebl/portfolio/internal/ctxlog"
	"github.com/RoJaebl/portfolio/internal/proc"
	"github.com/RoJaebl/portfolio/internal/registry"
	"github.com/RoJaebl/portfolio/internal/task"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'arguments' HCL block.
type Input struct {
	Command []string          `hcl:"command"`
	Dir     string            `hcl:"dir,optional"`
	Env     map[string]string `hcl:"env,optional"`
}

// OnRunCommand runs the command and logs its output at debug level.
func OnRunCommand(ctx context.Context, input *Input) error {
	logger := ctxlog.FromContext(ctx)

	keys := make([]string, 0, len(input.Env))
	for k := range input.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+input.Env[k])
	}

	out, err := proc.Run(ctx, proc.Cmd{Argv: input.Command, Dir: input.Dir, Env: env})
	if s := strings.TrimSpace(string(out)); s != "" {
		logger.Debug("Command output.", "command", input.Command[0], "stdout", s)
	}
	return err
}

func build(_ context.Context, _ *registry.Deps, _ *config.Task, in any) (task.Action, error) {
	input := in.(*Input)
	if len(input.Command) == 0 || input.Command[0] == "" {
		return nil, errors.New("command must not be empty")
	}
	return func(ctx context.Context, _ task.RunContext) error {
		return OnRunCommand(ctx, input)
	}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind("command", &registry.RegisteredKind{
		NewInput: func() any { return new(Input) },
		Build:    build,
	})
}
