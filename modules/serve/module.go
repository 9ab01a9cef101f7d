// Package serve implements the `serve` task kind. A pipeline picks one
// strategy per serve task: "livereload" serves a directory and pushes a
// reload to open pages after every watched rebuild, "restart" supervises a
// command and restarts it instead.
package serve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/RoJaebl/portfolio/internal/config"
	"github.com/RoJaebl/portfolio/internal/ctxlog"
	"github.com/RoJaebl/portfolio/internal/devserver"
	"github.com/RoJaebl/portfolio/internal/registry"
	"github.com/RoJaebl/portfolio/internal/task"
)

const (
	// LiveReload serves Root over HTTP with an injected reload client.
	LiveReload = "livereload"
	// Restart runs Command and restarts it on every change.
	Restart = "restart"

	// DefaultAddr is where the live-reload server listens.
	DefaultAddr = "localhost:8000"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'arguments' HCL block.
type Input struct {
	Strategy string            `hcl:"strategy,optional"`
	Root     string            `hcl:"root,optional"`
	Addr     string            `hcl:"addr,optional"`
	Open     bool              `hcl:"open,optional"`
	Command  []string          `hcl:"command,optional"`
	Dir      string            `hcl:"dir,optional"`
	Env      map[string]string `hcl:"env,optional"`
	Grace    string            `hcl:"grace,optional"`
}

// OnRunServe blocks serving until ctx is done.
func OnRunServe(ctx context.Context, hub *devserver.Hub, input *Input) error {
	switch input.Strategy {
	case LiveReload:
		ln, err := net.Listen("tcp", input.Addr)
		if err != nil {
			return fmt.Errorf("listening on %s: %w", input.Addr, err)
		}
		return serveLiveReload(ctx, hub, input, ln)
	case Restart:
		return runRestart(ctx, hub, input)
	default:
		return fmt.Errorf("unknown serve strategy %q", input.Strategy)
	}
}

func serveLiveReload(ctx context.Context, hub *devserver.Hub, input *Input, ln net.Listener) error {
	logger := ctxlog.FromContext(ctx)

	lr := devserver.NewLiveReload(ctx, input.Root)
	defer lr.Close()
	unsubscribe := hub.Subscribe(lr.Reload)
	defer unsubscribe()

	url := "http://" + ln.Addr().String() + "/"
	logger.Info("🌐 Serving", "root", input.Root, "url", url)
	if input.Open {
		if err := devserver.OpenBrowser(ctx, url); err != nil {
			logger.Warn("Could not open browser", "error", err)
		}
	}
	return devserver.Serve(ctx, ln, lr)
}

func runRestart(ctx context.Context, hub *devserver.Hub, input *Input) error {
	grace := devserver.DefaultGrace
	if input.Grace != "" {
		d, err := time.ParseDuration(input.Grace)
		if err != nil {
			return fmt.Errorf("invalid grace: %w", err)
		}
		grace = d
	}

	// A restart already queued covers any later request.
	restarts := make(chan string, 1)
	unsubscribe := hub.Subscribe(func(reason string) {
		select {
		case restarts <- reason:
		default:
		}
	})
	defer unsubscribe()

	r := &devserver.Restarter{
		Command: input.Command,
		Dir:     input.Dir,
		Grace:   grace,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
	for k, v := range input.Env {
		r.Env = append(r.Env, k+"="+v)
	}
	return r.Run(ctx, restarts)
}

func build(_ context.Context, deps *registry.Deps, _ *config.Task, in any) (task.Action, error) {
	input := in.(*Input)
	if input.Strategy == "" {
		input.Strategy = LiveReload
	}
	switch input.Strategy {
	case LiveReload:
		if input.Root == "" {
			return nil, errors.New("livereload strategy needs a root directory")
		}
		if input.Addr == "" {
			input.Addr = DefaultAddr
		}
		if len(input.Command) > 0 {
			return nil, errors.New("command is only valid with the restart strategy")
		}
	case Restart:
		if len(input.Command) == 0 {
			return nil, errors.New("restart strategy needs a command")
		}
		if input.Open {
			return nil, errors.New("open is only valid with the livereload strategy")
		}
	default:
		return nil, fmt.Errorf("unknown serve strategy %q, expected %q or %q", input.Strategy, LiveReload, Restart)
	}
	if _, err := time.ParseDuration(input.Grace); input.Grace != "" && err != nil {
		return nil, fmt.Errorf("invalid grace: %w", err)
	}

	hub := deps.Reload
	if hub == nil {
		hub = devserver.NewHub()
	}
	return func(ctx context.Context, _ task.RunContext) error {
		return OnRunServe(ctx, hub, input)
	}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind("serve", &registry.RegisteredKind{
		NewInput:  func() any { return new(Input) },
		Build:     build,
		Singleton: true,
	})
}
