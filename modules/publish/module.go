// Package publish implements the `publish` task kind. Built files are either
// committed to a branch of a git remote (the gh-pages flow) or uploaded one
// by one with HTTP PUT.
package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RoJaebl/portfolio/internal/config"
	"github.com/RoJaebl/portfolio/internal/ctxlog"
	"github.com/RoJaebl/portfolio/internal/fsutil"
	"github.com/RoJaebl/portfolio/internal/registry"
	"github.com/RoJaebl/portfolio/internal/task"
)

// Defaults for optional arguments.
const (
	DefaultBranch      = "gh-pages"
	DefaultRemote      = "origin"
	DefaultCacheDir    = ".publish"
	DefaultConcurrency = 4
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'arguments' HCL block.
type Input struct {
	Src    []string `hcl:"src"`
	Target string   `hcl:"target"`

	// git target
	Repo     string `hcl:"repo,optional"`
	Remote   string `hcl:"remote,optional"`
	Branch   string `hcl:"branch,optional"`
	CacheDir string `hcl:"cache_dir,optional"`
	Message  string `hcl:"message,optional"`

	// http target
	URL         string            `hcl:"url,optional"`
	Headers     map[string]string `hcl:"headers,optional"`
	Concurrency *int              `hcl:"concurrency,optional"`
}

// OnRunPublish is the handler for the 'publish' task kind.
func OnRunPublish(ctx context.Context, input *Input) error {
	logger := ctxlog.FromContext(ctx).With("target", input.Target)

	files, err := fsutil.Glob(input.Src)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("nothing to publish: no files match %v", input.Src)
	}

	switch input.Target {
	case "git":
		err = publishGit(ctx, input, files)
	case "http":
		err = publishHTTP(ctx, input, files)
	default:
		err = fmt.Errorf("unknown publish target %q", input.Target)
	}
	if err != nil {
		return err
	}
	logger.Info("🚀 Published", "files", len(files))
	return nil
}

func withDefaults(input *Input) error {
	if len(input.Src) == 0 {
		return errors.New("src must not be empty")
	}
	switch input.Target {
	case "git":
		if input.Remote == "" {
			input.Remote = DefaultRemote
		}
		if input.Branch == "" {
			input.Branch = DefaultBranch
		}
		if input.CacheDir == "" {
			input.CacheDir = DefaultCacheDir
		}
	case "http":
		if input.URL == "" {
			return errors.New("http target needs a url")
		}
		if input.Concurrency == nil {
			n := DefaultConcurrency
			input.Concurrency = &n
		}
		if *input.Concurrency < 1 {
			return fmt.Errorf("concurrency must be at least 1, got %d", *input.Concurrency)
		}
	default:
		return fmt.Errorf(`unknown publish target %q, expected "git" or "http"`, input.Target)
	}
	return nil
}

func commitMessage(input *Input, now time.Time) string {
	if input.Message != "" {
		return input.Message
	}
	return "Publish " + now.UTC().Format(time.RFC3339)
}

func build(_ context.Context, _ *registry.Deps, _ *config.Task, in any) (task.Action, error) {
	input := in.(*Input)
	if err := withDefaults(input); err != nil {
		return nil, err
	}
	return func(ctx context.Context, _ task.RunContext) error {
		return OnRunPublish(ctx, input)
	}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind("publish", &registry.RegisteredKind{
		NewInput: func() any { return new(Input) },
		Build:    build,
	})
}
