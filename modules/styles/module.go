// Package styles implements the `styles` task kind: it compiles stylesheet
// entry points with an external preprocessor, optionally pipes the result
// through a post-processor, and minifies the CSS.
package styles

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/RoJaebl/portfolio/internal/config"
	"github.com/RoJaebl/portfolio/internal/ctxlog"
	"github.com/RoJaebl/portfolio/internal/fsutil"
	"github.com/RoJaebl/portfolio/internal/proc"
	"github.com/RoJaebl/portfolio/internal/registry"
	"github.com/RoJaebl/portfolio/internal/task"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
)

// DefaultCommand compiles the entry point given as the last argument and
// writes CSS to stdout.
var DefaultCommand = []string{"sass", "--no-source-map"}

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'arguments' HCL block.
type Input struct {
	Src  []string `hcl:"src"`
	Dest string   `hcl:"dest"`
	// Command is invoked with the entry point appended.
	Command []string `hcl:"command,optional"`
	// PostProcess reads CSS on stdin and writes CSS to stdout.
	PostProcess []string `hcl:"postprocess,optional"`
	Minify      *bool    `hcl:"minify,optional"`
}

// OnRunStyles compiles every entry point matched by input.Src. Files whose
// name starts with an underscore are partials and are never compiled on
// their own.
func OnRunStyles(ctx context.Context, input *Input, since time.Time) error {
	logger := ctxlog.FromContext(ctx)

	entries, err := fsutil.Glob(input.Src)
	if err != nil {
		return err
	}
	entries = fsutil.Stale(entries, since, func(m fsutil.Match) string {
		return cssPath(input.Dest, m)
	})

	m := minify.New()
	m.AddFunc("text/css", css.Minify)

	compiled := 0
	for _, entry := range entries {
		if strings.HasPrefix(filepath.Base(entry.Path), "_") {
			continue
		}
		out, err := compile(ctx, input, entry.Path, m)
		if err != nil {
			return fmt.Errorf("%s: %w", entry.Path, err)
		}
		target := cssPath(input.Dest, entry)
		if err := fsutil.WriteFile(target, out); err != nil {
			return err
		}
		compiled++
		logger.Debug("Compiled stylesheet.", "src", entry.Path, "dest", target, "bytes", len(out))
	}
	logger.Info("🎨 Compiled stylesheets", "count", compiled)
	return nil
}

func cssPath(dest string, m fsutil.Match) string {
	return filepath.Join(dest, strings.TrimSuffix(m.Rel, filepath.Ext(m.Rel))+".css")
}

func compile(ctx context.Context, input *Input, entry string, m *minify.M) ([]byte, error) {
	argv := append(append([]string{}, input.Command...), entry)
	out, err := proc.Run(ctx, proc.Cmd{Argv: argv})
	if err != nil {
		return nil, err
	}
	if len(input.PostProcess) > 0 {
		if out, err = proc.Run(ctx, proc.Cmd{Argv: input.PostProcess, Stdin: out}); err != nil {
			return nil, fmt.Errorf("postprocess: %w", err)
		}
	}
	if input.Minify == nil || *input.Minify {
		if out, err = m.Bytes("text/css", out); err != nil {
			return nil, fmt.Errorf("minify: %w", err)
		}
	}
	return out, nil
}

func build(_ context.Context, _ *registry.Deps, _ *config.Task, in any) (task.Action, error) {
	input := in.(*Input)
	if input.Dest == "" {
		return nil, errors.New("dest must not be empty")
	}
	if len(input.Command) == 0 {
		input.Command = DefaultCommand
	}
	return func(ctx context.Context, rc task.RunContext) error {
		return OnRunStyles(ctx, input, rc.Since)
	}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind("styles", &registry.RegisteredKind{
		NewInput: func() any { return new(Input) },
		Build:    build,
	})
}
