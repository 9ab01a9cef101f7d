// Package scripts implements the `scripts` task kind: it hands the script
// sources changed since the last successful run to an external compiler.
package scripts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RoJaebl/portfolio/internal/config"
	"github.com/RoJaebl/portfolio/internal/ctxlog"
	"github.com/RoJaebl/portfolio/internal/fsutil"
	"github.com/RoJaebl/portfolio/internal/proc"
	"github.com/RoJaebl/portfolio/internal/registry"
	"github.com/RoJaebl/portfolio/internal/task"
)

// DefaultSrc is used when neither `src` nor the project's `include` is set.
var DefaultSrc = []string{"src/**/*.ts"}

// DefaultCommand is the compiler invocation; flags and files are appended.
var DefaultCommand = []string{"tsc"}

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'arguments' HCL block.
type Input struct {
	Src  []string `hcl:"src,optional"`
	Dest string   `hcl:"dest,optional"`
	// Project is a tsconfig.json whose `include` and `compilerOptions.outDir`
	// fill in Src and Dest when those are unset.
	Project   string   `hcl:"project,optional"`
	Command   []string `hcl:"command,optional"`
	Args      []string `hcl:"args,optional"`
	SourceMap *bool    `hcl:"source_map,optional"`
}

// project is the subset of tsconfig.json that is read.
type project struct {
	Include         []string `json:"include"`
	CompilerOptions struct {
		OutDir string `json:"outDir"`
	} `json:"compilerOptions"`
}

// resolve fills in defaults from the project file.
func resolve(input *Input) error {
	if input.Project != "" {
		data, err := os.ReadFile(input.Project)
		if err != nil {
			return fmt.Errorf("reading project: %w", err)
		}
		var p project
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("parsing project %s: %w", input.Project, err)
		}
		base := filepath.Dir(input.Project)
		if len(input.Src) == 0 {
			for _, inc := range p.Include {
				input.Src = append(input.Src, filepath.Join(base, inc))
			}
		}
		if input.Dest == "" && p.CompilerOptions.OutDir != "" {
			input.Dest = filepath.Join(base, p.CompilerOptions.OutDir)
		}
	}
	if len(input.Src) == 0 {
		input.Src = DefaultSrc
	}
	if input.Dest == "" {
		return errors.New("dest is not set and the project has no outDir")
	}
	if len(input.Command) == 0 {
		input.Command = DefaultCommand
	}
	return nil
}

// Argv builds the compiler invocation for files.
func Argv(input *Input, files []string) []string {
	argv := append([]string{}, input.Command...)
	argv = append(argv, "--outDir", input.Dest)
	if input.SourceMap == nil || *input.SourceMap {
		argv = append(argv, "--sourceMap")
	}
	argv = append(argv, input.Args...)
	return append(argv, files...)
}

// OutputPath is where the compiler writes the script for m, assuming the
// compiler's root directory is the static base of the pattern that matched it.
func OutputPath(dest string, m fsutil.Match) string {
	return filepath.Join(dest, strings.TrimSuffix(m.Rel, filepath.Ext(m.Rel))+".js")
}

// OnRunScripts compiles the sources modified after since, plus those whose
// output is missing. With nothing to compile the compiler is not invoked at all.
func OnRunScripts(ctx context.Context, input *Input, since time.Time) error {
	logger := ctxlog.FromContext(ctx)

	all, err := fsutil.Glob(input.Src)
	if err != nil {
		return err
	}
	changed := fsutil.Stale(all, since, func(m fsutil.Match) string {
		return OutputPath(input.Dest, m)
	})
	if len(changed) == 0 {
		logger.Info("📜 Scripts up to date", "sources", len(all))
		return nil
	}

	files := make([]string, len(changed))
	for i, m := range changed {
		files[i] = m.Path
	}
	out, err := proc.Run(ctx, proc.Cmd{Argv: Argv(input, files)})
	if len(out) > 0 {
		logger.Info("Compiler output", "output", string(out))
	}
	if err != nil {
		return err
	}
	logger.Info("📜 Compiled scripts", "compiled", len(changed), "sources", len(all))
	return nil
}

func build(_ context.Context, _ *registry.Deps, _ *config.Task, in any) (task.Action, error) {
	input := in.(*Input)
	if err := resolve(input); err != nil {
		return nil, err
	}
	return func(ctx context.Context, rc task.RunContext) error {
		return OnRunScripts(ctx, input, rc.Since)
	}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind("scripts", &registry.RegisteredKind{
		NewInput: func() any { return new(Input) },
		Build:    build,
	})
}
