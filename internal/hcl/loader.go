package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RoJaebl/portfolio/internal/config"
	"github.com/RoJaebl/portfolio/internal/ctxlog"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL pipeline loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// Load parses every pipeline file found under paths in two passes. The first
// pass collects `route` blocks from all files, the second decodes the rest
// with `route.*` and `env.*` in scope.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, nil, err
	}
	if len(hclFiles) == 0 {
		return nil, nil, fmt.Errorf("no pipeline files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()
	base := baseContext()
	model := &config.Model{Routes: make(config.Routes)}

	remains := make([]hcl.Body, 0, len(hclFiles))
	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root routesRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		for _, rb := range root.Routes {
			if _, exists := model.Routes[rb.Name]; exists {
				return nil, nil, fmt.Errorf("%s: duplicate route %q", rb.DeclRange, rb.Name)
			}
			route, err := evalRoute(rb, base)
			if err != nil {
				return nil, nil, err
			}
			model.Routes[rb.Name] = route
		}
		remains = append(remains, root.Remain)
	}

	evalCtx := base.NewChild()
	evalCtx.Variables = map[string]cty.Value{"route": routesValue(model.Routes)}

	for i, body := range remains {
		var root pipelineRoot
		if diags := gohcl.DecodeBody(body, evalCtx, &root); diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", hclFiles[i], diags)
		}
		if err := l.translate(model, &root); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", hclFiles[i], err)
		}
	}

	if err := model.Validate(); err != nil {
		return nil, nil, err
	}

	logger.Debug("HCL loading complete.",
		"routes", len(model.Routes),
		"tasks", len(model.Tasks),
		"composites", len(model.Composites),
		"watches", len(model.Watches),
	)
	return model, NewConverter(evalCtx), nil
}

// translate merges one decoded file into the model.
func (l *Loader) translate(model *config.Model, root *pipelineRoot) error {
	if root.StateFile != nil {
		if model.StateFile != "" {
			return fmt.Errorf("state_file is set more than once")
		}
		model.StateFile = *root.StateFile
	}
	for _, tb := range root.Tasks {
		args := hcl.EmptyBody()
		if tb.Arguments != nil {
			args = tb.Arguments.Body
		}
		model.Tasks = append(model.Tasks, &config.Task{
			Kind:            tb.Kind,
			Name:            tb.Name,
			Description:     tb.Description,
			Incremental:     tb.Incremental,
			ContinueOnError: tb.ContinueOnError,
			Arguments:       args,
			DeclRange:       tb.DeclRange,
		})
	}
	for _, cb := range root.Series {
		model.Composites = append(model.Composites, translateComposite(config.SeriesMode, cb))
	}
	for _, cb := range root.Parallel {
		model.Composites = append(model.Composites, translateComposite(config.ParallelMode, cb))
	}
	for _, wb := range root.Watches {
		delay := config.DefaultWatchDelay
		if wb.Delay != nil {
			d, err := time.ParseDuration(*wb.Delay)
			if err != nil {
				return fmt.Errorf("watch %q: invalid delay: %w", wb.Name, err)
			}
			if d < 0 {
				return fmt.Errorf("watch %q: delay must not be negative", wb.Name)
			}
			delay = d
		}
		model.Watches = append(model.Watches, &config.Watch{
			Name:     wb.Name,
			Patterns: wb.Patterns,
			Task:     wb.Task,
			Delay:    delay,
		})
	}
	return nil
}

func translateComposite(mode config.CompositeMode, cb *compositeBlock) *config.Composite {
	return &config.Composite{
		Mode:        mode,
		Name:        cb.Name,
		Description: cb.Description,
		Tasks:       cb.Tasks,
		DeclRange:   cb.DeclRange,
	}
}

// findAllHCLFiles expands paths into a flat, de-duplicated list of .hcl files.
// Directories are searched recursively.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			add(path)
			continue
		}
		matches, err := doublestar.Glob(os.DirFS(path), "**/*.hcl")
		if err != nil {
			return nil, fmt.Errorf("searching %s: %w", path, err)
		}
		for _, m := range matches {
			add(filepath.Join(path, filepath.FromSlash(m)))
		}
	}
	return allFiles, nil
}
