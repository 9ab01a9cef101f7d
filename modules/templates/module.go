// Package templates implements the `templates` task kind: it renders Go
// html/template pages into a destination directory.
package templates

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"
	"time"

	"github.com/RoJaebl/portfolio/internal/config"
	"github.com/RoJaebl/portfolio/internal/ctxlog"
	"github.com/RoJaebl/portfolio/internal/fsutil"
	"github.com/RoJaebl/portfolio/internal/registry"
	"github.com/RoJaebl/portfolio/internal/task"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the 'arguments' HCL block.
type Input struct {
	Src      []string          `hcl:"src"`
	Dest     string            `hcl:"dest"`
	Partials []string          `hcl:"partials,optional"`
	Data     map[string]string `hcl:"data,optional"`
	Minify   bool              `hcl:"minify,optional"`
}

// Page is the value templates are executed with.
type Page struct {
	// Path is the output path relative to the destination directory.
	Path string
	Data map[string]string
}

// OnRunTemplates renders every page matched by input.Src that changed after
// since or has no output yet. Partials are parsed into every page.
func OnRunTemplates(ctx context.Context, input *Input, since time.Time) error {
	logger := ctxlog.FromContext(ctx)

	pages, err := fsutil.Glob(input.Src)
	if err != nil {
		return err
	}
	pages = fsutil.Stale(pages, since, func(m fsutil.Match) string {
		return outputPath(input.Dest, m.Rel)
	})
	partials, err := fsutil.Glob(input.Partials)
	if err != nil {
		return err
	}
	partialPaths := make([]string, len(partials))
	for i, p := range partials {
		partialPaths[i] = p.Path
	}

	var m *minify.M
	if input.Minify {
		m = minify.New()
		m.AddFunc("text/html", html.Minify)
	}

	for _, page := range pages {
		out := outputPath(input.Dest, page.Rel)
		if err := render(page.Path, partialPaths, out, input, m); err != nil {
			return err
		}
		logger.Debug("Rendered page.", "src", page.Path, "dest", out)
	}
	logger.Info("📄 Rendered templates", "pages", len(pages))
	return nil
}

func render(page string, partials []string, out string, input *Input, m *minify.M) error {
	name := filepath.Base(page)
	files := append([]string{page}, partials...)
	tmpl, err := template.New(name).Option("missingkey=error").ParseFiles(files...)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", page, err)
	}

	rel, err := filepath.Rel(input.Dest, out)
	if err != nil {
		rel = out
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, Page{Path: filepath.ToSlash(rel), Data: input.Data}); err != nil {
		return fmt.Errorf("rendering %s: %w", page, err)
	}

	data := buf.Bytes()
	if m != nil {
		if data, err = m.Bytes("text/html", data); err != nil {
			return fmt.Errorf("minifying %s: %w", page, err)
		}
	}
	return fsutil.WriteFile(out, data)
}

// outputPath swaps the template extension for .html.
func outputPath(dest, rel string) string {
	ext := filepath.Ext(rel)
	switch strings.ToLower(ext) {
	case ".html", ".htm":
		return filepath.Join(dest, rel)
	default:
		return filepath.Join(dest, strings.TrimSuffix(rel, ext)+".html")
	}
}

func build(_ context.Context, _ *registry.Deps, _ *config.Task, in any) (task.Action, error) {
	input := in.(*Input)
	if input.Dest == "" {
		return nil, errors.New("dest must not be empty")
	}
	return func(ctx context.Context, rc task.RunContext) error {
		return OnRunTemplates(ctx, input, rc.Since)
	}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind("templates", &registry.RegisteredKind{
		NewInput: func() any { return new(Input) },
		Build:    build,
	})
}
