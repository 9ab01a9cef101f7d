// Package print implements the `print` task kind, a diagnostic leaf that
// writes resolved values and route entries to standard output.
package print

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/RoJaebl/portfolio/internal/config"
	"github.com/RoJaebl/portfolio/internal/ctxlog"
	"github.com/RoJaebl/portfolio/internal/registry"
	"github.com/RoJaebl/portfolio/internal/task"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Out receives the printed lines. Nil means standard output.
	Out io.Writer
}

// Input defines the arguments for the print task.
type Input struct {
	Values map[string]string `hcl:"values,optional"`
	// Routes names the routes to print. "*" prints all of them.
	Routes []string `hcl:"routes,optional"`
}

// OnRunPrint writes input.Values sorted by key, then each selected route.
func OnRunPrint(ctx context.Context, w io.Writer, input *Input, routes []*config.Route) error {
	ctxlog.FromContext(ctx).Info("Printing input")

	if len(input.Values) == 0 && len(routes) == 0 {
		_, err := fmt.Fprintln(w, "      (null)")
		return err
	}

	keys := make([]string, 0, len(input.Values))
	for k := range input.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "      %s = %q\n", k, input.Values[k]); err != nil {
			return err
		}
	}

	for _, r := range routes {
		lines := []string{
			fmt.Sprintf("route.%s.watch = %q", r.Name, r.Watch),
			fmt.Sprintf("route.%s.src = %q", r.Name, r.Src),
			fmt.Sprintf("route.%s.dest = %q", r.Name, r.Dest),
		}
		if _, err := fmt.Fprintf(w, "      %s\n", strings.Join(lines, "\n      ")); err != nil {
			return err
		}
	}
	return nil
}

func selectRoutes(all config.Routes, names []string) ([]*config.Route, error) {
	if len(names) == 1 && names[0] == "*" {
		names = all.Names()
	}
	out := make([]*config.Route, 0, len(names))
	for _, name := range names {
		r, err := all.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	out := m.Out
	if out == nil {
		out = os.Stdout
	}
	r.RegisterKind("print", &registry.RegisteredKind{
		NewInput: func() any { return new(Input) },
		Build: func(_ context.Context, deps *registry.Deps, _ *config.Task, in any) (task.Action, error) {
			input := in.(*Input)
			routes, err := selectRoutes(deps.Routes, input.Routes)
			if err != nil {
				return nil, err
			}
			return func(ctx context.Context, _ task.RunContext) error {
				return OnRunPrint(ctx, out, input, routes)
			}, nil
		},
	})
}
