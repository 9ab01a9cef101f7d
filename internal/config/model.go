package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/hcl/v2"
)

// Model is the unified, format-agnostic representation of a pipeline file.
type Model struct {
	Routes     Routes
	Tasks      []*Task
	Composites []*Composite
	Watches    []*Watch
	// StateFile, when set, persists incremental timestamps across runs.
	StateFile string
}

// Routes is the named route table. It is passed by reference to every
// module factory rather than living in a package-level variable.
type Routes map[string]*Route

// Route is a named set of path patterns. It carries no behavior.
type Route struct {
	Name  string
	Watch []string
	Src   []string
	Dest  string
}

// Get returns the named route or an error naming the missing route.
func (r Routes) Get(name string) (*Route, error) {
	route, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("unknown route %q", name)
	}
	return route, nil
}

// Names returns the route names, sorted.
func (r Routes) Names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Task is a leaf task declaration: `task "<kind>" "<name>" { ... }`.
type Task struct {
	Kind        string
	Name        string
	Description string
	// Incremental opts the leaf into the last-successful-run input filter.
	Incremental bool
	// ContinueOnError makes the leaf log its failure and report success.
	ContinueOnError bool
	// Arguments is the raw `arguments` block, decoded by the module.
	Arguments hcl.Body
	DeclRange hcl.Range
}

// CompositeMode selects the composition operator.
type CompositeMode string

const (
	// SeriesMode runs children in order.
	SeriesMode CompositeMode = "series"
	// ParallelMode runs children concurrently.
	ParallelMode CompositeMode = "parallel"
)

// Composite is a `series` or `parallel` declaration.
type Composite struct {
	Mode        CompositeMode
	Name        string
	Description string
	Tasks       []string
	DeclRange   hcl.Range
}

// DefaultWatchDelay is used when a watch binding does not set `delay`.
const DefaultWatchDelay = 200 * time.Millisecond

// Watch is a watch binding: re-run Task whenever a file matching one of
// Patterns changes.
type Watch struct {
	Name     string
	Patterns []string
	Task     string
	// Delay coalesces a burst of events into one run.
	Delay time.Duration
}

// Validate checks model-level invariants that do not need the registry:
// unique names across tasks and composites, and watch bindings pointing at
// declared tasks.
func (m *Model) Validate() error {
	seen := make(map[string]string)
	claim := func(name, what string) error {
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("%s %q conflicts with %s of the same name", what, name, prev)
		}
		seen[name] = what
		return nil
	}
	for _, t := range m.Tasks {
		if err := claim(t.Name, "task"); err != nil {
			return err
		}
	}
	for _, c := range m.Composites {
		if err := claim(c.Name, string(c.Mode)); err != nil {
			return err
		}
	}
	watchNames := make(map[string]bool)
	for _, w := range m.Watches {
		if watchNames[w.Name] {
			return fmt.Errorf("duplicate watch %q", w.Name)
		}
		watchNames[w.Name] = true
		if len(w.Patterns) == 0 {
			return fmt.Errorf("watch %q has no patterns", w.Name)
		}
		if _, ok := seen[w.Task]; !ok {
			return fmt.Errorf("watch %q triggers unknown task %q", w.Name, w.Task)
		}
	}
	return nil
}

// TasksOfKind returns the leaf declarations of the given kind.
func (m *Model) TasksOfKind(kind string) []*Task {
	var out []*Task
	for _, t := range m.Tasks {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}
