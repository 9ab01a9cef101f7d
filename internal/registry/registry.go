package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/RoJaebl/portfolio/internal/config"
	"github.com/RoJaebl/portfolio/internal/devserver"
	"github.com/RoJaebl/portfolio/internal/task"
)

// Module is the interface that all core modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Trigger runs a registered task by name. The runner satisfies it.
type Trigger interface {
	Run(ctx context.Context, name string) error
}

// Deps is everything a factory may need beyond its own arguments. It is
// built once per application and shared by all factories.
type Deps struct {
	Routes  config.Routes
	Watches []*config.Watch
	// Trigger lets long-running leaves such as `watch` start other tasks.
	Trigger Trigger
	// Reload connects change detection to the running dev server.
	Reload *devserver.Hub
}

// BuildFunc turns a decoded input into a leaf action.
type BuildFunc func(ctx context.Context, deps *Deps, decl *config.Task, input any) (task.Action, error)

// RegisteredKind holds the compiled Go parts of a leaf kind.
type RegisteredKind struct {
	// NewInput returns a pointer to a fresh input struct with `hcl` tags.
	NewInput func() any
	Build    BuildFunc
	// Singleton kinds may be declared at most once per pipeline.
	Singleton bool
}

// Registry holds all the registered leaf kinds for a single application instance.
type Registry struct {
	kinds map[string]*RegisteredKind
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{kinds: make(map[string]*RegisteredKind)}
}

// RegisterKind registers the implementation of a leaf kind.
func (r *Registry) RegisterKind(kind string, handler *RegisteredKind) {
	if _, exists := r.kinds[kind]; exists {
		panic(fmt.Sprintf("task kind '%s' already registered", kind))
	}
	if handler == nil || handler.NewInput == nil || handler.Build == nil {
		panic(fmt.Sprintf("task kind '%s' is incomplete", kind))
	}
	slog.Debug("Registering task kind.", "kind", kind)
	r.kinds[kind] = handler
}

// Kinds returns the registered kind names, sorted.
func (r *Registry) Kinds() []string {
	names := make([]string, 0, len(r.kinds))
	for k := range r.kinds {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the registered kind.
func (r *Registry) Lookup(kind string) (*RegisteredKind, bool) {
	h, ok := r.kinds[kind]
	return h, ok
}

// Build decodes decl's arguments with conv and asks the kind's factory for
// the leaf action.
func (r *Registry) Build(ctx context.Context, deps *Deps, conv config.Converter, decl *config.Task) (task.Action, error) {
	handler, ok := r.kinds[decl.Kind]
	if !ok {
		return nil, fmt.Errorf("%s: task %q has unknown kind %q", decl.DeclRange, decl.Name, decl.Kind)
	}
	input := handler.NewInput()
	if err := conv.DecodeArguments(ctx, decl.Arguments, input); err != nil {
		return nil, fmt.Errorf("%s: task %q: decoding arguments: %w", decl.DeclRange, decl.Name, err)
	}
	action, err := handler.Build(ctx, deps, decl, input)
	if err != nil {
		return nil, fmt.Errorf("%s: task %q: %w", decl.DeclRange, decl.Name, err)
	}
	return action, nil
}
