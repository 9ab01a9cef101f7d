// Package runner is the Task Graph Runner: it binds names to task
// definitions, resolves a requested name into an execution plan and runs it.
//
// Sequences run their children one at a time and stop at the first failure.
// Parallel groups start every child, wait for all of them, and fail only
// after the last one has finished, never cancelling siblings. The runner
// itself never cancels or times out a run; the context it is given is passed
// through to leaves, which decide what to do with it.
package runner

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RoJaebl/portfolio/internal/ctxlog"
	"github.com/RoJaebl/portfolio/internal/inmemorystore"
	"github.com/RoJaebl/portfolio/internal/runstore"
	"github.com/RoJaebl/portfolio/internal/task"
)

// Runner holds the registered tasks. It is safe for concurrent use; watch
// mode calls Run from many goroutines at once.
type Runner struct {
	mu    sync.RWMutex
	tasks map[string]*task.Task

	store     runstore.Store
	observers []Observer
	now       func() time.Time
	newID     func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithStore sets where last-successful-run timestamps are kept.
func WithStore(s runstore.Store) Option {
	return func(r *Runner) { r.store = s }
}

// WithObserver adds an observer of run transitions.
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observers = append(r.observers, o) }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New creates an empty runner. Without WithStore, timestamps live in memory
// for the lifetime of the process.
func New(opts ...Option) *Runner {
	r := &Runner{
		tasks: make(map[string]*task.Task),
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.store == nil {
		r.store = inmemorystore.New()
	}
	return r
}

// Register binds name to t. Names are immutable once bound.
func (r *Runner) Register(name string, t *task.Task) error {
	if name == "" {
		return fmt.Errorf("task name must not be empty")
	}
	if t == nil {
		return fmt.Errorf("task %q: definition must not be nil", name)
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("task %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[name]; exists {
		return &DuplicateNameError{Name: name}
	}
	r.tasks[name] = t
	return nil
}

// MustRegister is Register for static wiring; it panics on error.
func (r *Runner) MustRegister(name string, t *task.Task) {
	if err := r.Register(name, t); err != nil {
		panic(err)
	}
}

// Lookup returns the definition bound to name.
func (r *Runner) Lookup(name string) (*task.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[name]
	return t, ok
}

// Names returns every registered name, sorted.
func (r *Runner) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tasks))
	for n := range r.tasks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate resolves every registered task, reporting the first unknown
// reference or cycle. Registration order is free, so this is the point where
// a fully wired pipeline can be checked before anything runs.
func (r *Runner) Validate() error {
	for _, name := range r.Names() {
		if _, err := r.Plan(name); err != nil {
			return err
		}
	}
	return nil
}

// Run resolves name and executes its plan. It returns nil on success or an
// error chain identifying the failing leaf task(s).
func (r *Runner) Run(ctx context.Context, name string) error {
	plan, err := r.Plan(name)
	if err != nil {
		return err
	}
	return r.execute(ctx, plan)
}

func (r *Runner) execute(ctx context.Context, p *Plan) error {
	rn := &run{id: r.newID(), task: p.Name, kind: p.Task.Kind(), state: Pending}
	ctx = ctxlog.WithTask(ctx, p.Name, rn.id)
	logger := ctxlog.FromContext(ctx)

	rn.startedAt = r.now()
	if err := r.transition(rn, Running, nil); err != nil {
		return err
	}

	var err error
	switch p.Task.Kind() {
	case task.LeafKind:
		err = r.executeLeaf(ctx, p, rn)
	case task.SequenceKind:
		logger.Debug("Running sequence.", "children", len(p.Children))
		err = r.executeSequence(ctx, p)
	case task.ParallelKind:
		logger.Debug("Running parallel group.", "children", len(p.Children))
		err = r.executeParallel(ctx, p)
	default:
		err = fmt.Errorf("unsupported task kind %s", p.Task.Kind())
	}

	if err != nil {
		wrapped := &TaskError{Task: p.Name, Kind: p.Task.Kind(), RunID: rn.id, Err: err}
		if terr := r.transition(rn, Failed, err); terr != nil {
			return terr
		}
		return wrapped
	}

	if p.Task.IsIncremental() {
		if serr := r.store.RecordSuccess(ctx, p.Name, rn.startedAt); serr != nil {
			// The work is done; losing the timestamp only costs a full rebuild next time.
			logger.Warn("Failed to record last successful run.", "error", serr)
		}
	}
	return r.transition(rn, Succeeded, nil)
}

func (r *Runner) executeLeaf(ctx context.Context, p *Plan, rn *run) (err error) {
	logger := ctxlog.FromContext(ctx)
	rc := task.RunContext{Task: p.Name, RunID: rn.id}
	if p.Task.IsIncremental() {
		since, ok, serr := r.store.LastSuccess(ctx, p.Name)
		if serr != nil {
			logger.Warn("Failed to read last successful run, processing all inputs.", "error", serr)
		} else if ok {
			rc.Since = since
		}
	}

	logger.Info("▶️ Starting task", "since", rc.Since)
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
		if err != nil {
			logger.Error("❌ Task failed", "error", err)
			return
		}
		logger.Info("✅ Finished task", "duration", r.now().Sub(rn.startedAt).String())
	}()

	return p.Task.Action()(ctx, rc)
}

func (r *Runner) executeSequence(ctx context.Context, p *Plan) error {
	for _, child := range p.Children {
		if err := r.execute(ctx, child); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) executeParallel(ctx context.Context, p *Plan) error {
	errs := make([]error, len(p.Children))
	var wg sync.WaitGroup
	wg.Add(len(p.Children))
	for i, child := range p.Children {
		go func(i int, child *Plan) {
			defer wg.Done()
			errs[i] = r.execute(ctx, child)
		}(i, child)
	}
	wg.Wait()

	var failures []error
	for _, err := range errs {
		if err != nil {
			failures = append(failures, err)
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return &GroupError{Group: p.Name, Total: len(p.Children), Failures: failures}
}
