// Package task defines the tagged task variant interpreted by the runner:
// a Leaf wrapping an action, a Sequence of child names run in order, or a
// ParallelGroup of child names started together.
package task

import (
	"context"
	"fmt"
	"time"
)

// Kind distinguishes the three task variants.
type Kind int

const (
	// LeafKind wraps a single action.
	LeafKind Kind = iota
	// SequenceKind runs its children one at a time, in order.
	SequenceKind
	// ParallelKind starts all its children at once and waits for all of them.
	ParallelKind
)

// String returns the name used in logs and plans.
func (k Kind) String() string {
	switch k {
	case LeafKind:
		return "leaf"
	case SequenceKind:
		return "series"
	case ParallelKind:
		return "parallel"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// RunContext is what the runner hands to a leaf action on every invocation.
type RunContext struct {
	// Task is the registered name of the leaf being run.
	Task string
	// RunID uniquely identifies this run instance.
	RunID string
	// Since is the start time of the last successful run of this task. It is
	// only set for incremental leaves and is zero when no run has succeeded yet.
	Since time.Time
}

// Action is the side-effecting operation a leaf wraps. Completion is the
// function returning.
type Action func(ctx context.Context, rc RunContext) error

// Task is an immutable task definition. Build one with Leaf, Series or Parallel.
type Task struct {
	kind        Kind
	action      Action
	children    []string
	incremental bool
	description string
}

// Option configures a task at construction time.
type Option func(*Task)

// Incremental marks a leaf as wanting the last-successful-run timestamp as an
// input filter. It has no effect on composite tasks.
func Incremental() Option {
	return func(t *Task) { t.incremental = true }
}

// Describe attaches a one-line description shown by -list.
func Describe(text string) Option {
	return func(t *Task) { t.description = text }
}

// Leaf builds a leaf task around action.
func Leaf(action Action, opts ...Option) *Task {
	t := &Task{kind: LeafKind, action: action}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Series builds a sequence task over the named children.
func Series(children ...string) *Task {
	return composite(SequenceKind, children)
}

// Parallel builds a parallel-group task over the named children.
func Parallel(children ...string) *Task {
	return composite(ParallelKind, children)
}

// With returns a copy of the task with opts applied, leaving t unchanged.
// It is convenient for composites:
// task.Series("a", "b").With(task.Describe("..."))
func (t *Task) With(opts ...Option) *Task {
	cp := *t
	cp.children = t.Children()
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

func composite(kind Kind, children []string) *Task {
	// The child list is copied so callers cannot mutate it after registration.
	cp := make([]string, len(children))
	copy(cp, children)
	return &Task{kind: kind, children: cp}
}

// Kind reports the task variant.
func (t *Task) Kind() Kind { return t.kind }

// Action returns the wrapped action of a leaf, or nil for composites.
func (t *Task) Action() Action { return t.action }

// IsIncremental reports whether the leaf uses the incremental-skip policy.
func (t *Task) IsIncremental() bool { return t.kind == LeafKind && t.incremental }

// Description returns the optional description.
func (t *Task) Description() string { return t.description }

// Children returns a copy of the composite's child names.
func (t *Task) Children() []string {
	cp := make([]string, len(t.children))
	copy(cp, t.children)
	return cp
}

// Validate checks the definition is internally consistent.
func (t *Task) Validate() error {
	switch t.kind {
	case LeafKind:
		if t.action == nil {
			return fmt.Errorf("leaf task has no action")
		}
	case SequenceKind, ParallelKind:
		if len(t.children) == 0 {
			return fmt.Errorf("%s task has no children", t.kind)
		}
		for i, c := range t.children {
			if c == "" {
				return fmt.Errorf("%s task child %d has an empty name", t.kind, i)
			}
		}
	default:
		return fmt.Errorf("unknown task kind %s", t.kind)
	}
	return nil
}
