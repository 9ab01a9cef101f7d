package runner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/RoJaebl/portfolio/internal/dag"
	"github.com/RoJaebl/portfolio/internal/task"
)

var (
	// ErrDuplicateName is matched by every DuplicateNameError.
	ErrDuplicateName = errors.New("duplicate task name")
	// ErrUnknownTask is matched by every UnknownTaskError.
	ErrUnknownTask = errors.New("unknown task")
	// ErrCycle is returned when composite tasks reference each other cyclically.
	ErrCycle = dag.ErrCycle
)

// DuplicateNameError is returned by Register when the name is already bound.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("task %q is already registered", e.Name)
}

func (e *DuplicateNameError) Unwrap() error { return ErrDuplicateName }

// UnknownTaskError is returned when a requested task, or a child referenced
// by a composite, has not been registered.
type UnknownTaskError struct {
	Name string
	// Parent is the composite referencing Name, empty for a top-level request.
	Parent string
}

func (e *UnknownTaskError) Error() string {
	if e.Parent == "" {
		return fmt.Sprintf("unknown task %q", e.Name)
	}
	return fmt.Sprintf("unknown task %q referenced by %q", e.Name, e.Parent)
}

func (e *UnknownTaskError) Unwrap() error { return ErrUnknownTask }

// TaskError is the failure outcome of one task run. Composite failures wrap
// the failure of the child that caused them, so the chain leads down to the
// failing leaf (or leaves, through a GroupError).
type TaskError struct {
	Task  string
	Kind  task.Kind
	RunID string
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %q: %v", e.Task, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// GroupError aggregates every failed child of a parallel group.
type GroupError struct {
	Group    string
	Total    int
	Failures []error
}

func (e *GroupError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("%d of %d parallel tasks failed: %s", len(e.Failures), e.Total, strings.Join(msgs, "; "))
}

func (e *GroupError) Unwrap() []error { return e.Failures }

// FailedLeaves walks an error returned by Run and returns the names of the
// leaf tasks whose failure produced it, in the order they appear in the chain.
func FailedLeaves(err error) []string {
	var out []string
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		if te, ok := err.(*TaskError); ok && te.Kind == task.LeafKind {
			out = append(out, te.Task)
			return
		}
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			for _, e := range u.Unwrap() {
				walk(e)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return out
}
