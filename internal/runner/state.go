package runner

import (
	"fmt"
	"time"

	"github.com/RoJaebl/portfolio/internal/task"
)

// State is the lifecycle state of a single task run.
type State int

const (
	// Pending means the run has been created but not started.
	Pending State = iota
	// Running means the task's work is in progress.
	Running
	// Succeeded is terminal.
	Succeeded
	// Failed is terminal.
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Running:
		return "RUNNING"
	case Succeeded:
		return "SUCCEEDED"
	case Failed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// IsTerminal reports whether the state is final.
func (s State) IsTerminal() bool {
	return s == Succeeded || s == Failed
}

// Event describes one state transition of a run. Observers receive events
// from concurrent goroutines when parallel groups are executing.
type Event struct {
	RunID string
	Task  string
	Kind  task.Kind
	From  State
	To    State
	At    time.Time
	// Err is set when To is Failed.
	Err error
}

// Observer receives every run transition.
type Observer interface {
	OnTransition(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnTransition implements Observer.
func (f ObserverFunc) OnTransition(e Event) { f(e) }

// run is one fresh, independent state instance for a task invocation.
type run struct {
	id        string
	task      string
	kind      task.Kind
	state     State
	startedAt time.Time
}

func isAllowedTransition(from, to State) bool {
	switch from {
	case Pending:
		return to == Running
	case Running:
		return to == Succeeded || to == Failed
	default:
		return false
	}
}

// transition moves the run to `to` and notifies observers.
func (r *Runner) transition(rn *run, to State, err error) error {
	if !isAllowedTransition(rn.state, to) {
		return fmt.Errorf("disallowed transition for %q: %s -> %s", rn.task, rn.state, to)
	}
	ev := Event{RunID: rn.id, Task: rn.task, Kind: rn.kind, From: rn.state, To: to, At: r.now(), Err: err}
	rn.state = to
	for _, o := range r.observers {
		o.OnTransition(ev)
	}
	return nil
}
