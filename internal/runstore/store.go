// Package runstore defines where the runner keeps the start time of each
// task's last successful run, the input of the incremental-skip policy.
//
// The runner is the only writer. A timestamp is recorded only after a run
// reaches the Succeeded state, and it is the run's start time rather than its
// end time, so files modified while the run was in flight are picked up by
// the next one.
//
// Two implementations exist: inmemorystore (process lifetime, the default)
// and filestore (a JSON file, used when a state file is configured).
package runstore

import (
	"context"
	"time"
)

// Store records and reports last-successful-run timestamps keyed by task name.
type Store interface {
	// LastSuccess returns the start time of the last successful run of task.
	// ok is false when the task has never succeeded.
	LastSuccess(ctx context.Context, task string) (at time.Time, ok bool, err error)

	// RecordSuccess stores startedAt as the last successful run of task. An
	// older timestamp never replaces a newer one, since overlapping runs of
	// the same task may finish out of order.
	RecordSuccess(ctx context.Context, task string, startedAt time.Time) error
}
