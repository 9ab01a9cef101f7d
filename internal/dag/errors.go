package dag

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCycle is the sentinel matched by every cycle error.
var ErrCycle = errors.New("cycle detected")

// CycleError reports a cycle together with the path that closes it.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return ErrCycle.Error()
	}
	return fmt.Sprintf("%s: %s", ErrCycle.Error(), strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCycle }
