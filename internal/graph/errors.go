package graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCycleDetected is returned when a declaration would close a cycle.
	ErrCycleDetected = errors.New("dependency cycle detected")
	// ErrAlreadyInProgress is returned when a declaration targets a node
	// whose plan is already committed.
	ErrAlreadyInProgress = errors.New("target already in progress")
)

// CycleError carries the ordered path of a rejected cycle.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return ErrCycleDetected.Error()
	}
	return fmt.Sprintf("%s: %s -> %s", ErrCycleDetected, strings.Join(e.Path, " -> "), e.Path[0])
}

func (e *CycleError) Unwrap() error { return ErrCycleDetected }

// ProgressError reports a declaration rejected because of the target's progress.
type ProgressError struct {
	Target   string
	Progress string
}

func (e *ProgressError) Error() string {
	return fmt.Sprintf("%s: cannot add dependencies to %q (progress %s)", ErrAlreadyInProgress, e.Target, e.Progress)
}

func (e *ProgressError) Unwrap() error { return ErrAlreadyInProgress }
