package task

import (
	"errors"
	"fmt"
)

var (
	// ErrDependencyFailed marks a task that never started because a
	// prerequisite ended without success.
	ErrDependencyFailed = errors.New("dependency failed")
	// ErrOperationFailed wraps an error returned by the task's own work.
	ErrOperationFailed = errors.New("operation failed")
	// ErrCancelled marks a task that was cancelled explicitly.
	ErrCancelled = errors.New("task cancelled")
	// ErrNotDone is returned when a result is read before the task finished.
	ErrNotDone = errors.New("task not done yet")
	// ErrInvalidTransition is returned for a status change outside the lifecycle table.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// DependencyError records which prerequisite stopped a task from starting.
type DependencyError struct {
	Task       string
	Dependency string
	// Err is the dependency's own terminal reason.
	Err error
}

func (e *DependencyError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("task %q: dependency %q did not succeed", e.Task, e.Dependency)
	}
	return fmt.Sprintf("task %q: dependency %q did not succeed: %v", e.Task, e.Dependency, e.Err)
}

// Unwrap exposes both ErrDependencyFailed and the dependency's reason to errors.Is.
func (e *DependencyError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDependencyFailed}
	}
	return []error{ErrDependencyFailed, e.Err}
}
