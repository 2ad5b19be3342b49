// Package task defines the schedulable unit of work, its lifecycle status and
// the error taxonomy shared by the registry and the executor.
package task

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Func is the unit of work behind a task. inputs holds the results of the
// task's dependencies keyed by dependency name.
type Func func(ctx context.Context, inputs map[string]any) (any, error)

// Task is a handle to one unit of work with optional dependency edges.
//
// A Task is safe for concurrent use. Reading its state never evaluates the
// work; only Run does.
type Task struct {
	name string
	deps []string
	fn   Func

	mu        sync.RWMutex
	status    Status
	running   bool
	cancelled bool
	done      bool
	result    any
	err       error
	doneCh    chan struct{}
}

// New creates a task in the NotStarted status.
func New(name string, fn Func, deps ...string) *Task {
	return &Task{
		name:   name,
		deps:   slices.Clone(deps),
		fn:     fn,
		doneCh: make(chan struct{}),
	}
}

// Name returns the task identifier.
func (t *Task) Name() string {
	return t.name
}

// Deps returns a copy of the dependency identifiers in declaration order.
func (t *Task) Deps() []string {
	return slices.Clone(t.deps)
}

// Status returns the current lifecycle status.
func (t *Task) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Done reports whether the task reached a terminal status.
func (t *Task) Done() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.done
}

// Cancelled reports whether the task was cancelled, explicitly or because a
// dependency did not succeed.
func (t *Task) Cancelled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cancelled
}

// Running reports whether the work is currently executing.
func (t *Task) Running() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.running
}

// Wait returns a channel that is closed once the task is terminal.
func (t *Task) Wait() <-chan struct{} {
	return t.doneCh
}

// Result returns the value produced by the work. It returns ErrNotDone while
// the task is not terminal, the failure reason when it failed, and an error
// wrapping ErrCancelled when the task was cancelled.
func (t *Task) Result() (any, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	switch {
	case !t.done:
		return nil, ErrNotDone
	case t.cancelled:
		if t.err != nil {
			return nil, t.err
		}
		return nil, fmt.Errorf("task %q: %w", t.name, ErrCancelled)
	case t.status == Failed:
		return nil, t.err
	}
	return t.result, nil
}

// Err returns the terminal failure reason, or nil.
func (t *Task) Err() error {
	_, err := t.Result()
	if err == ErrNotDone {
		return nil
	}
	return err
}

// Cancel marks the task cancelled. It has no effect on a terminal task and
// returns false in that case. Cancelling a running task does not stop its
// work, but its result is withheld from dependents.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return false
	}
	t.cancelled = true
	return true
}

// SetStatus moves the task to a non-terminal status. Terminal statuses are
// reached only through Run and Skip.
func (t *Task) SetStatus(to Status) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if to.Terminal() {
		return fmt.Errorf("task %q: %w: %s must be reached by running or skipping", t.name, ErrInvalidTransition, to)
	}
	if to == WaitingForResources && t.cancelled {
		return fmt.Errorf("task %q: %w", t.name, ErrCancelled)
	}
	if err := Transition(t.status, to); err != nil {
		return fmt.Errorf("task %q: %w", t.name, err)
	}
	t.status = to
	return nil
}

// Run executes the work exactly once and records the outcome. It refuses to
// start a cancelled or already started task. A panic in the work is recorded
// as a failure.
func (t *Task) Run(ctx context.Context, inputs map[string]any) error {
	if err := t.start(); err != nil {
		return err
	}

	result, err := t.call(ctx, inputs)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	if err != nil {
		t.finish(Failed, nil, fmt.Errorf("task %q: %w: %w", t.name, ErrOperationFailed, err))
		return t.err
	}
	t.finish(Success, result, nil)
	return nil
}

// Skip terminates a task that never started. The task is marked cancelled
// and FAILED with the given reason.
func (t *Task) Skip(reason error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return fmt.Errorf("task %q: cannot skip a running task", t.name)
	}
	if err := Transition(t.status, Failed); err != nil {
		return fmt.Errorf("task %q: %w", t.name, err)
	}
	t.cancelled = true
	if reason == nil {
		reason = fmt.Errorf("task %q: %w", t.name, ErrCancelled)
	}
	t.finish(Failed, nil, reason)
	return nil
}

func (t *Task) start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return fmt.Errorf("task %q: %w", t.name, ErrCancelled)
	}
	if t.done || t.running {
		return fmt.Errorf("task %q: already started", t.name)
	}
	if t.fn == nil {
		return fmt.Errorf("task %q: no work attached", t.name)
	}
	t.running = true
	return nil
}

func (t *Task) call(ctx context.Context, inputs map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.fn(ctx, inputs)
}

// finish must be called with mu held.
func (t *Task) finish(status Status, result any, err error) {
	t.status = status
	t.result = result
	t.err = err
	t.done = true
	close(t.doneCh)
}

// Snapshot is a consistent, point-in-time copy of a task's observable state.
type Snapshot struct {
	Name      string
	Deps      []string
	Status    Status
	Running   bool
	Done      bool
	Cancelled bool
	Result    any
	Err       error
}

// Snapshot copies the task's state under a single lock.
func (t *Task) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Snapshot{
		Name:      t.name,
		Deps:      slices.Clone(t.deps),
		Status:    t.status,
		Running:   t.running,
		Done:      t.done,
		Cancelled: t.cancelled,
		Result:    t.result,
		Err:       t.err,
	}
}
