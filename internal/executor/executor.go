package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/registry"
	"github.com/vk/taskgrid/internal/stream"
	"github.com/vk/taskgrid/internal/task"
	"golang.org/x/sync/semaphore"
)

// ErrRunFailed is returned by Run when at least one task did not succeed.
var ErrRunFailed = errors.New("run failed")

// OnChangeFn is called on every lifecycle event of a task. It may be called
// concurrently from several goroutines.
type OnChangeFn func(snap task.Snapshot)

// Executor runs the tasks of one registry.
type Executor struct {
	reg      *registry.Registry
	workers  int
	buffer   int
	onChange OnChangeFn

	mu   sync.Mutex
	errs []error
}

// New creates an executor that runs at most workers tasks at a time.
// A non-positive worker count means one slot per task.
func New(reg *registry.Registry, workers int) *Executor {
	return &Executor{
		reg:      reg,
		workers:  workers,
		buffer:   stream.DefaultCapacity,
		onChange: func(task.Snapshot) {},
	}
}

// SetOnChange installs a lifecycle callback.
func (e *Executor) SetOnChange(cb OnChangeFn) {
	if cb == nil {
		cb = func(task.Snapshot) {}
	}
	e.onChange = cb
}

// SetBuffer sets the capacity of the result stream.
func (e *Executor) SetBuffer(n int) {
	e.buffer = n
}

// Errs returns the failure reasons of the last run, in registry order.
func (e *Executor) Errs() []error {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]error, len(e.errs))
	copy(out, e.errs)
	return out
}

// Run validates the registry and executes every task, returning once all of
// them are terminal. The error wraps ErrRunFailed and every failure reason.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if err := e.reg.Validate(); err != nil {
		return fmt.Errorf("invalid task registry: %w", err)
	}

	tasks := e.reg.Tasks()
	if len(tasks) == 0 {
		logger.Warn("No tasks registered, execution not required.")
		return nil
	}

	workers := e.workers
	if workers <= 0 || workers > len(tasks) {
		workers = len(tasks)
	}
	slots := semaphore.NewWeighted(int64(workers))
	logger.Debug("Executor starting run.", "tasks", len(tasks), "workers", workers, "buffer", e.buffer)

	ops := make([]stream.Op[task.Snapshot], len(tasks))
	for i, t := range tasks {
		ops[i] = func(ctx context.Context) (task.Snapshot, error) {
			e.runTask(ctx, slots, t)
			snap := t.Snapshot()
			if snap.Status == task.Failed || snap.Cancelled {
				return snap, t.Err()
			}
			return snap, nil
		}
	}

	var succeeded, failed int
	err := stream.Drain(stream.Collect(ctx, e.buffer, ops...), func(item stream.Item[task.Snapshot]) error {
		t := tasks[item.Index()]
		if snap, ok := item.Value(); ok {
			succeeded++
			logger.Info("✅ Task finished", "task", snap.Name)
			e.onChange(snap)
			return nil
		}
		failed++
		logger.Error("Task did not succeed.", "task", t.Name(), "cancelled", t.Cancelled(), "error", item.Err())
		e.onChange(t.Snapshot())
		return nil
	})
	if err != nil {
		return fmt.Errorf("draining results: %w", err)
	}

	var errs []error
	for _, t := range tasks {
		if reason := t.Err(); reason != nil {
			errs = append(errs, reason)
		}
	}
	e.mu.Lock()
	e.errs = errs
	e.mu.Unlock()

	logger.Info("🏁 Execution finished.", "succeeded", succeeded, "failed", failed)
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrRunFailed}, errs...)...)
	}
	return nil
}
