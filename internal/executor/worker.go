package executor

import (
	"context"
	"fmt"

	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/task"
	"golang.org/x/sync/semaphore"
)

// runTask takes a single task from NOT_STARTED to a terminal status.
func (e *Executor) runTask(ctx context.Context, slots *semaphore.Weighted, t *task.Task) {
	logger := ctxlog.FromContext(ctx).With("task", t.Name())

	inputs, depErr := e.awaitDependencies(t)
	if depErr != nil {
		logger.Warn("Skipping task, dependency did not succeed.", "error", depErr)
		e.skip(ctx, t, depErr)
		return
	}
	if reason := cancelReason(ctx, t); reason != nil {
		logger.Debug("Skipping cancelled task.", "error", reason)
		e.skip(ctx, t, reason)
		return
	}

	if !slots.TryAcquire(1) {
		if err := t.SetStatus(task.WaitingForResources); err != nil {
			e.skip(ctx, t, err)
			return
		}
		logger.Debug("Task waiting for a worker slot.")
		e.onChange(t.Snapshot())

		if err := slots.Acquire(ctx, 1); err != nil {
			// Acquisition abandoned: back to NOT_STARTED before skipping.
			if serr := t.SetStatus(task.NotStarted); serr != nil {
				logger.Error("Failed to release waiting status.", "error", serr)
			}
			e.onChange(t.Snapshot())
			e.skip(ctx, t, fmt.Errorf("task %q: %w: %w", t.Name(), task.ErrCancelled, err))
			return
		}
	}
	defer slots.Release(1)

	if reason := cancelReason(ctx, t); reason != nil {
		e.skip(ctx, t, reason)
		return
	}

	logger.Info("▶️ Starting task")
	if err := t.Run(ctx, inputs); err != nil {
		if !t.Done() {
			// Run refused to start; the refusal is the task's failure reason.
			logger.Warn("Task refused to start.", "error", err)
			e.skip(ctx, t, err)
			return
		}
		logger.Debug("Task work failed.", "error", err)
	}
}

// awaitDependencies blocks until every dependency is terminal and collects
// their results. It returns a DependencyError for the first dependency, in
// declaration order, whose result is not available.
func (e *Executor) awaitDependencies(t *task.Task) (map[string]any, error) {
	deps := t.Deps()
	inputs := make(map[string]any, len(deps))
	for _, name := range deps {
		dep, _ := e.reg.Get(name)
		<-dep.Wait()
	}
	for _, name := range deps {
		dep, _ := e.reg.Get(name)
		res, err := dep.Result()
		if err != nil {
			return nil, &task.DependencyError{Task: t.Name(), Dependency: name, Err: err}
		}
		inputs[name] = res
	}
	return inputs, nil
}

func cancelReason(ctx context.Context, t *task.Task) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("task %q: %w: %w", t.Name(), task.ErrCancelled, err)
	}
	if t.Cancelled() {
		return fmt.Errorf("task %q: %w", t.Name(), task.ErrCancelled)
	}
	return nil
}

func (e *Executor) skip(ctx context.Context, t *task.Task, reason error) {
	if err := t.Skip(reason); err != nil {
		ctxlog.FromContext(ctx).Error("Failed to skip task.", "task", t.Name(), "error", err)
	}
}
