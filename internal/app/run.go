package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/executor"
	"github.com/vk/taskgrid/internal/task"
)

// Run executes every task of the plan and writes the final report to the
// app's output. The returned error wraps executor.ErrRunFailed when a task
// did not succeed.
func (a *App) Run(ctx context.Context) (err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		if _, serr := a.startHealthcheckServer(a.config.HealthcheckPort); serr != nil {
			return serr
		}
		defer func() {
			err = errors.Join(err, a.closeHealthCheckServer())
		}()
	} else {
		a.logger.Debug("Health check server not started: disabled")
	}

	exec := executor.New(a.registry, a.workers)
	exec.SetBuffer(a.buffer)
	exec.SetOnChange(func(snap task.Snapshot) {
		a.logger.Debug("Task state changed.", "task", snap.Name, "status", snap.Status, "cancelled", snap.Cancelled)
	})

	a.logger.Info("🚀 Starting concurrent execution...", "tasks", a.registry.Len(), "workers", a.workers)
	runErr := exec.Run(ctx)

	if _, werr := fmt.Fprintln(a.outW, "--- Report ---"); werr != nil {
		return errors.Join(runErr, werr)
	}
	if werr := a.registry.Report(a.outW, a.config.DebugReport); werr != nil {
		return errors.Join(runErr, fmt.Errorf("writing report: %w", werr))
	}

	a.logger.Debug("App.Run method finished.")
	if runErr != nil {
		return fmt.Errorf("execution failed: %w", runErr)
	}
	return nil
}
