// Package sleep provides the `sleep` task kind: wait, then return a value or
// fail with a message. It is the plan-level stand-in for local work.
package sleep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/runners"
	"github.com/vk/taskgrid/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// Kind is the task kind this module registers.
const Kind = "sleep"

// Module implements the runners.Module interface for this package.
type Module struct{}

// Input defines the arguments of a sleep task.
type Input struct {
	Delay string    `hcl:"delay,optional"`
	Value cty.Value `hcl:"value,optional"`
	Fail  *string   `hcl:"fail,optional"`
}

// Register registers the sleep kind.
func (m *Module) Register(c *runners.Catalog) {
	c.Register(Kind, Build)
}

// Build decodes a sleep task's arguments.
func Build(ctx context.Context, spec *config.Task, env *runners.Env) (task.Func, error) {
	var in Input
	if diags := gohcl.DecodeBody(spec.Arguments, env.EvalContext, &in); diags.HasErrors() {
		return nil, fmt.Errorf("decoding arguments: %w", diags)
	}

	var delay time.Duration
	if in.Delay != "" {
		d, err := time.ParseDuration(in.Delay)
		if err != nil {
			return nil, fmt.Errorf("invalid delay %q: %w", in.Delay, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("invalid delay %q: must not be negative", in.Delay)
		}
		delay = d
	}

	value, err := runners.ToGo(in.Value)
	if err != nil {
		return nil, fmt.Errorf("converting value: %w", err)
	}

	var failure error
	if in.Fail != nil {
		failure = errors.New(*in.Fail)
	}

	name := spec.Name
	return func(ctx context.Context, inputs map[string]any) (any, error) {
		logger := ctxlog.FromContext(ctx).With("task", name)
		logger.Debug("Sleeping.", "delay", delay)

		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		if failure != nil {
			return nil, failure
		}
		return value, nil
	}, nil
}
