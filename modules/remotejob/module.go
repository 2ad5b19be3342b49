// Package remotejob provides the `remotejob` task kind. The task submits its
// payload to a named remote service when it starts and completes when the
// remote job reaches a terminal state.
package remotejob

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/remote"
	"github.com/vk/taskgrid/internal/runners"
	"github.com/vk/taskgrid/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// Kind is the task kind this module registers.
const Kind = "remotejob"

// DefaultMaxUnavailable is the number of consecutive unavailable polls
// tolerated before the task fails.
const DefaultMaxUnavailable = 3

// Module implements the runners.Module interface for this package.
type Module struct{}

// Input defines the arguments of a remotejob task.
type Input struct {
	Remote         string    `hcl:"remote"`
	Payload        cty.Value `hcl:"payload,optional"`
	MaxUnavailable *int      `hcl:"max_unavailable,optional"`
	PollInterval   *string   `hcl:"poll_interval,optional"`
}

// Register registers the remotejob kind.
func (m *Module) Register(c *runners.Catalog) {
	c.Register(Kind, Build)
}

// Build decodes a remotejob task's arguments and resolves its remote.
func Build(ctx context.Context, spec *config.Task, env *runners.Env) (task.Func, error) {
	var in Input
	if diags := gohcl.DecodeBody(spec.Arguments, env.EvalContext, &in); diags.HasErrors() {
		return nil, fmt.Errorf("decoding arguments: %w", diags)
	}

	svc, ok := env.Remotes[in.Remote]
	if !ok {
		return nil, fmt.Errorf("unknown remote %q", in.Remote)
	}

	maxUnavailable := DefaultMaxUnavailable
	if in.MaxUnavailable != nil {
		if *in.MaxUnavailable < 0 {
			return nil, fmt.Errorf("max_unavailable must not be negative, got %d", *in.MaxUnavailable)
		}
		maxUnavailable = *in.MaxUnavailable
	}

	interval := env.PollInterval
	if in.PollInterval != nil {
		d, err := time.ParseDuration(*in.PollInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid poll_interval %q: %w", *in.PollInterval, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("invalid poll_interval %q: must be positive", *in.PollInterval)
		}
		interval = d
	}

	payload, err := runners.ToGo(in.Payload)
	if err != nil {
		return nil, fmt.Errorf("converting payload: %w", err)
	}

	name, remoteName := spec.Name, in.Remote
	return func(ctx context.Context, inputs map[string]any) (any, error) {
		logger := ctxlog.FromContext(ctx).With("task", name, "remote", remoteName)
		ctx = ctxlog.WithLogger(ctx, logger)

		proxy, err := remote.Submit(ctx, svc.Service, svc.Credential, withInputs(payload, inputs))
		if err != nil {
			return nil, err
		}
		logger.Info("Remote job submitted.", "job_id", proxy.JobID())

		obs, err := proxy.Await(ctx, interval, maxUnavailable)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", proxy, err)
		}
		if obs.State == remote.Failed {
			return nil, obs.Reason
		}
		logger.Info("Remote job succeeded.", "job_id", proxy.JobID(), "polls", proxy.Polls())
		return obs.Result, nil
	}, nil
}

// withInputs adds dependency results to the payload under "inputs". A map
// payload gains the key; any other payload is wrapped as "value".
func withInputs(payload any, inputs map[string]any) any {
	if len(inputs) == 0 {
		return payload
	}
	if m, ok := payload.(map[string]any); ok {
		out := make(map[string]any, len(m)+1)
		for k, v := range m {
			out[k] = v
		}
		out["inputs"] = inputs
		return out
	}
	out := map[string]any{"inputs": inputs}
	if payload != nil {
		out["value"] = payload
	}
	return out
}
