// Package env_vars provides the `env_vars` task kind, which captures
// environment variables as a task result.
package env_vars

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/runners"
	"github.com/vk/taskgrid/internal/task"
)

// Kind is the task kind this module registers.
const Kind = "env_vars"

// Module implements the runners.Module interface for this package.
type Module struct {
	// Environ lists the environment as KEY=VALUE pairs. Nil means os.Environ.
	Environ func() []string
}

// Input selects which variables are captured. Without a prefix every
// variable is returned.
type Input struct {
	Prefix string `hcl:"prefix,optional"`
}

// Register registers the env_vars kind.
func (m *Module) Register(c *runners.Catalog) {
	environ := m.Environ
	if environ == nil {
		environ = os.Environ
	}
	c.Register(Kind, func(ctx context.Context, spec *config.Task, env *runners.Env) (task.Func, error) {
		var in Input
		if diags := gohcl.DecodeBody(spec.Arguments, env.EvalContext, &in); diags.HasErrors() {
			return nil, fmt.Errorf("decoding arguments: %w", diags)
		}
		return func(ctx context.Context, _ map[string]any) (any, error) {
			envMap := make(map[string]any)
			for _, e := range environ() {
				pair := strings.SplitN(e, "=", 2)
				if len(pair) == 2 && strings.HasPrefix(pair[0], in.Prefix) {
					envMap[pair[0]] = pair[1]
				}
			}
			return envMap, nil
		}, nil
	})
}
