// Package print provides the `print` task kind: it writes its dependency
// results to the run's output and passes them on unchanged.
package print

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/ctxlog"
	"github.com/vk/taskgrid/internal/runners"
	"github.com/vk/taskgrid/internal/task"
)

// Kind is the task kind this module registers.
const Kind = "print"

// Module implements the runners.Module interface for this package.
type Module struct{}

// Input defines the arguments for a print task.
type Input struct {
	Label *string `hcl:"label,optional"`
}

// Register registers the print kind.
func (m *Module) Register(c *runners.Catalog) {
	c.Register(Kind, Build)
}

// Build decodes a print task's arguments.
func Build(ctx context.Context, spec *config.Task, env *runners.Env) (task.Func, error) {
	var in Input
	if diags := gohcl.DecodeBody(spec.Arguments, env.EvalContext, &in); diags.HasErrors() {
		return nil, fmt.Errorf("decoding arguments: %w", diags)
	}
	label := spec.Name
	if in.Label != nil {
		label = *in.Label
	}
	out := env.Out
	if out == nil {
		out = io.Discard
	}

	return func(ctx context.Context, inputs map[string]any) (any, error) {
		ctxlog.FromContext(ctx).Info("Printing inputs", "task", spec.Name, "count", len(inputs))

		var b strings.Builder
		fmt.Fprintf(&b, "%s:\n", label)
		if len(inputs) == 0 {
			b.WriteString("      (null)\n")
		}

		// Sort keys for consistent output
		keys := make([]string, 0, len(inputs))
		for k := range inputs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "      %s = %v\n", k, inputs[k])
		}

		if _, err := io.WriteString(out, b.String()); err != nil {
			return nil, err
		}
		return inputs, nil
	}, nil
}
