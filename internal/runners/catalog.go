// Package runners maps task kinds named in a plan to the Go code that builds
// their unit of work.
//
// Modules register a Factory per kind; the app asks the Catalog to build a
// task.Task for every task block in the plan.
package runners

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/remote"
	"github.com/vk/taskgrid/internal/task"
)

// Module is implemented by every package that contributes task kinds.
type Module interface {
	Register(c *Catalog)
}

// Env carries run-wide collaborators to factories.
type Env struct {
	// Remotes holds the connected job services by remote block name.
	Remotes map[string]RemoteService
	// PollInterval is the default polling cadence for remote jobs.
	PollInterval time.Duration
	// EvalContext evaluates argument expressions. It may be nil.
	EvalContext *hcl.EvalContext
	// Out receives user-facing output from kinds such as print.
	Out io.Writer
}

// RemoteService is a job service plus the credential configured for it.
type RemoteService struct {
	Service    remote.JobService
	Credential string
}

// Factory decodes a task's arguments and returns its unit of work.
type Factory func(ctx context.Context, spec *config.Task, env *Env) (task.Func, error)

// Catalog holds the registered factories for one application instance.
type Catalog struct {
	factories map[string]Factory
}

// New creates an empty catalog and registers the given modules.
func New(modules ...Module) *Catalog {
	c := &Catalog{factories: make(map[string]Factory)}
	for _, m := range modules {
		m.Register(c)
	}
	return c
}

// Register adds a factory for kind. Registering a kind twice is a programming
// error and panics.
func (c *Catalog) Register(kind string, f Factory) {
	if _, ok := c.factories[kind]; ok {
		panic(fmt.Sprintf("runners: kind %q registered twice", kind))
	}
	c.factories[kind] = f
}

// Kinds lists the registered kinds in sorted order.
func (c *Catalog) Kinds() []string {
	kinds := make([]string, 0, len(c.factories))
	for k := range c.factories {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Build turns a task block into a runnable task.
func (c *Catalog) Build(ctx context.Context, spec *config.Task, env *Env) (*task.Task, error) {
	f, ok := c.factories[spec.Kind]
	if !ok {
		return nil, fmt.Errorf("task %q: unknown kind %q (known: %v)", spec.Name, spec.Kind, c.Kinds())
	}
	fn, err := f(ctx, spec, env)
	if err != nil {
		return nil, fmt.Errorf("task %q: %w", spec.Name, err)
	}
	return task.New(spec.Name, fn, spec.DependsOn...), nil
}
