package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/vk/taskgrid/internal/config"
	"github.com/vk/taskgrid/internal/runners"
	"github.com/vk/taskgrid/internal/task"
)

// RecorderKind is the task kind registered by Recorder.
const RecorderKind = "recorder"

// ExecutionRecord holds the start and end times for a single task's execution.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// Recorder is a self-contained module for concurrency tests. Each of its
// tasks sleeps for the configured duration and records when it ran.
type Recorder struct {
	Sleep time.Duration

	mu      sync.Mutex
	records map[string]ExecutionRecord
}

// Register registers the recorder kind.
func (m *Recorder) Register(c *runners.Catalog) {
	c.Register(RecorderKind, func(ctx context.Context, spec *config.Task, env *runners.Env) (task.Func, error) {
		var in struct {
			Fail *string `hcl:"fail,optional"`
		}
		if diags := gohcl.DecodeBody(spec.Arguments, env.EvalContext, &in); diags.HasErrors() {
			return nil, diags
		}
		name := spec.Name
		return func(ctx context.Context, inputs map[string]any) (any, error) {
			start := time.Now()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(m.Sleep):
			}
			m.record(name, ExecutionRecord{Start: start, End: time.Now()})
			if in.Fail != nil {
				return nil, fmt.Errorf("%s", *in.Fail)
			}
			return len(inputs), nil
		}, nil
	})
}

func (m *Recorder) record(name string, r ExecutionRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records == nil {
		m.records = make(map[string]ExecutionRecord)
	}
	m.records[name] = r
}

// Record returns the execution record of the named task.
func (m *Recorder) Record(name string) (ExecutionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[name]
	return r, ok
}
