package config

import (
	"context"
	"time"

	"github.com/hashicorp/hcl/v2"
)

// Loader reads plan files from the given paths and returns the merged model.
type Loader interface {
	Load(ctx context.Context, paths ...string) (*Model, error)
}

// Model is the unified representation of a plan: run settings, remote job
// services, and tasks in declaration order.
type Model struct {
	Settings Settings
	Remotes  map[string]*Remote
	Tasks    []*Task
	// EvalContext is used to evaluate task arguments. It may be nil.
	EvalContext *hcl.EvalContext
}

// Settings holds run-wide knobs. Nil fields were not set in the plan.
type Settings struct {
	Workers      *int
	Buffer       *int
	PollInterval *time.Duration
}

// Remote describes one external job service.
type Remote struct {
	Name               string
	Transport          string
	URL                string
	Credential         string
	Namespace          string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// Task is the format-agnostic representation of a `task` block.
type Task struct {
	Kind      string
	Name      string
	DependsOn []string
	// Arguments is decoded by the task kind's factory.
	Arguments hcl.Body
}

// Transport names understood for Remote.Transport.
const (
	TransportHTTP     = "http"
	TransportSocketIO = "socketio"
)
