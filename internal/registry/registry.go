package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/vk/taskgrid/internal/task"
)

var (
	// ErrDuplicateTask is returned by Add when a task with the same name is
	// already registered.
	ErrDuplicateTask = errors.New("duplicate task")
	// ErrUnknownDependency is returned when a task depends on a handle that
	// is not part of the registry.
	ErrUnknownDependency = errors.New("unknown dependency")
	// ErrCycle is returned when the dependency graph is not acyclic.
	ErrCycle = errors.New("dependency cycle detected")
)

// Registry is an ordered collection of task handles.
type Registry struct {
	mu    sync.RWMutex
	tasks []*task.Task
	index map[string]*task.Task
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{index: make(map[string]*task.Task)}
}

// Add appends a task. Names must be unique and a task may not depend on itself.
// Dependencies may refer to tasks added later; Validate checks them.
func (r *Registry) Add(t *task.Task) error {
	if t == nil {
		return errors.New("nil task")
	}
	for _, dep := range t.Deps() {
		if dep == t.Name() {
			return fmt.Errorf("%w: task %q depends on itself", ErrCycle, t.Name())
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.index[t.Name()]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateTask, t.Name())
	}
	r.tasks = append(r.tasks, t)
	r.index[t.Name()] = t
	return nil
}

// Get looks a task up by name.
func (r *Registry) Get(name string) (*task.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.index[name]
	return t, ok
}

// Tasks returns the tasks in insertion order.
func (r *Registry) Tasks() []*task.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*task.Task, len(r.tasks))
	copy(out, r.tasks)
	return out
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// Dependents returns the names of tasks that directly depend on name, in
// insertion order.
func (r *Registry) Dependents(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, t := range r.tasks {
		for _, dep := range t.Deps() {
			if dep == name {
				out = append(out, t.Name())
				break
			}
		}
	}
	return out
}

// Validate checks that every dependency is registered and that the dependency
// graph has no cycles.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.tasks {
		for _, dep := range t.Deps() {
			if _, ok := r.index[dep]; !ok {
				return fmt.Errorf("%w: task %q depends on %q", ErrUnknownDependency, t.Name(), dep)
			}
		}
	}
	return r.detectCycles()
}

// detectCycles runs a depth-first search over dependency edges. permanent
// holds nodes proven acyclic, temporary the current recursion stack.
func (r *Registry) detectCycles() error {
	permanent := make(map[string]bool, len(r.tasks))
	temporary := make(map[string]bool)
	var path []string

	var visit func(t *task.Task) error
	visit = func(t *task.Task) error {
		if permanent[t.Name()] {
			return nil
		}
		if temporary[t.Name()] {
			return fmt.Errorf("%w: %s", ErrCycle, cyclePath(path, t.Name()))
		}

		temporary[t.Name()] = true
		path = append(path, t.Name())
		for _, dep := range t.Deps() {
			if err := visit(r.index[dep]); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		delete(temporary, t.Name())
		permanent[t.Name()] = true
		return nil
	}

	for _, t := range r.tasks {
		if err := visit(t); err != nil {
			return err
		}
	}
	return nil
}

func cyclePath(stack []string, closing string) string {
	start := 0
	for i, name := range stack {
		if name == closing {
			start = i
			break
		}
	}
	s := ""
	for _, name := range stack[start:] {
		s += name + " -> "
	}
	return s + closing
}
