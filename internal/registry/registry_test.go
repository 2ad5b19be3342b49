package registry

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/taskgrid/internal/task"
)

func constant(v any, calls *atomic.Int32) task.Func {
	return func(ctx context.Context, inputs map[string]any) (any, error) {
		if calls != nil {
			calls.Add(1)
		}
		return v, nil
	}
}

func TestAdd(t *testing.T) {
	t.Run("keeps insertion order", func(t *testing.T) {
		r := New()
		for _, name := range []string{"c", "a", "b"} {
			require.NoError(t, r.Add(task.New(name, constant(name, nil))))
		}

		var names []string
		for _, tk := range r.Tasks() {
			names = append(names, tk.Name())
		}
		assert.Equal(t, []string{"c", "a", "b"}, names)
		assert.Equal(t, 3, r.Len())

		got, ok := r.Get("a")
		require.True(t, ok)
		assert.Equal(t, "a", got.Name())
	})

	t.Run("error cases", func(t *testing.T) {
		r := New()
		require.NoError(t, r.Add(task.New("a", nil)))

		assert.ErrorIs(t, r.Add(task.New("a", nil)), ErrDuplicateTask)
		assert.ErrorIs(t, r.Add(task.New("self", nil, "self")), ErrCycle)
		assert.Error(t, r.Add(nil))
		assert.Equal(t, 1, r.Len())
	})
}

func TestDependents(t *testing.T) {
	r := New()
	require.NoError(t, r.Add(task.New("a", nil)))
	require.NoError(t, r.Add(task.New("b", nil, "a")))
	require.NoError(t, r.Add(task.New("c", nil, "a", "b")))

	assert.Equal(t, []string{"b", "c"}, r.Dependents("a"))
	assert.Equal(t, []string{"c"}, r.Dependents("b"))
	assert.Empty(t, r.Dependents("c"))
}

func TestValidate(t *testing.T) {
	t.Run("empty registry is valid", func(t *testing.T) {
		assert.NoError(t, New().Validate())
	})

	t.Run("forward references are allowed", func(t *testing.T) {
		r := New()
		require.NoError(t, r.Add(task.New("b", nil, "a")))
		require.NoError(t, r.Add(task.New("a", nil)))
		assert.NoError(t, r.Validate())
	})

	t.Run("unknown dependency", func(t *testing.T) {
		r := New()
		require.NoError(t, r.Add(task.New("b", nil, "ghost")))
		err := r.Validate()
		assert.ErrorIs(t, err, ErrUnknownDependency)
		assert.ErrorContains(t, err, "ghost")
	})

	t.Run("cycle", func(t *testing.T) {
		r := New()
		require.NoError(t, r.Add(task.New("a", nil, "c")))
		require.NoError(t, r.Add(task.New("b", nil, "a")))
		require.NoError(t, r.Add(task.New("c", nil, "b")))
		require.NoError(t, r.Add(task.New("d", nil)))

		err := r.Validate()
		require.ErrorIs(t, err, ErrCycle)
		assert.ErrorContains(t, err, "a -> c -> b -> a")
	})

	t.Run("diamond is not a cycle", func(t *testing.T) {
		r := New()
		require.NoError(t, r.Add(task.New("a", nil)))
		require.NoError(t, r.Add(task.New("b", nil, "a")))
		require.NoError(t, r.Add(task.New("c", nil, "a")))
		require.NoError(t, r.Add(task.New("d", nil, "b", "c")))
		assert.NoError(t, r.Validate())
	})
}

func TestReport_DebugInsertionOrderAndReadOnly(t *testing.T) {
	var calls atomic.Int32
	r := New()
	first := task.New("first", constant(1, &calls))
	second := task.New("second", constant(2, &calls), "first")
	third := task.New("third", constant(3, &calls))
	for _, tk := range []*task.Task{first, second, third} {
		require.NoError(t, r.Add(tk))
	}

	// Complete out of insertion order.
	require.NoError(t, third.Run(context.Background(), nil))
	require.NoError(t, first.Run(context.Background(), nil))
	require.NoError(t, second.Skip(&task.DependencyError{Task: "second", Dependency: "first", Err: errors.New("nope")}))
	before := calls.Load()

	var buf bytes.Buffer
	require.NoError(t, r.Report(&buf, true))

	want := `task first
  deps:      []
  status:    SUCCESS
  done:      true
  cancelled: false
  result:    1
task second
  deps:      [first]
  status:    FAILED
  done:      true
  cancelled: true
  reason:    task "second": dependency "first" did not succeed: nope
task third
  deps:      []
  status:    SUCCESS
  done:      true
  cancelled: false
  result:    3
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, before, calls.Load(), "report must not evaluate any task")
}

func TestReport_NotDonePlaceholder(t *testing.T) {
	var calls atomic.Int32
	r := New()
	require.NoError(t, r.Add(task.New("pending", constant(1, &calls))))

	var buf bytes.Buffer
	require.NoError(t, r.Report(&buf, true))
	assert.Contains(t, buf.String(), "result:    "+NotDonePlaceholder)
	assert.Zero(t, calls.Load())
}

func TestReport_Summary(t *testing.T) {
	r := New()
	ok := task.New("ok", constant("yes", nil))
	bad := task.New("bad", func(ctx context.Context, inputs map[string]any) (any, error) {
		return nil, errors.New("broken")
	})
	waiting := task.New("waiting", nil)
	idle := task.New("idle", nil)
	for _, tk := range []*task.Task{ok, bad, waiting, idle} {
		require.NoError(t, r.Add(tk))
	}
	require.NoError(t, ok.Run(context.Background(), nil))
	require.Error(t, bad.Run(context.Background(), nil))
	require.NoError(t, waiting.SetStatus(task.WaitingForResources))

	var buf bytes.Buffer
	require.NoError(t, r.Report(&buf, false))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "ok: succeeded: yes", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "bad: failed: "), lines[1])
	assert.Contains(t, lines[1], "broken")
	assert.Equal(t, "waiting: waiting", lines[2])
	assert.Equal(t, "idle: not started", lines[3])
}
