package remotejob

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/taskgrid/internal/remote"
	"github.com/vk/taskgrid/internal/runners"
	"github.com/vk/taskgrid/internal/task"
	"github.com/vk/taskgrid/internal/testutil"
)

func build(t *testing.T, svc remote.JobService, args string) (*task.Task, error) {
	t.Helper()
	env := &runners.Env{
		Remotes: map[string]runners.RemoteService{
			"jobs": {Service: svc, Credential: "token"},
		},
		PollInterval: time.Millisecond,
	}
	c := runners.New(&Module{})
	return c.Build(context.Background(), testutil.TaskSpec(t, Kind, "r", args), env)
}

func TestRemoteJob_Succeeds(t *testing.T) {
	svc := &testutil.JobService{Script: []testutil.Poll{
		{Result: remote.PollResult{Status: "queued"}},
		{Result: remote.PollResult{Status: "running"}},
		{Result: remote.PollResult{Status: "succeeded", Result: "42"}},
	}}
	tk, err := build(t, svc, `
		remote  = "jobs"
		payload = { question = "life" }
	`)
	require.NoError(t, err)

	require.NoError(t, tk.Run(context.Background(), map[string]any{"up": 1}))
	got, err := tk.Result()
	require.NoError(t, err)
	assert.Equal(t, "42", got)

	assert.Equal(t, []any{map[string]any{"question": "life", "inputs": map[string]any{"up": 1}}}, svc.Payloads())
	assert.Equal(t, []string{"token"}, svc.Credentials())
	assert.Equal(t, 3, svc.Polls("job-1"))
}

func TestRemoteJob_RemoteFailure(t *testing.T) {
	svc := &testutil.JobService{Script: []testutil.Poll{
		{Result: remote.PollResult{Status: "failed", Reason: "quota exceeded"}},
	}}
	tk, err := build(t, svc, `remote = "jobs"`)
	require.NoError(t, err)

	err = tk.Run(context.Background(), nil)
	require.ErrorIs(t, err, remote.ErrJobFailed)
	require.ErrorIs(t, err, task.ErrOperationFailed)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestRemoteJob_UnavailableBudget(t *testing.T) {
	down := testutil.Poll{Err: fmt.Errorf("dial: %w", remote.ErrRemoteUnavailable)}

	t.Run("recovers within budget", func(t *testing.T) {
		svc := &testutil.JobService{Script: []testutil.Poll{
			down, down,
			{Result: remote.PollResult{Status: "succeeded", Result: true}},
		}}
		tk, err := build(t, svc, `
			remote          = "jobs"
			max_unavailable = 2
		`)
		require.NoError(t, err)
		require.NoError(t, tk.Run(context.Background(), nil))
	})

	t.Run("gives up past budget", func(t *testing.T) {
		svc := &testutil.JobService{Script: []testutil.Poll{down}}
		tk, err := build(t, svc, `
			remote          = "jobs"
			max_unavailable = 1
		`)
		require.NoError(t, err)
		err = tk.Run(context.Background(), nil)
		require.ErrorIs(t, err, remote.ErrRemoteUnavailable)
		assert.Equal(t, 2, svc.Polls("job-1"))
	})
}

func TestRemoteJob_InvalidArguments(t *testing.T) {
	for name, args := range map[string]string{
		"missing remote":    ``,
		"unknown remote":    `remote = "elsewhere"`,
		"negative budget":   "remote = \"jobs\"\nmax_unavailable = -1",
		"bad poll interval": "remote = \"jobs\"\npoll_interval = \"0s\"",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := build(t, &testutil.JobService{}, args)
			require.Error(t, err)
		})
	}
}

func TestWithInputs(t *testing.T) {
	assert.Equal(t, "raw", withInputs("raw", nil))
	assert.Equal(t,
		map[string]any{"value": "raw", "inputs": map[string]any{"a": 1}},
		withInputs("raw", map[string]any{"a": 1}))
	assert.Equal(t,
		map[string]any{"inputs": map[string]any{"a": 1}},
		withInputs(nil, map[string]any{"a": 1}))
}
