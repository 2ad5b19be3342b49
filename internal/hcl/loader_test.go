package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/taskgrid/internal/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testLoader(env ...string) *Loader {
	return &Loader{environ: func() []string { return env }}
}

func TestLoad_FullPlan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a_settings.hcl", `
settings {
  workers       = 3
  buffer        = 0
  poll_interval = "250ms"
}

remote "jobs" {
  transport  = "SocketIO"
  url        = "http://localhost:3000/socket.io/"
  credential = env.JOB_TOKEN
  timeout    = "2s"
}
`)
	writeFile(t, dir, "b_tasks.hcl", `
task "sleep" "fetch" {
  arguments {
    delay = "10ms"
    value = "hello"
  }
}

task "remotejob" "ask" {
  depends_on = ["fetch"]
}
`)

	model, err := testLoader("JOB_TOKEN=s3cret", "1INVALID=x").Load(context.Background(), dir)
	require.NoError(t, err)

	require.NotNil(t, model.Settings.Workers)
	assert.Equal(t, 3, *model.Settings.Workers)
	require.NotNil(t, model.Settings.Buffer)
	assert.Equal(t, 0, *model.Settings.Buffer)
	require.NotNil(t, model.Settings.PollInterval)
	assert.Equal(t, 250*time.Millisecond, *model.Settings.PollInterval)

	want := &config.Remote{
		Name:       "jobs",
		Transport:  config.TransportSocketIO,
		URL:        "http://localhost:3000/socket.io/",
		Credential: "s3cret",
		Timeout:    2 * time.Second,
	}
	if diff := cmp.Diff(want, model.Remotes["jobs"]); diff != "" {
		t.Errorf("remote mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, model.Tasks, 2)
	assert.Equal(t, "sleep", model.Tasks[0].Kind)
	assert.Equal(t, "fetch", model.Tasks[0].Name)
	assert.Empty(t, model.Tasks[0].DependsOn)
	assert.Equal(t, []string{"fetch"}, model.Tasks[1].DependsOn)
	require.NotNil(t, model.Tasks[1].Arguments, "missing arguments block yields an empty body")

	var args struct {
		Delay string `hcl:"delay"`
		Value string `hcl:"value"`
	}
	diags := gohcl.DecodeBody(model.Tasks[0].Arguments, model.EvalContext, &args)
	require.False(t, diags.HasErrors(), diags.Error())
	assert.Equal(t, "10ms", args.Delay)
	assert.Equal(t, "hello", args.Value)
}

func TestLoad_SingleFileAndDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "plan.hcl", `
remote "svc" {
  url = "http://example.test"
}
task "sleep" "only" {}
`)
	model, err := testLoader().Load(context.Background(), path, path)
	require.NoError(t, err)
	assert.Nil(t, model.Settings.Workers)
	assert.Equal(t, config.TransportHTTP, model.Remotes["svc"].Transport)
	assert.Len(t, model.Tasks, 1, "duplicate paths are loaded once")
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		wantErr string
	}{
		{"syntax error", `task "sleep" "a" {`, "failed to parse"},
		{"unknown block", `job "x" {}`, "failed to decode"},
		{"duplicate settings", "settings {}\nsettings {}", `Duplicate "settings" block`},
		{"negative workers", "settings {\n workers = -1\n}", "cannot be negative"},
		{"bad poll interval", "settings {\n poll_interval = \"soon\"\n}", "invalid poll_interval"},
		{"zero poll interval", "settings {\n poll_interval = \"0s\"\n}", "poll_interval must be positive"},
		{"negative poll interval", "settings {\n poll_interval = \"-1s\"\n}", "poll_interval must be positive"},
		{"unknown transport", "remote \"r\" {\n url = \"x\"\n transport = \"carrier-pigeon\"\n}", "unknown transport"},
		{"duplicate remote", "remote \"r\" {\n url = \"x\"\n}\nremote \"r\" {\n url = \"y\"\n}", "duplicate remote"},
		{"missing url", "remote \"r\" {}", "url"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "plan.hcl", tc.content)
			_, err := testLoader().Load(context.Background(), path)
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestLoad_NoFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "readme.txt", "not a plan")
	_, err := testLoader().Load(context.Background(), dir)
	assert.ErrorContains(t, err, "no .hcl files")

	_, err = testLoader().Load(context.Background(), filepath.Join(dir, "missing"))
	assert.ErrorContains(t, err, "error accessing path")
}
