// Package harness runs whole plans through the application for tests.
package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/taskgrid/internal/app"
	"github.com/vk/taskgrid/internal/hcl"
	"github.com/vk/taskgrid/internal/runners"
	"github.com/vk/taskgrid/internal/testutil"
)

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	// Output holds logs and the final report.
	Output string
	// LoadErr is set when the app could not be created; Err is then unset.
	LoadErr error
	Err     error
	App     *app.App
}

// RunPlan writes files into a temporary plan directory and runs it through
// the full application with a background context.
func RunPlan(t *testing.T, files map[string]string, cfg app.Config, modules ...runners.Module) *HarnessResult {
	t.Helper()
	return RunPlanWithContext(context.Background(), t, files, cfg, modules...)
}

// RunPlanWithContext is RunPlan with a caller-provided context.
func RunPlanWithContext(ctx context.Context, t *testing.T, files map[string]string, cfg app.Config, modules ...runners.Module) *HarnessResult {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(testutil.Unindent(content)), 0o644))
	}

	cfg.PlanPath = dir
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}

	out := &testutil.SafeBuffer{}
	t.Cleanup(func() {
		if os.Getenv("TASKGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), out.String())
		}
	})

	a, err := app.New(out, &cfg, hcl.NewLoader(), modules...)
	if err != nil {
		return &HarnessResult{Output: out.String(), LoadErr: err}
	}
	defer a.Close()

	runErr := a.Run(ctx)
	return &HarnessResult{Output: out.String(), Err: runErr, App: a}
}
