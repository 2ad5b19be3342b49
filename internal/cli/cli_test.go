package cli

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/taskgrid/internal/app"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		want     *app.Config
		wantExit bool
		wantCode int
	}{
		{
			name: "positional path with defaults",
			args: []string{"plans/"},
			want: &app.Config{PlanPath: "plans/", LogFormat: "json", LogLevel: "info", Buffer: -1},
		},
		{
			name: "long flag wins over shorthand and positional",
			args: []string{"-plan", "a.hcl", "-p", "b.hcl", "c.hcl"},
			want: &app.Config{PlanPath: "a.hcl", LogFormat: "json", LogLevel: "info", Buffer: -1},
		},
		{
			name: "all options",
			args: []string{
				"-p", "plan.hcl", "-workers", "4", "-buffer", "0",
				"-log-format", "TEXT", "-log-level", "Debug",
				"-healthcheck-port", "8081", "-debug-report",
			},
			want: &app.Config{
				PlanPath: "plan.hcl", Workers: 4, Buffer: 0,
				LogFormat: "text", LogLevel: "debug",
				HealthcheckPort: 8081, DebugReport: true,
			},
		},
		{name: "help", args: []string{"-h"}, wantExit: true},
		{name: "no path", args: nil, wantExit: true},
		{name: "unknown flag", args: []string{"-nope"}, wantCode: 2},
		{name: "bad format", args: []string{"-log-format", "xml", "p"}, wantCode: 2},
		{name: "bad level", args: []string{"-log-level", "loud", "p"}, wantCode: 2},
		{name: "negative workers", args: []string{"-workers", "-2", "p"}, wantCode: 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			got, exit, err := Parse(tc.args, &out)

			if tc.wantCode != 0 {
				var exitErr *ExitError
				require.ErrorAs(t, err, &exitErr)
				assert.Equal(t, tc.wantCode, exitErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantExit, exit)
			if tc.wantExit {
				assert.Contains(t, out.String(), "Usage:")
				return
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
