//go:build !windows

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/specialistvlad/burstbuild/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const project = `
default = ["app"]

target "app" {
  depends_on = ["util"]
  recipe {
    name    = "link"
    command = "cat ${join(" ", sources)} > ${target}"
  }
}

target "util" {
  depends_on = ["util.c"]
  recipe {
    name    = "compile"
    command = "cp $(>) $(<)"
  }
}
`

func setupApp(t *testing.T, files map[string]string, mutate func(*Config)) (*App, *testutil.SafeBuffer) {
	t.Helper()
	root := testutil.Project(t, files)
	raw := Config{Root: root, Jobs: 2, Color: ColorNever, LogLevel: "debug"}
	if mutate != nil {
		mutate(&raw)
	}
	cfg, err := NewConfig(raw)
	require.NoError(t, err)

	out := testutil.CaptureLogs(t)
	a, err := NewApp(context.Background(), out, cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a, out
}

func TestRun(t *testing.T) {
	a, out := setupApp(t, map[string]string{"build.hcl": project, "util.c": "int x;"}, nil)

	status, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, status)

	raw, err := os.ReadFile(filepath.Join(a.config.Root, "app"))
	require.NoError(t, err)
	assert.Equal(t, "int x;", string(raw))
	assert.Contains(t, out.String(), "...updating 2 targets...")
	assert.Contains(t, out.String(), "run_id="+a.RunID())

	snap := a.progress.snapshot()
	assert.False(t, snap.Running)
	assert.Equal(t, 2, snap.Made)

	t.Run("clean removes outputs", func(t *testing.T) {
		removed, err := a.Clean(context.Background())
		require.NoError(t, err)
		assert.Len(t, removed, 2)
		assert.NoFileExists(t, filepath.Join(a.config.Root, "app"))
	})
}

func TestRunFailure(t *testing.T) {
	a, out := setupApp(t, map[string]string{"build.hcl": `
target "broken" {
  flags = ["notfile"]
  recipe { command = "echo boom >&2; exit 4" }
}
`}, nil)

	status, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, status)
	assert.Contains(t, out.String(), "...failed updating 1 target...")
}

func TestRunJSONLogs(t *testing.T) {
	a, out := setupApp(t, map[string]string{"build.hcl": `target "a" { flags = ["notfile"] }`}, func(c *Config) {
		c.LogFormat = "json"
	})

	status, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, status)
	assert.Contains(t, out.String(), `Build finished.`)
	assert.Contains(t, out.String(), `"run_id":"`+a.RunID()+`"`)
	assert.NotContains(t, out.String(), "...updating")
}

func TestRunLocked(t *testing.T) {
	a, _ := setupApp(t, map[string]string{"build.hcl": `target "a" { flags = ["notfile"] }`}, nil)

	require.NoError(t, os.MkdirAll(a.config.stateDir(), 0o755))
	other := flock.New(filepath.Join(a.config.stateDir(), "lock"))
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer other.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.Run(ctx)
	assert.Error(t, err)
}

func TestTargetsFallback(t *testing.T) {
	a, _ := setupApp(t, map[string]string{"build.hcl": `
target "app" { depends_on = ["lib"] }
target "lib" {}
target "docs" {}
`}, nil)
	assert.Equal(t, []string{"app", "docs"}, a.targets())

	a.config.Targets = []string{"lib"}
	assert.Equal(t, []string{"lib"}, a.targets())
}

func TestGraphAndRunCommand(t *testing.T) {
	a, _ := setupApp(t, map[string]string{"build.hcl": project}, nil)

	var buf bytes.Buffer
	require.NoError(t, a.Graph(&buf))
	assert.Contains(t, buf.String(), `"app" -> "util"`)

	status, err := a.RunCommand(context.Background(), "exit 3")
	require.NoError(t, err)
	assert.Equal(t, 3, status)

	status, err = a.RunCommand(context.Background(), "true")
	require.NoError(t, err)
	assert.Equal(t, 0, status)

	status, err = a.RunCommand(context.Background(), "kill -TERM $$")
	require.NoError(t, err)
	assert.Equal(t, 128+15, status, "a signal kill maps to 128 plus the signal number")
}

func TestHealthEndpoints(t *testing.T) {
	a, _ := setupApp(t, map[string]string{"build.hcl": `target "a" { flags = ["notfile"] }`}, nil)
	a.progress.s = Status{Running: true, Found: 3, Made: 1}

	srv := httptest.NewServer(a.healthMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	var got Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, Status{Running: true, Found: 3, Made: 1}, got)

	status, err := a.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, status)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `burstbuild_target_total{status="up-to-date"} 1`)
	assert.Contains(t, string(body), `burstbuild_updates_total{result="success"} 1`)
}

func TestNewAppErrors(t *testing.T) {
	root := testutil.Project(t, map[string]string{"build.hcl": `target "a" {`})
	cfg, err := NewConfig(Config{Root: root})
	require.NoError(t, err)
	_, err = NewApp(context.Background(), &bytes.Buffer{}, cfg)
	assert.ErrorContains(t, err, "failed to load manifests")

	root = testutil.Project(t, map[string]string{"build.hcl": `
target "a" { depends_on = ["b"] }
target "b" { depends_on = ["a"] }
`})
	cfg, err = NewConfig(Config{Root: root})
	require.NoError(t, err)
	_, err = NewApp(context.Background(), &bytes.Buffer{}, cfg)
	assert.ErrorContains(t, err, "failed to declare targets")
}
