//go:build !windows

package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/burstbuild/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	t.Run("captures output of a successful command", func(t *testing.T) {
		rec := &report.Recorder{}
		r := New(Options{}, rec)

		res := r.Run(context.Background(), Job{Target: "util", Recipe: "echo", Command: "echo out; echo err >&2"})
		require.NoError(t, res.Err())
		assert.Equal(t, report.OutcomeSucceeded, res.Outcome)
		assert.Equal(t, 0, res.ExitCode)
		assert.Equal(t, "out\n", string(res.Stdout))
		assert.Equal(t, "err\n", string(res.Stderr))
		assert.False(t, res.End.Before(res.Start))

		events := rec.Recipes()
		require.Len(t, events, 1)
		assert.Equal(t, "util", events[0].Target)
		assert.Equal(t, "echo out; echo err >&2", events[0].Command)
	})

	t.Run("non-zero exit is a failure", func(t *testing.T) {
		r := New(Options{}, nil)
		res := r.Run(context.Background(), Job{Target: "t", Recipe: "r", Command: "echo nope >&2; exit 3"})
		assert.Equal(t, report.OutcomeFailed, res.Outcome)
		assert.Equal(t, 3, res.ExitCode)
		assert.Equal(t, "nope\n", string(res.Stderr))
		assert.ErrorIs(t, res.Err(), ErrActionFailed)
		assert.ErrorContains(t, res.Err(), "exit status 3")
		assert.Equal(t, 3, res.Status())
	})

	t.Run("death by signal is a failure", func(t *testing.T) {
		r := New(Options{}, nil)
		res := r.Run(context.Background(), Job{Target: "t", Recipe: "r", Command: "kill -9 $$"})
		assert.Equal(t, report.OutcomeFailed, res.Outcome)
		assert.NotEmpty(t, res.Signal)
		assert.ErrorIs(t, res.Err(), ErrActionFailed)
		assert.Equal(t, 128+9, res.Status())
	})

	t.Run("timeout is distinct from failure", func(t *testing.T) {
		r := New(Options{Timeout: 100 * time.Millisecond, Grace: 200 * time.Millisecond}, nil)
		start := time.Now()
		res := r.Run(context.Background(), Job{Target: "t", Recipe: "sleep", Command: "sleep 10"})
		assert.Equal(t, report.OutcomeTimedOut, res.Outcome)
		assert.ErrorIs(t, res.Err(), ErrActionTimedOut)
		assert.NotErrorIs(t, res.Err(), ErrActionFailed)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("timeout terminates the whole process group", func(t *testing.T) {
		dir := t.TempDir()
		marker := filepath.Join(dir, "marker")
		r := New(Options{Timeout: 100 * time.Millisecond, Grace: 100 * time.Millisecond}, nil)
		res := r.Run(context.Background(), Job{Target: "t", Recipe: "r", Command: "(sleep 1; touch " + marker + ") & wait"})
		assert.Equal(t, report.OutcomeTimedOut, res.Outcome)

		time.Sleep(1500 * time.Millisecond)
		_, err := os.Stat(marker)
		assert.True(t, os.IsNotExist(err), "background child must not survive")
	})

	t.Run("spawn failure", func(t *testing.T) {
		r := New(Options{Shell: []string{"/nonexistent/shell", "-c"}}, nil)
		res := r.Run(context.Background(), Job{Target: "t", Recipe: "r", Command: "true"})
		assert.Equal(t, report.OutcomeSpawnFailed, res.Outcome)
		assert.ErrorIs(t, res.Err(), ErrSpawnFailed)
	})

	t.Run("cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		r := New(Options{Grace: 100 * time.Millisecond}, nil)
		go func() {
			time.Sleep(100 * time.Millisecond)
			cancel()
		}()
		res := r.Run(ctx, Job{Target: "t", Recipe: "r", Command: "sleep 10"})
		assert.Equal(t, report.OutcomeCanceled, res.Outcome)
		assert.ErrorIs(t, res.Err(), ErrCanceled)
	})

	t.Run("noexec reports without running", func(t *testing.T) {
		dir := t.TempDir()
		marker := filepath.Join(dir, "marker")
		rec := &report.Recorder{}
		r := New(Options{NoExec: true}, rec)
		res := r.Run(context.Background(), Job{Target: "t", Recipe: "r", Command: "touch " + marker})
		assert.True(t, res.Succeeded())
		assert.True(t, res.DryRun)
		_, err := os.Stat(marker)
		assert.True(t, os.IsNotExist(err))
		require.Len(t, rec.Recipes(), 1)
		assert.True(t, rec.Recipes()[0].DryRun)
	})
}

func TestEnvironment(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("FROM_FILE=file\nSHARED=file\n"), 0o644))

	fileEnv, err := LoadEnvFile(envFile)
	require.NoError(t, err)

	r := New(Options{Env: fileEnv, Dir: dir}, nil)
	res := r.Run(context.Background(), Job{
		Target:  "t",
		Recipe:  "env",
		Command: `echo "$FROM_FILE $SHARED $CFLAGS"; pwd`,
		Env:     []string{"SHARED=job", "CFLAGS=-O2"},
	})
	require.NoError(t, res.Err())
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, "file job -O2\n"+resolved+"\n", string(res.Stdout))

	_, err = LoadEnvFile(filepath.Join(dir, "missing.env"))
	assert.Error(t, err)
}

func TestRunCommand(t *testing.T) {
	r := New(Options{}, nil)
	res := r.RunCommand(context.Background(), "adhoc", "none", "exit 0")
	assert.True(t, res.Succeeded())
	assert.Equal(t, "adhoc", res.Job.Recipe)
}
