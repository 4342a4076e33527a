package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/specialistvlad/burstbuild/internal/ctxlog"
	"github.com/specialistvlad/burstbuild/internal/report"
	"github.com/specialistvlad/burstbuild/internal/scheduler"
)

// ErrLocked is returned when another process holds the build directory.
var ErrLocked = errors.New("build directory is locked by another process")

// lockTimeout bounds how long Run waits for the build directory lock.
const lockTimeout = 5 * time.Second

// Run updates the configured targets and returns the build status: zero
// when every target succeeded, one otherwise.
func (a *App) Run(ctx context.Context) (int, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	unlock, err := a.lock(ctx)
	if err != nil {
		return 1, err
	}
	defer unlock()

	if err := a.healthCheckServer(); err != nil {
		return 1, err
	}
	defer a.closeHealthCheckServer()

	names := a.targets()
	if len(names) == 0 {
		a.logger.Warn("No targets found, update not required.")
		return 0, nil
	}

	status, sum, err := a.engine.Update(ctx, names, scheduler.Options{
		Jobs:      a.config.Jobs,
		Timeout:   a.config.Timeout,
		Force:     a.config.Force,
		KeepGoing: a.config.KeepGoing,
		QuitQuick: a.config.QuitQuick,
		NoExec:    a.config.NoExec,
	})
	if err != nil {
		return status, fmt.Errorf("update failed: %w", err)
	}
	a.logger.Debug("App.Run method finished.", "status", status, "canceled", sum.Canceled)
	return status, nil
}

// targets picks what to update: explicit names, then manifest defaults,
// then every target nothing else depends on.
func (a *App) targets() []string {
	if len(a.config.Targets) > 0 {
		return a.config.Targets
	}
	if len(a.manifest.Defaults) > 0 {
		return a.manifest.Defaults
	}
	g := a.engine.Graph()
	var roots []string
	for _, t := range a.manifest.Targets {
		h, ok := g.Lookup(t.Name)
		if ok && len(g.Dependants(h)) == 0 {
			roots = append(roots, t.Name)
		}
	}
	return roots
}

// Graph writes the dependency graph of the configured targets as DOT.
func (a *App) Graph(w io.Writer) error {
	return a.engine.WriteGraph(w, a.config.Targets)
}

// Clean removes every file recorded as generated by earlier builds.
func (a *App) Clean(ctx context.Context) ([]string, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	unlock, err := a.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return a.engine.Clean(ctx)
}

// RunCommand runs one shell command in the build environment and returns
// its exit status.
func (a *App) RunCommand(ctx context.Context, command string) (int, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	res := a.engine.RunCommand(ctx, "run", "command", command)
	switch res.Outcome {
	case report.OutcomeSucceeded, report.OutcomeFailed:
		return res.Status(), nil
	default:
		return res.Status(), res.Err()
	}
}

// lock takes the exclusive build directory lock.
func (a *App) lock(ctx context.Context) (func(), error) {
	logger := ctxlog.FromContext(ctx)
	dir := a.config.stateDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	fl := flock.New(filepath.Join(dir, "lock"))
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	locked, err := fl.TryLockContext(lockCtx, 100*time.Millisecond)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("acquiring lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}
	logger.Debug("Build directory locked.", "path", fl.Path())

	return func() {
		if err := fl.Unlock(); err != nil {
			logger.Warn("Failed to release lock.", "error", err)
		}
	}, nil
}
