package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/specialistvlad/burstbuild/internal/ctxlog"
	"github.com/specialistvlad/burstbuild/internal/engine"
	"github.com/specialistvlad/burstbuild/internal/executor"
	"github.com/specialistvlad/burstbuild/internal/manifest"
	"github.com/specialistvlad/burstbuild/internal/report"
	"github.com/specialistvlad/burstbuild/internal/report/metrics"
	"github.com/specialistvlad/burstbuild/internal/report/socketio"
)

// filesName is the generated-files list inside the state directory.
const filesName = "files.toml"

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	ctx      context.Context
	config   *Config
	runID    string
	engine   *engine.Engine
	manifest *manifest.Manifest
	progress *progress
	metrics  *prometheus.Registry
	remote   *socketio.Sink

	httpServer *http.Server
}

// NewApp loads the manifests, wires the report sinks and returns an App
// ready to run. It does not touch the filesystem beyond reading.
func NewApp(ctx context.Context, outW io.Writer, cfg *Config) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:     outW,
		logger:   logger,
		ctx:      ctx,
		config:   cfg,
		runID:    runID,
		progress: &progress{},
		metrics:  prometheus.NewRegistry(),
	}

	m, err := manifest.Load(ctx, cfg.Manifests...)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifests: %w", err)
	}
	if len(m.Files) == 0 {
		logger.Warn("No manifest files found.", "paths", cfg.Manifests)
	}
	a.manifest = m

	exec := executor.Options{Dir: cfg.Root}
	if cfg.EnvFile != "" {
		env, err := executor.LoadEnvFile(cfg.EnvFile)
		if err != nil {
			return nil, err
		}
		exec.Env = env
	}

	sinks := []report.Sink{a.progress.sink(), metrics.New(a.metrics)}
	if cfg.LogFormat == "json" {
		sinks = append(sinks, report.NewLogSink(logger))
	} else {
		sinks = append(sinks, report.NewConsole(outW, a.useColor()))
	}
	if cfg.ReportURL != "" {
		remote, err := socketio.Dial(ctx, socketio.Options{URL: cfg.ReportURL, RunID: runID})
		if err != nil {
			return nil, fmt.Errorf("failed to connect report server: %w", err)
		}
		a.remote = remote
		sinks = append(sinks, remote)
	}

	eng, err := engine.New(engine.Config{
		Root:          cfg.Root,
		Sink:          report.Multi(sinks...),
		Exec:          exec,
		FileCachePath: filepath.Join(cfg.stateDir(), filesName),
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.engine = eng

	if err := m.Apply(eng); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to declare targets: %w", err)
	}
	logger.Debug("Manifests applied.", "files", len(m.Files), "targets", len(m.Targets))
	return a, nil
}

// Engine returns the application's engine. This is primarily for testing.
func (a *App) Engine() *engine.Engine { return a.engine }

// RunID identifies this invocation in logs and remote reports.
func (a *App) RunID() string { return a.runID }

// Close releases the remote report connection, if any.
func (a *App) Close() {
	if a.remote != nil {
		a.remote.Close()
		a.remote = nil
	}
}

func (a *App) useColor() bool {
	switch a.config.Color {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if f, ok := a.outW.(*os.File); ok {
		return report.ShouldUseColor(f)
	}
	return false
}
