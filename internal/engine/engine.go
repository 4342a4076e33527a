package engine

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/specialistvlad/burstbuild/internal/binder"
	"github.com/specialistvlad/burstbuild/internal/ctxlog"
	"github.com/specialistvlad/burstbuild/internal/executor"
	"github.com/specialistvlad/burstbuild/internal/filecache"
	"github.com/specialistvlad/burstbuild/internal/graph"
	"github.com/specialistvlad/burstbuild/internal/recipe"
	"github.com/specialistvlad/burstbuild/internal/report"
	"github.com/specialistvlad/burstbuild/internal/scheduler"
	"github.com/specialistvlad/burstbuild/internal/target"
)

// Config configures an Engine.
type Config struct {
	// Root is the directory target names are bound against.
	Root string
	Sink report.Sink
	// Source supplies extra recipe variables at bind time. Optional.
	Source scheduler.RecipeSource
	// Exec holds executor settings shared by every update: shell, working
	// directory, extra environment and kill grace period.
	Exec executor.Options
	// StatCacheSize bounds the binder's stat cache.
	StatCacheSize int
	// FileCachePath persists the generated-files list. Empty disables it.
	FileCachePath string
}

// Engine is the build engine API.
type Engine struct {
	graph  *graph.Graph
	binder *binder.Binder
	sched  *scheduler.Scheduler
	sink   report.Sink
	exec   executor.Options
	files  *filecache.Cache

	updating atomic.Bool
}

// New creates an engine.
func New(cfg Config) (*Engine, error) {
	root := cfg.Root
	if root == "" {
		root = "."
	}
	b, err := binder.New(root, cfg.StatCacheSize)
	if err != nil {
		return nil, err
	}
	sink := cfg.Sink
	if sink == nil {
		sink = report.Nop{}
	}
	exec := cfg.Exec
	if exec.Dir == "" {
		exec.Dir = b.Root()
	}

	var files *filecache.Cache
	if cfg.FileCachePath != "" {
		path := cfg.FileCachePath
		if !filepath.IsAbs(path) {
			path = filepath.Join(b.Root(), path)
		}
		if files, err = filecache.Open(path); err != nil {
			return nil, err
		}
	}

	g := graph.New()
	return &Engine{
		graph:  g,
		binder: b,
		sink:   sink,
		exec:   exec,
		files:  files,
		sched: scheduler.New(scheduler.Config{
			Graph:  g,
			Binder: b,
			Sink:   sink,
			Source: cfg.Source,
			Exec:   exec,
		}),
	}, nil
}

// Graph exposes the underlying dependency graph.
func (e *Engine) Graph() *graph.Graph { return e.graph }

// Root returns the directory targets are bound against.
func (e *Engine) Root() string { return e.binder.Root() }

// DefineTarget creates name if needed and ORs flags onto it.
func (e *Engine) DefineTarget(name string, flags target.Flags) {
	e.graph.SetFlags([]string{name}, flags)
}

// SetFlags ORs flags onto every named target.
func (e *Engine) SetFlags(names []string, flags target.Flags) {
	e.graph.SetFlags(names, flags)
}

// DeclareDependency makes name depend on deps. It fails with
// graph.ErrCycleDetected or graph.ErrAlreadyInProgress, leaving the graph
// unchanged.
func (e *Engine) DeclareDependency(name string, deps ...string) error {
	return e.graph.Declare(name, deps)
}

// BindTarget fixes the location of name and whether a file is there. Updates
// trust exists instead of checking the location; a target declared missing
// is rebuilt when it has recipes.
func (e *Engine) BindTarget(name, location string, exists bool) {
	h := e.graph.Ensure(name)
	state := target.BindingMissing
	if exists {
		state = target.BindingExists
	}
	e.graph.Mutate(h, func(t *target.Target) {
		t.Location = location
		t.Explicit = true
		t.ExplicitExists = exists
		t.Binding = state
	})
}

// SetTargetVariables assigns every entry of mapping on name. Keys are applied
// in sorted order so the resulting variable order is deterministic.
func (e *Engine) SetTargetVariables(name string, mode target.VarMode, mapping map[string][]string) {
	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := e.graph.Ensure(name)
	e.graph.Mutate(h, func(t *target.Target) {
		for _, k := range keys {
			t.Vars = t.Vars.Apply(mode, k, mapping[k])
		}
	})
}

// TargetVariables returns every variable bound on name.
func (e *Engine) TargetVariables(name string) map[string][]string {
	h, ok := e.graph.Lookup(name)
	if !ok {
		return map[string][]string{}
	}
	snap := e.graph.Target(h)
	return snap.Vars.Map()
}

// TargetVariable returns one variable of name.
func (e *Engine) TargetVariable(name, key string) ([]string, bool) {
	h, ok := e.graph.Lookup(name)
	if !ok {
		return nil, false
	}
	snap := e.graph.Target(h)
	return snap.Vars.Get(key)
}

// DefineRecipe attaches a recipe to name. The command template is parsed
// up front so syntax errors surface at declaration time.
func (e *Engine) DefineRecipe(name, recipeName, command string, bind []string, flags target.RecipeFlags) error {
	if _, err := recipe.Parse(recipeName, command); err != nil {
		return fmt.Errorf("defining recipe %s for %s: %w", recipeName, name, err)
	}
	h := e.graph.Ensure(name)
	e.graph.Mutate(h, func(t *target.Target) {
		t.Recipes = append(t.Recipes, target.Recipe{
			Name:    recipeName,
			Command: command,
			Bind:    append([]string(nil), bind...),
			Flags:   flags,
		})
	})
	return nil
}

// Status returns the build status of name.
func (e *Engine) Status(name string) (target.Status, bool) {
	h, ok := e.graph.Lookup(name)
	if !ok {
		return target.StatusNotStarted, false
	}
	return e.graph.Target(h).Status, true
}

// Reset returns every target to its pre-update state.
func (e *Engine) Reset() {
	e.graph.Reset()
	e.binder.Purge()
}

// Update brings names up to date and returns the overall status: zero when
// nothing failed. The error is only set for misuse, such as overlapping
// updates, or when the generated-files list cannot be saved.
func (e *Engine) Update(ctx context.Context, names []string, opts scheduler.Options) (int, scheduler.Summary, error) {
	if !e.updating.CompareAndSwap(false, true) {
		return 1, scheduler.Summary{}, scheduler.ErrUpdateRunning
	}
	defer e.updating.Store(false)

	logger := ctxlog.FromContext(ctx)
	e.Reset()

	sum, err := e.sched.Update(ctx, names, opts)
	if err != nil {
		return 1, sum, err
	}

	if e.files != nil && !opts.NoExec {
		e.files.Add(e.generated()...)
		if err := e.files.Save(); err != nil {
			logger.Error("Failed to save generated files list.", "error", err)
			return sum.Status(), sum, err
		}
	}
	return sum.Status(), sum, nil
}

// generated lists the files made by the last update.
func (e *Engine) generated() []string {
	var out []string
	for h := 0; h < e.graph.Len(); h++ {
		snap := e.graph.Target(graph.Handle(h))
		if snap.Status == target.StatusMade && snap.Binding == target.BindingExists && !snap.Flags.Has(target.FlagNotFile) {
			out = append(out, snap.Location)
		}
	}
	return out
}

// GeneratedFiles lists every file recorded as generated.
func (e *Engine) GeneratedFiles() []string {
	if e.files == nil {
		return nil
	}
	return e.files.List()
}

// Clean removes every recorded generated file.
func (e *Engine) Clean(ctx context.Context) ([]string, error) {
	if e.files == nil {
		return nil, nil
	}
	removed, err := e.files.Clean()
	ctxlog.FromContext(ctx).Info("Removed generated files.", "count", len(removed))
	e.binder.Purge()
	return removed, err
}

// RunCommand runs command once, outside of the graph, and reports it like
// any recipe.
func (e *Engine) RunCommand(ctx context.Context, name, targetName, command string) executor.Result {
	return executor.New(e.exec, e.sink).RunCommand(ctx, name, targetName, command)
}

// WriteGraph renders the closure of names, or the whole graph, as DOT.
func (e *Engine) WriteGraph(w io.Writer, names []string) error {
	return e.graph.WriteDOT(w, names)
}
