package scheduler

import (
	"fmt"

	"github.com/specialistvlad/burstbuild/internal/executor"
	"github.com/specialistvlad/burstbuild/internal/graph"
	"github.com/specialistvlad/burstbuild/internal/recipe"
	"github.com/specialistvlad/burstbuild/internal/report"
	"github.com/specialistvlad/burstbuild/internal/target"
)

// processReady handles every target whose dependencies are final.
func (r *run) processReady() {
	for len(r.ready) > 0 {
		h := r.ready[0]
		r.ready = r.ready[1:]
		r.start1(r.nodes[h])
	}
}

// start1 commits, binds and judges one ready target.
func (r *run) start1(n *node) {
	if n.status.Terminal() || n.started {
		return
	}
	if r.stopping {
		r.skip(n, "build stopped")
		return
	}
	if !r.opts.KeepGoing && r.failed && !r.needed(n) {
		r.skip(n, "no longer needed after an earlier failure")
		return
	}

	g := r.cfg.Graph
	var deps []graph.Handle
	for {
		var ok bool
		deps, ok = g.TryBind(n.h, r.allFinal)
		if ok {
			break
		}
		r.fold(n.h, deps)
		if len(n.waiting) > 0 {
			return
		}
	}
	n.started = true

	for _, d := range deps {
		dn := r.nodes[d]
		if !dn.status.Succeeded() {
			r.skip(n, fmt.Sprintf("dependency %s %s", dn.name, dn.status))
			return
		}
	}

	snap := g.Target(n.h)
	res := r.cfg.Binder.Bind(&snap)
	n.location = res.Location
	n.modTime = res.ModTime
	n.flags = snap.Flags
	g.Mutate(n.h, func(t *target.Target) {
		t.Location = res.Location
		t.Binding = res.State
		t.ModTime = res.ModTime
	})

	in := fateInput{force: r.opts.Force, flags: snap.Flags, binding: res.State, modTime: res.ModTime}
	anyRebuilt := false
	for _, d := range deps {
		dn := r.nodes[d]
		in.deps = append(in.deps, depState{name: dn.name, rebuilt: dn.rebuilt, modTime: dn.modTime, flags: dn.flags})
		anyRebuilt = anyRebuilt || dn.rebuilt
	}
	stale, why := isStale(in)

	switch {
	case !stale:
		r.setFinal(n, target.StatusUpToDate, "")
	case len(snap.Recipes) == 0:
		if res.State == target.BindingMissing && len(deps) == 0 && !snap.Flags.Has(target.FlagNoCare) {
			r.fail(n, ErrBindingMissing.Error())
			return
		}
		n.rebuilt = anyRebuilt
		r.setFinal(n, target.StatusUpToDate, "")
	default:
		r.logger.Debug("Target is stale.", "target", n.name, "reason", why)
		if err := r.prepareJobs(n, &snap, deps); err != nil {
			r.fail(n, err.Error())
			return
		}
		n.status = target.StatusBuilding
		g.Mutate(n.h, func(t *target.Target) {
			t.Progress = target.ProgressRunning
			t.Status = target.StatusBuilding
		})
		r.queue = append(r.queue, n.h)
	}
}

// allFinal is the TryBind predicate: every dependency is part of this update
// and final.
func (r *run) allFinal(deps []graph.Handle) bool {
	for _, d := range deps {
		dn, ok := r.nodes[d]
		if !ok || !dn.status.Terminal() {
			return false
		}
	}
	return true
}

// prepareJobs renders the recipes of n into executor jobs.
func (r *run) prepareJobs(n *node, snap *target.Target, deps []graph.Handle) error {
	sources := make([]string, 0, len(deps))
	for _, d := range deps {
		dn := r.nodes[d]
		if dn.location != "" {
			sources = append(sources, dn.location)
		} else {
			sources = append(sources, dn.name)
		}
	}
	self := n.location
	if self == "" {
		self = n.name
	}

	for _, rc := range snap.Recipes {
		vars := snap.Vars.Map()
		if r.cfg.Source != nil {
			extra, err := r.cfg.Source.RecipeVariables(r.ctx, n.name, rc)
			if err != nil {
				return fmt.Errorf("resolving variables for %s: %w", rc.Name, err)
			}
			for k, v := range extra {
				vars[k] = v
			}
		}

		tpl, err := recipe.Parse(rc.Name, rc.Command)
		if err != nil {
			return err
		}
		cmd, err := tpl.Render(recipe.Scope{Target: self, Targets: []string{self}, Sources: sources, Vars: vars})
		if err != nil {
			return err
		}
		n.jobs = append(n.jobs, executor.Job{
			Target:  n.name,
			Recipe:  rc.Name,
			Command: cmd,
			Env:     recipe.Environment(rc.Bind, vars),
			Quiet:   rc.Flags.Has(target.RecipeQuiet),
		})
		n.ignore = append(n.ignore, rc.Flags.Has(target.RecipeIgnore))
	}
	return nil
}

// dispatch starts queued jobs while slots are free.
func (r *run) dispatch() {
	for len(r.queue) > 0 && r.inFlight < r.opts.jobs() {
		h := r.queue[0]
		r.queue = r.queue[1:]
		n := r.nodes[h]
		if n.status.Terminal() {
			continue
		}
		if r.stopping {
			r.skip(n, "build stopped")
			continue
		}
		job := n.jobs[n.nextJob]
		n.nextJob++
		n.inFlight = true
		r.inFlight++
		go func(h graph.Handle, job executor.Job) {
			r.done <- completion{h: h, result: r.runner.Run(r.ctx, job)}
		}(h, job)
	}
}

// complete applies the result of one job on the coordinating goroutine.
func (r *run) complete(c completion) {
	n := r.nodes[c.h]
	n.inFlight = false
	res := c.result
	ok := res.Succeeded() || (n.ignore[n.nextJob-1] && res.Outcome == report.OutcomeFailed)
	if !ok {
		reason := res.Outcome.String()
		if err := res.Err(); err != nil {
			reason = err.Error()
		}
		r.fail(n, reason)
		return
	}

	r.cfg.Binder.Invalidate(n.location)
	if n.nextJob < len(n.jobs) {
		if r.stopping {
			r.skip(n, "build stopped")
			return
		}
		r.queue = append(r.queue, n.h)
		return
	}

	if n.location != "" {
		res := r.cfg.Binder.Stat(n.location)
		n.modTime = res.ModTime
		r.cfg.Graph.Mutate(n.h, func(t *target.Target) {
			t.Binding = res.State
			t.ModTime = res.ModTime
			if t.Explicit {
				t.ExplicitExists = res.State == target.BindingExists
			}
		})
	}
	n.rebuilt = true
	r.setFinal(n, target.StatusMade, "")
}
