package scheduler

import (
	"time"

	"github.com/specialistvlad/burstbuild/internal/graph"
	"github.com/specialistvlad/burstbuild/internal/report"
	"github.com/specialistvlad/burstbuild/internal/target"
)

// plan registers the closure of names and emits the plan event.
func (r *run) plan(names []string) {
	g := r.cfg.Graph
	seen := make(map[graph.Handle]bool)
	for _, name := range names {
		h := g.Ensure(name)
		if !seen[h] {
			seen[h] = true
			r.roots = append(r.roots, h)
		}
	}
	r.doomed = make([]bool, len(r.roots))

	closure := g.Launch(r.roots)
	for _, h := range closure {
		r.addNode(h)
	}
	for i, root := range r.roots {
		r.addRoot(root, i)
	}

	stale := r.predict(closure)
	r.cfg.Sink.Plan(report.PlanEvent{
		Roots:   g.Names(r.roots),
		Found:   len(closure),
		Stale:   stale,
		Current: len(closure) - stale,
	})
	r.logger.Info("🚀 Starting update...", "found", len(closure), "stale", stale)

	for _, h := range closure {
		if len(r.nodes[h].waiting) == 0 {
			r.ready = append(r.ready, h)
		}
	}
}

// addNode registers h, already launched, for this update. Dependencies
// without a node are waited on; they were declared after the launch and are
// folded in from the late queue.
func (r *run) addNode(h graph.Handle) *node {
	if n, ok := r.nodes[h]; ok {
		return n
	}
	g := r.cfg.Graph
	n := &node{
		h:       h,
		name:    g.Name(h),
		waiting: make(map[graph.Handle]struct{}),
		roots:   make([]bool, len(r.roots)),
	}
	r.nodes[h] = n
	r.seq = append(r.seq, h)

	for _, d := range g.Dependencies(h) {
		if dn, ok := r.nodes[d]; !ok || !dn.status.Terminal() {
			n.waiting[d] = struct{}{}
		}
	}
	return n
}

// addRoot marks every node reachable from h as needed by root i.
func (r *run) addRoot(h graph.Handle, i int) {
	n, ok := r.nodes[h]
	if !ok || n.roots[i] {
		return
	}
	n.roots[i] = true
	for _, d := range r.cfg.Graph.Dependencies(h) {
		r.addRoot(d, i)
	}
}

func (r *run) order() []graph.Handle { return r.seq }

// predict binds every target of the closure without committing anything
// and counts the targets that will run recipes.
func (r *run) predict(closure []graph.Handle) int {
	g := r.cfg.Graph
	type guess struct {
		rebuilt bool
		modTime time.Time
		flags   target.Flags
	}
	guesses := make(map[graph.Handle]guess, len(closure))

	stale := 0
	for _, h := range closure {
		snap := g.Target(h)
		res := r.cfg.Binder.Bind(&snap)

		in := fateInput{force: r.opts.Force, flags: snap.Flags, binding: res.State, modTime: res.ModTime}
		anyDepRebuilt := false
		for _, d := range g.Dependencies(h) {
			dg := guesses[d]
			in.deps = append(in.deps, depState{name: g.Name(d), rebuilt: dg.rebuilt, modTime: dg.modTime, flags: dg.flags})
			anyDepRebuilt = anyDepRebuilt || dg.rebuilt
		}
		isStaleNow, _ := isStale(in)
		willRun := isStaleNow && len(snap.Recipes) > 0
		if willRun {
			stale++
		}
		guesses[h] = guess{
			rebuilt: willRun || (isStaleNow && anyDepRebuilt),
			modTime: res.ModTime,
			flags:   snap.Flags,
		}
	}
	return stale
}
