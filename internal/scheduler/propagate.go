package scheduler

import (
	"github.com/specialistvlad/burstbuild/internal/graph"
	"github.com/specialistvlad/burstbuild/internal/report"
	"github.com/specialistvlad/burstbuild/internal/target"
)

// setFinal records a final status, reports it and releases dependants that
// were waiting on n.
func (r *run) setFinal(n *node, status target.Status, reason string) {
	n.status = status
	g := r.cfg.Graph
	g.Mutate(n.h, func(t *target.Target) {
		t.Progress = target.ProgressDone
		t.Status = status
	})

	switch status {
	case target.StatusMade:
		r.summary.Made++
	case target.StatusUpToDate:
		r.summary.UpToDate++
	case target.StatusFailed:
		r.summary.Failed++
	case target.StatusSkipped:
		r.summary.Skipped++
	}
	r.cfg.Sink.Target(report.TargetEvent{
		Target: n.name,
		Status: status,
		Failed: !status.Succeeded(),
		Reason: reason,
	})

	for _, d := range g.Dependants(n.h) {
		dn, ok := r.nodes[d]
		if !ok {
			continue
		}
		if _, waiting := dn.waiting[n.h]; !waiting {
			continue
		}
		delete(dn.waiting, n.h)
		if len(dn.waiting) == 0 && !dn.status.Terminal() {
			r.ready = append(r.ready, d)
		}
	}
}

// fail marks n failed and applies the failure policy.
func (r *run) fail(n *node, reason string) {
	r.logger.Debug("Target failed.", "target", n.name, "reason", reason)
	r.failed = true
	for i, in := range n.roots {
		if in {
			r.doomed[i] = true
		}
	}
	r.setFinal(n, target.StatusFailed, reason)
	r.skipDependants(n, "dependency "+n.name+" failed")

	switch {
	case r.opts.QuitQuick:
		r.stop("build stopped after first failure")
	case !r.opts.KeepGoing:
		r.prune()
	}
}

// skip marks n skipped, then every dependant of n in this update. Targets
// with a job in flight are left to finish.
func (r *run) skip(n *node, reason string) {
	if n.status.Terminal() || n.inFlight {
		return
	}
	r.logger.Debug("Skipping dependent target due to upstream failure.", "target", n.name, "reason", reason)
	r.setFinal(n, target.StatusSkipped, reason)
	r.skipDependants(n, "dependency "+n.name+" skipped")
}

func (r *run) skipDependants(n *node, reason string) {
	for _, d := range r.cfg.Graph.Dependants(n.h) {
		if dn, ok := r.nodes[d]; ok {
			r.skip(dn, reason)
		}
	}
}

// needed reports whether a root that can still succeed reaches n.
func (r *run) needed(n *node) bool {
	for i, in := range n.roots {
		if in && !r.doomed[i] {
			return true
		}
	}
	return false
}

// prune skips pending targets that only serve roots which already failed.
func (r *run) prune() {
	for _, h := range r.seq {
		n := r.nodes[h]
		if !n.status.Terminal() && !n.inFlight && !r.needed(n) {
			r.skip(n, "no longer needed after an earlier failure")
		}
	}
}

// stop prevents any further dispatch and skips everything not running.
func (r *run) stop(reason string) {
	r.stopping = true
	for _, h := range r.seq {
		r.skip(r.nodes[h], reason)
	}
}

func (r *run) cancel() {
	r.logger.Warn("Update canceled, waiting for running recipes.", "in_flight", r.inFlight)
	r.canceled = true
	r.stop("build canceled")
}

// drainLate folds dependencies declared on launched targets since the last
// iteration.
func (r *run) drainLate() {
	r.lateMu.Lock()
	pending := r.late
	r.late = nil
	r.lateMu.Unlock()

	for _, decl := range pending {
		n, ok := r.nodes[decl.h]
		if !ok || n.started || n.status.Terminal() {
			continue
		}
		r.fold(decl.h, decl.deps)
	}
}

// fold adds deps of h, and their closures, to the update.
func (r *run) fold(h graph.Handle, deps []graph.Handle) {
	g := r.cfg.Graph
	n := r.nodes[h]
	for _, d := range deps {
		if _, ok := r.nodes[d]; !ok {
			r.logger.Debug("Folding late dependency into the update.", "target", n.name, "dependency", g.Name(d))
			for _, c := range g.Launch([]graph.Handle{d}) {
				if _, ok := r.nodes[c]; ok {
					continue
				}
				cn := r.addNode(c)
				if len(cn.waiting) == 0 {
					r.ready = append(r.ready, c)
				}
			}
		}
		for i, in := range n.roots {
			if in {
				r.addRoot(d, i)
			}
		}
		if !r.nodes[d].status.Terminal() {
			n.waiting[d] = struct{}{}
		}
	}
}
