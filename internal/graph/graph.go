package graph

import (
	"slices"
	"sync"

	"github.com/specialistvlad/burstbuild/internal/symbol"
	"github.com/specialistvlad/burstbuild/internal/target"
)

// Handle is the arena index of a target.
type Handle = symbol.Handle

// Listener is told about dependencies added to a target whose update is
// already underway. It is called with the graph lock held and must not call
// back into the graph.
type Listener interface {
	DependenciesAdded(t Handle, deps []Handle)
}

// Graph is the registry of targets and their dependency edges.
type Graph struct {
	mu      sync.RWMutex
	symbols *symbol.Table

	targets    []*target.Target
	deps       [][]Handle
	dependants [][]Handle

	listener Listener
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{symbols: symbol.NewTable()}
}

// Ensure returns the handle for name, creating the target on first reference.
func (g *Graph) Ensure(name string) Handle {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ensureLocked(name)
}

func (g *Graph) ensureLocked(name string) Handle {
	if h, ok := g.symbols.Lookup(name); ok {
		return h
	}
	h := g.symbols.Intern(name)
	g.targets = append(g.targets, &target.Target{Name: name})
	g.deps = append(g.deps, nil)
	g.dependants = append(g.dependants, nil)
	return h
}

// Lookup returns the handle of an existing target.
func (g *Graph) Lookup(name string) (Handle, bool) {
	return g.symbols.Lookup(name)
}

// Name returns the name of h.
func (g *Graph) Name(h Handle) string {
	return g.symbols.Name(h)
}

// Names maps handles to names.
func (g *Graph) Names(hs []Handle) []string {
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = g.symbols.Name(h)
	}
	return out
}

// Len reports the number of registered targets.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.targets)
}

// SetListener installs l as the late-dependency listener. Passing nil
// removes it.
func (g *Graph) SetListener(l Listener) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listener = l
}

// Target returns a snapshot of h.
func (g *Graph) Target(h Handle) target.Target {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.targets[h].Clone()
}

// Mutate applies fn to the target under the write lock.
func (g *Graph) Mutate(h Handle, fn func(t *target.Target)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(g.targets[h])
}

// SetFlags ORs flags onto each named target, creating targets as needed.
func (g *Graph) SetFlags(names []string, flags target.Flags) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, name := range names {
		h := g.ensureLocked(name)
		g.targets[h].Flags |= flags
	}
}

// Dependencies returns the direct dependencies of h in declaration order.
func (g *Graph) Dependencies(h Handle) []Handle {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.deps[h])
}

// Dependants returns the targets that directly depend on h.
func (g *Graph) Dependants(h Handle) []Handle {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.dependants[h])
}

// Declare adds deps as dependencies of name.
//
// It fails with a *ProgressError when the target's plan is committed and with
// a *CycleError when one of the new edges closes a cycle. In both cases the
// edge set is left exactly as it was.
func (g *Graph) Declare(name string, deps []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	h := g.ensureLocked(name)
	t := g.targets[h]
	if t.Progress >= target.ProgressBound {
		return &ProgressError{Target: name, Progress: t.Progress.String()}
	}

	var added []Handle
	for _, depName := range deps {
		d := g.ensureLocked(depName)
		if slices.Contains(g.deps[h], d) {
			continue
		}
		g.deps[h] = append(g.deps[h], d)
		g.dependants[d] = append(g.dependants[d], h)
		added = append(added, d)
	}
	if len(added) == 0 {
		return nil
	}

	if path := g.findCycle(h); path != nil {
		g.rollback(h, added)
		return &CycleError{Path: g.Names(path)}
	}

	if t.Progress == target.ProgressLaunched && g.listener != nil {
		g.listener.DependenciesAdded(h, slices.Clone(added))
	}
	return nil
}

// rollback removes the edges h -> added. Edges are only ever appended, so
// the just-added entries are at the tail of each list.
func (g *Graph) rollback(h Handle, added []Handle) {
	g.deps[h] = g.deps[h][:len(g.deps[h])-len(added)]
	for _, d := range added {
		list := g.dependants[d]
		g.dependants[d] = list[:len(list)-1]
	}
}

// TryBind commits the plan of h if ready approves its current dependencies.
// The check and the progress change happen under one lock, so no declaration
// can slip in between.
func (g *Graph) TryBind(h Handle, ready func(deps []Handle) bool) ([]Handle, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	deps := slices.Clone(g.deps[h])
	if !ready(deps) {
		return deps, false
	}
	g.targets[h].Progress = target.ProgressBound
	return deps, true
}

// Launch returns the closure of roots, dependencies first, and marks every
// target of it that has not started yet as Launched. Both happen under one
// lock: a declaration on any returned target either landed before the
// closure was computed or reaches the listener.
func (g *Graph) Launch(roots []Handle) []Handle {
	g.mu.Lock()
	defer g.mu.Unlock()
	closure := g.closureLocked(roots, nil)
	for _, h := range closure {
		t := g.targets[h]
		if t.Progress == target.ProgressInit {
			t.Progress = target.ProgressLaunched
			t.Status = target.StatusNotStarted
		}
	}
	return closure
}

// Reset returns every target to its pre-update state. Edges, flags,
// variables, recipes and explicit bindings are kept.
func (g *Graph) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, t := range g.targets {
		t.Progress = target.ProgressInit
		t.Status = target.StatusNotStarted
		switch {
		case !t.Explicit:
			t.Binding = target.BindingUnbound
		case t.ExplicitExists:
			t.Binding = target.BindingExists
		default:
			t.Binding = target.BindingMissing
		}
	}
}
