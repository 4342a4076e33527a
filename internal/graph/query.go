package graph

import (
	"cmp"
	"fmt"
	"io"
	"slices"
)

// Edge is one "From depends on To" relation.
type Edge struct {
	From string
	To   string
}

// Edges returns a sorted snapshot of every edge in the graph.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []Edge
	for h, deps := range g.deps {
		for _, d := range deps {
			out = append(out, Edge{From: g.symbols.Name(Handle(h)), To: g.symbols.Name(d)})
		}
	}
	slices.SortFunc(out, func(a, b Edge) int {
		if c := cmp.Compare(a.From, b.From); c != 0 {
			return c
		}
		return cmp.Compare(a.To, b.To)
	})
	return out
}

// Closure returns every target reachable from roots, dependencies before
// dependants. Each target appears once.
func (g *Graph) Closure(roots []Handle) []Handle {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.closureLocked(roots, nil)
}

func (g *Graph) closureLocked(roots []Handle, seen map[Handle]bool) []Handle {
	if seen == nil {
		seen = make(map[Handle]bool)
	}
	var order []Handle
	var visit func(h Handle)
	visit = func(h Handle) {
		if seen[h] {
			return
		}
		seen[h] = true
		for _, d := range g.deps[h] {
			visit(d)
		}
		order = append(order, h)
	}
	for _, r := range roots {
		visit(r)
	}
	return order
}

// WriteDOT renders the subgraph reachable from roots in Graphviz format.
// With no roots the whole graph is written.
func (g *Graph) WriteDOT(w io.Writer, roots []string) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var nodes []Handle
	if len(roots) == 0 {
		for h := range g.targets {
			nodes = append(nodes, Handle(h))
		}
	} else {
		hs := make([]Handle, 0, len(roots))
		for _, name := range roots {
			h, ok := g.symbols.Lookup(name)
			if !ok {
				return fmt.Errorf("unknown target %q", name)
			}
			hs = append(hs, h)
		}
		nodes = g.closureLocked(hs, nil)
	}

	if _, err := fmt.Fprintln(w, "digraph dependencies {"); err != nil {
		return err
	}
	for _, h := range nodes {
		t := g.targets[h]
		if _, err := fmt.Fprintf(w, "  %q [label=%q];\n", t.Name, t.Name+" ("+t.Status.String()+")"); err != nil {
			return err
		}
	}
	for _, h := range nodes {
		for _, d := range g.deps[h] {
			if _, err := fmt.Fprintf(w, "  %q -> %q;\n", g.targets[h].Name, g.targets[d].Name); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}
