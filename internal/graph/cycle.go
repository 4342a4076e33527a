package graph

type mark uint8

const (
	unvisited mark = iota
	visiting
	done
)

// findCycle runs a depth-first search over dependency edges starting at
// root and returns the first cycle it meets, beginning at the node that was
// reached while still being visited. The markers live in a scratch slice
// owned by this call.
func (g *Graph) findCycle(root Handle) []Handle {
	marks := make([]mark, len(g.targets))
	var stack []Handle

	var visit func(h Handle) []Handle
	visit = func(h Handle) []Handle {
		switch marks[h] {
		case done:
			return nil
		case visiting:
			return cyclePath(stack, h)
		}
		marks[h] = visiting
		stack = append(stack, h)
		for _, d := range g.deps[h] {
			if path := visit(d); path != nil {
				return path
			}
		}
		stack = stack[:len(stack)-1]
		marks[h] = done
		return nil
	}
	return visit(root)
}

// cyclePath returns the suffix of the visiting stack that starts at the
// cycle node.
func cyclePath(stack []Handle, at Handle) []Handle {
	for i, h := range stack {
		if h == at {
			path := make([]Handle, len(stack)-i)
			copy(path, stack[i:])
			return path
		}
	}
	return []Handle{at}
}
