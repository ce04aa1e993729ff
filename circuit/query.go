package circuit

import "slices"

// NodeSet is an unordered set of nodes.
type NodeSet map[NodeID]struct{}

// Has reports whether id is in the set.
func (s NodeSet) Has(id NodeID) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in queue order.
func (s NodeSet) Sorted() []NodeID {
	ids := make([]NodeID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Intersects reports whether s and other share a member.
func (s NodeSet) Intersects(other NodeSet) bool {
	small, big := s, other
	if len(big) < len(small) {
		small, big = big, small
	}
	for id := range small {
		if big.Has(id) {
			return true
		}
	}
	return false
}

// OperationsInOrder returns the non-observable operations by queue index.
func (g *Graph) OperationsInOrder() []*Operation {
	var out []*Operation
	for _, op := range g.ops {
		if !op.IsObservable() {
			out = append(out, op)
		}
	}
	return out
}

// ObservablesInOrder returns the observables by queue index.
func (g *Graph) ObservablesInOrder() []*Operation {
	var out []*Operation
	for _, op := range g.ops {
		if op.IsObservable() {
			out = append(out, op)
		}
	}
	return out
}

// Queue returns the operations followed by the observables, the order a
// backend executes them in.
func (g *Graph) Queue() []*Operation {
	return append(g.OperationsInOrder(), g.ObservablesInOrder()...)
}

// Ancestors returns every node with a path to some member of ids, minus ids itself.
func (g *Graph) Ancestors(ids ...NodeID) NodeSet {
	return g.reach(g.pred, ids)
}

// Descendants returns every node reachable from some member of ids, minus ids itself.
func (g *Graph) Descendants(ids ...NodeID) NodeSet {
	return g.reach(g.succ, ids)
}

// AncestorsInOrder is Ancestors sorted by queue index.
func (g *Graph) AncestorsInOrder(ids ...NodeID) []*Operation {
	return g.operations(g.Ancestors(ids...))
}

// DescendantsInOrder is Descendants sorted by queue index.
func (g *Graph) DescendantsInOrder(ids ...NodeID) []*Operation {
	return g.operations(g.Descendants(ids...))
}

// NodesBetween returns the nodes lying on some path from a to b, both ends
// included. It is empty when b is not reachable from a.
func (g *Graph) NodesBetween(a, b NodeID) NodeSet {
	from := g.Descendants(a)
	from[a] = struct{}{}
	to := g.Ancestors(b)
	to[b] = struct{}{}

	out := make(NodeSet)
	for id := range from {
		if to.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

func (g *Graph) reach(adj [][]NodeID, start []NodeID) NodeSet {
	seen := make(NodeSet)
	stack := make([]NodeID, 0, len(start))
	for _, id := range start {
		if id >= 0 && int(id) < len(adj) {
			stack = append(stack, id)
		}
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range adj[id] {
			if !seen.Has(next) {
				seen[next] = struct{}{}
				stack = append(stack, next)
			}
		}
	}
	for _, id := range start {
		delete(seen, id)
	}
	return seen
}

func (g *Graph) operations(set NodeSet) []*Operation {
	ids := set.Sorted()
	out := make([]*Operation, len(ids))
	for i, id := range ids {
		out[i] = g.ops[id]
	}
	return out
}
