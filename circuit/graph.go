package circuit

import (
	"slices"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
)

// NodeID is the stable arena index of an operation. It equals the
// operation's queue index.
type NodeID int

// ParamDep locates one use of a free parameter: the operation and the
// position inside its parameter list.
type ParamDep struct {
	Op   NodeID
	Slot int
}

// Graph is the dependency graph of a circuit. There is one node per
// operation and an edge from each operation to the next one on every wire
// it touches, so the graph is acyclic by construction.
//
// A Graph is not safe for concurrent mutation; UpdateNode and
// RedirectParam must not race with readers.
type Graph struct {
	name string
	log  logr.Logger

	ops  []*Operation
	succ [][]NodeID
	pred [][]NodeID

	grid      map[int][]NodeID
	deps      map[int][]ParamDep
	numParams int

	diags []Diagnostic
}

func (g *Graph) addEdge(from, to NodeID) {
	if slices.Contains(g.succ[from], to) {
		return
	}
	g.succ[from] = append(g.succ[from], to)
	g.pred[to] = append(g.pred[to], from)
}

// Name returns the name given with WithName.
func (g *Graph) Name() string { return g.name }

// Len is the number of operations, observables included.
func (g *Graph) Len() int { return len(g.ops) }

// NumWires is the number of wires in use.
func (g *Graph) NumWires() int { return len(g.grid) }

// NumParams is the number of free parameters referenced.
func (g *Graph) NumParams() int { return g.numParams }

// Diagnostics returns the adjustments made while building.
func (g *Graph) Diagnostics() []Diagnostic { return slices.Clone(g.diags) }

// Node returns the operation stored under id.
func (g *Graph) Node(id NodeID) (*Operation, error) {
	if id < 0 || int(id) >= len(g.ops) {
		return nil, errors.Wrapf(ErrUnknownNode, "%d", id)
	}
	return g.ops[id], nil
}

// Wires returns the wire ids in use, ascending.
func (g *Graph) Wires() []int {
	wires := make([]int, 0, len(g.grid))
	for w := range g.grid {
		wires = append(wires, w)
	}
	slices.Sort(wires)
	return wires
}

// WireIndices returns the nodes acting on wire in queue order.
func (g *Graph) WireIndices(wire int) []NodeID {
	return slices.Clone(g.grid[wire])
}

// Successors returns the direct successors of id.
func (g *Graph) Successors(id NodeID) []NodeID {
	out := slices.Clone(g.succ[id])
	slices.Sort(out)
	return out
}

// Predecessors returns the direct predecessors of id.
func (g *Graph) Predecessors(id NodeID) []NodeID {
	out := slices.Clone(g.pred[id])
	slices.Sort(out)
	return out
}

// ParamDeps returns the uses of free parameter k in queue order.
func (g *Graph) ParamDeps(k int) []ParamDep {
	return slices.Clone(g.deps[k])
}

// ParamIndices returns the free parameter indices that have uses, ascending.
func (g *Graph) ParamIndices() []int {
	keys := make([]int, 0, len(g.deps))
	for k := range g.deps {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// UpdateNode replaces the operation at id. The replacement must act on the
// same wires in the same order; it inherits the queue index. Edges, the
// wire grid and the parameter dependency map are left untouched.
func (g *Graph) UpdateNode(id NodeID, op *Operation) error {
	old, err := g.Node(id)
	if err != nil {
		return err
	}
	if !slices.Equal(old.Wires, op.Wires) {
		return errors.Wrapf(ErrWireMismatch, "node %d: %v != %v", id, old.Wires, op.Wires)
	}
	op.queueIdx = old.queueIdx
	g.ops[id] = op
	return nil
}

// RedirectParam temporarily points the parameter slot named by dep at free
// parameter tmp and registers the use under tmp. The returned func undoes
// both changes and must be called before the next redirect.
func (g *Graph) RedirectParam(dep ParamDep, tmp int) (restore func(), err error) {
	orig, err := g.Node(dep.Op)
	if err != nil {
		return nil, err
	}
	if dep.Slot < 0 || dep.Slot >= len(orig.Params) {
		return nil, errors.Wrapf(ErrParamIndex, "node %d has no slot %d", dep.Op, dep.Slot)
	}
	if _, taken := g.deps[tmp]; taken {
		return nil, errors.Wrapf(ErrParamIndex, "p[%d] is already in use", tmp)
	}

	shifted := orig.Clone()
	shifted.Params[dep.Slot] = Ref(tmp)
	if err := g.UpdateNode(dep.Op, shifted); err != nil {
		return nil, err
	}
	g.deps[tmp] = []ParamDep{dep}

	return func() {
		// the wires are unchanged so this cannot fail
		_ = g.UpdateNode(dep.Op, orig)
		delete(g.deps, tmp)
	}, nil
}
