package circuit

import (
	"iter"
	"slices"
)

// Layer is a set of parametrized operations with no dependency between
// any two of them. ParamInds[i] is the free parameter Ops[i] uses.
type Layer struct {
	Ops       []*Operation
	ParamInds []int

	ids NodeSet
}

// LayerData is a Layer together with the operations that must run before
// and may run after it.
type LayerData struct {
	PreOps    []*Operation
	Ops       []*Operation
	ParamInds []int
	PostOps   []*Operation
}

// Layers partitions the parametrized operations into layers in a single
// forward pass. Parameters are visited in the order of their first use; an
// operation joins the open layer unless it is related to one of its
// members, in which case a new layer is opened.
//
// The result is not a minimal layering.
func (g *Graph) Layers() []Layer {
	params := g.ParamIndices()
	slices.SortStableFunc(params, func(a, b int) int {
		return int(g.deps[a][0].Op) - int(g.deps[b][0].Op)
	})

	var layers []Layer
	var cur *Layer
	for _, k := range params {
		for _, dep := range g.deps[k] {
			related := g.Ancestors(dep.Op)
			for id := range g.Descendants(dep.Op) {
				related[id] = struct{}{}
			}
			if cur == nil || cur.ids.Intersects(related) {
				layers = append(layers, Layer{ids: make(NodeSet)})
				cur = &layers[len(layers)-1]
			}
			cur.Ops = append(cur.Ops, g.ops[dep.Op])
			cur.ParamInds = append(cur.ParamInds, k)
			cur.ids[dep.Op] = struct{}{}
		}
	}
	return layers
}

// IterateLayers yields each layer of Layers with its ordered ancestors and
// descendants.
func (g *Graph) IterateLayers() iter.Seq[LayerData] {
	return func(yield func(LayerData) bool) {
		for _, l := range g.Layers() {
			ids := l.ids.Sorted()
			data := LayerData{
				PreOps:    g.AncestorsInOrder(ids...),
				Ops:       l.Ops,
				ParamInds: l.ParamInds,
				PostOps:   g.DescendantsInOrder(ids...),
			}
			if !yield(data) {
				return
			}
		}
	}
}
