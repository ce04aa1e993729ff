package circuit

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func gridNames(gr Grid) [][]string {
	out := make([][]string, len(gr.Ops))
	for i, ops := range gr.Ops {
		out[i] = names(ops)
	}
	return out
}

func TestGreedyLayers(t *testing.T) {
	gr := sampleGraph(t).GreedyLayers()

	want := [][]string{
		{"H", "CX", "RY"},
		{"RX", "CX", "CZ"},
		{"RZ", "-", "CZ"},
	}
	if diff := cmp.Diff(want, gridNames(gr)); diff != "" {
		t.Errorf("grid mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []int{0, 1, 2}, gr.Wires)
	assert.Equal(t, 3, gr.Depth())

	obs := make([][]string, len(gr.Observables))
	for i, o := range gr.Observables {
		obs[i] = names(o)
	}
	assert.Equal(t, [][]string{{"Z"}, {"Z"}, {"-"}}, obs)
}

func TestGreedyLayersDefersCrossingGates(t *testing.T) {
	g := mustBuild(t,
		gate(t, "CX", []int{0, 1}),
		gate(t, "CZ", []int{1, 2}),
		gate(t, "SWAP", []int{0, 2}),
	)
	want := [][]string{
		{"CX", "-", "SWAP"},
		{"CX", "CZ", "-"},
		{"-", "CZ", "SWAP"},
	}
	if diff := cmp.Diff(want, gridNames(g.GreedyLayers())); diff != "" {
		t.Errorf("grid mismatch (-want +got):\n%s", diff)
	}
}

func TestGreedyLayersAlignsMultiWireOps(t *testing.T) {
	g := mustBuild(t,
		gate(t, "H", []int{0}),
		gate(t, "H", []int{0}),
		gate(t, "H", []int{0}),
		gate(t, "CX", []int{0, 1}),
		gate(t, "X", []int{1}),
	)
	gr := g.GreedyLayers()
	assert.Equal(t, [][]string{
		{"H", "H", "H", "CX", "-"},
		{"-", "-", "-", "CX", "X"},
	}, gridNames(gr))

	for slot := range gr.Depth() {
		seen := map[*Operation]int{}
		for _, ops := range gr.Ops {
			if op := ops[slot]; op != nil {
				seen[op]++
			}
		}
		for op, n := range seen {
			assert.Equal(t, op.NumWires(), n, "slot %d op %s", slot, op)
		}
	}
}
