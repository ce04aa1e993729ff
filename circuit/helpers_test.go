package circuit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func gate(t *testing.T, name string, wires []int, params ...Param) Instruction {
	t.Helper()
	spec, ok := Lookup(name)
	require.True(t, ok, "gate %s", name)
	return Instruction{Gate: spec, Wires: wires, Params: params}
}

func expval(t *testing.T, name string, wire int) Instruction {
	t.Helper()
	in := gate(t, name, []int{wire})
	in.Return = Expectation
	return in
}

func mustBuild(t *testing.T, instrs ...Instruction) *Graph {
	t.Helper()
	g, err := Build(instrs)
	require.NoError(t, err)
	return g
}

func names(ops []*Operation) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		if op == nil {
			out[i] = "-"
			continue
		}
		out[i] = op.Name()
	}
	return out
}

func queueIndices(ops []*Operation) []int {
	out := make([]int, len(ops))
	for i, op := range ops {
		out[i] = op.QueueIndex()
	}
	return out
}
