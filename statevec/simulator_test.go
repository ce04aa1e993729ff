package statevec

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qgrad/circuit"
)

type step struct {
	gate   string
	wires  []int
	params []circuit.Param
	ret    circuit.ReturnType
}

func run(t *testing.T, sim *Simulator, params []float64, steps ...step) ([]float64, error) {
	t.Helper()
	instrs := make([]circuit.Instruction, len(steps))
	for i, s := range steps {
		spec, ok := circuit.Lookup(s.gate)
		if !ok {
			spec = circuit.GateSpec{Name: s.gate, NumWires: len(s.wires), NumParams: len(s.params)}
		}
		instrs[i] = circuit.Instruction{Gate: spec, Wires: s.wires, Params: s.params, Return: s.ret}
	}
	g, err := circuit.Build(instrs)
	require.NoError(t, err)
	return sim.Execute(context.Background(), g.Queue(), params)
}

func TestSingleQubitExpectations(t *testing.T) {
	sim := NewSimulator()
	theta := 0.731

	tests := []struct {
		name  string
		steps []step
		want  float64
	}{
		{"rx-z", []step{{gate: "RX", wires: []int{0}, params: []circuit.Param{circuit.Ref(0)}}, {gate: "Z", wires: []int{0}, ret: circuit.Expectation}}, math.Cos(theta)},
		{"rx-y", []step{{gate: "RX", wires: []int{0}, params: []circuit.Param{circuit.Ref(0)}}, {gate: "Y", wires: []int{0}, ret: circuit.Expectation}}, -math.Sin(theta)},
		{"ry-x", []step{{gate: "RY", wires: []int{0}, params: []circuit.Param{circuit.Ref(0)}}, {gate: "X", wires: []int{0}, ret: circuit.Expectation}}, math.Sin(theta)},
		{"h-p-x", []step{{gate: "H", wires: []int{0}}, {gate: "P", wires: []int{0}, params: []circuit.Param{circuit.Ref(0)}}, {gate: "X", wires: []int{0}, ret: circuit.Expectation}}, math.Cos(theta)},
		{"rz-z", []step{{gate: "RZ", wires: []int{0}, params: []circuit.Param{circuit.Ref(0)}}, {gate: "Z", wires: []int{0}, ret: circuit.Expectation}}, 1},
		{"rot-z", []step{{gate: "ROT", wires: []int{0}, params: []circuit.Param{circuit.Value(0.3), circuit.Ref(0), circuit.Value(1.1)}}, {gate: "Z", wires: []int{0}, ret: circuit.Expectation}}, math.Cos(theta)},
		{"h-obs", []step{{gate: "H", wires: []int{0}, ret: circuit.Expectation}, {gate: "RX", wires: []int{1}, params: []circuit.Param{circuit.Ref(0)}}}, 1 / math.Sqrt2},
		{"identity", []step{{gate: "I", wires: []int{0}, ret: circuit.Expectation}, {gate: "RX", wires: []int{1}, params: []circuit.Param{circuit.Ref(0)}}}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := run(t, sim, []float64{theta}, tt.steps...)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.InDelta(t, tt.want, got[0], 1e-12)
		})
	}
}

func TestTwoQubitGates(t *testing.T) {
	sim := NewSimulator()
	got, err := run(t, sim, nil,
		step{gate: "X", wires: []int{0}},
		step{gate: "SWAP", wires: []int{0, 1}},
		step{gate: "Z", wires: []int{0}, ret: circuit.Expectation},
		step{gate: "Z", wires: []int{1}, ret: circuit.Expectation},
	)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, -1}, got, 1e-12)

	got, err = run(t, sim, nil,
		step{gate: "H", wires: []int{0}},
		step{gate: "CX", wires: []int{0, 1}},
		step{gate: "Z", wires: []int{1}, ret: circuit.Expectation},
		step{gate: "Z", wires: []int{1}, ret: circuit.Variance},
	)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 1}, got, 1e-12)

	// the control is |0> so the first rotation is a no-op
	got, err = run(t, sim, []float64{math.Pi},
		step{gate: "CRX", wires: []int{0, 1}, params: []circuit.Param{circuit.Ref(0)}},
		step{gate: "X", wires: []int{0}},
		step{gate: "CRY", wires: []int{0, 2}, params: []circuit.Param{circuit.Ref(0)}},
		step{gate: "Z", wires: []int{1}, ret: circuit.Expectation},
		step{gate: "Z", wires: []int{2}, ret: circuit.Expectation},
	)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, -1}, got, 1e-12)
}

func TestBasisState(t *testing.T) {
	sim := NewSimulator()
	got, err := run(t, sim, nil,
		step{gate: "H", wires: []int{0}},
		step{gate: "BASIS", wires: []int{0}, params: []circuit.Param{circuit.Value(1)}},
		step{gate: "Z", wires: []int{0}, ret: circuit.Expectation},
	)
	require.NoError(t, err)
	assert.InDelta(t, -1, got[0], 1e-12)

	_, err = run(t, sim, []float64{2},
		step{gate: "BASIS", wires: []int{0}, params: []circuit.Param{circuit.Ref(0)}},
		step{gate: "Z", wires: []int{0}, ret: circuit.Expectation},
	)
	assert.ErrorIs(t, err, ErrBadBasisState)
}

func TestSample(t *testing.T) {
	sim := NewSimulator(WithSeed(7))
	for range 20 {
		got, err := run(t, sim, nil,
			step{gate: "X", wires: []int{0}},
			step{gate: "Z", wires: []int{0}, ret: circuit.Sample},
			step{gate: "X", wires: []int{1}, ret: circuit.Sample},
		)
		require.NoError(t, err)
		assert.Equal(t, -1.0, got[0])
		assert.Contains(t, []float64{-1, 1}, got[1])
	}
}

func TestExecuteErrors(t *testing.T) {
	sim := NewSimulator()

	_, err := run(t, sim, nil,
		step{gate: "FOO", wires: []int{0}},
	)
	assert.ErrorIs(t, err, ErrUnsupportedGate)

	_, err = run(t, sim, nil,
		step{gate: "RX", wires: []int{0}, params: []circuit.Param{circuit.Ref(0)}},
	)
	assert.ErrorIs(t, err, circuit.ErrParamIndex)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sim.Execute(ctx, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = New(MaxQubits + 1)
	assert.ErrorIs(t, err, ErrTooManyQubits)
}
