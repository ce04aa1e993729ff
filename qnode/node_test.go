package qnode

import (
	"context"
	"math"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qgrad/circuit"
	"qgrad/statevec"
)

type op struct {
	name   string
	wires  []int
	params []circuit.Param
	ret    circuit.ReturnType
}

func buildGraph(t *testing.T, ops ...op) *circuit.Graph {
	t.Helper()
	instrs := make([]circuit.Instruction, len(ops))
	for i, o := range ops {
		spec, ok := circuit.Lookup(o.name)
		require.True(t, ok, o.name)
		instrs[i] = circuit.Instruction{Gate: spec, Wires: o.wires, Params: o.params, Return: o.ret}
	}
	g, err := circuit.Build(instrs)
	require.NoError(t, err)
	return g
}

func ref(k int) []circuit.Param { return []circuit.Param{circuit.Ref(k)} }

func expZ(w int) op { return op{name: "Z", wires: []int{w}, ret: circuit.Expectation} }

// counted returns a simulator instrumented with a fresh registry.
func counted() (Backend, *Metrics) {
	m := NewMetrics(prometheus.NewRegistry())
	return Instrument(statevec.NewSimulator(), m), m
}

func calls(m *Metrics) int {
	return int(testutil.ToFloat64(m.ExecutionsTotal.WithLabelValues("ok")) +
		testutil.ToFloat64(m.ExecutionsTotal.WithLabelValues("error")))
}

// threeParams: <Z0> = cos(a)cos(b), <Z1> depends on c only.
func threeParams(t *testing.T) *circuit.Graph {
	return buildGraph(t,
		op{name: "RX", wires: []int{0}, params: ref(0)},
		op{name: "RY", wires: []int{0}, params: ref(1)},
		op{name: "RX", wires: []int{1}, params: ref(2)},
		expZ(0),
		expZ(1),
	)
}

func TestEvaluate(t *testing.T) {
	b, m := counted()
	n := New(threeParams(t), b)

	out, err := n.Evaluate(context.Background(), []float64{0.3, 0.4, 0.5})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{math.Cos(0.3) * math.Cos(0.4), math.Cos(0.5)}, out, 1e-12)
	assert.Equal(t, 1, calls(m))

	_, err = n.Evaluate(context.Background(), []float64{0.3})
	assert.ErrorIs(t, err, ErrParamLength)
	assert.Equal(t, 1, calls(m))
}

func TestFiniteDiffOrder1(t *testing.T) {
	b, m := counted()
	n := New(threeParams(t), b)
	a, bb, c := 0.3, 0.4, 0.5

	grad, err := n.GradientFiniteDiff(context.Background(), []float64{a, bb, c}, Which(0, 2))
	require.NoError(t, err)
	assert.Equal(t, 3, calls(m))

	require.Len(t, grad, 2)
	assert.InDeltaSlice(t, []float64{-math.Sin(a) * math.Cos(bb), 0}, grad[0], 1e-5)
	assert.InDeltaSlice(t, []float64{0, -math.Sin(c)}, grad[1], 1e-5)
}

func TestFiniteDiffOrder2(t *testing.T) {
	b, m := counted()
	n := New(threeParams(t), b)
	params := []float64{0.3, 0.4, 0.5}

	grad, err := n.GradientFiniteDiff(context.Background(), params, Order(2), Step(1e-4), Which(1, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 4, calls(m))

	require.Len(t, grad, 2)
	assert.InDelta(t, -math.Sin(0.3)*math.Cos(0.4), grad[0][0], 1e-7)
	assert.InDelta(t, -math.Cos(0.3)*math.Sin(0.4), grad[1][0], 1e-7)
}

func TestFiniteDiffStationaryPoint(t *testing.T) {
	n := New(buildGraph(t, op{name: "RX", wires: []int{0}, params: ref(0)}, expZ(0)), statevec.NewSimulator())

	grad, err := n.GradientFiniteDiff(context.Background(), []float64{0})
	require.NoError(t, err)
	assert.InDelta(t, 0, grad[0][0], 1e-6)
}

func TestFiniteDiffBadOrder(t *testing.T) {
	b, m := counted()
	n := New(threeParams(t), b)

	_, err := n.GradientFiniteDiff(context.Background(), []float64{0, 0, 0}, Order(3))
	assert.ErrorIs(t, err, ErrOrder)
	assert.Equal(t, 0, calls(m))

	_, err = n.GradientFiniteDiff(context.Background(), []float64{0, 0, 0}, Which(3))
	assert.ErrorIs(t, err, ErrParamIndex)
	assert.Equal(t, 0, calls(m))
}

func TestFiniteDiffConcurrent(t *testing.T) {
	g := threeParams(t)
	params := []float64{0.1, -0.7, 1.3}

	seq, err := New(g, statevec.NewSimulator()).GradientFiniteDiff(context.Background(), params)
	require.NoError(t, err)

	b, m := counted()
	par, err := New(g, b, WithConcurrency(4)).GradientFiniteDiff(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 4, calls(m))

	if diff := cmp.Diff(seq, par, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("concurrent gradient mismatch (-seq +par):\n%s", diff)
	}
}

func TestGradientAngleExact(t *testing.T) {
	b, m := counted()
	n := New(threeParams(t), b)
	a, bb, c := 0.3, 0.4, 0.5

	grad, err := n.GradientAngle(context.Background(), []float64{a, bb, c})
	require.NoError(t, err)
	assert.Equal(t, 6, calls(m))

	want := [][]float64{
		{-math.Sin(a) * math.Cos(bb), 0},
		{-math.Cos(a) * math.Sin(bb), 0},
		{0, -math.Sin(c)},
	}
	if diff := cmp.Diff(want, grad, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("gradient mismatch (-want +got):\n%s", diff)
	}
}

func TestGradientAngleQuarterPi(t *testing.T) {
	n := New(buildGraph(t, op{name: "RX", wires: []int{0}, params: ref(0)}, expZ(0)), statevec.NewSimulator())

	grad, err := n.GradientAngle(context.Background(), []float64{math.Pi / 4})
	require.NoError(t, err)
	require.Len(t, grad, 1)
	assert.InDelta(t, -math.Sin(math.Pi/4), grad[0][0], 1e-12)
}

func TestGradientAngleSharedParameter(t *testing.T) {
	theta := 0.37
	shared := buildGraph(t,
		op{name: "RX", wires: []int{0}, params: ref(0)},
		op{name: "RX", wires: []int{0}, params: ref(0)},
		expZ(0),
	)
	split := buildGraph(t,
		op{name: "RX", wires: []int{0}, params: ref(0)},
		op{name: "RX", wires: []int{0}, params: ref(1)},
		expZ(0),
	)

	b, m := counted()
	got, err := New(shared, b).GradientAngle(context.Background(), []float64{theta})
	require.NoError(t, err)
	assert.Equal(t, 4, calls(m))
	assert.InDelta(t, -2*math.Sin(2*theta), got[0][0], 1e-12)

	parts, err := New(split, statevec.NewSimulator()).GradientAngle(context.Background(), []float64{theta, theta})
	require.NoError(t, err)
	assert.InDelta(t, parts[0][0]+parts[1][0], got[0][0], 1e-12)
}

func TestGradientAngleRestoresGraph(t *testing.T) {
	g := threeParams(t)
	before := g.Queue()
	snapshot := make([]string, len(before))
	for i, o := range before {
		snapshot[i] = o.String()
	}

	var count atomic.Int32
	errBoom := errors.New("boom")
	sim := statevec.NewSimulator()
	failing := BackendFunc(func(ctx context.Context, ops []*circuit.Operation, params []float64) ([]float64, error) {
		if count.Add(1) == 4 {
			return nil, errBoom
		}
		return sim.Execute(ctx, ops, params)
	})

	n := New(g, failing)
	_, err := n.GradientAngle(context.Background(), []float64{0.1, 0.2, 0.3})
	assert.Equal(t, errBoom, err)

	after := g.Queue()
	for i, o := range after {
		assert.Equal(t, snapshot[i], o.String())
	}
	assert.Empty(t, g.ParamDeps(g.NumParams()))
	assert.Equal(t, []int{0, 1, 2}, g.ParamIndices())

	// a later gradient sees the original circuit
	grad, err := New(g, sim).GradientAngle(context.Background(), []float64{0.1, 0.2, 0.3})
	require.NoError(t, err)
	assert.InDelta(t, -math.Sin(0.1)*math.Cos(0.2), grad[0][0], 1e-12)
}

func TestGradientAngleMultiParamGate(t *testing.T) {
	g := buildGraph(t,
		op{name: "ROT", wires: []int{0}, params: []circuit.Param{circuit.Ref(0), circuit.Value(0.1), circuit.Value(0.2)}},
		op{name: "RX", wires: []int{0}, params: ref(1)},
		expZ(0),
	)
	b, m := counted()
	n := New(g, b)

	_, err := n.GradientAngle(context.Background(), []float64{0.5, 0.6})
	assert.ErrorIs(t, err, ErrMultiParamGate)
	assert.Equal(t, 0, calls(m))

	// the other parameter is still differentiable on its own
	grad, err := n.GradientAngle(context.Background(), []float64{0.5, 0.6}, Which(1))
	require.NoError(t, err)
	require.Len(t, grad, 1)
}

func TestJacobianBest(t *testing.T) {
	angleOnly := threeParams(t)
	b, m := counted()
	_, err := New(angleOnly, b).Jacobian(context.Background(), []float64{0.1, 0.2, 0.3}, MethodBest)
	require.NoError(t, err)
	assert.Equal(t, 6, calls(m), "parameter shift expected")

	controlled := buildGraph(t,
		op{name: "H", wires: []int{0}},
		op{name: "CRX", wires: []int{0, 1}, params: ref(0)},
		expZ(1),
	)
	b, m = counted()
	grad, err := New(controlled, b).Jacobian(context.Background(), []float64{0.4}, MethodBest)
	require.NoError(t, err)
	assert.Equal(t, 2, calls(m), "finite differences expected")
	// <Z1> = (1 + cos θ)/2
	assert.InDelta(t, -math.Sin(0.4)/2, grad[0][0], 1e-5)
}

func TestVJP(t *testing.T) {
	params := []float64{0.3, 0.4, 0.5}
	n := New(threeParams(t), statevec.NewSimulator(), WithMethod(MethodAngle))

	out, err := n.Evaluate(context.Background(), params)
	require.NoError(t, err)

	// d/dθ of sum(out^2) through the cotangent 2*out
	cot := []float64{2 * out[0], 2 * out[1]}
	got, err := n.VJP(context.Background(), params, cot)
	require.NoError(t, err)

	a, b, c := params[0], params[1], params[2]
	z0 := math.Cos(a) * math.Cos(b)
	want := []float64{
		2 * z0 * -math.Sin(a) * math.Cos(b),
		2 * z0 * -math.Cos(a) * math.Sin(b),
		2 * math.Cos(c) * -math.Sin(c),
	}
	assert.InDeltaSlice(t, want, got, 1e-12)

	_, err = n.VJP(context.Background(), params, []float64{1})
	assert.ErrorIs(t, err, ErrCotangentLength)
}

func TestVJPCotangentWithoutParams(t *testing.T) {
	b, m := counted()
	n := New(buildGraph(t, op{name: "H", wires: []int{0}}, expZ(0)), b)

	_, err := n.VJP(context.Background(), nil, []float64{1, 2})
	assert.ErrorIs(t, err, ErrCotangentLength)
	assert.Equal(t, 0, calls(m))

	out, err := n.VJP(context.Background(), nil, []float64{1})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestVJPDefaultsToFiniteDiff(t *testing.T) {
	b, m := counted()
	n := New(threeParams(t), b)

	_, err := n.VJP(context.Background(), []float64{0.3, 0.4, 0.5}, []float64{1, 1})
	require.NoError(t, err)
	assert.Equal(t, 4, calls(m))
}

func TestBackendErrorPropagates(t *testing.T) {
	errDevice := errors.New("device offline")
	offline := BackendFunc(func(context.Context, []*circuit.Operation, []float64) ([]float64, error) {
		return nil, errDevice
	})
	g := threeParams(t)

	n := New(g, offline)
	_, err := n.Evaluate(context.Background(), []float64{0, 0, 0})
	assert.Equal(t, errDevice, err)
	_, err = n.GradientFiniteDiff(context.Background(), []float64{0, 0, 0}, Order(2))
	assert.Equal(t, errDevice, err)
	_, err = n.GradientAngle(context.Background(), []float64{0, 0, 0})
	assert.Equal(t, errDevice, err)

	_, err = New(g, offline, WithConcurrency(4)).GradientFiniteDiff(context.Background(), []float64{0, 0, 0}, Order(2))
	assert.ErrorIs(t, err, errDevice)
}

func TestParseMethod(t *testing.T) {
	for in, want := range map[string]Method{
		"fd":              MethodFiniteDiff,
		"finite-diff":     MethodFiniteDiff,
		"angle":           MethodAngle,
		"Parameter-Shift": MethodAngle,
		"best":            MethodBest,
	} {
		got, err := ParseMethod(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMethod("adjoint")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestRowsApplyDefaults(t *testing.T) {
	b, _ := counted()
	n := New(threeParams(t), b, WithDefaults(Which(2, 0, 2)))

	rows, err := n.Rows()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, rows)

	rows, err = n.Rows(Which())
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, rows)

	// an empty non-nil selection is not "no rows"
	rows, err = n.Rows(Which([]int{}...))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, rows)

	_, err = n.Rows(Which(3))
	assert.ErrorIs(t, err, ErrParamIndex)
}
