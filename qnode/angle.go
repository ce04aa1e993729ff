package qnode

import (
	"context"
	"math"
	"slices"

	"github.com/pkg/errors"

	"qgrad/circuit"
)

// GradientAngle differentiates the circuit with the two-term parameter
// shift. A parameter used by several operations is differentiated per use
// and the contributions are summed. Each use costs two backend calls.
//
// While a use is being shifted its operation is redirected to a temporary
// parameter index one past the last; the original is restored before the
// next use, also when the backend fails.
func (n *Node) GradientAngle(ctx context.Context, params []float64, opts ...GradOption) ([][]float64, error) {
	cfg := n.gradConfig(opts)

	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.checkParams(params); err != nil {
		return nil, err
	}
	which, err := cfg.indices(len(params))
	if err != nil {
		return nil, err
	}
	for _, k := range which {
		for _, dep := range n.graph.ParamDeps(k) {
			op, err := n.graph.Node(dep.Op)
			if err != nil {
				return nil, err
			}
			if op.Gate.NumParams != 1 {
				return nil, errors.Wrapf(ErrMultiParamGate, "p[%d] is used by %s", k, op)
			}
		}
	}

	tmp := n.graph.NumParams()
	shifted := append(slices.Clone(params), 0)
	grad := make([][]float64, len(which))

	for i, k := range which {
		for _, dep := range n.graph.ParamDeps(k) {
			d, err := n.shiftOnce(ctx, dep, tmp, shifted, params[k])
			if err != nil {
				return nil, err
			}
			if grad[i] == nil {
				grad[i] = d
				continue
			}
			if len(d) != len(grad[i]) {
				return nil, errors.Wrapf(ErrResultShape, "%d != %d", len(d), len(grad[i]))
			}
			for j := range d {
				grad[i][j] += d[j]
			}
		}
	}

	n.log.V(1).Info("parameter-shift gradient", "which", which)
	return grad, nil
}

func (n *Node) shiftOnce(ctx context.Context, dep circuit.ParamDep, tmp int, shifted []float64, value float64) ([]float64, error) {
	restore, err := n.graph.RedirectParam(dep, tmp)
	if err != nil {
		return nil, err
	}
	defer restore()

	shifted[tmp] = value + math.Pi/2
	y2, err := n.execute(ctx, shifted)
	if err != nil {
		return nil, err
	}
	shifted[tmp] = value - math.Pi/2
	y1, err := n.execute(ctx, shifted)
	if err != nil {
		return nil, err
	}
	return difference(y2, y1, 2)
}
