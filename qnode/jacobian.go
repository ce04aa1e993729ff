package qnode

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"qgrad/circuit"
)

// Method selects how Jacobian differentiates.
type Method int

const (
	MethodFiniteDiff Method = iota
	MethodAngle
	// MethodBest uses the parameter shift when every operation depending on
	// the selected parameters declares it, finite differences otherwise.
	MethodBest
)

var methodNames = map[Method]string{
	MethodFiniteDiff: "finite-diff",
	MethodAngle:      "angle",
	MethodBest:       "best",
}

func (m Method) String() string {
	if s, ok := methodNames[m]; ok {
		return s
	}
	return "unknown"
}

// ErrUnknownMethod is returned by ParseMethod.
var ErrUnknownMethod = errors.New("unknown gradient method")

// ParseMethod accepts the names printed by Method.String plus "fd",
// "finite" and "parameter-shift".
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "finite-diff", "fd", "finite":
		return MethodFiniteDiff, nil
	case "angle", "parameter-shift", "shift":
		return MethodAngle, nil
	case "best", "":
		return MethodBest, nil
	}
	return 0, errors.Wrapf(ErrUnknownMethod, "%q", s)
}

// Jacobian differentiates with the given method. Rows follow the resolved
// Which order, columns the observables.
func (n *Node) Jacobian(ctx context.Context, params []float64, m Method, opts ...GradOption) ([][]float64, error) {
	if m == MethodBest {
		m = n.bestMethod(n.gradConfig(opts))
	}
	switch m {
	case MethodFiniteDiff:
		return n.GradientFiniteDiff(ctx, params, opts...)
	case MethodAngle:
		return n.GradientAngle(ctx, params, opts...)
	}
	return nil, errors.Wrapf(ErrUnknownMethod, "%d", int(m))
}

func (n *Node) bestMethod(cfg gradConfig) Method {
	n.mu.RLock()
	defer n.mu.RUnlock()

	which, err := cfg.indices(n.graph.NumParams())
	if err != nil {
		// let the chosen method report it
		return MethodFiniteDiff
	}
	for _, k := range which {
		for _, dep := range n.graph.ParamDeps(k) {
			op, err := n.graph.Node(dep.Op)
			if err != nil || op.Gate.Grad != circuit.GradAngle || op.Gate.NumParams != 1 {
				return MethodFiniteDiff
			}
		}
	}
	return MethodAngle
}

// Primitive is a differentiable function of the free parameters as seen by
// an automatic differentiation framework: a forward pass and a
// vector-Jacobian product.
type Primitive interface {
	Evaluate(ctx context.Context, params []float64) ([]float64, error)
	VJP(ctx context.Context, params, cotangent []float64) ([]float64, error)
}

var _ Primitive = (*Node)(nil)

// VJP returns the vector-Jacobian product g·J over all parameters:
// out[i] = sum_j cotangent[j] * d(result[j])/d(params[i]).
func (n *Node) VJP(ctx context.Context, params, cotangent []float64) ([]float64, error) {
	n.mu.RLock()
	outputs := len(n.graph.ObservablesInOrder())
	n.mu.RUnlock()
	if len(cotangent) != outputs {
		return nil, errors.Wrapf(ErrCotangentLength, "got %d, output has %d", len(cotangent), outputs)
	}

	jac, err := n.Jacobian(ctx, params, n.method, Which())
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(jac))
	for i, row := range jac {
		for j, g := range cotangent {
			out[i] += g * row[j]
		}
	}
	return out, nil
}
