package qnode

import (
	"slices"

	"github.com/pkg/errors"
)

// DefaultStep is the finite-difference step used when none is given.
const DefaultStep = 1e-7

type gradConfig struct {
	which []int
	step  float64
	order int
}

// GradOption configures a single gradient computation.
type GradOption func(c *gradConfig)

// Which restricts the gradient to the given parameter indices. Duplicates
// are ignored and rows come back in ascending index order. Which with no
// indices selects every parameter, the same as not passing it.
func Which(indices ...int) GradOption {
	return func(c *gradConfig) {
		c.which = indices
	}
}

// Step sets the finite-difference step.
func Step(h float64) GradOption {
	return func(c *gradConfig) {
		c.step = h
	}
}

// Order selects forward (1) or central (2) finite differences.
func Order(order int) GradOption {
	return func(c *gradConfig) {
		c.order = order
	}
}

func (n *Node) gradConfig(opts []GradOption) gradConfig {
	c := gradConfig{step: DefaultStep, order: 1}
	for _, opt := range n.defaults {
		opt(&c)
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// indices resolves which against nparams: an empty selection means every
// parameter.
func (c gradConfig) indices(nparams int) ([]int, error) {
	if len(c.which) == 0 {
		out := make([]int, nparams)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	out := slices.Clone(c.which)
	slices.Sort(out)
	out = slices.Compact(out)
	for _, k := range out {
		if k < 0 || k >= nparams {
			return nil, errors.Wrapf(ErrParamIndex, "%d not in [0, %d)", k, nparams)
		}
	}
	return out, nil
}

// Rows returns the parameter index of each Jacobian row for opts, after the
// node's defaults are applied.
func (n *Node) Rows(opts ...GradOption) ([]int, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.gradConfig(opts).indices(n.graph.NumParams())
}
