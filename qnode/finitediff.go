package qnode

import (
	"context"
	"slices"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// GradientFiniteDiff differentiates the circuit numerically. Row i of the
// result is the derivative of the output vector with respect to parameter
// which[i].
//
// Order 1 costs 1+len(which) backend calls, order 2 costs 2*len(which).
func (n *Node) GradientFiniteDiff(ctx context.Context, params []float64, opts ...GradOption) ([][]float64, error) {
	cfg := n.gradConfig(opts)
	if cfg.order != 1 && cfg.order != 2 {
		return nil, errors.Wrapf(ErrOrder, "got %d", cfg.order)
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	if err := n.checkParams(params); err != nil {
		return nil, err
	}
	which, err := cfg.indices(len(params))
	if err != nil {
		return nil, err
	}
	h := cfg.step
	grad := make([][]float64, len(which))

	shifted := func(k int, delta float64) []float64 {
		p := slices.Clone(params)
		p[k] += delta
		return p
	}

	switch cfg.order {
	case 1:
		y0, err := n.execute(ctx, params)
		if err != nil {
			return nil, err
		}
		err = n.fanOut(ctx, len(which), func(ctx context.Context, i int) error {
			y, err := n.execute(ctx, shifted(which[i], h))
			if err != nil {
				return err
			}
			grad[i], err = difference(y, y0, h)
			return err
		})
		if err != nil {
			return nil, err
		}
	case 2:
		err := n.fanOut(ctx, len(which), func(ctx context.Context, i int) error {
			k := which[i]
			y2, err := n.execute(ctx, shifted(k, h/2))
			if err != nil {
				return err
			}
			y1, err := n.execute(ctx, shifted(k, -h/2))
			if err != nil {
				return err
			}
			grad[i], err = difference(y2, y1, h)
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	n.log.V(1).Info("finite-difference gradient", "order", cfg.order, "step", h, "which", which)
	return grad, nil
}

// fanOut calls fn for 0..count-1, concurrently when the node allows it.
// Each call owns index i of whatever it writes to.
func (n *Node) fanOut(ctx context.Context, count int, fn func(ctx context.Context, i int) error) error {
	if n.concurrency < 2 {
		for i := range count {
			if err := fn(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(n.concurrency)
	for i := range count {
		g.Go(func() error {
			return fn(ctx, i)
		})
	}
	return g.Wait()
}

// difference returns (a-b)/h.
func difference(a, b []float64, h float64) ([]float64, error) {
	if len(a) != len(b) {
		return nil, errors.Wrapf(ErrResultShape, "%d != %d", len(a), len(b))
	}
	out := make([]float64, len(a))
	for j := range a {
		out[j] = (a[j] - b[j]) / h
	}
	return out, nil
}
