// Package qnode evaluates a circuit graph on a backend and differentiates
// the result with respect to the circuit's free parameters.
package qnode

import (
	"context"
	"sync"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"qgrad/circuit"
)

var (
	// ErrOrder is returned for finite-difference orders other than 1 and 2.
	ErrOrder = errors.New("order must be 1 or 2")
	// ErrMultiParamGate is returned when the parameter shift is asked to
	// differentiate a gate with more than one parameter.
	ErrMultiParamGate = errors.New("can only differentiate one-parameter gates")
	// ErrParamIndex is returned when a requested parameter index is out of range.
	ErrParamIndex = errors.New("parameter index out of range")
	// ErrParamLength is returned when the number of values does not match the circuit.
	ErrParamLength = errors.New("wrong number of parameter values")
	// ErrCotangentLength is returned when a cotangent does not match the output size.
	ErrCotangentLength = errors.New("cotangent length does not match output")
	// ErrResultShape is returned when backend results change length between calls.
	ErrResultShape = errors.New("backend result length changed")
)

// Backend executes an operation queue with concrete values for the free
// parameters and returns one number per observable, in queue order.
type Backend interface {
	Execute(ctx context.Context, ops []*circuit.Operation, params []float64) ([]float64, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, ops []*circuit.Operation, params []float64) ([]float64, error)

func (f BackendFunc) Execute(ctx context.Context, ops []*circuit.Operation, params []float64) ([]float64, error) {
	return f(ctx, ops, params)
}

// Option configures a Node.
type Option func(n *Node)

// WithLogr sets the node's logger.
func WithLogr(log logr.Logger) Option {
	return func(n *Node) {
		n.log = log
	}
}

// WithMethod sets the method VJP differentiates with. The default is
// MethodFiniteDiff.
func WithMethod(m Method) Option {
	return func(n *Node) {
		n.method = m
	}
}

// WithConcurrency lets finite differences run up to limit backend calls at
// once. Values below 2 keep evaluation sequential.
func WithConcurrency(limit int) Option {
	return func(n *Node) {
		n.concurrency = limit
	}
}

// WithDefaults sets the gradient options applied before per-call options.
func WithDefaults(opts ...GradOption) Option {
	return func(n *Node) {
		n.defaults = append(n.defaults, opts...)
	}
}

// Node binds a circuit graph to a backend.
//
// The parameter shift temporarily rewrites graph nodes, so it holds the
// write lock; evaluations and finite differences share the read lock.
type Node struct {
	log         logr.Logger
	method      Method
	concurrency int
	defaults    []GradOption

	mu      sync.RWMutex
	graph   *circuit.Graph
	backend Backend
}

// New returns a Node evaluating g on backend.
func New(g *circuit.Graph, backend Backend, opts ...Option) *Node {
	n := &Node{
		log:     logr.Discard(),
		method:  MethodFiniteDiff,
		graph:   g,
		backend: backend,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Graph returns the underlying circuit graph.
func (n *Node) Graph() *circuit.Graph { return n.graph }

// Evaluate runs the circuit with params as the free parameter values.
func (n *Node) Evaluate(ctx context.Context, params []float64) ([]float64, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if err := n.checkParams(params); err != nil {
		return nil, err
	}
	return n.execute(ctx, params)
}

func (n *Node) checkParams(params []float64) error {
	if len(params) != n.graph.NumParams() {
		return errors.Wrapf(ErrParamLength, "got %d, circuit has %d", len(params), n.graph.NumParams())
	}
	return nil
}

// execute must be called with n.mu held.
func (n *Node) execute(ctx context.Context, params []float64) ([]float64, error) {
	out, err := n.backend.Execute(ctx, n.graph.Queue(), params)
	if err != nil {
		return nil, err
	}
	n.log.V(1).Info("evaluated", "params", params, "result", out)
	return out, nil
}
