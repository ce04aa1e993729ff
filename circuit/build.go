package circuit

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// maxUnused is how many gaps an index set may have before it is reported
// as sparse rather than merely incomplete.
const maxUnused = 10

// Option configures a Graph at build time.
type Option func(g *Graph)

// WithLogr sets the logger coercions and remaps are reported to.
func WithLogr(log logr.Logger) Option {
	return func(g *Graph) {
		g.log = log
	}
}

// WithName names the circuit in logs and renderings.
func WithName(name string) Option {
	return func(g *Graph) {
		g.name = name
	}
}

// Build validates instrs, assigns queue indices in declaration order and
// returns the dependency graph. Every invalid instruction is reported in
// the returned error, not only the first.
func Build(instrs []Instruction, opts ...Option) (*Graph, error) {
	g := &Graph{
		log:  logr.Discard(),
		grid: make(map[int][]NodeID),
		deps: make(map[int][]ParamDep),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.name != "" {
		g.log = g.log.WithValues("circuit", g.name)
	}

	var errs error
	ops := make([]*Operation, 0, len(instrs))
	for i, in := range instrs {
		op, err := g.newOperation(i, in)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		ops = append(ops, op)
	}
	if errs != nil {
		return nil, errs
	}

	g.remapWires(ops)
	if err := g.collectParams(ops); err != nil {
		return nil, err
	}

	g.ops = ops
	g.succ = make([][]NodeID, len(ops))
	g.pred = make([][]NodeID, len(ops))
	for _, op := range ops {
		id := NodeID(op.queueIdx)
		for _, w := range op.Wires {
			g.grid[w] = append(g.grid[w], id)
		}
	}
	for _, ids := range g.grid {
		for i := 1; i < len(ids); i++ {
			g.addEdge(ids[i-1], ids[i])
		}
	}

	g.log.V(1).Info("built circuit graph", "ops", len(ops), "wires", len(g.grid), "params", g.numParams)
	return g, nil
}

func (g *Graph) newOperation(idx int, in Instruction) (*Operation, error) {
	var errs error
	spec := in.Gate
	if len(in.Params) != spec.NumParams {
		errs = multierr.Append(errs, errors.Wrapf(ErrParamCount,
			"op %d (%s): %d given, %d expected", idx, spec.Name, len(in.Params), spec.NumParams))
	}
	if len(in.Wires) != spec.NumWires {
		errs = multierr.Append(errs, errors.Wrapf(ErrWireCount,
			"op %d (%s): %d given, %d expected", idx, spec.Name, len(in.Wires), spec.NumWires))
	}
	seen := make(map[int]struct{}, len(in.Wires))
	for _, w := range in.Wires {
		if _, dup := seen[w]; dup {
			errs = multierr.Append(errs, errors.Wrapf(ErrDuplicateWire, "op %d (%s): wire %d", idx, spec.Name, w))
			break
		}
		seen[w] = struct{}{}
	}
	if in.Return != ReturnNone && !spec.Observable {
		errs = multierr.Append(errs, errors.Wrapf(ErrNotObservable, "op %d (%s)", idx, spec.Name))
	}
	if errs != nil {
		return nil, errs
	}

	op := &Operation{
		Gate:     spec,
		Wires:    slices.Clone(in.Wires),
		Params:   slices.Clone(in.Params),
		Return:   in.Return,
		queueIdx: idx,
	}
	if spec.Domain == DomainNatural {
		g.coerceNatural(op)
	}
	return op, nil
}

// coerceNatural truncates and clamps fixed parameters of a natural-number gate.
func (g *Graph) coerceNatural(op *Operation) {
	for i, p := range op.Params {
		if p.IsRef() {
			continue
		}
		v := p.Float()
		if t := math.Trunc(v); t != v {
			g.note(Diagnostic{
				Level:   LevelWarning,
				Code:    DiagTruncated,
				Op:      op.queueIdx,
				Message: fmt.Sprintf("%s: parameter %d truncated from %g to %g", op.Gate.Name, i, v, t),
			})
			v = t
		}
		if v < 0 {
			g.note(Diagnostic{
				Level:   LevelWarning,
				Code:    DiagClamped,
				Op:      op.queueIdx,
				Message: fmt.Sprintf("%s: parameter %d clamped from %g to 0", op.Gate.Name, i, v),
			})
			v = 0
		}
		op.Params[i] = Value(v)
	}
}

// remapWires replaces the wire ids with 0..n-1, preserving their order,
// whenever the used ids are not already that range.
func (g *Graph) remapWires(ops []*Operation) {
	used := make(map[int]struct{})
	for _, op := range ops {
		for _, w := range op.Wires {
			used[w] = struct{}{}
		}
	}
	ok, notes := checkIndices(used, "subsystem")
	for _, d := range notes {
		g.note(d)
	}
	if ok {
		return
	}

	sorted := sortedKeys(used)
	remap := make(map[int]int, len(sorted))
	for i, w := range sorted {
		remap[w] = i
	}
	for _, op := range ops {
		for i, w := range op.Wires {
			op.Wires[i] = remap[w]
		}
	}
	g.note(Diagnostic{
		Level:   LevelInfo,
		Code:    DiagRemapped,
		Op:      -1,
		Message: fmt.Sprintf("subsystem indices remapped: %v -> 0..%d", sorted, len(sorted)-1),
	})
}

// collectParams builds the free-parameter dependency map in queue order.
func (g *Graph) collectParams(ops []*Operation) error {
	used := make(map[int]struct{})
	for _, op := range ops {
		for slot, p := range op.Params {
			if !p.IsRef() {
				continue
			}
			used[p.Index()] = struct{}{}
			g.deps[p.Index()] = append(g.deps[p.Index()], ParamDep{Op: NodeID(op.queueIdx), Slot: slot})
		}
	}
	ok, notes := checkIndices(used, "parameter")
	if !ok {
		msgs := make([]string, len(notes))
		for i, d := range notes {
			msgs[i] = d.Message
		}
		return errors.Wrap(ErrAmbiguousParams, strings.Join(msgs, "; "))
	}
	g.numParams = len(used)
	return nil
}

// checkIndices reports whether set is exactly {0..n-1}, with notes
// describing why not.
func checkIndices(set map[int]struct{}, what string) (bool, []Diagnostic) {
	if len(set) == 0 {
		return true, nil
	}
	var notes []Diagnostic
	warn := func(code DiagCode, format string, args ...any) {
		notes = append(notes, Diagnostic{Level: LevelWarning, Code: code, Op: -1, Message: fmt.Sprintf(format, args...)})
	}

	sorted := sortedKeys(set)
	ok := true
	if sorted[0] < 0 {
		warn(DiagNegativeIndex, "negative %s indices: %v", what, sorted)
		ok = false
	}
	n := sorted[len(sorted)-1] + 1
	if n > len(sorted)+maxUnused {
		warn(DiagSparseIndices, "more than %d unused %s indices", maxUnused, what)
		return false, notes
	}
	var unused []int
	for i := 0; i < n; i++ {
		if _, in := set[i]; !in {
			unused = append(unused, i)
		}
	}
	if len(unused) > 0 {
		warn(DiagUnusedIndices, "unused %s indices: %v", what, unused)
		ok = false
	}
	return ok, notes
}

func sortedKeys(set map[int]struct{}) []int {
	keys := make([]int, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (g *Graph) note(d Diagnostic) {
	g.diags = append(g.diags, d)
	g.log.Info(d.Message, "level", d.Level.String(), "code", string(d.Code), "op", d.Op)
}
