package circuit

import (
	"fmt"
	"slices"
	"strings"
)

// ReturnType marks an operation as an observable and says what is measured.
type ReturnType int

const (
	ReturnNone ReturnType = iota
	Expectation
	Variance
	Sample
)

func (r ReturnType) String() string {
	switch r {
	case Expectation:
		return "expval"
	case Variance:
		return "var"
	case Sample:
		return "sample"
	default:
		return ""
	}
}

// Instruction is a raw operation as handed to Build.
type Instruction struct {
	Gate   GateSpec
	Wires  []int
	Params []Param
	Return ReturnType
}

// Operation is a validated gate application or observable inside a Graph.
type Operation struct {
	Gate   GateSpec
	Wires  []int
	Params []Param
	Return ReturnType

	queueIdx int
}

// Name is shorthand for Gate.Name.
func (o *Operation) Name() string { return o.Gate.Name }

// QueueIndex is the position the operation was declared at.
func (o *Operation) QueueIndex() int { return o.queueIdx }

// IsObservable reports whether the operation is a measurement.
func (o *Operation) IsObservable() bool { return o.Return != ReturnNone }

// NumWires is the operation's arity.
func (o *Operation) NumWires() int { return len(o.Wires) }

// Clone returns a deep copy carrying the same queue index.
func (o *Operation) Clone() *Operation {
	return &Operation{
		Gate:     o.Gate,
		Wires:    slices.Clone(o.Wires),
		Params:   slices.Clone(o.Params),
		Return:   o.Return,
		queueIdx: o.queueIdx,
	}
}

func (o *Operation) String() string {
	var sb strings.Builder
	if o.Return != ReturnNone {
		sb.WriteString(o.Return.String())
		sb.WriteString(" ")
	}
	sb.WriteString(o.Gate.Name)
	if len(o.Params) > 0 {
		ps := make([]string, len(o.Params))
		for i, p := range o.Params {
			ps[i] = p.String()
		}
		fmt.Fprintf(&sb, "(%s)", strings.Join(ps, ", "))
	}
	fmt.Fprintf(&sb, " %v", o.Wires)
	return sb.String()
}
