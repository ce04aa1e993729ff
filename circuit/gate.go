package circuit

import (
	"slices"
	"strings"
)

// Domain is the set a gate's parameters live in.
type Domain int

const (
	DomainReal    Domain = iota // 'R'
	DomainNatural               // 'N', fixed values are truncated and clamped
)

func (d Domain) String() string {
	if d == DomainNatural {
		return "N"
	}
	return "R"
}

// GradMethod is how the derivative with respect to a gate parameter is obtained.
type GradMethod int

const (
	GradNone   GradMethod = iota // not differentiable
	GradAngle                    // two-term parameter shift
	GradFinite                   // numeric finite differences
)

func (g GradMethod) String() string {
	switch g {
	case GradAngle:
		return "angle"
	case GradFinite:
		return "finite"
	default:
		return "none"
	}
}

// GateSpec describes what the graph needs to know about a gate.
type GateSpec struct {
	Name       string
	NumWires   int
	NumParams  int
	Domain     Domain
	Grad       GradMethod
	Observable bool // may be measured with Expectation, Variance or Sample
}

// standardGates is the registry Lookup consults. Controlled rotations have
// generators with three eigenvalues so the two-term shift does not apply.
var standardGates = map[string]GateSpec{
	"I":     {Name: "I", NumWires: 1, Observable: true},
	"H":     {Name: "H", NumWires: 1, Observable: true},
	"X":     {Name: "X", NumWires: 1, Observable: true},
	"Y":     {Name: "Y", NumWires: 1, Observable: true},
	"Z":     {Name: "Z", NumWires: 1, Observable: true},
	"S":     {Name: "S", NumWires: 1},
	"T":     {Name: "T", NumWires: 1},
	"RX":    {Name: "RX", NumWires: 1, NumParams: 1, Grad: GradAngle},
	"RY":    {Name: "RY", NumWires: 1, NumParams: 1, Grad: GradAngle},
	"RZ":    {Name: "RZ", NumWires: 1, NumParams: 1, Grad: GradAngle},
	"P":     {Name: "P", NumWires: 1, NumParams: 1, Grad: GradAngle},
	"ROT":   {Name: "ROT", NumWires: 1, NumParams: 3, Grad: GradFinite},
	"CX":    {Name: "CX", NumWires: 2},
	"CZ":    {Name: "CZ", NumWires: 2},
	"SWAP":  {Name: "SWAP", NumWires: 2},
	"CRX":   {Name: "CRX", NumWires: 2, NumParams: 1, Grad: GradFinite},
	"CRY":   {Name: "CRY", NumWires: 2, NumParams: 1, Grad: GradFinite},
	"CRZ":   {Name: "CRZ", NumWires: 2, NumParams: 1, Grad: GradFinite},
	"BASIS": {Name: "BASIS", NumWires: 1, NumParams: 1, Domain: DomainNatural},
}

var gateAliases = map[string]string{
	"CNOT":   "CX",
	"U1":     "P",
	"PAULIX": "X",
	"PAULIY": "Y",
	"PAULIZ": "Z",
	"ID":     "I",
}

// Lookup returns the standard gate registered under name (case-insensitive).
func Lookup(name string) (GateSpec, bool) {
	name = strings.ToUpper(name)
	if alias, ok := gateAliases[name]; ok {
		name = alias
	}
	g, ok := standardGates[name]
	return g, ok
}

// GateNames returns the registered gate names, sorted.
func GateNames() []string {
	names := make([]string, 0, len(standardGates))
	for n := range standardGates {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
