// Package qasm reads and writes circuits in an OpenQASM 2.0 flavoured
// text format extended with symbolic parameters and observables:
//
//	rx(p[0]) q[0];
//	crz(pi/4) q[0], q[1];
//	expval(z) q[1];
//	var(x) q[0];
//	sample(z) q[2];
package qasm

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"qgrad/circuit"
)

// ErrSyntax is returned for lines that match no statement form.
var ErrSyntax = errors.New("syntax error")

// Pre-compiled regexps for line parsing.
var (
	gateRegex = regexp.MustCompile(`^(\w+)\s*(?:\(\s*(` + circuit.ParamPattern +
		`(?:\s*,\s*` + circuit.ParamPattern + `)*)\s*\))?\s+(q\[\d+\](?:\s*,\s*q\[\d+\])*)\s*;?$`)
	observableRegex = regexp.MustCompile(`^(expval|var|sample)\s*\(\s*(\w+)\s*\)\s+(q\[\d+\])\s*;?$`)
	qubitRegex      = regexp.MustCompile(`q\[(\d+)\]`)
)

var returnKinds = map[string]circuit.ReturnType{
	"expval": circuit.Expectation,
	"var":    circuit.Variance,
	"sample": circuit.Sample,
}

// Parse reads text into instructions in declaration order. Headers,
// register declarations, barriers and comments are skipped. All bad lines
// are reported together.
func Parse(text string) ([]circuit.Instruction, error) {
	var (
		out  []circuit.Instruction
		errs error
	)
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if skipLine(line) {
			continue
		}
		in, err := parseLine(line)
		if err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "line %d", i+1))
			continue
		}
		out = append(out, in)
	}
	if errs != nil {
		return nil, errs
	}
	return out, nil
}

func skipLine(line string) bool {
	if line == "" || strings.HasPrefix(line, "//") {
		return true
	}
	for _, prefix := range []string{"OPENQASM", "include", "qreg", "creg", "barrier"} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

func parseLine(line string) (circuit.Instruction, error) {
	if m := observableRegex.FindStringSubmatch(line); m != nil {
		spec, err := lookup(m[2])
		if err != nil {
			return circuit.Instruction{}, err
		}
		wires, err := qubits(m[3])
		if err != nil {
			return circuit.Instruction{}, err
		}
		return circuit.Instruction{
			Gate:   spec,
			Wires:  wires,
			Return: returnKinds[m[1]],
		}, nil
	}

	m := gateRegex.FindStringSubmatch(line)
	if m == nil {
		return circuit.Instruction{}, errors.Wrapf(ErrSyntax, "%q", line)
	}
	spec, err := lookup(m[1])
	if err != nil {
		return circuit.Instruction{}, err
	}
	var params []circuit.Param
	if m[2] != "" {
		for _, s := range strings.Split(m[2], ",") {
			p, err := circuit.ParseParam(s)
			if err != nil {
				return circuit.Instruction{}, err
			}
			params = append(params, p)
		}
	}
	wires, err := qubits(m[3])
	if err != nil {
		return circuit.Instruction{}, err
	}
	return circuit.Instruction{Gate: spec, Wires: wires, Params: params}, nil
}

func lookup(name string) (circuit.GateSpec, error) {
	spec, ok := circuit.Lookup(name)
	if !ok {
		return circuit.GateSpec{}, errors.Wrapf(circuit.ErrUnknownGate, "%q", name)
	}
	return spec, nil
}

func qubits(s string) ([]int, error) {
	var wires []int
	for _, m := range qubitRegex.FindAllStringSubmatch(s, -1) {
		q, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, errors.Wrapf(ErrSyntax, "qubit q[%s]: %v", m[1], err)
		}
		wires = append(wires, q)
	}
	return wires, nil
}

// Format writes ops in the dialect Parse reads, with a header declaring
// enough qubits for the highest wire.
func Format(ops []*circuit.Operation) string {
	n := 0
	for _, op := range ops {
		if len(op.Wires) > 0 {
			n = max(n, slices.Max(op.Wires)+1)
		}
	}

	var sb strings.Builder
	sb.WriteString("OPENQASM 2.0;\n")
	sb.WriteString("include \"qelib1.inc\";\n\n")
	fmt.Fprintf(&sb, "qreg q[%d];\n\n", n)
	for _, op := range ops {
		sb.WriteString(FormatOperation(op))
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatOperation renders a single statement.
func FormatOperation(op *circuit.Operation) string {
	wires := make([]string, len(op.Wires))
	for i, w := range op.Wires {
		wires[i] = fmt.Sprintf("q[%d]", w)
	}
	name := strings.ToLower(op.Name())
	if op.IsObservable() {
		return fmt.Sprintf("%s(%s) %s;", op.Return, name, strings.Join(wires, ", "))
	}
	if len(op.Params) == 0 {
		return fmt.Sprintf("%s %s;", name, strings.Join(wires, ", "))
	}
	params := make([]string, len(op.Params))
	for i, p := range op.Params {
		params[i] = p.String()
	}
	return fmt.Sprintf("%s(%s) %s;", name, strings.Join(params, ", "), strings.Join(wires, ", "))
}
