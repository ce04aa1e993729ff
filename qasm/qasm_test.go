package qasm

import (
	"errors"
	"math"
	"strings"
	"testing"

	"qgrad/circuit"
)

func TestParse(t *testing.T) {
	text := `OPENQASM 2.0;
include "qelib1.inc";

qreg q[3];
creg c[3];

// variational block
h q[0];
rx(p[0]) q[0];
cx q[0], q[1];
crz(pi/4) q[1], q[2];
rot(p[1], -pi/2, 0.25) q[2];
barrier q;

expval(z) q[0];
var(x) q[1];
sample(z) q[2];`

	instrs, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(instrs) != 8 {
		t.Fatalf("expected 8 instructions, got %d", len(instrs))
	}

	want := []struct {
		name  string
		wires []int
		ret   circuit.ReturnType
	}{
		{"H", []int{0}, circuit.ReturnNone},
		{"RX", []int{0}, circuit.ReturnNone},
		{"CX", []int{0, 1}, circuit.ReturnNone},
		{"CRZ", []int{1, 2}, circuit.ReturnNone},
		{"ROT", []int{2}, circuit.ReturnNone},
		{"Z", []int{0}, circuit.Expectation},
		{"X", []int{1}, circuit.Variance},
		{"Z", []int{2}, circuit.Sample},
	}
	for i, w := range want {
		got := instrs[i]
		if got.Gate.Name != w.name || got.Return != w.ret {
			t.Errorf("instr %d: expected %s/%v, got %s/%v", i, w.name, w.ret, got.Gate.Name, got.Return)
		}
		if len(got.Wires) != len(w.wires) {
			t.Errorf("instr %d: expected wires %v, got %v", i, w.wires, got.Wires)
			continue
		}
		for j := range w.wires {
			if got.Wires[j] != w.wires[j] {
				t.Errorf("instr %d: expected wires %v, got %v", i, w.wires, got.Wires)
			}
		}
	}

	rx := instrs[1].Params[0]
	if !rx.IsRef() || rx.Index() != 0 {
		t.Errorf("rx: expected p[0], got %s", rx)
	}
	crz := instrs[3].Params[0]
	if crz.IsRef() || math.Abs(crz.Float()-math.Pi/4) > 1e-12 {
		t.Errorf("crz: expected pi/4, got %s", crz)
	}
	rot := instrs[4].Params
	if len(rot) != 3 || !rot[0].IsRef() || rot[0].Index() != 1 ||
		math.Abs(rot[1].Float()+math.Pi/2) > 1e-12 || rot[2].Float() != 0.25 {
		t.Errorf("rot: unexpected params %v", rot)
	}

	if _, err := circuit.Build(instrs); err != nil {
		t.Errorf("Build error: %v", err)
	}
}

func TestParseErrors(t *testing.T) {
	text := `h q[0];
frobnicate q[0];
rx(theta) q[0];
measure q[0] -> c[0];
expval(rx) q[0];`

	_, err := Parse(text)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, circuit.ErrUnknownGate) {
		t.Errorf("expected ErrUnknownGate in %v", err)
	}
	if !errors.Is(err, ErrSyntax) {
		t.Errorf("expected ErrSyntax in %v", err)
	}
	for _, line := range []string{"line 2", "line 3", "line 4"} {
		if !strings.Contains(err.Error(), line) {
			t.Errorf("expected %q in %v", line, err)
		}
	}
	// expval(rx) parses; Build rejects it because RX is not an observable.
	if strings.Contains(err.Error(), "line 5") {
		t.Errorf("line 5 should parse: %v", err)
	}
}

func TestParseQubitOverflow(t *testing.T) {
	for _, text := range []string{
		"h q[99999999999999999999];",
		"expval(z) q[99999999999999999999];",
	} {
		_, err := Parse(text)
		if !errors.Is(err, ErrSyntax) {
			t.Errorf("Parse(%q): expected ErrSyntax, got %v", text, err)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	text := `h q[0];
ry(p[0]) q[1];
cz q[1], q[0];
p(3*pi/4) q[0];
rz(-0.125) q[1];
basis(1) q[2];
expval(h) q[0];
var(y) q[1];`

	instrs, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	g, err := circuit.Build(instrs)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	out := Format(g.Queue())
	if !strings.Contains(out, "qreg q[3];") {
		t.Errorf("expected qreg q[3] in:\n%s", out)
	}

	again, err := Parse(out)
	if err != nil {
		t.Fatalf("re-parse error: %v\n%s", err, out)
	}
	g2, err := circuit.Build(again)
	if err != nil {
		t.Fatalf("re-build error: %v", err)
	}
	if got, want := Format(g2.Queue()), out; got != want {
		t.Errorf("round trip mismatch:\n--- first\n%s\n--- second\n%s", want, got)
	}

	for _, stmt := range []string{"p(3*pi/4) q[0];", "ry(p[0]) q[1];", "rz(-0.125) q[1];", "expval(h) q[0];", "var(y) q[1];"} {
		if !strings.Contains(out, stmt) {
			t.Errorf("expected %q in:\n%s", stmt, out)
		}
	}
}
