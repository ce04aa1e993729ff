package statevec

import (
	"math"
	"math/cmplx"

	"github.com/pkg/errors"
)

// MaxQubits bounds the register size a StateVector may be created with.
const MaxQubits = 24

var (
	ErrUnsupportedGate = errors.New("unsupported gate")
	ErrTooManyQubits   = errors.New("too many qubits")
	ErrBadBasisState   = errors.New("basis state must be 0 or 1")
)

type matrix [2][2]complex128

// StateVector is a pure n-qubit state. Qubit q is bit q of the amplitude index.
type StateVector struct {
	Amplitudes []complex128
	NumQubits  int
}

// New returns |0...0> on n qubits.
func New(n int) (*StateVector, error) {
	if n > MaxQubits {
		return nil, errors.Wrapf(ErrTooManyQubits, "%d > %d", n, MaxQubits)
	}
	amps := make([]complex128, 1<<n)
	amps[0] = 1
	return &StateVector{Amplitudes: amps, NumQubits: n}, nil
}

func (s *StateVector) Clone() *StateVector {
	amps := make([]complex128, len(s.Amplitudes))
	copy(amps, s.Amplitudes)
	return &StateVector{Amplitudes: amps, NumQubits: s.NumQubits}
}

// Apply applies gate name to wires with already resolved params. Controlled
// gates take the control first.
func (s *StateVector) Apply(name string, wires []int, params []float64) error {
	switch name {
	case "I":
	case "H":
		s.apply1(wires[0], -1, hadamard)
	case "X":
		s.applyX(wires[0], -1)
	case "Y":
		s.apply1(wires[0], -1, matrix{{0, -1i}, {1i, 0}})
	case "Z":
		s.applyPhase(wires[0], -1, -1)
	case "S":
		s.applyPhase(wires[0], -1, 1i)
	case "T":
		s.applyPhase(wires[0], -1, cmplx.Exp(complex(0, math.Pi/4)))
	case "RX":
		s.apply1(wires[0], -1, rx(params[0]))
	case "RY":
		s.apply1(wires[0], -1, ry(params[0]))
	case "RZ":
		s.apply1(wires[0], -1, rz(params[0]))
	case "P":
		s.applyPhase(wires[0], -1, cmplx.Exp(complex(0, params[0])))
	case "ROT":
		s.apply1(wires[0], -1, rz(params[0]))
		s.apply1(wires[0], -1, ry(params[1]))
		s.apply1(wires[0], -1, rz(params[2]))
	case "CX":
		s.applyX(wires[1], wires[0])
	case "CZ":
		s.applyPhase(wires[1], wires[0], -1)
	case "SWAP":
		s.applySWAP(wires[0], wires[1])
	case "CRX":
		s.apply1(wires[1], wires[0], rx(params[0]))
	case "CRY":
		s.apply1(wires[1], wires[0], ry(params[0]))
	case "CRZ":
		s.apply1(wires[1], wires[0], rz(params[0]))
	case "BASIS":
		n := params[0]
		if n != 0 && n != 1 {
			return errors.Wrapf(ErrBadBasisState, "got %g", n)
		}
		s.applyReset(wires[0])
		if n == 1 {
			s.applyX(wires[0], -1)
		}
	default:
		return errors.Wrap(ErrUnsupportedGate, name)
	}
	return nil
}

var hadamard = matrix{
	{complex(1/math.Sqrt2, 0), complex(1/math.Sqrt2, 0)},
	{complex(1/math.Sqrt2, 0), complex(-1/math.Sqrt2, 0)},
}

func rx(theta float64) matrix {
	c := complex(math.Cos(theta/2), 0)
	js := complex(0, -math.Sin(theta/2))
	return matrix{{c, js}, {js, c}}
}

func ry(theta float64) matrix {
	c := complex(math.Cos(theta/2), 0)
	sn := complex(math.Sin(theta/2), 0)
	return matrix{{c, -sn}, {sn, c}}
}

func rz(theta float64) matrix {
	phase := cmplx.Exp(complex(0, theta/2))
	return matrix{{cmplx.Conj(phase), 0}, {0, phase}}
}

// active reports whether amplitude i is affected by a gate controlled on
// ctrl; ctrl < 0 means uncontrolled.
func active(i, ctrl int) bool {
	return ctrl < 0 || i&(1<<ctrl) != 0
}

func (s *StateVector) apply1(q, ctrl int, m matrix) {
	bit := 1 << q
	for i := range s.Amplitudes {
		if i&bit != 0 || !active(i, ctrl) {
			continue
		}
		j := i | bit
		a, b := s.Amplitudes[i], s.Amplitudes[j]
		s.Amplitudes[i] = m[0][0]*a + m[0][1]*b
		s.Amplitudes[j] = m[1][0]*a + m[1][1]*b
	}
}

func (s *StateVector) applyX(q, ctrl int) {
	bit := 1 << q
	for i := range s.Amplitudes {
		if i&bit == 0 && active(i, ctrl) {
			j := i | bit
			s.Amplitudes[i], s.Amplitudes[j] = s.Amplitudes[j], s.Amplitudes[i]
		}
	}
}

// applyPhase multiplies the |1> component of q by phase.
func (s *StateVector) applyPhase(q, ctrl int, phase complex128) {
	bit := 1 << q
	for i := range s.Amplitudes {
		if i&bit != 0 && active(i, ctrl) {
			s.Amplitudes[i] *= phase
		}
	}
}

func (s *StateVector) applySWAP(q1, q2 int) {
	bit1, bit2 := 1<<q1, 1<<q2
	for i := range s.Amplitudes {
		if i&bit1 != 0 && i&bit2 == 0 {
			j := (i &^ bit1) | bit2
			s.Amplitudes[i], s.Amplitudes[j] = s.Amplitudes[j], s.Amplitudes[i]
		}
	}
}

// applyReset projects q onto |0> and renormalises. If q is certainly |1>
// the population is moved to |0> instead.
func (s *StateVector) applyReset(q int) {
	bit := 1 << q
	prob0 := 0.0
	for i, a := range s.Amplitudes {
		if i&bit == 0 {
			prob0 += real(a * cmplx.Conj(a))
		}
	}
	if prob0 < 1e-12 {
		s.applyX(q, -1)
		return
	}
	norm := complex(math.Sqrt(prob0), 0)
	for i := range s.Amplitudes {
		if i&bit == 0 {
			s.Amplitudes[i] /= norm
		} else {
			s.Amplitudes[i] = 0
		}
	}
}

// Prob1 is the probability of measuring q as 1.
func (s *StateVector) Prob1(q int) float64 {
	bit := 1 << q
	p := 0.0
	for i, a := range s.Amplitudes {
		if i&bit != 0 {
			p += real(a * cmplx.Conj(a))
		}
	}
	return p
}
