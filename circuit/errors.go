package circuit

import "github.com/pkg/errors"

var (
	// ErrParamCount is returned when an instruction carries a different number
	// of parameters than its gate declares.
	ErrParamCount = errors.New("parameter count mismatch")
	// ErrWireCount is returned when an instruction acts on a different number
	// of wires than its gate declares.
	ErrWireCount = errors.New("wire count mismatch")
	// ErrDuplicateWire is returned when an instruction names the same wire twice.
	ErrDuplicateWire = errors.New("duplicate wire")
	// ErrAmbiguousParams is returned when the referenced parameter indices do
	// not form a dense range starting at zero.
	ErrAmbiguousParams = errors.New("parameter indices ambiguous")
	// ErrWireMismatch is returned by UpdateNode when the replacement does not
	// act on the same wires as the node it replaces.
	ErrWireMismatch = errors.New("replacement acts on different wires")
	// ErrUnknownNode is returned for a NodeID outside the arena.
	ErrUnknownNode = errors.New("unknown node")
	// ErrParamIndex is returned when a parameter reference cannot be resolved.
	ErrParamIndex = errors.New("parameter index out of range")
	// ErrUnknownGate is returned by Lookup callers for names missing from the registry.
	ErrUnknownGate = errors.New("unknown gate")
	// ErrBadParam is returned by ParseParam for unparseable input.
	ErrBadParam = errors.New("invalid parameter expression")
	// ErrNotObservable is returned when a gate without observable support is measured.
	ErrNotObservable = errors.New("gate cannot be used as an observable")
)
