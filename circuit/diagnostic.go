package circuit

import "fmt"

// Level is the severity of a Diagnostic.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
)

func (l Level) String() string {
	if l == LevelWarning {
		return "warning"
	}
	return "info"
}

// DiagCode identifies the kind of adjustment Build made.
type DiagCode string

const (
	DiagTruncated     DiagCode = "truncated"      // non-integral value in a natural-number domain
	DiagClamped       DiagCode = "clamped"        // negative value in a natural-number domain
	DiagRemapped      DiagCode = "remapped"       // wire ids replaced by 0..n-1
	DiagNegativeIndex DiagCode = "negative-index" // index set contains negatives
	DiagUnusedIndices DiagCode = "unused-indices" // index set has gaps
	DiagSparseIndices DiagCode = "sparse-indices" // more than maxUnused gaps
)

// Diagnostic records a non-fatal adjustment made while building a graph.
// Op is the queue index of the instruction concerned, or -1 for circuit-wide notes.
type Diagnostic struct {
	Level   Level
	Code    DiagCode
	Op      int
	Message string
}

func (d Diagnostic) String() string {
	if d.Op < 0 {
		return fmt.Sprintf("%s: %s", d.Level, d.Message)
	}
	return fmt.Sprintf("%s: op %d: %s", d.Level, d.Op, d.Message)
}
