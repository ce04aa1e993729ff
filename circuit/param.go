package circuit

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Param is a gate parameter: either a fixed number or a reference to a
// free parameter supplied at evaluation time.
type Param struct {
	value float64
	ref   int
	isRef bool
}

// Value returns a fixed parameter.
func Value(v float64) Param {
	return Param{value: v}
}

// Ref returns a reference to free parameter k.
func Ref(k int) Param {
	return Param{ref: k, isRef: true}
}

// IsRef reports whether p refers to a free parameter.
func (p Param) IsRef() bool { return p.isRef }

// Index returns the referenced free parameter index. Only meaningful when IsRef.
func (p Param) Index() int { return p.ref }

// Float returns the fixed value. Only meaningful when !IsRef.
func (p Param) Float() float64 { return p.value }

// Resolve returns the numeric value of p given the free parameter values.
func (p Param) Resolve(values []float64) (float64, error) {
	if !p.IsRef() {
		return p.value, nil
	}
	if p.ref < 0 || p.ref >= len(values) {
		return 0, errors.Wrapf(ErrParamIndex, "p[%d] with %d values", p.ref, len(values))
	}
	return values[p.ref], nil
}

func (p Param) String() string {
	if p.IsRef() {
		return fmt.Sprintf("p[%d]", p.ref)
	}
	return FormatFloat(p.value)
}

// ParamPattern matches one parameter token: a reference, a number or a pi
// expression. Front ends embed it in their own line grammars.
const ParamPattern = `(?:p\[\d+\]|\$\d+|-?(?:\d*\.?\d*\*?pi(?:/\d+\.?\d*)?|\d+\.?\d*(?:[eE][+\-]?\d+)?))`

var (
	piExprRegex = regexp.MustCompile(`^(-?)(\d*\.?\d*)\s*\*?\s*pi(?:\s*/\s*(\d+\.?\d*))?$`)
	refRegex    = regexp.MustCompile(`^(?:p\[\s*(\d+)\s*\]|\$(\d+))$`)
)

// ParseParam parses "p[3]" or "$3" as references and anything else as a
// number or a pi expression ("pi/2", "-3*pi/4", "2pi").
func ParseParam(s string) (Param, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Param{}, errors.Wrap(ErrBadParam, "empty")
	}
	if m := refRegex.FindStringSubmatch(s); m != nil {
		digits := m[1]
		if digits == "" {
			digits = m[2]
		}
		k, err := strconv.Atoi(digits)
		if err != nil {
			return Param{}, errors.Wrapf(ErrBadParam, "%q", s)
		}
		return Ref(k), nil
	}
	v, ok := parseFloatExpr(s)
	if !ok {
		return Param{}, errors.Wrapf(ErrBadParam, "%q", s)
	}
	return Value(v), nil
}

func parseFloatExpr(s string) (float64, bool) {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}
	m := piExprRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	coeff := 1.0
	if m[2] != "" {
		c, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return 0, false
		}
		coeff = c
	}
	v := coeff * math.Pi
	if m[3] != "" {
		d, err := strconv.ParseFloat(m[3], 64)
		if err != nil || d == 0 {
			return 0, false
		}
		v /= d
	}
	if m[1] == "-" {
		v = -v
	}
	return v, true
}

var piForms = []struct {
	value   float64
	display string
}{
	{2 * math.Pi, "2*pi"},
	{math.Pi, "pi"},
	{math.Pi / 2, "pi/2"},
	{math.Pi / 3, "pi/3"},
	{math.Pi / 4, "pi/4"},
	{math.Pi / 6, "pi/6"},
	{math.Pi / 8, "pi/8"},
	{3 * math.Pi / 4, "3*pi/4"},
	{3 * math.Pi / 2, "3*pi/2"},
	{2 * math.Pi / 3, "2*pi/3"},
}

// FormatFloat renders v, using pi notation for common fractions.
func FormatFloat(v float64) string {
	for _, pf := range piForms {
		if math.Abs(v-pf.value) < 1e-10 {
			return pf.display
		}
		if math.Abs(v+pf.value) < 1e-10 {
			return "-" + pf.display
		}
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
