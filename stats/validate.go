package stats

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/cocosip/go-rasterstats/raster"
)

// Expected is a sparse set of expected statistics. A nil Shape, an Invalid
// DType or a nil aggregate pointer leaves that statistic unchecked.
type Expected struct {
	Shape  []int        `yaml:"shape,omitempty" json:"shape,omitempty"`
	DType  raster.DType `yaml:"dtype,omitempty" json:"dtype,omitempty"`
	Min    *float64     `yaml:"min,omitempty" json:"min,omitempty"`
	Max    *float64     `yaml:"max,omitempty" json:"max,omitempty"`
	Mean   *float64     `yaml:"mean,omitempty" json:"mean,omitempty"`
	Median *float64     `yaml:"median,omitempty" json:"median,omitempty"`
	Std    *float64     `yaml:"std,omitempty" json:"std,omitempty"`
}

// Float returns a pointer to v, for filling Expected literals
func Float(v float64) *float64 { return &v }

// value returns the expectation for s, or nil when s is not checked
func (e Expected) value(s Statistic) any {
	switch s {
	case Shape:
		if e.Shape != nil {
			return e.Shape
		}
	case DType:
		if e.DType != raster.Invalid {
			return e.DType
		}
	default:
		if p := e.aggregate(s); p != nil {
			return *p
		}
	}
	return nil
}

func (e Expected) aggregate(s Statistic) *float64 {
	switch s {
	case Min:
		return e.Min
	case Max:
		return e.Max
	case Mean:
		return e.Mean
	case Median:
		return e.Median
	case Std:
		return e.Std
	}
	return nil
}

// Empty reports whether no statistic is expected
func (e Expected) Empty() bool {
	for _, s := range All() {
		if e.value(s) != nil {
			return false
		}
	}
	return true
}

// Tolerance bounds the deviation allowed for the aggregate statistics.
// A zero component is treated as not supplied; with both zero the
// aggregates must match exactly.
type Tolerance struct {
	Relative float64 `yaml:"relative,omitempty" json:"relative,omitempty"`
	Absolute float64 `yaml:"absolute,omitempty" json:"absolute,omitempty"`
}

// Rel returns a relative tolerance
func Rel(r float64) Tolerance { return Tolerance{Relative: r} }

// Abs returns an absolute tolerance
func Abs(a float64) Tolerance { return Tolerance{Absolute: a} }

// Validate rejects negative and NaN components
func (t Tolerance) Validate() error {
	if t.Relative < 0 || math.IsNaN(t.Relative) || t.Absolute < 0 || math.IsNaN(t.Absolute) {
		return fmt.Errorf("%w: relative=%v absolute=%v", ErrInvalidTolerance, t.Relative, t.Absolute)
	}
	return nil
}

// Bound returns the allowed deviation around expected
func (t Tolerance) Bound(expected float64) float64 {
	return max(t.Absolute, t.Relative*math.Abs(expected))
}

// Within reports whether observed matches expected.
// NaN matches nothing, not even NaN, and an infinity matches only the same
// infinity.
func (t Tolerance) Within(observed, expected float64) bool {
	if math.IsNaN(observed) || math.IsNaN(expected) {
		return false
	}
	if observed == expected {
		return true
	}
	if math.IsInf(observed, 0) || math.IsInf(expected, 0) {
		return false
	}
	return math.Abs(observed-expected) <= t.Bound(expected)
}

func (t Tolerance) String() string {
	switch {
	case t.Relative == 0 && t.Absolute == 0:
		return "exact"
	case t.Relative == 0:
		return fmt.Sprintf("abs=%g", t.Absolute)
	case t.Absolute == 0:
		return fmt.Sprintf("rel=%g", t.Relative)
	}
	return fmt.Sprintf("rel=%g abs=%g", t.Relative, t.Absolute)
}

// Comparison is the outcome of checking one statistic
type Comparison struct {
	Statistic Statistic
	Expected  any
	Observed  any
	OK        bool
}

// Structural reports whether the comparison was exact by construction
func (c Comparison) Structural() bool {
	return c.Statistic.Exact()
}

func (c Comparison) String() string {
	if c.OK {
		return fmt.Sprintf("%s: %v", c.Statistic, c.Observed)
	}
	if c.Structural() {
		return fmt.Sprintf("%s: expected %v, observed %v", c.Statistic, c.Expected, c.Observed)
	}
	e, o := c.Expected.(float64), c.Observed.(float64)
	return fmt.Sprintf("%s: expected %v, observed %v (diff %g)", c.Statistic, e, o, o-e)
}

// MismatchError reports every checked statistic when at least one diverged
type MismatchError struct {
	Comparisons []Comparison
	Tolerance   Tolerance
}

// Mismatches returns the failed comparisons
func (e *MismatchError) Mismatches() []Comparison {
	var out []Comparison
	for _, c := range e.Comparisons {
		if !c.OK {
			out = append(out, c)
		}
	}
	return out
}

// Mismatched reports whether statistic s failed
func (e *MismatchError) Mismatched(s Statistic) bool {
	return slices.ContainsFunc(e.Comparisons, func(c Comparison) bool { return c.Statistic == s && !c.OK })
}

func (e *MismatchError) Error() string {
	var b strings.Builder
	bad := e.Mismatches()
	names := make([]string, len(bad))
	for i, c := range bad {
		names[i] = c.Statistic.String()
	}
	fmt.Fprintf(&b, "statistics differ from expected values (%s; tolerance %s):", strings.Join(names, ", "), e.Tolerance)
	for _, c := range e.Comparisons {
		mark := "  "
		if !c.OK {
			mark = "✗ "
		}
		b.WriteString("\n  " + mark + c.String())
	}
	return b.String()
}

// Is matches ErrStructuralMismatch and ErrStatisticMismatch by the kind of
// statistics that failed
func (e *MismatchError) Is(target error) bool {
	for _, c := range e.Comparisons {
		if c.OK {
			continue
		}
		if c.Structural() && target == ErrStructuralMismatch {
			return true
		}
		if !c.Structural() && target == ErrStatisticMismatch {
			return true
		}
	}
	return false
}

// compute is swapped by tests to observe which statistics Check evaluates
var compute = Compute

// Check computes every statistic present in expected and compares it with the
// observed value of a. Shape and dtype are compared exactly; aggregates use tol.
// It returns a *MismatchError carrying all checked statistics when any differ.
func Check(a *raster.Array, expected Expected, tol Tolerance) error {
	if a == nil {
		return ErrNilArray
	}
	if err := tol.Validate(); err != nil {
		return err
	}

	var cmps []Comparison
	failed := false
	for _, s := range All() {
		want := expected.value(s)
		if want == nil {
			continue
		}
		got := compute(a, s)
		c := Comparison{Statistic: s, Expected: want, Observed: got}
		switch s {
		case Shape:
			c.OK = slices.Equal(want.([]int), got.([]int))
		case DType:
			c.OK = want == got
		default:
			c.OK = tol.Within(got.(float64), want.(float64))
		}
		failed = failed || !c.OK
		cmps = append(cmps, c)
	}

	if !failed {
		return nil
	}
	return &MismatchError{Comparisons: cmps, Tolerance: tol}
}

// AssertMatch fails t immediately unless a matches expected within tol
func AssertMatch(t testing.TB, a *raster.Array, expected Expected, tol Tolerance) {
	t.Helper()
	if err := Check(a, expected, tol); err != nil {
		t.Fatal(err)
	}
}
