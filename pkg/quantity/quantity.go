// Package quantity implements exact arithmetic over the CPU and memory
// quantities used throughout the fleet manager: milli-cores and bytes,
// represented as int64 so that totals and comparisons are never subject to
// floating point drift.
package quantity

import (
	"fmt"

	"k8s.io/apimachinery/pkg/api/resource"
)

// Dimension identifies which resource a Quantity measures.
type Dimension int

const (
	// CPU quantities are stored internally as milli-cores.
	CPU Dimension = iota
	// Memory quantities are stored internally as bytes.
	Memory
)

func (d Dimension) String() string {
	switch d {
	case CPU:
		return "cpu"
	case Memory:
		return "memory"
	default:
		return "unknown"
	}
}

// Quantity is a non-negative rational value in a fixed dimension. CPU is
// held in milli-cores, memory in bytes, both as exact int64 counts.
type Quantity struct {
	dimension Dimension
	raw       int64
}

// InvalidQuantity is returned when a string cannot be parsed as a CPU or
// memory quantity: an unrecognized suffix, a non-numeric prefix, or a
// negative value.
type InvalidQuantity struct {
	Input     string
	Dimension Dimension
	Err       error
}

func (e *InvalidQuantity) Error() string {
	return fmt.Sprintf("invalid %s quantity %q: %s", e.Dimension, e.Input, e.Err)
}

func (e *InvalidQuantity) Unwrap() error {
	return e.Err
}

// Zero returns the zero-valued Quantity for the given dimension.
func Zero(dimension Dimension) Quantity {
	return Quantity{dimension: dimension}
}

// Dimension reports which resource this Quantity measures.
func (q Quantity) Dimension() Dimension {
	return q.dimension
}

// MilliValue returns the raw milli-core count. Only meaningful for CPU
// quantities.
func (q Quantity) MilliValue() int64 {
	return q.raw
}

// Value returns the raw byte count. Only meaningful for memory quantities.
func (q Quantity) Value() int64 {
	return q.raw
}

// IsZero reports whether the quantity is exactly zero.
func (q Quantity) IsZero() bool {
	return q.raw == 0
}

// Add returns the sum of two quantities of the same dimension. Adding
// quantities of different dimensions panics: it is always a programming
// error, never a runtime condition the caller should recover from.
func (q Quantity) Add(other Quantity) Quantity {
	q.mustMatch(other)
	return Quantity{dimension: q.dimension, raw: q.raw + other.raw}
}

// Sub returns q minus other, floored at zero: quantities never go negative.
func (q Quantity) Sub(other Quantity) Quantity {
	q.mustMatch(other)
	diff := q.raw - other.raw
	if diff < 0 {
		diff = 0
	}
	return Quantity{dimension: q.dimension, raw: diff}
}

// Cmp returns -1, 0, or 1 as q is less than, equal to, or greater than other.
func (q Quantity) Cmp(other Quantity) int {
	q.mustMatch(other)
	switch {
	case q.raw < other.raw:
		return -1
	case q.raw > other.raw:
		return 1
	default:
		return 0
	}
}

// LessThan reports whether q is strictly less than other.
func (q Quantity) LessThan(other Quantity) bool {
	return q.Cmp(other) < 0
}

// GreaterThanOrEqual reports whether q is greater than or equal to other.
func (q Quantity) GreaterThanOrEqual(other Quantity) bool {
	return q.Cmp(other) >= 0
}

// MulRational scales the quantity by num/den, rounding up, using integer
// arithmetic throughout so the result is exact for the rationals this
// package deals in (milli-cores and bytes scaled by small integer ratios).
func (q Quantity) MulRational(num, den int64) Quantity {
	if den <= 0 {
		panic("quantity: MulRational requires a positive denominator")
	}
	scaled := ceilDivInt64(q.raw*num, den)
	return Quantity{dimension: q.dimension, raw: scaled}
}

func (q Quantity) mustMatch(other Quantity) {
	if q.dimension != other.dimension {
		panic(fmt.Sprintf("quantity: dimension mismatch: %s vs %s", q.dimension, other.dimension))
	}
}

// CeilDiv returns the number of whole b-sized units needed to cover a,
// rounded up. It is the primitive behind translating aggregate resource
// demand into a count of uniformly sized nodes. A zero or negative divisor
// is a programming error in every call site in this codebase, so it panics
// rather than returning an ambiguous sentinel.
func CeilDiv(a, b Quantity) int64 {
	a.mustMatch(b)
	if b.raw <= 0 {
		panic("quantity: CeilDiv requires a positive divisor")
	}
	if a.raw <= 0 {
		return 0
	}
	return ceilDivInt64(a.raw, b.raw)
}

func ceilDivInt64(a, b int64) int64 {
	return (a + b - 1) / b
}

// FloorDiv returns how many whole b-sized units fit within a, rounded
// down. Used by the capacity planner's size-allocation step to compute how
// many full nodes of a given size a chunk of demand fills before the
// remainder cascades to the next size down.
func FloorDiv(a, b Quantity) int64 {
	a.mustMatch(b)
	if b.raw <= 0 {
		panic("quantity: FloorDiv requires a positive divisor")
	}
	if a.raw <= 0 {
		return 0
	}
	return a.raw / b.raw
}

// ScaleByInt multiplies a quantity by an integer scalar, exactly.
func (q Quantity) ScaleByInt(n int64) Quantity {
	return Quantity{dimension: q.dimension, raw: q.raw * n}
}

// ParseCPU parses a CPU quantity string in either decimal-core form
// ("2", "0.5") or milli-core form ("500m"). Numeric and suffix validation
// is delegated to apimachinery's resource.Quantity parser; this package
// owns only the reduction to an exact milli-core int64.
func ParseCPU(s string) (Quantity, error) {
	q, err := resource.ParseQuantity(s)
	if err != nil {
		return Quantity{}, &InvalidQuantity{Input: s, Dimension: CPU, Err: err}
	}
	if q.Sign() < 0 {
		return Quantity{}, &InvalidQuantity{Input: s, Dimension: CPU, Err: fmt.Errorf("quantity must be non-negative")}
	}
	return Quantity{dimension: CPU, raw: q.MilliValue()}, nil
}

// ParseMemory parses a memory quantity string in bare-byte form ("1500"),
// decimal SI form ("2G"), or binary SI form ("2.5Gi", "1500Mi").
func ParseMemory(s string) (Quantity, error) {
	q, err := resource.ParseQuantity(s)
	if err != nil {
		return Quantity{}, &InvalidQuantity{Input: s, Dimension: Memory, Err: err}
	}
	if q.Sign() < 0 {
		return Quantity{}, &InvalidQuantity{Input: s, Dimension: Memory, Err: fmt.Errorf("quantity must be non-negative")}
	}
	value := q.Value()
	if q.Cmp(*resource.NewQuantity(value, resource.BinarySI)) != 0 {
		return Quantity{}, &InvalidQuantity{Input: s, Dimension: Memory, Err: fmt.Errorf("value does not fit in an exact byte count")}
	}
	return Quantity{dimension: Memory, raw: value}, nil
}

// CPUFromMilli builds a CPU Quantity directly from a milli-core count,
// bypassing string parsing. Used when a value already comes from exact
// arithmetic elsewhere (catalog lookups, sums) rather than from config or
// pod specs.
func CPUFromMilli(milli int64) Quantity {
	return Quantity{dimension: CPU, raw: milli}
}

// MemoryFromBytes builds a Memory Quantity directly from a byte count.
func MemoryFromBytes(bytes int64) Quantity {
	return Quantity{dimension: Memory, raw: bytes}
}

const (
	milliPerCore = 1000

	kibi = 1 << 10
	mebi = 1 << 20
	gibi = 1 << 30
	tebi = 1 << 40
)

// FormatCPU renders a CPU quantity in its canonical form: whole cores with
// no suffix when the value is a whole number of cores, milli-cores
// otherwise. This matches the canonical forms used throughout the
// configuration examples in this codebase ("2", "500m").
func FormatCPU(q Quantity) string {
	if q.dimension != CPU {
		panic("quantity: FormatCPU called on a non-CPU quantity")
	}
	if q.raw%milliPerCore == 0 {
		return fmt.Sprintf("%d", q.raw/milliPerCore)
	}
	return fmt.Sprintf("%dm", q.raw)
}

// FormatMemory renders a memory quantity in its canonical binary-SI form:
// the largest of Ti/Gi/Mi/Ki that divides the value exactly, falling back
// to a bare byte count when none does.
func FormatMemory(q Quantity) string {
	if q.dimension != Memory {
		panic("quantity: FormatMemory called on a non-Memory quantity")
	}
	v := q.raw
	switch {
	case v != 0 && v%tebi == 0:
		return formatBinaryUnit(v, tebi, "Ti")
	case v != 0 && v%gibi == 0:
		return formatBinaryUnit(v, gibi, "Gi")
	case v != 0 && v%mebi == 0:
		return formatBinaryUnit(v, mebi, "Mi")
	case v != 0 && v%kibi == 0:
		return formatBinaryUnit(v, kibi, "Ki")
	default:
		return fmt.Sprintf("%d", v)
	}
}

func formatBinaryUnit(value, unit int64, suffix string) string {
	return fmt.Sprintf("%d%s", value/unit, suffix)
}
