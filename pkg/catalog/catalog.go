// Package catalog holds the static mapping from fleet t-shirt size and kind
// to the nominal per-node CPU and memory capacity, and the reduction of that
// nominal capacity to schedulable capacity after global reservation.
package catalog

import (
	"fmt"

	"k8s.io/klog/v2"

	"github.com/fleetctl/manager/pkg/quantity"
)

// Size is a fleet t-shirt size, ordered smallest to largest.
type Size int

const (
	XSmall Size = iota
	Small
	Medium
	Large
	XLarge
)

// Sizes lists every size in ascending order. ParseSize searches it; the
// planner does not read it and sorts each sector's own fleets largest to
// smallest for size allocation.
var Sizes = []Size{XSmall, Small, Medium, Large, XLarge}

func (s Size) String() string {
	switch s {
	case XSmall:
		return "xsmall"
	case Small:
		return "small"
	case Medium:
		return "medium"
	case Large:
		return "large"
	case XLarge:
		return "xlarge"
	default:
		return "unknown"
	}
}

// ParseSize maps a configuration string to a Size.
func ParseSize(s string) (Size, error) {
	for _, sz := range Sizes {
		if sz.String() == s {
			return sz, nil
		}
	}
	return 0, fmt.Errorf("catalog: unrecognized size %q", s)
}

// Kind is whether a fleet's instance family is optimized for CPU or memory.
type Kind int

const (
	KindMemory Kind = iota
	KindCPU
)

func (k Kind) String() string {
	switch k {
	case KindMemory:
		return "memory"
	case KindCPU:
		return "cpu"
	default:
		return "unknown"
	}
}

// ParseKind maps a configuration string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "memory":
		return KindMemory, nil
	case "cpu":
		return KindCPU, nil
	default:
		return 0, fmt.Errorf("catalog: unrecognized kind %q", s)
	}
}

// nodeEnvelope is the nominal, pre-reservation per-node resource envelope for
// one (size, kind) pair.
type nodeEnvelope struct {
	cpu string
	mem string
}

// table is the static t-shirt size catalog from the node label contract
// (external interface §6). These values never change at runtime.
var table = map[Kind]map[Size]nodeEnvelope{
	KindMemory: {
		XSmall: {cpu: "2", mem: "15.25Gi"},
		Small:  {cpu: "4", mem: "30.5Gi"},
		Medium: {cpu: "8", mem: "61Gi"},
		Large:  {cpu: "16", mem: "122Gi"},
		XLarge: {cpu: "32", mem: "244Gi"},
	},
	KindCPU: {
		XSmall: {cpu: "4", mem: "7.5Gi"},
		Small:  {cpu: "8", mem: "15Gi"},
		Medium: {cpu: "16", mem: "30Gi"},
		Large:  {cpu: "36", mem: "60Gi"},
		XLarge: {cpu: "64", mem: "144Gi"},
	},
}

// NodeCapacity is the nominal per-node envelope for a (size, kind) pair, in
// parsed Quantity form.
type NodeCapacity struct {
	CPU    quantity.Quantity
	Memory quantity.Quantity
}

// Lookup returns the nominal per-node capacity for the given size and kind.
// The catalog is exhaustive over Sizes x {KindMemory, KindCPU}; a lookup
// miss means the table above was not kept in sync with Sizes and is a
// programming error, so it panics rather than returning an error every
// caller would have to check.
func Lookup(size Size, kind Kind) NodeCapacity {
	envelope, ok := table[kind][size]
	if !ok {
		panic(fmt.Sprintf("catalog: no entry for size=%s kind=%s", size, kind))
	}
	cpu, err := quantity.ParseCPU(envelope.cpu)
	if err != nil {
		panic(fmt.Sprintf("catalog: invalid built-in cpu envelope for size=%s kind=%s: %v", size, kind, err))
	}
	mem, err := quantity.ParseMemory(envelope.mem)
	if err != nil {
		panic(fmt.Sprintf("catalog: invalid built-in memory envelope for size=%s kind=%s: %v", size, kind, err))
	}
	return NodeCapacity{CPU: cpu, Memory: mem}
}

// Schedulable subtracts the globally reserved CPU and memory from a node's
// nominal capacity, floored at zero. If the reservation consumes the entire
// nominal capacity in either dimension, the result is zero in that
// dimension and the caller is expected to log a warning: a fleet whose
// schedulable capacity is zero in the dimension that binds its sector's
// kind will never satisfy any demand.
func Schedulable(nominal NodeCapacity, reservedCPU, reservedMemory quantity.Quantity) NodeCapacity {
	return NodeCapacity{
		CPU:    nominal.CPU.Sub(reservedCPU),
		Memory: nominal.Memory.Sub(reservedMemory),
	}
}

// WarnIfExhausted logs a warning when reservation has consumed all of a
// node's capacity in either dimension for the given fleet identity, per
// §4.2: "If reservation exceeds raw capacity for a (size, kind), the
// planner treats schedulable as zero and emits a warning."
func WarnIfExhausted(sector string, size Size, kind Kind, schedulable NodeCapacity) {
	if schedulable.CPU.IsZero() {
		klog.ErrorS(nil, "fleet has zero schedulable CPU capacity per node after reservation",
			"sector", sector, "size", size.String(), "kind", kind.String())
	}
	if schedulable.Memory.IsZero() {
		klog.ErrorS(nil, "fleet has zero schedulable memory capacity per node after reservation",
			"sector", sector, "size", size.String(), "kind", kind.String())
	}
}
