// Package v1alpha1 defines the typed, versioned configuration object for
// the fleet manager, in the style of a Kubernetes component config: a
// TypeMeta-carrying struct decoded from a YAML document, defaulted and
// validated once at process startup.
package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// ManagerConfiguration is the root of the configuration document consumed
// by `cmd/manager --config`. It carries no defaults of its own beyond what
// SetDefaults_ManagerConfiguration fills in.
type ManagerConfiguration struct {
	metav1.TypeMeta `json:",inline"`

	// ClusterName identifies this cluster in both node labels and cloud
	// fleet tags; it is the first component of the ClusterIdentity tag
	// triple used to locate each fleet's underlying cloud resource.
	ClusterName string `json:"clusterName,omitempty"`

	// SleepIntervalSeconds is the cadence of the control loop, in seconds.
	SleepIntervalSeconds int32 `json:"sleepIntervalSeconds,omitempty"`

	// DefaultOverSubscription is the fractional elasticity margin applied
	// uniformly across all sectors.
	DefaultOverSubscription float64 `json:"defaultOverSubscription,omitempty"`

	// ReservedCPU and ReservedMemory are quantity strings subtracted from
	// every node's nominal capacity before it is considered schedulable.
	ReservedCPU    string `json:"reservedCpus,omitempty"`
	ReservedMemory string `json:"reservedMemory,omitempty"`

	// Sectors maps a sector name to its fleet topology.
	Sectors map[string]SectorSpec `json:"sectors"`
}

// SectorSpec describes one sector: its instance-family kind and its
// ordered t-shirt-size fleets.
type SectorSpec struct {
	// Kind is "memory" or "cpu".
	Kind string `json:"kind"`

	// Fleets lists the sizes managed within this sector. Sizes must be
	// unique within the list; ordering in the document does not matter
	// for allocation, since the planner sorts a sector's sizes
	// largest-to-smallest before packing demand.
	Fleets []FleetSpec `json:"fleets"`
}

// FleetSpec is one managed fleet within a sector.
type FleetSpec struct {
	// Size is one of xsmall, small, medium, large, xlarge.
	Size string `json:"size"`

	// MinCapacity is the floor below which this fleet's target capacity
	// never drops, regardless of demand.
	MinCapacity int32 `json:"minCapacity,omitempty"`
}

// DeepCopyObject implements runtime.Object. Hand-written rather than
// generated: this module carries no code-generator dependency, and the
// configuration tree is small and flat enough that a generated
// implementation would not look materially different from this one.
func (c *ManagerConfiguration) DeepCopyObject() runtime.Object {
	if c == nil {
		return nil
	}
	out := new(ManagerConfiguration)
	out.TypeMeta = c.TypeMeta
	out.ClusterName = c.ClusterName
	out.SleepIntervalSeconds = c.SleepIntervalSeconds
	out.DefaultOverSubscription = c.DefaultOverSubscription
	out.ReservedCPU = c.ReservedCPU
	out.ReservedMemory = c.ReservedMemory
	if c.Sectors != nil {
		out.Sectors = make(map[string]SectorSpec, len(c.Sectors))
		for name, sector := range c.Sectors {
			fleets := make([]FleetSpec, len(sector.Fleets))
			copy(fleets, sector.Fleets)
			out.Sectors[name] = SectorSpec{Kind: sector.Kind, Fleets: fleets}
		}
	}
	return out
}
