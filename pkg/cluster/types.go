// Package cluster reads node and pod state from the orchestrator API and
// applies cordon/uncordon decisions back to it.
package cluster

import (
	"time"

	"github.com/fleetctl/manager/pkg/catalog"
	"github.com/fleetctl/manager/pkg/quantity"
)

// CordonedByAnnotation marks a node as cordoned by this manager, as opposed
// to cordoned by an external operator. Only nodes carrying this annotation
// are eligible to be uncordoned by the actuator, and only they count as
// "already cordoned by us" in the planner's cordon-candidate ordering.
const CordonedByAnnotation = "fleet-manager.example.com/cordoned-by"

// CordonedByValue is the value CordonedByAnnotation is set to.
const CordonedByValue = "fleet-manager"

// FleetTag is the (sector, size, kind) triple a node's labels resolve to.
type FleetTag struct {
	Sector string
	Size   catalog.Size
	Kind   catalog.Kind
}

// Node is the normalized, immutable view of one orchestrator node relevant
// to planning.
type Node struct {
	Name string

	Fleet FleetTag

	// Schedulable is false when the node is cordoned, for any reason.
	Schedulable bool

	// CordonedByUs is true only when Schedulable is false and the cordon
	// carries CordonedByAnnotation with CordonedByValue.
	CordonedByUs bool

	Allocatable NodeAllocatable

	CreationTime time.Time
}

// NodeAllocatable is a node's reported allocatable resources, as distinct
// from its t-shirt-size nominal capacity: this is what the orchestrator
// itself reports, used only for diagnostics, not for planning (planning
// uses the Fleet Catalog's static table per size/kind, per §4.2).
type NodeAllocatable struct {
	CPU    quantity.Quantity
	Memory quantity.Quantity
}

// PodPhase mirrors the orchestrator's pod phase enumeration.
type PodPhase int

const (
	PodPending PodPhase = iota
	PodRunning
	PodSucceeded
	PodFailed
	PodUnknown
)

// Pod is the normalized, immutable view of one orchestrator pod relevant to
// demand projection.
type Pod struct {
	Namespace string
	Name      string
	Phase     PodPhase

	// NodeName is empty when the pod is not yet bound.
	NodeName string

	// NodeSelector is the pod's raw node-selector map; the Demand
	// Projector reads the "sector" key out of it.
	NodeSelector map[string]string

	// Requests is the sum of every container's resource requests;
	// containers without requests contribute zero.
	Requests PodRequests
}

// PodRequests is a pod's aggregate resource request.
type PodRequests struct {
	CPU    quantity.Quantity
	Memory quantity.Quantity
}

// Snapshot is the immutable result of one cluster read.
type Snapshot struct {
	Nodes []Node
	Pods  []Pod
}
