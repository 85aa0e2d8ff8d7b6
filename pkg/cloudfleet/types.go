// Package cloudfleet reads and modifies AWS EC2 Fleet state for the fleets
// this manager is responsible for, via the EC2 Fleet API.
package cloudfleet

import (
	"github.com/fleetctl/manager/pkg/catalog"
)

// Identity is the tag triple used to locate a fleet's underlying EC2 Fleet
// resource, mirroring the original implementation's Fleet.tags concept.
type Identity struct {
	Cluster string
	Sector  string
	Size    catalog.Size
}

// FleetName is the identifying name stamped on the cloud fleet's "fleet"
// tag: "{sector}-{size}".
func (id Identity) FleetName() string {
	return id.Sector + "-" + id.Size.String()
}

// Fleet is the normalized state of one EC2 Fleet resource.
type Fleet struct {
	Identity Identity

	// FleetID is the opaque cloud-assigned fleet identifier.
	FleetID string

	// TargetCapacity is the fleet's current TotalTargetCapacity.
	TargetCapacity int64

	// InstanceIDs is the set of instance ids currently associated with
	// the fleet, including instances still warming up that have not yet
	// registered as orchestrator nodes.
	InstanceIDs []string
}

// Snapshot is the immutable result of one fleet-state read, keyed by
// Identity.FleetName().
type Snapshot struct {
	Fleets map[string]Fleet

	// Missing lists the fleet names that were configured but could not
	// be found in this read; each is a per-fleet SnapshotError and
	// excludes that fleet from this tick's plan.
	Missing []string
}
