// Package demand projects a cluster snapshot's pods onto the configured
// sectors, computing the aggregate CPU and memory requested within each.
package demand

import (
	"k8s.io/klog/v2"

	"github.com/fleetctl/manager/pkg/cluster"
	"github.com/fleetctl/manager/pkg/quantity"
)

// SectorSelectorKey is the node-selector key pods use to route into a
// sector, per the node label contract (§6).
const SectorSelectorKey = "sector"

// Sector is one sector's aggregate demand and the pods contributing to it.
type Sector struct {
	Name   string
	CPU    quantity.Quantity
	Memory quantity.Quantity
	Pods   []cluster.Pod
}

// Project classifies every pod in pods into the sector named by its
// "sector" node-selector value, ignoring pods without that selector or
// whose sector is not in configuredSectors, and sums requests exactly
// within each sector using this package's own Quantity.Add — the snapshot
// reader has already reduced every container's raw resource.Quantity into
// a cluster.PodRequests, so there is no resource-list to re-aggregate
// here, only Quantity values to sum.
func Project(pods []cluster.Pod, configuredSectors map[string]bool) map[string]*Sector {
	sectors := make(map[string]*Sector, len(configuredSectors))
	for name := range configuredSectors {
		sectors[name] = &Sector{
			Name:   name,
			CPU:    quantity.Zero(quantity.CPU),
			Memory: quantity.Zero(quantity.Memory),
		}
	}

	for _, pod := range pods {
		sectorName, ok := pod.NodeSelector[SectorSelectorKey]
		if !ok {
			klog.V(4).InfoS("pod lacks sector node-selector, ignoring", "namespace", pod.Namespace, "pod", pod.Name)
			continue
		}
		sector, configured := sectors[sectorName]
		if !configured {
			klog.V(4).InfoS("pod selects an unconfigured sector, ignoring", "namespace", pod.Namespace, "pod", pod.Name, "sector", sectorName)
			continue
		}

		sector.CPU = sector.CPU.Add(pod.Requests.CPU)
		sector.Memory = sector.Memory.Add(pod.Requests.Memory)
		sector.Pods = append(sector.Pods, pod)
	}

	return sectors
}
