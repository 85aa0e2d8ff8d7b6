// Package planner is the capacity planner: the decision kernel that turns a
// sector's projected demand and a fleet's current state into a target
// capacity, a cordon intent, and an uncordon intent (§4.6).
package planner

import (
	"math"
	"sort"

	"k8s.io/klog/v2"

	"github.com/fleetctl/manager/pkg/catalog"
	"github.com/fleetctl/manager/pkg/cluster"
	"github.com/fleetctl/manager/pkg/quantity"
)

// oversubscriptionScale is the fixed-point denominator used to turn a
// float64 over-subscription ratio into an exact rational for Quantity
// arithmetic. Config values are authored to at most a handful of decimal
// places, so a million-scale numerator loses nothing that matters.
const oversubscriptionScale = 1_000_000

// FleetInput is one fleet's current state and schedulable per-node capacity,
// as seen by the planner for a single tick.
type FleetInput struct {
	Size catalog.Size

	MinCapacity   int64
	CurrentTarget int64

	// NodeCapacity is the fleet's schedulable per-node capacity: nominal
	// catalog capacity with the global reservation already subtracted
	// (catalog.Schedulable), before the over-subscription margin.
	NodeCapacity catalog.NodeCapacity

	// Nodes are the orchestrator nodes currently belonging to this fleet.
	Nodes []cluster.Node
}

// SectorInput is one sector's demand and the fleets that serve it.
type SectorInput struct {
	Name string

	CPUDemand    quantity.Quantity
	MemoryDemand quantity.Quantity

	Fleets []FleetInput

	// PodCountByNode counts, per node name, how many of this sector's pods
	// are currently running there. Nodes absent from the map count as zero.
	PodCountByNode map[string]int
}

// FleetPlan is the planner's output for one fleet. Cordon and Uncordon are
// disjoint and name only nodes that need a new action this tick: a node
// already cordoned by us that should stay cordoned appears in neither set.
type FleetPlan struct {
	Size catalog.Size

	DesiredTarget int64
	Cordon        []string
	Uncordon      []string
}

// PlanSector runs the six-step decision kernel for a single sector,
// independently of every other sector. overSubscription is the configured
// default_over_subscription ratio (§4.6), applied exactly once here.
func PlanSector(sector SectorInput, overSubscription float64) []FleetPlan {
	descendingCPU, descendingMemory := capacityLadders(sector.Fleets, overSubscription)

	cpuCandidates := allocateSizes(sector.CPUDemand, descendingCPU)
	memCandidates := allocateSizes(sector.MemoryDemand, descendingMemory)

	plans := make([]FleetPlan, 0, len(sector.Fleets))
	for _, fleet := range sector.Fleets {
		candidate := cpuCandidates[fleet.Size]
		if mem := memCandidates[fleet.Size]; mem > candidate {
			candidate = mem
		}
		desired := fleet.MinCapacity
		if candidate > desired {
			desired = candidate
		}

		cordon, uncordon := cordonIntent(fleet, desired, sector.PodCountByNode)

		plans = append(plans, FleetPlan{
			Size:          fleet.Size,
			DesiredTarget: desired,
			Cordon:        cordon,
			Uncordon:      uncordon,
		})
	}
	return plans
}

// sizeCapacity pairs a fleet's size with its per-node capacity in one
// dimension, after the over-subscription margin.
type sizeCapacity struct {
	size     catalog.Size
	capacity quantity.Quantity
}

// capacityLadders builds the per-dimension, largest-to-smallest list of
// (size, inflated per-node capacity) that Step 2 walks.
func capacityLadders(fleets []FleetInput, overSubscription float64) ([]sizeCapacity, []sizeCapacity) {
	num, den := oversubscriptionRational(overSubscription)

	cpu := make([]sizeCapacity, 0, len(fleets))
	mem := make([]sizeCapacity, 0, len(fleets))
	for _, f := range fleets {
		cpu = append(cpu, sizeCapacity{size: f.Size, capacity: f.NodeCapacity.CPU.MulRational(num, den)})
		mem = append(mem, sizeCapacity{size: f.Size, capacity: f.NodeCapacity.Memory.MulRational(num, den)})
	}
	sort.Slice(cpu, func(i, j int) bool { return cpu[i].size > cpu[j].size })
	sort.Slice(mem, func(i, j int) bool { return mem[i].size > mem[j].size })
	return cpu, mem
}

// oversubscriptionRational turns (1 + over-subscription) into an exact
// num/den pair so the margin can be applied with Quantity.MulRational
// instead of floating point.
func oversubscriptionRational(overSubscription float64) (int64, int64) {
	return int64(math.Round((1 + overSubscription) * oversubscriptionScale)), oversubscriptionScale
}

// allocateSizes is Step 2: pack demand from the largest size in the ladder
// down to the smallest. A non-smallest size absorbs as many whole nodes'
// worth of demand as fit, floor-divided, but never zero while demand
// remains: a size that cannot fully fill one of its own nodes still takes
// exactly one, so that a small amount of demand lands on the largest size
// that can host it in a single node rather than cascading needlessly to the
// smallest. The smallest size in the ladder always absorbs whatever is left
// via ceil_div, per §4.6 Step 2.
func allocateSizes(demand quantity.Quantity, descending []sizeCapacity) map[catalog.Size]int64 {
	result := make(map[catalog.Size]int64, len(descending))
	remaining := demand

	for i, sc := range descending {
		last := i == len(descending)-1

		if last {
			if sc.capacity.IsZero() {
				if !remaining.IsZero() {
					klog.ErrorS(nil, "smallest size in ladder has zero capacity, cannot absorb remaining demand", "size", sc.size.String())
				}
				result[sc.size] = 0
				continue
			}
			result[sc.size] = quantity.CeilDiv(remaining, sc.capacity)
			continue
		}

		switch {
		case remaining.IsZero(), sc.capacity.IsZero():
			result[sc.size] = 0
		case remaining.Cmp(sc.capacity) <= 0:
			result[sc.size] = 1
			remaining = quantity.Zero(remaining.Dimension())
		default:
			count := quantity.FloorDiv(remaining, sc.capacity)
			result[sc.size] = count
			remaining = remaining.Sub(sc.capacity.ScaleByInt(count))
		}
	}
	return result
}

// cordonIntent computes Steps 4 and 5 together. Every node currently
// belonging to the fleet is ranked by cordon priority; the top
// currentTarget-desiredTarget of them form the target cordoned set. Nodes
// newly entering that set need a cordon action; nodes cordoned by us that
// fall out of it need an uncordon action. A node already cordoned by us
// that stays in the set needs no action at all, which is what keeps a
// steady-state fleet's plan empty (Step 6).
func cordonIntent(fleet FleetInput, desiredTarget int64, podCountByNode map[string]int) ([]string, []string) {
	ranked := make([]cluster.Node, len(fleet.Nodes))
	copy(ranked, fleet.Nodes)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.CordonedByUs != b.CordonedByUs {
			return a.CordonedByUs
		}
		podsA, podsB := podCountByNode[a.Name], podCountByNode[b.Name]
		if podsA != podsB {
			return podsA < podsB
		}
		if !a.CreationTime.Equal(b.CreationTime) {
			return a.CreationTime.Before(b.CreationTime)
		}
		return a.Name < b.Name
	})

	cordonCount := fleet.CurrentTarget - desiredTarget
	if cordonCount < 0 {
		cordonCount = 0
	}
	if cordonCount > int64(len(ranked)) {
		cordonCount = int64(len(ranked))
	}

	target := make(map[string]bool, cordonCount)
	for _, n := range ranked[:cordonCount] {
		target[n.Name] = true
	}

	var cordon, uncordon []string
	for _, n := range ranked {
		switch {
		case target[n.Name] && !n.CordonedByUs:
			cordon = append(cordon, n.Name)
		case !target[n.Name] && n.CordonedByUs:
			uncordon = append(uncordon, n.Name)
		}
	}
	sort.Strings(cordon)
	sort.Strings(uncordon)
	return cordon, uncordon
}

// CountPodsByNode tallies, per node name, how many pods in pods are bound
// there. Used to build SectorInput.PodCountByNode from a demand.Sector's
// pod list.
func CountPodsByNode(pods []cluster.Pod) map[string]int {
	counts := make(map[string]int)
	for _, p := range pods {
		if p.NodeName == "" {
			continue
		}
		counts[p.NodeName]++
	}
	return counts
}
