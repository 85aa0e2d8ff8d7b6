// Package actuator applies a fleet's planner decision: adjusting the cloud
// fleet's target capacity and cordoning or uncordoning orchestrator nodes.
package actuator

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/fleetctl/manager/pkg/planner"
)

// NodeCordoner is the subset of cluster.Actuator the actuator needs.
type NodeCordoner interface {
	Cordon(ctx context.Context, nodeName string) error
	Uncordon(ctx context.Context, nodeName string) error
}

// FleetTargetSetter is the subset of cloudfleet.Actuator the actuator needs.
type FleetTargetSetter interface {
	SetTargetCapacity(ctx context.Context, fleetID string, targetCapacity int64) error
}

// Actuator applies Plan decisions to the cluster and the cloud fleet API.
// It never rolls back: a partial failure in one step does not undo, retry,
// or block the remaining steps for that fleet.
type Actuator struct {
	nodes  NodeCordoner
	fleets FleetTargetSetter

	// Live gates writes. When false, every action is logged as it would
	// have been applied but no call is made (dry-run).
	Live bool
}

// New builds an Actuator. live should come from the process's --live flag.
func New(nodes NodeCordoner, fleets FleetTargetSetter, live bool) *Actuator {
	return &Actuator{nodes: nodes, fleets: fleets, Live: live}
}

// Input is everything the actuator needs to reconcile one fleet to its plan.
type Input struct {
	// FleetName identifies the fleet for logging ("{sector}-{size}").
	FleetName string

	// FleetID is the cloud fleet's opaque identifier. Empty means the
	// fleet was missing from this tick's cloud snapshot, in which case
	// target-capacity adjustment is skipped (there is nothing to patch).
	FleetID string

	// ObservedTarget is the cloud fleet's current TotalTargetCapacity, or
	// zero when FleetID is empty.
	ObservedTarget int64

	Plan planner.FleetPlan
}

// Result reports what happened for one fleet, so the control loop can feed
// metrics and logs without the actuator owning either.
type Result struct {
	FleetName string

	Cordoned     []string
	Uncordoned   []string
	CordonErrs   map[string]error
	UncordonErrs map[string]error

	TargetChanged bool
	TargetErr     error
}

// Apply reconciles one fleet to its plan: uncordon, then cordon, then
// target-capacity, per §4.7/§5 — uncordon goes first so schedulable
// capacity is never briefly driven below demand by cordoning ahead of an
// uncordon that was meant to offset it.
func (a *Actuator) Apply(ctx context.Context, in Input) Result {
	result := Result{
		FleetName:    in.FleetName,
		CordonErrs:   map[string]error{},
		UncordonErrs: map[string]error{},
	}

	for _, node := range in.Plan.Uncordon {
		if err := a.uncordon(ctx, node); err != nil {
			result.UncordonErrs[node] = err
			continue
		}
		result.Uncordoned = append(result.Uncordoned, node)
	}

	for _, node := range in.Plan.Cordon {
		if err := a.cordon(ctx, node); err != nil {
			result.CordonErrs[node] = err
			continue
		}
		result.Cordoned = append(result.Cordoned, node)
	}

	if in.Plan.DesiredTarget != in.ObservedTarget {
		result.TargetChanged = true
		result.TargetErr = a.setTargetCapacity(ctx, in.FleetName, in.FleetID, in.Plan.DesiredTarget)
	}

	return result
}

func (a *Actuator) uncordon(ctx context.Context, node string) error {
	if !a.Live {
		klog.InfoS("dry-run: would uncordon node", "node", node)
		return nil
	}
	if err := a.nodes.Uncordon(ctx, node); err != nil {
		klog.ErrorS(err, "failed to uncordon node", "node", node)
		return err
	}
	klog.InfoS("uncordoned node", "node", node)
	return nil
}

func (a *Actuator) cordon(ctx context.Context, node string) error {
	if !a.Live {
		klog.InfoS("dry-run: would cordon node", "node", node)
		return nil
	}
	if err := a.nodes.Cordon(ctx, node); err != nil {
		klog.ErrorS(err, "failed to cordon node", "node", node)
		return err
	}
	klog.InfoS("cordoned node", "node", node)
	return nil
}

func (a *Actuator) setTargetCapacity(ctx context.Context, fleetName, fleetID string, target int64) error {
	if fleetID == "" {
		err := fmt.Errorf("fleet %q missing from cloud snapshot, cannot set target capacity", fleetName)
		klog.ErrorS(err, "skipping target capacity update", "fleet", fleetName)
		return err
	}
	if !a.Live {
		klog.InfoS("dry-run: would set fleet target capacity", "fleet", fleetName, "target", target)
		return nil
	}
	if err := a.fleets.SetTargetCapacity(ctx, fleetID, target); err != nil {
		klog.ErrorS(err, "failed to set fleet target capacity", "fleet", fleetName, "target", target)
		return err
	}
	klog.InfoS("set fleet target capacity", "fleet", fleetName, "target", target)
	return nil
}
