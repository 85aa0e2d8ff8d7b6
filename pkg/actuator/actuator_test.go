package actuator

import (
	"context"
	"errors"
	"testing"

	"github.com/fleetctl/manager/pkg/catalog"
	"github.com/fleetctl/manager/pkg/planner"
)

type fakeNodes struct {
	calls     []string
	failNodes map[string]error
}

func (f *fakeNodes) Cordon(ctx context.Context, node string) error {
	f.calls = append(f.calls, "cordon:"+node)
	return f.failNodes[node]
}

func (f *fakeNodes) Uncordon(ctx context.Context, node string) error {
	f.calls = append(f.calls, "uncordon:"+node)
	return f.failNodes[node]
}

type fakeFleets struct {
	calls       []string
	targetErr   error
	lastTarget  int64
	lastFleetID string
}

func (f *fakeFleets) SetTargetCapacity(ctx context.Context, fleetID string, target int64) error {
	f.calls = append(f.calls, "target:"+fleetID)
	f.lastFleetID = fleetID
	f.lastTarget = target
	return f.targetErr
}

func TestApplyOrdersUncordonThenCordonThenTarget(t *testing.T) {
	nodes := &fakeNodes{failNodes: map[string]error{}}
	fleets := &fakeFleets{}
	act := New(nodes, fleets, true)

	plan := planner.FleetPlan{
		Size:          catalog.Small,
		DesiredTarget: 2,
		Cordon:        []string{"n-cordon"},
		Uncordon:      []string{"n-uncordon"},
	}

	result := act.Apply(context.Background(), Input{
		FleetName: "primary-small", FleetID: "fleet-1", ObservedTarget: 1, Plan: plan,
	})

	wantOrder := []string{"uncordon:n-uncordon", "cordon:n-cordon"}
	if len(nodes.calls) != 2 || nodes.calls[0] != wantOrder[0] || nodes.calls[1] != wantOrder[1] {
		t.Fatalf("node calls = %v, want %v", nodes.calls, wantOrder)
	}
	if len(fleets.calls) != 1 || fleets.lastTarget != 2 {
		t.Fatalf("fleet calls = %v, target = %d", fleets.calls, fleets.lastTarget)
	}
	if !result.TargetChanged || result.TargetErr != nil {
		t.Errorf("unexpected target result: %+v", result)
	}
	if len(result.Cordoned) != 1 || len(result.Uncordoned) != 1 {
		t.Errorf("unexpected result sets: %+v", result)
	}
}

func TestApplyDryRunMakesNoCalls(t *testing.T) {
	nodes := &fakeNodes{failNodes: map[string]error{}}
	fleets := &fakeFleets{}
	act := New(nodes, fleets, false)

	plan := planner.FleetPlan{DesiredTarget: 2, Cordon: []string{"n-1"}, Uncordon: []string{"n-2"}}
	result := act.Apply(context.Background(), Input{FleetID: "fleet-1", ObservedTarget: 1, Plan: plan})

	if len(nodes.calls) != 0 || len(fleets.calls) != 0 {
		t.Fatalf("dry-run made calls: nodes=%v fleets=%v", nodes.calls, fleets.calls)
	}
	if len(result.Cordoned) != 1 || len(result.Uncordoned) != 1 || result.TargetErr != nil {
		t.Errorf("dry-run should still report intended actions: %+v", result)
	}
}

func TestApplyContinuesAfterPartialFailure(t *testing.T) {
	nodes := &fakeNodes{failNodes: map[string]error{"n-bad": errors.New("conflict")}}
	fleets := &fakeFleets{}
	act := New(nodes, fleets, true)

	plan := planner.FleetPlan{
		DesiredTarget: 1,
		Cordon:        []string{"n-bad", "n-good"},
	}
	result := act.Apply(context.Background(), Input{FleetID: "fleet-1", ObservedTarget: 1, Plan: plan})

	if len(result.CordonErrs) != 1 {
		t.Fatalf("CordonErrs = %v, want 1 entry", result.CordonErrs)
	}
	if len(result.Cordoned) != 1 || result.Cordoned[0] != "n-good" {
		t.Errorf("Cordoned = %v, want [n-good]", result.Cordoned)
	}
	if result.TargetChanged {
		t.Errorf("target should be unchanged (desired == observed)")
	}
}

func TestApplySkipsTargetWhenFleetMissing(t *testing.T) {
	nodes := &fakeNodes{failNodes: map[string]error{}}
	fleets := &fakeFleets{}
	act := New(nodes, fleets, true)

	plan := planner.FleetPlan{DesiredTarget: 3}
	result := act.Apply(context.Background(), Input{FleetName: "primary-small", FleetID: "", ObservedTarget: 0, Plan: plan})

	if len(fleets.calls) != 0 {
		t.Fatalf("expected no SetTargetCapacity call, got %v", fleets.calls)
	}
	if result.TargetErr == nil {
		t.Error("expected an error when the fleet is missing from the cloud snapshot")
	}
}
