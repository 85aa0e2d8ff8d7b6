package cloudfleet

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"

	"github.com/fleetctl/manager/pkg/catalog"
)

func TestReadReturnsFleetState(t *testing.T) {
	client := &fakeEC2{
		describeFleetsOutput: &ec2.DescribeFleetsOutput{
			Fleets: []*ec2.FleetData{
				{
					FleetId: aws.String("fleet-123"),
					TargetCapacitySpecification: &ec2.TargetCapacitySpecification{
						TotalTargetCapacity: aws.Int64(3),
					},
				},
			},
		},
		describeInstancesOutput: &ec2.DescribeFleetInstancesOutput{
			ActiveInstances: []*ec2.ActiveInstance{
				{InstanceId: aws.String("i-1")},
				{InstanceId: aws.String("i-2")},
			},
		},
	}

	reader := NewReader(client, time.Second)
	snap := reader.Read(context.Background(), []Identity{{Cluster: "test", Sector: "primary", Size: catalog.Small}})

	if len(snap.Missing) != 0 {
		t.Fatalf("expected no missing fleets, got %v", snap.Missing)
	}
	fleet, ok := snap.Fleets["primary-small"]
	if !ok {
		t.Fatal("expected primary-small in snapshot")
	}
	if fleet.TargetCapacity != 3 {
		t.Errorf("TargetCapacity = %d, want 3", fleet.TargetCapacity)
	}
	if len(fleet.InstanceIDs) != 2 {
		t.Errorf("InstanceIDs = %v, want 2 entries", fleet.InstanceIDs)
	}
}

func TestReadReportsMissingFleet(t *testing.T) {
	client := &fakeEC2{
		describeFleetsOutput: &ec2.DescribeFleetsOutput{Fleets: nil},
	}

	reader := NewReader(client, time.Second)
	snap := reader.Read(context.Background(), []Identity{{Cluster: "test", Sector: "primary", Size: catalog.Small}})

	if len(snap.Fleets) != 0 {
		t.Fatalf("expected no fleets found, got %v", snap.Fleets)
	}
	if len(snap.Missing) != 1 || snap.Missing[0] != "primary-small" {
		t.Errorf("Missing = %v, want [primary-small]", snap.Missing)
	}
}

func TestReadContinuesAfterOneFleetMissing(t *testing.T) {
	client := &fakeEC2{
		describeFleetsOutput: &ec2.DescribeFleetsOutput{Fleets: nil},
	}
	reader := NewReader(client, time.Second)
	snap := reader.Read(context.Background(), []Identity{
		{Cluster: "test", Sector: "primary", Size: catalog.Small},
		{Cluster: "test", Sector: "primary", Size: catalog.Medium},
	})
	if len(snap.Missing) != 2 {
		t.Errorf("expected both fleets reported missing, got %v", snap.Missing)
	}
}
