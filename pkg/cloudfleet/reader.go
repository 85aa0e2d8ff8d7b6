package cloudfleet

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"k8s.io/klog/v2"

	"github.com/fleetctl/manager/pkg/catalog"
)

// fleetStates are the EC2 Fleet lifecycle states this manager considers
// live, grounded on the original implementation's describe_fleets filter.
var fleetStates = []*string{
	aws.String("submitted"),
	aws.String("active"),
	aws.String("modifying"),
}

// Reader queries the AWS EC2 Fleet API for the state of the configured
// fleets. Modeled as an interface so tests can substitute an in-memory
// fake over ec2iface.EC2API instead of live AWS calls.
type Reader interface {
	Read(ctx context.Context, identities []Identity) Snapshot
}

type apiReader struct {
	client      ec2iface.EC2API
	callTimeout time.Duration
}

// NewReader builds a Reader against a live AWS EC2 endpoint.
func NewReader(client ec2iface.EC2API, callTimeout time.Duration) Reader {
	return &apiReader{client: client, callTimeout: callTimeout}
}

// Read fetches the current state of every identity. A fleet that cannot be
// located is reported via Snapshot.Missing rather than failing the whole
// read, per §4.4: "Missing fleets yield a per-fleet error that excludes
// that fleet from this tick; other fleets proceed."
func (r *apiReader) Read(ctx context.Context, identities []Identity) Snapshot {
	snapshot := Snapshot{Fleets: make(map[string]Fleet, len(identities))}

	for _, id := range identities {
		fleet, err := r.readOne(ctx, id)
		if err != nil {
			klog.ErrorS(err, "failed to read fleet state", "sector", id.Sector, "size", id.Size.String())
			snapshot.Missing = append(snapshot.Missing, id.FleetName())
			continue
		}
		snapshot.Fleets[id.FleetName()] = fleet
	}
	return snapshot
}

func (r *apiReader) readOne(ctx context.Context, id Identity) (Fleet, error) {
	describeCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	out, err := r.client.DescribeFleetsWithContext(describeCtx, &ec2.DescribeFleetsInput{
		Filters: []*ec2.Filter{
			{Name: aws.String("fleet-state"), Values: fleetStates},
			{Name: aws.String("tag:cluster"), Values: []*string{aws.String(id.Cluster)}},
			{Name: aws.String("tag:fleet"), Values: []*string{aws.String(id.FleetName())}},
		},
	})
	if err != nil {
		return Fleet{}, fmt.Errorf("describing fleet %q: %w", id.FleetName(), err)
	}
	if len(out.Fleets) == 0 {
		return Fleet{}, fmt.Errorf("no fleet found matching cluster=%q fleet=%q", id.Cluster, id.FleetName())
	}

	data := out.Fleets[0]
	fleetID := aws.StringValue(data.FleetId)

	instanceIDs, err := r.listInstances(ctx, fleetID)
	if err != nil {
		return Fleet{}, fmt.Errorf("listing instances for fleet %q: %w", fleetID, err)
	}

	var targetCapacity int64
	if data.TargetCapacitySpecification != nil {
		targetCapacity = aws.Int64Value(data.TargetCapacitySpecification.TotalTargetCapacity)
	}

	return Fleet{
		Identity:       id,
		FleetID:        fleetID,
		TargetCapacity: targetCapacity,
		InstanceIDs:    instanceIDs,
	}, nil
}

func (r *apiReader) listInstances(ctx context.Context, fleetID string) ([]string, error) {
	instanceCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	out, err := r.client.DescribeFleetInstancesWithContext(instanceCtx, &ec2.DescribeFleetInstancesInput{
		FleetId: aws.String(fleetID),
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(out.ActiveInstances))
	for _, active := range out.ActiveInstances {
		ids = append(ids, aws.StringValue(active.InstanceId))
	}
	return ids, nil
}

// Identities builds the Identity list for every configured sector/size pair.
func Identities(cluster string, sizesBySector map[string][]catalog.Size) []Identity {
	identities := make([]Identity, 0)
	for sector, sizes := range sizesBySector {
		for _, size := range sizes {
			identities = append(identities, Identity{Cluster: cluster, Sector: sector, Size: size})
		}
	}
	return identities
}
