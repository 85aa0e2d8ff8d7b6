package cloudfleet

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"k8s.io/klog/v2"
)

// Actuator modifies fleet target capacity via the EC2 Fleet API.
type Actuator struct {
	client      ec2iface.EC2API
	callTimeout time.Duration
}

// NewActuator builds an Actuator against a live AWS EC2 endpoint.
func NewActuator(client ec2iface.EC2API, callTimeout time.Duration) *Actuator {
	return &Actuator{client: client, callTimeout: callTimeout}
}

// SetTargetCapacity issues a ModifyFleet call setting the fleet's total
// target capacity. On failure it returns an error and logs; per §4.7 the
// caller treats this as best-effort: "On failure, logs and moves on; state
// converges next tick."
func (a *Actuator) SetTargetCapacity(ctx context.Context, fleetID string, targetCapacity int64) error {
	modifyCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	out, err := a.client.ModifyFleetWithContext(modifyCtx, &ec2.ModifyFleetInput{
		FleetId: aws.String(fleetID),
		TargetCapacitySpecification: &ec2.TargetCapacitySpecificationRequest{
			TotalTargetCapacity: aws.Int64(targetCapacity),
		},
	})
	if err != nil {
		return fmt.Errorf("modifying fleet %q target capacity to %d: %w", fleetID, targetCapacity, err)
	}
	if !aws.BoolValue(out.Return) {
		klog.ErrorS(nil, "ModifyFleet reported failure", "fleetId", fleetID, "targetCapacity", targetCapacity)
		return fmt.Errorf("modifying fleet %q target capacity to %d: not accepted", fleetID, targetCapacity)
	}
	return nil
}
