package cloudfleet

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
)

// fakeEC2 implements ec2iface.EC2API by embedding it (satisfying every
// method with a nil-pointer panic by default) and overriding only the
// handful of calls this package actually makes. This is the standard way
// to stub a single AWS SDK v1 service interface without hand-writing
// hundreds of unused methods.
type fakeEC2 struct {
	ec2iface.EC2API

	describeFleetsOutput    *ec2.DescribeFleetsOutput
	describeFleetsErr       error
	describeInstancesOutput *ec2.DescribeFleetInstancesOutput
	describeInstancesErr    error
	modifyFleetOutput       *ec2.ModifyFleetOutput
	modifyFleetErr          error

	modifyFleetCalls []*ec2.ModifyFleetInput
}

func (f *fakeEC2) DescribeFleetsWithContext(ctx aws.Context, in *ec2.DescribeFleetsInput, opts ...request.Option) (*ec2.DescribeFleetsOutput, error) {
	if f.describeFleetsErr != nil {
		return nil, f.describeFleetsErr
	}
	return f.describeFleetsOutput, nil
}

func (f *fakeEC2) DescribeFleetInstancesWithContext(ctx aws.Context, in *ec2.DescribeFleetInstancesInput, opts ...request.Option) (*ec2.DescribeFleetInstancesOutput, error) {
	if f.describeInstancesErr != nil {
		return nil, f.describeInstancesErr
	}
	return f.describeInstancesOutput, nil
}

func (f *fakeEC2) ModifyFleetWithContext(ctx aws.Context, in *ec2.ModifyFleetInput, opts ...request.Option) (*ec2.ModifyFleetOutput, error) {
	f.modifyFleetCalls = append(f.modifyFleetCalls, in)
	if f.modifyFleetErr != nil {
		return nil, f.modifyFleetErr
	}
	return f.modifyFleetOutput, nil
}
