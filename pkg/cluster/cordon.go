package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"
	"k8s.io/klog/v2"
)

const (
	cordonMaxRetries = 5
	cordonBaseDelay  = 10 * time.Millisecond
)

// Actuator applies cordon/uncordon decisions to cluster nodes.
type Actuator struct {
	clientset   kubernetes.Interface
	callTimeout time.Duration
}

// NewActuator builds an Actuator against a live cluster.
func NewActuator(clientset kubernetes.Interface, callTimeout time.Duration) *Actuator {
	return &Actuator{clientset: clientset, callTimeout: callTimeout}
}

type nodePatch struct {
	Spec     nodePatchSpec     `json:"spec"`
	Metadata nodePatchMetadata `json:"metadata"`
}

type nodePatchSpec struct {
	Unschedulable bool `json:"unschedulable"`
}

type nodePatchMetadata struct {
	Annotations map[string]*string `json:"annotations"`
}

// Cordon marks a node unschedulable and stamps it with CordonedByAnnotation
// so a later tick recognizes this as a manager-applied cordon.
func (a *Actuator) Cordon(ctx context.Context, nodeName string) error {
	value := CordonedByValue
	return a.patchWithRetry(ctx, nodeName, nodePatch{
		Spec:     nodePatchSpec{Unschedulable: true},
		Metadata: nodePatchMetadata{Annotations: map[string]*string{CordonedByAnnotation: &value}},
	})
}

// Uncordon marks a node schedulable again and clears the manager's cordon
// annotation.
func (a *Actuator) Uncordon(ctx context.Context, nodeName string) error {
	return a.patchWithRetry(ctx, nodeName, nodePatch{
		Spec:     nodePatchSpec{Unschedulable: false},
		Metadata: nodePatchMetadata{Annotations: map[string]*string{CordonedByAnnotation: nil}},
	})
}

// patchWithRetry applies a JSON merge patch to a node, retrying on write
// conflict with exponential backoff. No Get precedes the patch: every
// attempt sends the same body, up to cordonMaxRetries attempts in all, and
// any error other than a conflict is returned at once.
func (a *Actuator) patchWithRetry(ctx context.Context, nodeName string, patch nodePatch) error {
	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("marshaling node patch for %q: %w", nodeName, err)
	}

	var lastErr error
	for attempt := 0; attempt < cordonMaxRetries; attempt++ {
		patchCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
		_, err := a.clientset.CoreV1().Nodes().Patch(patchCtx, nodeName, types.MergePatchType, body, metav1.PatchOptions{})
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		if !errors.IsConflict(err) {
			return fmt.Errorf("patching node %q: %w", nodeName, err)
		}

		delay := cordonBaseDelay * time.Duration(1<<attempt)
		klog.V(3).InfoS("node patch conflict, retrying", "node", nodeName, "attempt", attempt+1, "delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("patching node %q: exhausted retries: %w", nodeName, lastErr)
}
