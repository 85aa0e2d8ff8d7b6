package cluster

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/klog/v2"

	"github.com/fleetctl/manager/pkg/catalog"
	"github.com/fleetctl/manager/pkg/quantity"
)

const (
	// LabelCluster, LabelSector, LabelSize, LabelKind and LabelFleet are
	// the node label contract with the IaC layer (§6): every managed node
	// carries all five.
	LabelCluster = "cluster"
	LabelSector  = "sector"
	LabelSize    = "size"
	LabelKind    = "kind"
	LabelFleet   = "fleet"
)

// Reader queries the orchestrator API for the current nodes and pods
// relevant to planning. Modeled as an interface, per the design note on
// shared cloud/orchestrator clients, so tests can substitute a scripted
// fake instead of a live cluster.
type Reader interface {
	Read(ctx context.Context) (Snapshot, error)
}

// clientReader is the client-go-backed Reader used in production.
type clientReader struct {
	clientset   kubernetes.Interface
	clusterName string
	sectorKinds map[string]catalog.Kind
	callTimeout time.Duration
}

// NewReader builds a Reader against a live cluster. sectorKinds is the set
// of configured sector names mapped to their kind, used to filter nodes to
// those belonging to a configured sector and to validate the kind label
// agrees with configuration.
func NewReader(clientset kubernetes.Interface, clusterName string, sectorKinds map[string]catalog.Kind, callTimeout time.Duration) Reader {
	return &clientReader{
		clientset:   clientset,
		clusterName: clusterName,
		sectorKinds: sectorKinds,
		callTimeout: callTimeout,
	}
}

func (r *clientReader) Read(ctx context.Context) (Snapshot, error) {
	nodeCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()
	nodeList, err := r.clientset.CoreV1().Nodes().List(nodeCtx, metav1.ListOptions{})
	if err != nil {
		return Snapshot{}, fmt.Errorf("listing nodes: %w", err)
	}

	podCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()
	podList, err := r.clientset.CoreV1().Pods("").List(podCtx, metav1.ListOptions{})
	if err != nil {
		return Snapshot{}, fmt.Errorf("listing pods: %w", err)
	}

	nodes := make([]Node, 0, len(nodeList.Items))
	for i := range nodeList.Items {
		node, ok := r.normalizeNode(&nodeList.Items[i])
		if !ok {
			continue
		}
		nodes = append(nodes, node)
	}

	pods := make([]Pod, 0, len(podList.Items))
	for i := range podList.Items {
		pod, ok := normalizePod(&podList.Items[i])
		if !ok {
			continue
		}
		pods = append(pods, pod)
	}

	return Snapshot{Nodes: nodes, Pods: pods}, nil
}

func (r *clientReader) normalizeNode(n *corev1.Node) (Node, bool) {
	labels := n.Labels
	if labels[LabelCluster] != r.clusterName {
		return Node{}, false
	}
	sector := labels[LabelSector]
	sizeLabel := labels[LabelSize]
	kindLabel := labels[LabelKind]
	if sector == "" || sizeLabel == "" || kindLabel == "" || labels[LabelFleet] == "" {
		return Node{}, false
	}

	wantKind, configured := r.sectorKinds[sector]
	if !configured {
		return Node{}, false
	}

	size, err := catalog.ParseSize(sizeLabel)
	if err != nil {
		klog.ErrorS(err, "node has unrecognized size label, ignoring", "node", n.Name, "size", sizeLabel)
		return Node{}, false
	}
	kind, err := catalog.ParseKind(kindLabel)
	if err != nil {
		klog.ErrorS(err, "node has unrecognized kind label, ignoring", "node", n.Name, "kind", kindLabel)
		return Node{}, false
	}
	if kind != wantKind {
		klog.ErrorS(nil, "node kind label disagrees with sector configuration, ignoring",
			"node", n.Name, "sector", sector, "nodeKind", kind.String(), "sectorKind", wantKind.String())
		return Node{}, false
	}

	cordonedByUs := n.Annotations[CordonedByAnnotation] == CordonedByValue

	cpuAllocatable := quantity.CPUFromMilli(n.Status.Allocatable.Cpu().MilliValue())
	memAllocatable := quantity.MemoryFromBytes(n.Status.Allocatable.Memory().Value())

	return Node{
		Name: n.Name,
		Fleet: FleetTag{
			Sector: sector,
			Size:   size,
			Kind:   kind,
		},
		Schedulable:  !n.Spec.Unschedulable,
		CordonedByUs: n.Spec.Unschedulable && cordonedByUs,
		Allocatable: NodeAllocatable{
			CPU:    cpuAllocatable,
			Memory: memAllocatable,
		},
		CreationTime: n.CreationTimestamp.Time,
	}, true
}

func normalizePod(p *corev1.Pod) (Pod, bool) {
	phase := normalizePhase(p.Status.Phase)
	if phase == PodSucceeded || phase == PodFailed {
		return Pod{}, false
	}

	cpuTotal := quantity.Zero(quantity.CPU)
	memTotal := quantity.Zero(quantity.Memory)
	for _, container := range p.Spec.Containers {
		reqs := container.Resources.Requests
		if cpu, ok := reqs[corev1.ResourceCPU]; ok {
			cpuTotal = cpuTotal.Add(quantity.CPUFromMilli(cpu.MilliValue()))
		}
		if mem, ok := reqs[corev1.ResourceMemory]; ok {
			memTotal = memTotal.Add(quantity.MemoryFromBytes(mem.Value()))
		}
	}

	return Pod{
		Namespace:    p.Namespace,
		Name:         p.Name,
		Phase:        phase,
		NodeName:     p.Spec.NodeName,
		NodeSelector: p.Spec.NodeSelector,
		Requests: PodRequests{
			CPU:    cpuTotal,
			Memory: memTotal,
		},
	}, true
}

func normalizePhase(phase corev1.PodPhase) PodPhase {
	switch phase {
	case corev1.PodPending:
		return PodPending
	case corev1.PodRunning:
		return PodRunning
	case corev1.PodSucceeded:
		return PodSucceeded
	case corev1.PodFailed:
		return PodFailed
	default:
		return PodUnknown
	}
}
