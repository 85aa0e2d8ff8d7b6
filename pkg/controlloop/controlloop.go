// Package controlloop is the outermost scheduler: it repeats
// snapshot -> project -> plan -> actuate at a fixed cadence, with error
// isolation per iteration (§4.8).
package controlloop

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/klog/v2"
	"k8s.io/utils/clock"

	"github.com/fleetctl/manager/pkg/actuator"
	v1alpha1 "github.com/fleetctl/manager/pkg/apis/config/v1alpha1"
	"github.com/fleetctl/manager/pkg/catalog"
	"github.com/fleetctl/manager/pkg/cloudfleet"
	"github.com/fleetctl/manager/pkg/cluster"
	"github.com/fleetctl/manager/pkg/demand"
	"github.com/fleetctl/manager/pkg/planner"
	"github.com/fleetctl/manager/pkg/quantity"
)

// Recorder receives observability events from the loop. A Loop built
// without WithRecorder uses a no-op implementation, so production wiring
// and tests alike can omit metrics entirely.
type Recorder interface {
	ObserveTickDuration(d time.Duration)
	ObserveFleetTarget(sector string, size catalog.Size, desired, observed int64)
	IncNodesCordoned(sector string, size catalog.Size, n int)
	IncNodesUncordoned(sector string, size catalog.Size, n int)
	IncSnapshotError(source string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveTickDuration(time.Duration)                     {}
func (noopRecorder) ObserveFleetTarget(string, catalog.Size, int64, int64) {}
func (noopRecorder) IncNodesCordoned(string, catalog.Size, int)            {}
func (noopRecorder) IncNodesUncordoned(string, catalog.Size, int)          {}
func (noopRecorder) IncSnapshotError(string)                               {}

// sectorMeta is the per-sector information derived once from configuration,
// reused on every tick.
type sectorMeta struct {
	kind   catalog.Kind
	fleets []v1alpha1.FleetSpec
}

// Loop owns the configuration and the injected readers/actuator for one
// manager process. Nothing here is mutated between ticks; each tick builds
// its own snapshot, demand, and plan from scratch (§5 lifecycle).
type Loop struct {
	config *v1alpha1.ManagerConfiguration

	clusterReader cluster.Reader
	fleetReader   cloudfleet.Reader
	actuator      *actuator.Actuator

	clk    clock.Clock
	tracer trace.Tracer

	recorder Recorder

	reservedCPU, reservedMemory quantity.Quantity
	sectors                     map[string]sectorMeta
	sizesBySector               map[string][]catalog.Size
}

// New builds a Loop. cfg must already be defaulted and validated
// (pkg/apis/config/v1alpha1.Load does both). Without WithClock and
// WithTracer, clock.RealClock{} and a no-op tracer are used.
func New(cfg *v1alpha1.ManagerConfiguration, clusterReader cluster.Reader, fleetReader cloudfleet.Reader, act *actuator.Actuator, opts ...Option) (*Loop, error) {
	reservedCPU, err := quantity.ParseCPU(cfg.ReservedCPU)
	if err != nil {
		return nil, fmt.Errorf("control loop: reserved CPU: %w", err)
	}
	reservedMemory, err := quantity.ParseMemory(cfg.ReservedMemory)
	if err != nil {
		return nil, fmt.Errorf("control loop: reserved memory: %w", err)
	}

	sectors := make(map[string]sectorMeta, len(cfg.Sectors))
	sizesBySector := make(map[string][]catalog.Size, len(cfg.Sectors))
	for name, spec := range cfg.Sectors {
		kind, err := catalog.ParseKind(spec.Kind)
		if err != nil {
			return nil, fmt.Errorf("control loop: sector %q: %w", name, err)
		}
		sizes := make([]catalog.Size, 0, len(spec.Fleets))
		for _, f := range spec.Fleets {
			size, err := catalog.ParseSize(f.Size)
			if err != nil {
				return nil, fmt.Errorf("control loop: sector %q: %w", name, err)
			}
			sizes = append(sizes, size)
		}
		sectors[name] = sectorMeta{kind: kind, fleets: spec.Fleets}
		sizesBySector[name] = sizes
	}

	l := &Loop{
		config:         cfg,
		clusterReader:  clusterReader,
		fleetReader:    fleetReader,
		actuator:       act,
		clk:            clock.RealClock{},
		tracer:         noop.NewTracerProvider().Tracer("controlloop"),
		recorder:       noopRecorder{},
		reservedCPU:    reservedCPU,
		reservedMemory: reservedMemory,
		sectors:        sectors,
		sizesBySector:  sizesBySector,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Option customizes a Loop at construction time.
type Option func(*Loop)

// WithClock overrides the clock used for the inter-tick sleep, for tests.
func WithClock(clk clock.Clock) Option {
	return func(l *Loop) { l.clk = clk }
}

// WithTracer overrides the tracer spans are recorded against.
func WithTracer(tracer trace.Tracer) Option {
	return func(l *Loop) { l.tracer = tracer }
}

// WithRecorder overrides the metrics recorder.
func WithRecorder(recorder Recorder) Option {
	return func(l *Loop) { l.recorder = recorder }
}

// SectorKinds extracts the sector -> kind map cluster.NewReader needs to
// filter nodes to configured sectors. It is derived directly from
// configuration so cmd/manager can build the cluster.Reader before a Loop
// exists (the reader is one of New's arguments).
func SectorKinds(cfg *v1alpha1.ManagerConfiguration) (map[string]catalog.Kind, error) {
	kinds := make(map[string]catalog.Kind, len(cfg.Sectors))
	for name, spec := range cfg.Sectors {
		kind, err := catalog.ParseKind(spec.Kind)
		if err != nil {
			return nil, fmt.Errorf("sector %q: %w", name, err)
		}
		kinds[name] = kind
	}
	return kinds, nil
}

// configuredSectors returns the sector-name set the demand projector needs.
func (l *Loop) configuredSectors() map[string]bool {
	set := make(map[string]bool, len(l.sectors))
	for name := range l.sectors {
		set[name] = true
	}
	return set
}

// Run executes tick after tick until ctx is canceled. A fatal error aborts
// the loop and is returned; a non-fatal per-tick error is logged and the
// loop continues after the next sleep. Cancellation is only observed at
// suspension points (start of tick, during sleep), never mid-actuation.
func (l *Loop) Run(ctx context.Context) error {
	interval := time.Duration(l.config.SleepIntervalSeconds) * time.Second

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := l.tick(ctx); err != nil {
			if isFatal(err) {
				return err
			}
			klog.ErrorS(err, "tick failed, will retry next interval")
		}

		timer := l.clk.NewTimer(interval)
		select {
		case <-timer.C():
		case <-ctx.Done():
			timer.Stop()
			return nil
		}
	}
}

// fatalError marks an error that should abort the loop rather than be
// retried next tick — narrowly, an unrecoverable authentication failure
// (config-load failure is fatal too, but that happens before Run starts).
type fatalError struct{ err error }

func (f *fatalError) Error() string { return f.err.Error() }
func (f *fatalError) Unwrap() error { return f.err }

func isFatal(err error) bool {
	var f *fatalError
	for err != nil {
		if fe, ok := err.(*fatalError); ok {
			f = fe
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return f != nil
}

// tick runs one full reconciliation: snapshot, project, plan, actuate.
func (l *Loop) tick(ctx context.Context) error {
	start := l.clk.Now()
	ctx, span := l.tracer.Start(ctx, "tick")
	defer span.End()
	defer func() { l.recorder.ObserveTickDuration(l.clk.Since(start)) }()

	clusterSnap, err := l.snapshotCluster(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.recorder.IncSnapshotError("cluster")
		wrapped := fmt.Errorf("snapshotting cluster: %w", err)
		if apierrors.IsUnauthorized(err) || apierrors.IsForbidden(err) {
			return &fatalError{err: wrapped}
		}
		return wrapped
	}

	fleetSnap := l.snapshotFleets(ctx)
	for _, missing := range fleetSnap.Missing {
		l.recorder.IncSnapshotError("fleet")
		klog.ErrorS(nil, "fleet missing from cloud snapshot this tick", "fleet", missing)
	}

	demandBySector := demand.Project(clusterSnap.Pods, l.configuredSectors())

	_, planSpan := l.tracer.Start(ctx, "plan")
	plans := l.planAll(clusterSnap, fleetSnap, demandBySector)
	planSpan.End()

	_, actSpan := l.tracer.Start(ctx, "actuate")
	l.actuateAll(ctx, plans, fleetSnap)
	actSpan.End()

	return nil
}

func (l *Loop) snapshotCluster(ctx context.Context) (cluster.Snapshot, error) {
	ctx, span := l.tracer.Start(ctx, "snapshot.cluster")
	defer span.End()
	snap, err := l.clusterReader.Read(ctx)
	if err != nil {
		return cluster.Snapshot{}, err
	}
	span.SetAttributes(attribute.Int("nodes", len(snap.Nodes)), attribute.Int("pods", len(snap.Pods)))
	return snap, nil
}

func (l *Loop) snapshotFleets(ctx context.Context) cloudfleet.Snapshot {
	ctx, span := l.tracer.Start(ctx, "snapshot.fleets")
	defer span.End()
	identities := cloudfleet.Identities(l.config.ClusterName, l.sizesBySector)
	return l.fleetReader.Read(ctx, identities)
}

// fleetPlanWithMeta pairs a FleetPlan with the identifying information the
// actuator needs but the planner itself does not compute.
type fleetPlanWithMeta struct {
	sector   string
	fleetID  string
	observed int64
	plan     planner.FleetPlan
}

func (l *Loop) planAll(clusterSnap cluster.Snapshot, fleetSnap cloudfleet.Snapshot, demandBySector map[string]*demand.Sector) []fleetPlanWithMeta {
	nodesBySector := make(map[string][]cluster.Node, len(l.sectors))
	for _, n := range clusterSnap.Nodes {
		nodesBySector[n.Fleet.Sector] = append(nodesBySector[n.Fleet.Sector], n)
	}

	missing := make(map[string]bool, len(fleetSnap.Missing))
	for _, name := range fleetSnap.Missing {
		missing[name] = true
	}

	var out []fleetPlanWithMeta
	for name, meta := range l.sectors {
		sectorDemand := demandBySector[name]
		podCounts := planner.CountPodsByNode(sectorDemand.Pods)

		sectorInput := planner.SectorInput{
			Name:           name,
			CPUDemand:      sectorDemand.CPU,
			MemoryDemand:   sectorDemand.Memory,
			PodCountByNode: podCounts,
		}

		identity := cloudfleet.Identity{Cluster: l.config.ClusterName, Sector: name}
		for _, f := range meta.fleets {
			size, err := catalog.ParseSize(f.Size)
			if err != nil {
				continue // already validated at load time; defensive only
			}

			identity.Size = size
			if missing[identity.FleetName()] {
				// No fresh fleet data this tick; take no action on it rather
				// than planning against a zero-value CurrentTarget.
				continue
			}

			nominal := catalog.Lookup(size, meta.kind)
			nodeCapacity := catalog.Schedulable(nominal, l.reservedCPU, l.reservedMemory)
			catalog.WarnIfExhausted(name, size, meta.kind, nodeCapacity)

			fleetState := fleetSnap.Fleets[identity.FleetName()]

			var nodes []cluster.Node
			for _, n := range nodesBySector[name] {
				if n.Fleet.Size == size {
					nodes = append(nodes, n)
				}
			}

			if warming := len(fleetState.InstanceIDs) - len(nodes); warming > 0 {
				// Instances the fleet already counts toward TargetCapacity
				// but that haven't registered as Nodes yet. Purely
				// informational: it doesn't change desired, cordon, or
				// uncordon below, it only explains the gap so it isn't
				// mistaken for lost capacity.
				klog.V(2).InfoS("fleet instances still warming up", "fleet", identity.FleetName(), "warming", warming)
			}

			sectorInput.Fleets = append(sectorInput.Fleets, planner.FleetInput{
				Size:          size,
				MinCapacity:   int64(f.MinCapacity),
				CurrentTarget: fleetState.TargetCapacity,
				NodeCapacity:  nodeCapacity,
				Nodes:         nodes,
			})
		}

		plans := planner.PlanSector(sectorInput, l.config.DefaultOverSubscription)
		for _, p := range plans {
			identity.Size = p.Size
			fleetState := fleetSnap.Fleets[identity.FleetName()]
			out = append(out, fleetPlanWithMeta{
				sector:   name,
				fleetID:  fleetState.FleetID,
				observed: fleetState.TargetCapacity,
				plan:     p,
			})
		}
	}
	return out
}

func (l *Loop) actuateAll(ctx context.Context, plans []fleetPlanWithMeta, fleetSnap cloudfleet.Snapshot) {
	for _, p := range plans {
		fleetName := p.sector + "-" + p.plan.Size.String()
		result := l.actuator.Apply(ctx, actuator.Input{
			FleetName:      fleetName,
			FleetID:        p.fleetID,
			ObservedTarget: p.observed,
			Plan:           p.plan,
		})

		if len(result.Cordoned) > 0 {
			l.recorder.IncNodesCordoned(p.sector, p.plan.Size, len(result.Cordoned))
		}
		if len(result.Uncordoned) > 0 {
			l.recorder.IncNodesUncordoned(p.sector, p.plan.Size, len(result.Uncordoned))
		}
		l.recorder.ObserveFleetTarget(p.sector, p.plan.Size, p.plan.DesiredTarget, p.observed)
	}
}
