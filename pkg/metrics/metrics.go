// Package metrics registers the fleet manager's Prometheus instruments and
// implements controlloop.Recorder against them, grounded on the component
// metrics packages throughout kubernetes-kubernetes (e.g.
// pkg/controller/cronjob/metrics.go): a package-level var block of
// k8s.io/component-base/metrics instruments, registered once into the
// legacy registry, with small methods that translate domain events into
// label values and observations.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/component-base/metrics"
	"k8s.io/component-base/metrics/legacyregistry"

	"github.com/fleetctl/manager/pkg/catalog"
)

const subsystem = "fleet_manager"

const (
	sectorKey = "sector"
	sizeKey   = "size"
	sourceKey = "source"
)

var tickDuration = metrics.NewHistogram(
	&metrics.HistogramOpts{
		Subsystem: subsystem,
		Name:      "tick_duration_seconds",
		Help:      "Duration in seconds of one control loop tick (snapshot, project, plan, actuate).",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})

var fleetDesiredTarget = metrics.NewGaugeVec(
	&metrics.GaugeOpts{
		Subsystem: subsystem,
		Name:      "fleet_desired_target",
		Help:      "The capacity planner's most recent desired target capacity for a fleet.",
	}, []string{sectorKey, sizeKey})

var fleetObservedTarget = metrics.NewGaugeVec(
	&metrics.GaugeOpts{
		Subsystem: subsystem,
		Name:      "fleet_observed_target",
		Help:      "The cloud fleet's observed target capacity as of the most recent snapshot.",
	}, []string{sectorKey, sizeKey})

var nodesCordonedTotal = metrics.NewCounterVec(
	&metrics.CounterOpts{
		Subsystem: subsystem,
		Name:      "nodes_cordoned_total",
		Help:      "Total number of nodes the actuator has cordoned.",
	}, []string{sectorKey, sizeKey})

var nodesUncordonedTotal = metrics.NewCounterVec(
	&metrics.CounterOpts{
		Subsystem: subsystem,
		Name:      "nodes_uncordoned_total",
		Help:      "Total number of nodes the actuator has uncordoned.",
	}, []string{sectorKey, sizeKey})

var snapshotErrorsTotal = metrics.NewCounterVec(
	&metrics.CounterOpts{
		Subsystem: subsystem,
		Name:      "snapshot_errors_total",
		Help:      "Total number of per-tick snapshot errors, by source (cluster or fleet).",
	}, []string{sourceKey})

var registerOnce sync.Once

// Register registers every instrument with the process's legacy registry.
// Safe to call more than once; only the first call has effect.
func Register() {
	registerOnce.Do(func() {
		legacyregistry.MustRegister(tickDuration)
		legacyregistry.MustRegister(fleetDesiredTarget)
		legacyregistry.MustRegister(fleetObservedTarget)
		legacyregistry.MustRegister(nodesCordonedTotal)
		legacyregistry.MustRegister(nodesUncordonedTotal)
		legacyregistry.MustRegister(snapshotErrorsTotal)
	})
}

// Handler serves the registered instruments in the Prometheus exposition
// format, for wiring into cmd/manager's --metrics-bind-address listener.
func Handler() http.Handler {
	return legacyregistry.Handler()
}

// Recorder implements controlloop.Recorder against this package's
// instruments. The zero value is ready to use once Register has been
// called.
type Recorder struct{}

func (Recorder) ObserveTickDuration(d time.Duration) {
	tickDuration.Observe(d.Seconds())
}

func (Recorder) ObserveFleetTarget(sector string, size catalog.Size, desired, observed int64) {
	fleetDesiredTarget.WithLabelValues(sector, size.String()).Set(float64(desired))
	fleetObservedTarget.WithLabelValues(sector, size.String()).Set(float64(observed))
}

func (Recorder) IncNodesCordoned(sector string, size catalog.Size, n int) {
	nodesCordonedTotal.WithLabelValues(sector, size.String()).Add(float64(n))
}

func (Recorder) IncNodesUncordoned(sector string, size catalog.Size, n int) {
	nodesUncordonedTotal.WithLabelValues(sector, size.String()).Add(float64(n))
}

func (Recorder) IncSnapshotError(source string) {
	snapshotErrorsTotal.WithLabelValues(source).Inc()
}
