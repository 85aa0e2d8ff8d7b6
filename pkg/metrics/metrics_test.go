package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/model"

	"github.com/fleetctl/manager/pkg/catalog"
)

func TestRegisterIsIdempotent(t *testing.T) {
	Register()
	Register()
}

func TestRecorderMethodsAreObservableThroughTheHandler(t *testing.T) {
	Register()
	r := Recorder{}

	r.ObserveTickDuration(150 * time.Millisecond)
	r.ObserveFleetTarget("primary", catalog.Small, 3, 2)
	r.IncNodesCordoned("primary", catalog.Small, 1)
	r.IncNodesUncordoned("primary", catalog.Small, 1)
	r.IncSnapshotError("cluster")
	r.IncSnapshotError("fleet")

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading metrics body: %v", err)
	}

	got := sampleValue(t, string(body), "fleet_manager_fleet_desired_target", model.LabelSet{
		"sector": "primary",
		"size":   "small",
	})
	if got != 3 {
		t.Errorf("fleet_manager_fleet_desired_target{sector=primary,size=small} = %v, want 3", got)
	}

	got = sampleValue(t, string(body), "fleet_manager_snapshot_errors_total", model.LabelSet{"source": "cluster"})
	if got != 1 {
		t.Errorf("fleet_manager_snapshot_errors_total{source=cluster} = %v, want 1", got)
	}
}

// sampleValue decodes a Prometheus text-exposition body and returns the
// value of the first sample matching name whose labels are a superset of
// want, grounded on the text-decoding idiom used against live /metrics
// endpoints in kubernetes-kubernetes's API priority-and-fairness
// integration tests.
func sampleValue(t *testing.T, body, name string, want model.LabelSet) model.SampleValue {
	t.Helper()
	dec := expfmt.NewDecoder(strings.NewReader(body), expfmt.FmtText)
	decoder := expfmt.SampleDecoder{Dec: dec, Opts: &expfmt.DecodeOptions{}}

	for {
		var vec model.Vector
		if err := decoder.Decode(&vec); err != nil {
			if err == io.EOF {
				break
			}
			t.Fatalf("decoding metrics: %v", err)
		}
		for _, sample := range vec {
			if string(sample.Metric[model.MetricNameLabel]) != name {
				continue
			}
			matches := true
			for k, v := range want {
				if sample.Metric[k] != v {
					matches = false
					break
				}
			}
			if matches {
				return sample.Value
			}
		}
	}
	t.Fatalf("no sample found for metric %q matching %v", name, want)
	return 0
}
