package demand

import (
	"testing"

	"github.com/fleetctl/manager/pkg/cluster"
	"github.com/fleetctl/manager/pkg/quantity"
)

func pod(sector string, cpu, mem string) cluster.Pod {
	cpuQ, _ := quantity.ParseCPU(cpu)
	memQ, _ := quantity.ParseMemory(mem)
	sel := map[string]string{}
	if sector != "" {
		sel[SectorSelectorKey] = sector
	}
	return cluster.Pod{
		NodeSelector: sel,
		Requests:     cluster.PodRequests{CPU: cpuQ, Memory: memQ},
	}
}

func TestProjectSumsBySector(t *testing.T) {
	pods := []cluster.Pod{
		pod("primary", "1", "1Gi"),
		pod("primary", "2", "2Gi"),
		pod("coordinate", "1", "1Gi"),
	}
	result := Project(pods, map[string]bool{"primary": true, "coordinate": true})

	if result["primary"].CPU.MilliValue() != 3000 {
		t.Errorf("primary cpu = %d, want 3000", result["primary"].CPU.MilliValue())
	}
	if len(result["primary"].Pods) != 2 {
		t.Errorf("primary pod count = %d, want 2", len(result["primary"].Pods))
	}
}

func TestProjectIgnoresPodWithoutSectorSelector(t *testing.T) {
	pods := []cluster.Pod{pod("", "1", "1Gi")}
	result := Project(pods, map[string]bool{"primary": true})
	if !result["primary"].CPU.IsZero() {
		t.Errorf("expected zero demand, got %v", result["primary"].CPU)
	}
}

func TestProjectIgnoresUnconfiguredSector(t *testing.T) {
	pods := []cluster.Pod{pod("unknown", "1", "1Gi")}
	result := Project(pods, map[string]bool{"primary": true})
	if !result["primary"].CPU.IsZero() {
		t.Errorf("expected zero demand, got %v", result["primary"].CPU)
	}
}

func TestProjectIncludesEveryConfiguredSectorEvenWithNoPods(t *testing.T) {
	result := Project(nil, map[string]bool{"primary": true, "coordinate": true})
	if len(result) != 2 {
		t.Fatalf("expected 2 sectors, got %d", len(result))
	}
	for name, sector := range result {
		if !sector.CPU.IsZero() || !sector.Memory.IsZero() {
			t.Errorf("sector %s expected zero demand, got cpu=%v mem=%v", name, sector.CPU, sector.Memory)
		}
	}
}
