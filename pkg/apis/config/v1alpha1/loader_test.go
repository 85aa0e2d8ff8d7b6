package v1alpha1

import "testing"

const validDoc = `
clusterName: test-cluster
sleepIntervalSeconds: 30
defaultOverSubscription: 0.2
reservedCpus: "1"
reservedMemory: "2.5Gi"
sectors:
  primary:
    kind: memory
    fleets:
      - size: small
        minCapacity: 0
      - size: medium
        minCapacity: 0
`

func TestLoadValidDocument(t *testing.T) {
	cfg, err := Load([]byte(validDoc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SleepIntervalSeconds != 30 {
		t.Errorf("SleepIntervalSeconds = %d, want 30", cfg.SleepIntervalSeconds)
	}
	if len(cfg.Sectors) != 1 {
		t.Fatalf("expected 1 sector, got %d", len(cfg.Sectors))
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	doc := `
clusterName: test-cluster
sectors:
  coordinate:
    kind: cpu
    fleets:
      - size: small
        minCapacity: 2
`
	cfg, err := Load([]byte(doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SleepIntervalSeconds != defaultSleepIntervalSeconds {
		t.Errorf("SleepIntervalSeconds = %d, want default %d", cfg.SleepIntervalSeconds, defaultSleepIntervalSeconds)
	}
	if cfg.ReservedCPU != defaultReservedCPU {
		t.Errorf("ReservedCPU = %q, want default %q", cfg.ReservedCPU, defaultReservedCPU)
	}
}

func TestLoadRejectsNoSectors(t *testing.T) {
	doc := `
clusterName: test-cluster
sleepIntervalSeconds: 30
reservedCpus: "0"
reservedMemory: "0"
sectors: {}
`
	if _, err := Load([]byte(doc)); err == nil {
		t.Fatal("expected error for empty sectors")
	}
}

func TestLoadRejectsDuplicateSize(t *testing.T) {
	doc := `
clusterName: test-cluster
sectors:
  primary:
    kind: memory
    fleets:
      - size: small
      - size: small
`
	if _, err := Load([]byte(doc)); err == nil {
		t.Fatal("expected error for duplicate size within a sector")
	}
}

func TestLoadRejectsUnknownKind(t *testing.T) {
	doc := `
clusterName: test-cluster
sectors:
  primary:
    kind: bogus
    fleets:
      - size: small
`
	if _, err := Load([]byte(doc)); err == nil {
		t.Fatal("expected error for unrecognized kind")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	if _, err := Load([]byte("not: [valid")); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}
