package catalog

import (
	"testing"

	"github.com/fleetctl/manager/pkg/quantity"
)

func TestLookupMatchesTShirtTable(t *testing.T) {
	cases := []struct {
		size    Size
		kind    Kind
		wantCPU string
		wantMem string
	}{
		{XSmall, KindMemory, "2", "15.25Gi"},
		{Large, KindMemory, "16", "122Gi"},
		{XLarge, KindCPU, "64", "144Gi"},
		{Small, KindCPU, "8", "15Gi"},
	}
	for _, tc := range cases {
		got := Lookup(tc.size, tc.kind)
		wantCPU, _ := quantity.ParseCPU(tc.wantCPU)
		wantMem, _ := quantity.ParseMemory(tc.wantMem)
		if got.CPU.Cmp(wantCPU) != 0 {
			t.Errorf("Lookup(%s,%s).CPU = %v, want %v", tc.size, tc.kind, got.CPU, wantCPU)
		}
		if got.Memory.Cmp(wantMem) != 0 {
			t.Errorf("Lookup(%s,%s).Memory = %v, want %v", tc.size, tc.kind, got.Memory, wantMem)
		}
	}
}

func TestSchedulableSubtractsReservation(t *testing.T) {
	nominal := Lookup(Medium, KindMemory)
	reservedCPU, _ := quantity.ParseCPU("1")
	reservedMem, _ := quantity.ParseMemory("2.5Gi")

	got := Schedulable(nominal, reservedCPU, reservedMem)

	wantCPU, _ := quantity.ParseCPU("7")
	if got.CPU.Cmp(wantCPU) != 0 {
		t.Errorf("schedulable cpu = %v, want %v", got.CPU, wantCPU)
	}
}

func TestSchedulableFloorsAtZero(t *testing.T) {
	nominal := Lookup(XSmall, KindMemory)
	reservedCPU, _ := quantity.ParseCPU("100")
	reservedMem, _ := quantity.ParseMemory("1Ti")

	got := Schedulable(nominal, reservedCPU, reservedMem)

	if !got.CPU.IsZero() || !got.Memory.IsZero() {
		t.Errorf("expected fully exhausted schedulable capacity, got %+v", got)
	}
}

func TestParseSizeAndKindRoundTrip(t *testing.T) {
	for _, sz := range Sizes {
		parsed, err := ParseSize(sz.String())
		if err != nil {
			t.Fatalf("ParseSize(%q): %v", sz.String(), err)
		}
		if parsed != sz {
			t.Errorf("ParseSize(%q) = %v, want %v", sz.String(), parsed, sz)
		}
	}
	for _, k := range []Kind{KindMemory, KindCPU} {
		parsed, err := ParseKind(k.String())
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", k.String(), err)
		}
		if parsed != k {
			t.Errorf("ParseKind(%q) = %v, want %v", k.String(), parsed, k)
		}
	}
}

func TestParseSizeRejectsUnknown(t *testing.T) {
	if _, err := ParseSize("huge"); err == nil {
		t.Fatal("expected error for unrecognized size")
	}
}
