package quantity

import "testing"

func TestParseCPURoundTrip(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"500m", "500m"},
		{"2", "2"},
		{"0.5", "500m"},
		{"1500m", "1500m"},
		{"2000m", "2"},
	}
	for _, tc := range cases {
		q, err := ParseCPU(tc.input)
		if err != nil {
			t.Fatalf("ParseCPU(%q): %v", tc.input, err)
		}
		if got := FormatCPU(q); got != tc.want {
			t.Errorf("ParseCPU(%q) formatted = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestParseMemoryRoundTrip(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"2Gi", "2Gi"},
		{"2.5Gi", "2560Mi"},
		{"1500Mi", "1500Mi"},
		{"1024", "1Ki"},
		{"100", "100"},
	}
	for _, tc := range cases {
		q, err := ParseMemory(tc.input)
		if err != nil {
			t.Fatalf("ParseMemory(%q): %v", tc.input, err)
		}
		if got := FormatMemory(q); got != tc.want {
			t.Errorf("ParseMemory(%q) formatted = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestParseCPUNegativeRejected(t *testing.T) {
	if _, err := ParseCPU("-1"); err == nil {
		t.Fatal("expected error for negative cpu quantity")
	}
}

func TestParseCPUInvalidSuffix(t *testing.T) {
	if _, err := ParseCPU("2x"); err == nil {
		t.Fatal("expected error for malformed cpu quantity")
	}
}

func TestAddAndSub(t *testing.T) {
	a, _ := ParseCPU("500m")
	b, _ := ParseCPU("750m")
	sum := a.Add(b)
	if FormatCPU(sum) != "1250m" {
		t.Errorf("sum = %s, want 1250m", FormatCPU(sum))
	}
	diff := a.Sub(b)
	if !diff.IsZero() {
		t.Errorf("a.Sub(b) should floor at zero, got %s", FormatCPU(diff))
	}
}

func TestCeilDiv(t *testing.T) {
	total, _ := ParseCPU("2500m")
	perNode, _ := ParseCPU("1000m")
	if got := CeilDiv(total, perNode); got != 3 {
		t.Errorf("CeilDiv(2500m, 1000m) = %d, want 3", got)
	}

	exact, _ := ParseCPU("2000m")
	if got := CeilDiv(exact, perNode); got != 2 {
		t.Errorf("CeilDiv(2000m, 1000m) = %d, want 2", got)
	}

	zero := Zero(CPU)
	if got := CeilDiv(zero, perNode); got != 0 {
		t.Errorf("CeilDiv(0, 1000m) = %d, want 0", got)
	}
}

func TestCmp(t *testing.T) {
	small, _ := ParseMemory("1Gi")
	large, _ := ParseMemory("2Gi")
	if !small.LessThan(large) {
		t.Error("expected 1Gi < 2Gi")
	}
	if !large.GreaterThanOrEqual(small) {
		t.Error("expected 2Gi >= 1Gi")
	}
	if small.Cmp(small) != 0 {
		t.Error("expected 1Gi == 1Gi")
	}
}

func TestMismatchedDimensionPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on dimension mismatch")
		}
	}()
	cpu, _ := ParseCPU("1")
	mem, _ := ParseMemory("1Gi")
	cpu.Add(mem)
}
