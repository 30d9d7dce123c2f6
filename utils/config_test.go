package utils

import "testing"

func TestParseIntList(t *testing.T) {
	got, err := ParseIntList("1 32 32 64")
	if err != nil {
		t.Fatalf("ParseIntList failed: %v", err)
	}
	want := []int{1, 32, 32, 64}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}

	if _, err := ParseIntList("1 abc 3"); err == nil {
		t.Error("expected error for non-numeric entry")
	}
}

func TestParseFloatList(t *testing.T) {
	got, err := ParseFloatList("0 0.1 0.5")
	if err != nil {
		t.Fatalf("ParseFloatList failed: %v", err)
	}
	if len(got) != 3 || got[1] != 0.1 {
		t.Fatalf("got %v, want [0 0.1 0.5]", got)
	}
}

func TestChainPairs(t *testing.T) {
	pairs, err := ChainPairs([]int{1, 32, 64})
	if err != nil {
		t.Fatalf("ChainPairs failed: %v", err)
	}
	if len(pairs) != 2 || pairs[0] != [2]int{1, 32} || pairs[1] != [2]int{32, 64} {
		t.Errorf("pairs = %v, want [[1 32] [32 64]]", pairs)
	}

	if _, err := ChainPairs([]int{5}); err == nil {
		t.Error("expected error for a single-entry chain")
	}
}

func TestValidateConfig(t *testing.T) {
	valid := &Config{Variant: "repeat", VolumeEdge: 32, BatchSize: 2, Queries: 8, Threshold: 0.1}
	if err := ValidateConfig(valid); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	cases := []struct {
		name string
		cfg  Config
	}{
		{"bad variant", Config{Variant: "magic", VolumeEdge: 32, BatchSize: 2, Queries: 8, Threshold: 0.1}},
		{"zero edge", Config{Variant: "repeat", VolumeEdge: 0, BatchSize: 2, Queries: 8, Threshold: 0.1}},
		{"zero batch", Config{Variant: "repeat", VolumeEdge: 32, BatchSize: 0, Queries: 8, Threshold: 0.1}},
		{"indivisible queries", Config{Variant: "repeat", VolumeEdge: 32, BatchSize: 3, Queries: 8, Threshold: 0.1}},
		{"threshold out of range", Config{Variant: "repeat", VolumeEdge: 32, BatchSize: 2, Queries: 8, Threshold: 1.0}},
	}
	for _, tc := range cases {
		if err := ValidateConfig(&tc.cfg); err == nil {
			t.Errorf("%s: expected an error", tc.name)
		}
	}
}
