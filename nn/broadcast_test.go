package nn

import (
	"errors"
	"testing"
)

func TestBroadcastParamFullList(t *testing.T) {
	out, err := BroadcastParam([]int{1, 2, 3}, 3, "kernels")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 || out[0] != 1 || out[1] != 2 || out[2] != 3 {
		t.Fatalf("unexpected result: %v", out)
	}
}

func TestBroadcastParamSingle(t *testing.T) {
	out, err := BroadcastParam([]string{"relu"}, 4, "activations")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(out))
	}
	for _, v := range out {
		if v != "relu" {
			t.Fatalf("unexpected entry %q", v)
		}
	}
}

func TestBroadcastParamBadLength(t *testing.T) {
	for _, values := range [][]float64{{}, {1, 2}, {1, 2, 3, 4}} {
		_, err := BroadcastParam(values, 3, "dropout rates")
		if !errors.Is(err, ErrConfiguration) {
			t.Fatalf("len %d: expected ErrConfiguration, got %v", len(values), err)
		}
	}
}

func TestBroadcastParamCopies(t *testing.T) {
	src := []int{7, 8}
	out, err := BroadcastParam(src, 2, "strides")
	if err != nil {
		t.Fatal(err)
	}
	out[0] = 99
	if src[0] != 7 {
		t.Fatal("broadcast aliases the input slice")
	}
}

func TestBroadcastParamStructs(t *testing.T) {
	type chanPair struct{ in, out int }
	out, err := BroadcastParam([]chanPair{{1, 32}}, 2, "channels")
	if err != nil {
		t.Fatal(err)
	}
	if out[1].out != 32 {
		t.Fatalf("unexpected entry %+v", out[1])
	}
}
