package nn

import (
	"errors"
	"math"
	"testing"

	"occunet/tensor"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestResolveActivationKnownValues(t *testing.T) {
	in := &tensor.Tensor{Data: []float64{-2, -0.5, 0, 1.5}, Shape: []int{4}}

	cases := []struct {
		name string
		want []float64
	}{
		{"none", []float64{-2, -0.5, 0, 1.5}},
		{"relu", []float64{0, 0, 0, 1.5}},
		{"leaky relu", []float64{-0.02, -0.005, 0, 1.5}},
		{"prelu", []float64{-0.5, -0.125, 0, 1.5}},
		{"tanh", []float64{math.Tanh(-2), math.Tanh(-0.5), 0, math.Tanh(1.5)}},
		{"sigmoid", []float64{Sigmoid(-2), Sigmoid(-0.5), 0.5, Sigmoid(1.5)}},
	}
	for _, tc := range cases {
		act, err := ResolveActivation(tc.name)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		out := act.Apply(in)
		for i := range tc.want {
			if !almostEqual(out.Data[i], tc.want[i], 1e-12) {
				t.Errorf("%s at %d: got %v, want %v", tc.name, i, out.Data[i], tc.want[i])
			}
		}
	}
}

func TestSELU(t *testing.T) {
	act, err := ResolveActivation("selu")
	if err != nil {
		t.Fatal(err)
	}
	out := act.Apply(&tensor.Tensor{Data: []float64{1, -1}, Shape: []int{2}})
	if !almostEqual(out.Data[0], 1.0507009873554805, 1e-12) {
		t.Errorf("selu(1) = %v", out.Data[0])
	}
	want := 1.0507009873554805 * 1.6732632423543772 * (math.Exp(-1) - 1)
	if !almostEqual(out.Data[1], want, 1e-12) {
		t.Errorf("selu(-1) = %v, want %v", out.Data[1], want)
	}
}

func TestResolveActivationUnknown(t *testing.T) {
	_, err := ResolveActivation("swish")
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestPReLUInstancesIndependent(t *testing.T) {
	a, _ := ResolveActivation("prelu")
	b, _ := ResolveActivation("prelu")
	a.(*PReLU).Alpha.Data[0] = 0.9
	if b.(*PReLU).Alpha.Data[0] != 0.25 {
		t.Fatal("prelu instances share their slope")
	}
}
