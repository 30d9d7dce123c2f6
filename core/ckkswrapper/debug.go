//go:build debug

package ckkswrapper

import (
	"math"
	"testing"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"

	"occunet/tensor"
)

// DebugCompare decrypts ct and checks its leading slots against a shadow
// tensor carrying the expected plaintext values. Slots beyond the shadow's
// length are ignored, so a short shadow can pin just the slots a computation
// is known to populate. Divergence beyond tolerance fails the test; the
// maximum difference is always logged. Only built with the debug tag, since
// it needs the secret key and has no place in a deployed server.
func (he *HeContext) DebugCompare(ct *rlwe.Ciphertext, shadow *tensor.Tensor, label string, tolerance float64, t *testing.T) {
	t.Helper()

	decoded := make([]complex128, he.Params.MaxSlots())
	he.Encoder.Decode(he.Decryptor.DecryptNew(ct), decoded)

	maxDiff, maxIdx := 0.0, -1
	for i, want := range shadow.Data {
		if i >= len(decoded) {
			break
		}
		got := real(decoded[i])
		diff := math.Abs(got - want)
		if diff > maxDiff {
			maxDiff, maxIdx = diff, i
		}
		if diff > tolerance {
			t.Errorf("%s: slot %d diverged: got %f, want %f (diff %f)", label, i, got, want, diff)
		}
		if math.Abs(got) > 100 || math.Abs(want) > 100 {
			t.Logf("%s: slot %d magnitude suggests scale drift: got %f, want %f", label, i, got, want)
		}
	}
	t.Logf("%s: max difference %f at slot %d (tolerance %f)", label, maxDiff, maxIdx, tolerance)
}
