package ckkswrapper

import (
	"math"
	"testing"

	"github.com/tuneinsight/lattigo/v6/schemes/ckks"
)

func TestHeContextRoundTrip(t *testing.T) {
	h := NewHeContextWithLogN(12)

	vals := []complex128{3.1415926535}
	pt := ckks.NewPlaintext(h.Params, h.Params.MaxLevel())
	if err := h.Encoder.Encode(vals, pt); err != nil {
		t.Fatalf("encode: %v", err)
	}
	ct, err := h.Encryptor.EncryptNew(pt)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	out := h.Decryptor.DecryptNew(ct)
	decoded := make([]complex128, h.Params.MaxSlots())
	if err := h.Encoder.Decode(out, decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := math.Abs(real(decoded[0]) - real(vals[0])); diff > 1e-9 {
		t.Fatalf("roundtrip mismatch: got %f, want %f", real(decoded[0]), real(vals[0]))
	}
}

func TestServerKitRotation(t *testing.T) {
	h := NewHeContextWithLogN(12)
	kit := h.GenServerKit([]int{1, 2, -1})

	slots := h.Params.MaxSlots()
	data := make([]float64, slots)
	for i := 0; i < 8; i++ {
		data[i] = float64(i)
	}
	pt := ckks.NewPlaintext(h.Params, h.Params.MaxLevel())
	if err := h.Encoder.Encode(data, pt); err != nil {
		t.Fatalf("encode: %v", err)
	}
	ct, err := h.Encryptor.EncryptNew(pt)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	rot, err := kit.Evaluator.RotateNew(ct, 1)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	out := h.Decryptor.DecryptNew(rot)
	decoded := make([]complex128, slots)
	if err := h.Encoder.Decode(out, decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// Rotation by +1 brings slot 1 into slot 0.
	if diff := math.Abs(real(decoded[0]) - 1); diff > 1e-6 {
		t.Fatalf("rotation mismatch: got %f, want 1", real(decoded[0]))
	}
}

func TestWorkerEvaluatorIndependent(t *testing.T) {
	h := NewHeContextWithLogN(12)
	kit := h.GenServerKit([]int{1})
	worker := kit.GetWorkerEvaluator()
	if worker == kit.Evaluator {
		t.Fatal("worker evaluator must be a copy")
	}
}
