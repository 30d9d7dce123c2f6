package ckkswrapper

import (
	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/ckks"
)

// CheatBootstrap restores a ciphertext to the maximum level by decrypting,
// re-encoding and re-encrypting it. It requires the secret key and therefore
// only runs on the client side; a production deployment would substitute real
// bootstrapping here.
func (h *HeContext) CheatBootstrap(ct *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	pt := h.Decryptor.DecryptNew(ct)

	values := make([]complex128, h.Params.MaxSlots())
	if err := h.Encoder.Decode(pt, values); err != nil {
		return nil, err
	}

	fresh := ckks.NewPlaintext(h.Params, h.Params.MaxLevel())
	if err := h.Encoder.Encode(values, fresh); err != nil {
		return nil, err
	}
	return h.Encryptor.EncryptNew(fresh)
}

// NeedsBootstrap reports whether the ciphertext has at most threshold levels
// left. A non-positive threshold defaults to 1.
func NeedsBootstrap(ct *rlwe.Ciphertext, threshold int) bool {
	if threshold <= 0 {
		threshold = 1
	}
	return ct.Level() <= threshold
}
