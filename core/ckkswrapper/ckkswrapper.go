package ckkswrapper

import (
	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/ckks"
)

// HeContext bundles the CKKS parameters with the client-side keys and
// operators. The secret key never leaves the context; servers only receive
// evaluation material through GenServerKit.
type HeContext struct {
	Params    ckks.Parameters
	Encoder   *ckks.Encoder
	Encryptor *rlwe.Encryptor
	Decryptor *rlwe.Decryptor

	kgen *rlwe.KeyGenerator
	sk   *rlwe.SecretKey
	pk   *rlwe.PublicKey
}

// NewHeContext creates a context with the default ring dimension (LogN 13).
func NewHeContext() *HeContext {
	return NewHeContextWithLogN(13)
}

// ParametersLiteral returns the scheme parameters for a given ring dimension.
// Client and server both derive their parameters from this literal, so only
// logN needs to travel.
func ParametersLiteral(logN int) ckks.ParametersLiteral {
	return ckks.ParametersLiteral{
		LogN:            logN,
		LogQ:            []int{55, 45, 45, 45, 45},
		LogP:            []int{61},
		LogDefaultScale: 45,
	}
}

// NewHeContextWithLogN creates a context with the given ring dimension.
// Smaller rings are useful in tests; 2^13 slots comfortably hold the scoring
// head's feature vectors.
func NewHeContextWithLogN(logN int) *HeContext {
	params, err := ckks.NewParametersFromLiteral(ParametersLiteral(logN))
	if err != nil {
		panic(err)
	}
	kgen := rlwe.NewKeyGenerator(params)
	sk, pk := kgen.GenKeyPairNew()
	return &HeContext{
		Params:    params,
		Encoder:   ckks.NewEncoder(params),
		Encryptor: rlwe.NewEncryptor(params, pk),
		Decryptor: rlwe.NewDecryptor(params, sk),
		kgen:      kgen,
		sk:        sk,
		pk:        pk,
	}
}

// ServerKit carries the evaluation-side operators: everything a server needs
// to compute on ciphertexts without being able to decrypt them.
type ServerKit struct {
	Params    ckks.Parameters
	Encoder   *ckks.Encoder
	Evaluator *ckks.Evaluator
}

// GenEvaluationKeys generates a relinearization key and Galois keys for the
// given rotation offsets. Duplicate and zero offsets are ignored.
func (h *HeContext) GenEvaluationKeys(rotations []int) *rlwe.MemEvaluationKeySet {
	rlk := h.kgen.GenRelinearizationKeyNew(h.sk)

	seen := make(map[int]struct{}, len(rotations))
	galEls := make([]uint64, 0, len(rotations))
	for _, rot := range rotations {
		if rot == 0 {
			continue
		}
		if _, ok := seen[rot]; ok {
			continue
		}
		seen[rot] = struct{}{}
		galEls = append(galEls, h.Params.GaloisElement(rot))
	}
	gks := h.kgen.GenGaloisKeysNew(galEls, h.sk)

	return rlwe.NewMemEvaluationKeySet(rlk, gks...)
}

// GenServerKit generates evaluation keys for the given rotation offsets and
// returns an evaluator wired to them.
func (h *HeContext) GenServerKit(rotations []int) *ServerKit {
	return NewServerKit(h.Params, h.GenEvaluationKeys(rotations))
}

// NewServerKit wraps received evaluation key material for a server that does
// not hold the secret key, e.g. after a protocol setup message.
func NewServerKit(params ckks.Parameters, evk rlwe.EvaluationKeySet) *ServerKit {
	return &ServerKit{
		Params:    params,
		Encoder:   ckks.NewEncoder(params),
		Evaluator: ckks.NewEvaluator(params, evk),
	}
}

// GetWorkerEvaluator returns an evaluator copy safe for use on another
// goroutine.
func (k *ServerKit) GetWorkerEvaluator() *ckks.Evaluator {
	return k.Evaluator.ShallowCopy()
}

// Refresh returns ct restored to the maximum level via the cheat bootstrap.
// It panics on encryption failure, which only happens with corrupted keys.
func (h *HeContext) Refresh(ct *rlwe.Ciphertext) *rlwe.Ciphertext {
	refreshed, err := h.CheatBootstrap(ct)
	if err != nil {
		panic(err)
	}
	return refreshed
}
