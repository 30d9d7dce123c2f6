package layers

import (
	"fmt"
	"math"

	"occunet/tensor"
)

// ConditionalBatchNorm normalizes [n, features] activations with batch
// statistics and then applies a per-row scale and shift derived from a
// conditioning latent through two learned linear maps. At initialization the
// scale map produces 1 and the shift map produces 0 for every latent, so the
// layer starts as plain batch normalization.
type ConditionalBatchNorm struct {
	numFeatures int
	latentDim   int
	momentum    float64
	training    bool

	ScaleMap *Linear // latent -> per-feature scale
	ShiftMap *Linear // latent -> per-feature shift

	RunningMean *tensor.Tensor // [features]
	RunningVar  *tensor.Tensor // [features], init 1
}

// NewConditionalBatchNorm creates the layer for the given feature width and
// conditioning latent width.
func NewConditionalBatchNorm(numFeatures, latentDim int) (*ConditionalBatchNorm, error) {
	if numFeatures < 1 || latentDim < 1 {
		return nil, fmt.Errorf("%w: ConditionalBatchNorm features=%d latentDim=%d", ErrConfiguration, numFeatures, latentDim)
	}
	cbn := &ConditionalBatchNorm{
		numFeatures: numFeatures,
		latentDim:   latentDim,
		momentum:    0.1,
		training:    true,
		ScaleMap:    NewLinear(latentDim, numFeatures, true),
		ShiftMap:    NewLinear(latentDim, numFeatures, true),
		RunningMean: tensor.New(numFeatures),
		RunningVar:  tensor.New(numFeatures),
	}
	// Start at identity: scale(latent) = 1, shift(latent) = 0.
	for i := range cbn.ScaleMap.W.Data {
		cbn.ScaleMap.W.Data[i] = 0
	}
	for i := range cbn.ScaleMap.B.Data {
		cbn.ScaleMap.B.Data[i] = 1
	}
	for i := range cbn.ShiftMap.W.Data {
		cbn.ShiftMap.W.Data[i] = 0
	}
	for i := range cbn.ShiftMap.B.Data {
		cbn.ShiftMap.B.Data[i] = 0
	}
	for i := 0; i < numFeatures; i++ {
		cbn.RunningVar.Data[i] = 1
	}
	return cbn, nil
}

// SetTraining switches between batch statistics and running statistics.
func (cbn *ConditionalBatchNorm) SetTraining(training bool) { cbn.training = training }

// Forward normalizes x [n, features] and modulates it with scale/shift rows
// derived from latent [n, latentDim].
func (cbn *ConditionalBatchNorm) Forward(x, latent *tensor.Tensor) (*tensor.Tensor, error) {
	if len(x.Shape) != 2 || x.Shape[1] != cbn.numFeatures {
		return nil, fmt.Errorf("%w: ConditionalBatchNorm expects [n, %d] input, got %v", ErrShapeMismatch, cbn.numFeatures, x.Shape)
	}
	if len(latent.Shape) != 2 || latent.Shape[1] != cbn.latentDim {
		return nil, fmt.Errorf("%w: ConditionalBatchNorm expects [n, %d] latent, got %v", ErrShapeMismatch, cbn.latentDim, latent.Shape)
	}
	if latent.Shape[0] != x.Shape[0] {
		return nil, fmt.Errorf("%w: ConditionalBatchNorm latent rows %d do not match input rows %d", ErrShapeMismatch, latent.Shape[0], x.Shape[0])
	}

	n, f := x.Shape[0], cbn.numFeatures

	scale, err := cbn.ScaleMap.Forward(latent)
	if err != nil {
		return nil, err
	}
	shift, err := cbn.ShiftMap.Forward(latent)
	if err != nil {
		return nil, err
	}

	out := tensor.New(n, f)
	for j := 0; j < f; j++ {
		var mean, variance float64
		if cbn.training {
			for i := 0; i < n; i++ {
				mean += x.Data[i*f+j]
			}
			mean /= float64(n)
			for i := 0; i < n; i++ {
				d := x.Data[i*f+j] - mean
				variance += d * d
			}
			variance /= float64(n)
			cbn.RunningMean.Data[j] = (1-cbn.momentum)*cbn.RunningMean.Data[j] + cbn.momentum*mean
			cbn.RunningVar.Data[j] = (1-cbn.momentum)*cbn.RunningVar.Data[j] + cbn.momentum*variance
		} else {
			mean = cbn.RunningMean.Data[j]
			variance = cbn.RunningVar.Data[j]
		}
		inv := 1.0 / math.Sqrt(variance+normEpsilon)
		for i := 0; i < n; i++ {
			norm := (x.Data[i*f+j] - mean) * inv
			out.Data[i*f+j] = norm*scale.Data[i*f+j] + shift.Data[i*f+j]
		}
	}
	return out, nil
}

// Parameters returns the conditioning maps and running tensors.
func (cbn *ConditionalBatchNorm) Parameters() map[string]*tensor.Tensor {
	return map[string]*tensor.Tensor{
		"scale.weight": cbn.ScaleMap.W,
		"scale.bias":   cbn.ScaleMap.B,
		"shift.weight": cbn.ShiftMap.W,
		"shift.bias":   cbn.ShiftMap.B,
		"running_mean": cbn.RunningMean,
		"running_var":  cbn.RunningVar,
	}
}

func (cbn *ConditionalBatchNorm) Tag() string {
	return fmt.Sprintf("ConditionalBatchNorm_%d_%d", cbn.numFeatures, cbn.latentDim)
}
