package layers

import (
	"fmt"
	"math"

	"occunet/tensor"
)

const normEpsilon = 1e-5

// InstanceNorm3D normalizes each (batch, channel) slice of a
// [batch, chan, d, h, w] volume over its spatial positions. It carries no
// learned parameters and behaves identically in training and eval mode.
type InstanceNorm3D struct{}

// NewInstanceNorm3D creates an InstanceNorm3D layer.
func NewInstanceNorm3D() *InstanceNorm3D { return &InstanceNorm3D{} }

// Forward normalizes x per (batch, channel) slice.
func (n *InstanceNorm3D) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if len(x.Shape) != 5 {
		return nil, fmt.Errorf("%w: InstanceNorm3D expects 5-D input, got %v", ErrShapeMismatch, x.Shape)
	}
	batch, ch := x.Shape[0], x.Shape[1]
	spatial := x.Shape[2] * x.Shape[3] * x.Shape[4]
	out := tensor.New(x.Shape...)

	for b := 0; b < batch; b++ {
		for c := 0; c < ch; c++ {
			base := (b*ch + c) * spatial
			mean := 0.0
			for i := 0; i < spatial; i++ {
				mean += x.Data[base+i]
			}
			mean /= float64(spatial)
			variance := 0.0
			for i := 0; i < spatial; i++ {
				d := x.Data[base+i] - mean
				variance += d * d
			}
			variance /= float64(spatial)
			inv := 1.0 / math.Sqrt(variance+normEpsilon)
			for i := 0; i < spatial; i++ {
				out.Data[base+i] = (x.Data[base+i] - mean) * inv
			}
		}
	}
	return out, nil
}

func (n *InstanceNorm3D) Tag() string { return "InstanceNorm3D" }

// BatchNorm3D normalizes each channel of a [batch, chan, d, h, w] volume over
// the batch and spatial positions, with learned per-channel scale and shift.
// Training mode uses batch statistics and updates the running estimates;
// eval mode uses the running estimates only.
type BatchNorm3D struct {
	numFeatures int
	momentum    float64
	training    bool

	Gamma       *tensor.Tensor // [chan], init 1
	Beta        *tensor.Tensor // [chan], init 0
	RunningMean *tensor.Tensor // [chan]
	RunningVar  *tensor.Tensor // [chan], init 1
}

// NewBatchNorm3D creates a BatchNorm3D layer for the given channel count.
func NewBatchNorm3D(numFeatures int) (*BatchNorm3D, error) {
	if numFeatures < 1 {
		return nil, fmt.Errorf("%w: BatchNorm3D needs at least one feature, got %d", ErrConfiguration, numFeatures)
	}
	bn := &BatchNorm3D{
		numFeatures: numFeatures,
		momentum:    0.1,
		training:    true,
		Gamma:       tensor.New(numFeatures),
		Beta:        tensor.New(numFeatures),
		RunningMean: tensor.New(numFeatures),
		RunningVar:  tensor.New(numFeatures),
	}
	for i := 0; i < numFeatures; i++ {
		bn.Gamma.Data[i] = 1
		bn.RunningVar.Data[i] = 1
	}
	return bn, nil
}

// SetTraining switches between batch statistics and running statistics.
func (bn *BatchNorm3D) SetTraining(training bool) { bn.training = training }

// Forward normalizes x per channel.
func (bn *BatchNorm3D) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if len(x.Shape) != 5 {
		return nil, fmt.Errorf("%w: BatchNorm3D expects 5-D input, got %v", ErrShapeMismatch, x.Shape)
	}
	batch, ch := x.Shape[0], x.Shape[1]
	if ch != bn.numFeatures {
		return nil, fmt.Errorf("%w: BatchNorm3D expects %d channels, got %d", ErrShapeMismatch, bn.numFeatures, ch)
	}
	spatial := x.Shape[2] * x.Shape[3] * x.Shape[4]
	count := batch * spatial
	out := tensor.New(x.Shape...)

	for c := 0; c < ch; c++ {
		var mean, variance float64
		if bn.training {
			for b := 0; b < batch; b++ {
				base := (b*ch + c) * spatial
				for i := 0; i < spatial; i++ {
					mean += x.Data[base+i]
				}
			}
			mean /= float64(count)
			for b := 0; b < batch; b++ {
				base := (b*ch + c) * spatial
				for i := 0; i < spatial; i++ {
					d := x.Data[base+i] - mean
					variance += d * d
				}
			}
			variance /= float64(count)
			bn.RunningMean.Data[c] = (1-bn.momentum)*bn.RunningMean.Data[c] + bn.momentum*mean
			bn.RunningVar.Data[c] = (1-bn.momentum)*bn.RunningVar.Data[c] + bn.momentum*variance
		} else {
			mean = bn.RunningMean.Data[c]
			variance = bn.RunningVar.Data[c]
		}

		inv := 1.0 / math.Sqrt(variance+normEpsilon)
		gamma, beta := bn.Gamma.Data[c], bn.Beta.Data[c]
		for b := 0; b < batch; b++ {
			base := (b*ch + c) * spatial
			for i := 0; i < spatial; i++ {
				out.Data[base+i] = (x.Data[base+i]-mean)*inv*gamma + beta
			}
		}
	}
	return out, nil
}

// Parameters returns the learned and running tensors.
func (bn *BatchNorm3D) Parameters() map[string]*tensor.Tensor {
	return map[string]*tensor.Tensor{
		"weight":       bn.Gamma,
		"bias":         bn.Beta,
		"running_mean": bn.RunningMean,
		"running_var":  bn.RunningVar,
	}
}

func (bn *BatchNorm3D) Tag() string {
	return fmt.Sprintf("BatchNorm3D_%d", bn.numFeatures)
}
