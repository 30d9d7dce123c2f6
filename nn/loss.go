package nn

import (
	"fmt"
	"math"

	"occunet/tensor"
)

// lossEpsilon clamps predictions away from 0 and 1 before taking logs.
const lossEpsilon = 1e-7

// BCELoss is binary cross-entropy over occupancy scores in [0, 1].
type BCELoss struct{}

// Forward returns the mean loss over all elements.
func (BCELoss) Forward(pred, target *tensor.Tensor) (float64, error) {
	if len(pred.Data) != len(target.Data) {
		return 0, fmt.Errorf("%w: prediction has %d values, target %d", ErrShapeMismatch, len(pred.Data), len(target.Data))
	}
	if len(pred.Data) == 0 {
		return 0, fmt.Errorf("%w: empty prediction", ErrShapeMismatch)
	}
	sum := 0.0
	for i, p := range pred.Data {
		p = math.Min(math.Max(p, lossEpsilon), 1-lossEpsilon)
		t := target.Data[i]
		sum -= t*math.Log(p) + (1-t)*math.Log(1-p)
	}
	return sum / float64(len(pred.Data)), nil
}

// Backward returns the gradient of the mean loss with respect to the
// predictions.
func (BCELoss) Backward(pred, target *tensor.Tensor) (*tensor.Tensor, error) {
	if len(pred.Data) != len(target.Data) {
		return nil, fmt.Errorf("%w: prediction has %d values, target %d", ErrShapeMismatch, len(pred.Data), len(target.Data))
	}
	grad := tensor.New(pred.Shape...)
	inv := 1.0 / float64(len(pred.Data))
	for i, p := range pred.Data {
		p = math.Min(math.Max(p, lossEpsilon), 1-lossEpsilon)
		t := target.Data[i]
		grad.Data[i] = (p - t) / (p * (1 - p)) * inv
	}
	return grad, nil
}
