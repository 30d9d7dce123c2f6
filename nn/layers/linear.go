package layers

import (
	"fmt"

	"occunet/tensor"
)

// Linear is a fully-connected layer computing y = x·Wᵀ + b on row-major
// [n, in] inputs.
type Linear struct {
	W *tensor.Tensor // weights: [outDim, inDim]
	B *tensor.Tensor // bias: [outDim], nil when the layer carries no bias
}

// NewLinear(inDim→outDim) sets up W and (optionally) B with fan-in
// scaled uniform initialization.
func NewLinear(inDim, outDim int, bias bool) *Linear {
	l := &Linear{W: tensor.New(outDim, inDim)}
	initUniform(l.W.Data, inDim)
	if bias {
		l.B = tensor.New(outDim)
		initUniform(l.B.Data, inDim)
	}
	return l
}

// InDim returns the expected input width.
func (l *Linear) InDim() int { return l.W.Shape[1] }

// OutDim returns the produced output width.
func (l *Linear) OutDim() int { return l.W.Shape[0] }

// Forward computes y = x·Wᵀ + b for x of shape [n, inDim].
func (l *Linear) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if len(x.Shape) != 2 {
		return nil, fmt.Errorf("%w: Linear expects 2-D input, got %v", ErrShapeMismatch, x.Shape)
	}
	outDim, inDim := l.W.Shape[0], l.W.Shape[1]
	if x.Shape[1] != inDim {
		return nil, fmt.Errorf("%w: Linear expects input width %d, got %d", ErrShapeMismatch, inDim, x.Shape[1])
	}
	n := x.Shape[0]
	out := tensor.New(n, outDim)
	for i := 0; i < n; i++ {
		for j := 0; j < outDim; j++ {
			sum := 0.0
			if l.B != nil {
				sum = l.B.Data[j]
			}
			for k := 0; k < inDim; k++ {
				sum += x.Data[i*inDim+k] * l.W.Data[j*inDim+k]
			}
			out.Data[i*outDim+j] = sum
		}
	}
	return out, nil
}

// Parameters returns the layer's named parameter tensors.
func (l *Linear) Parameters() map[string]*tensor.Tensor {
	p := map[string]*tensor.Tensor{"weight": l.W}
	if l.B != nil {
		p["bias"] = l.B
	}
	return p
}

func (l *Linear) Tag() string {
	return fmt.Sprintf("Linear_%d_%d", l.W.Shape[1], l.W.Shape[0])
}
