package nn

import "occunet/tensor"

// trainable is implemented by layers whose behavior differs between training
// and eval mode (batch statistics, dropout).
type trainable interface {
	SetTraining(training bool)
}

// paramSource is implemented by layers that carry named parameter tensors.
type paramSource interface {
	Parameters() map[string]*tensor.Tensor
}

// volumeNorm is the normalization slot of an encoder block.
type volumeNorm interface {
	Forward(x *tensor.Tensor) (*tensor.Tensor, error)
}

// prefixParams copies src entries into dst under prefix+".".
func prefixParams(dst map[string]*tensor.Tensor, prefix string, src map[string]*tensor.Tensor) {
	for name, t := range src {
		dst[prefix+"."+name] = t
	}
}
