package layers

import "occunet/tensor"

// Flatten collapses all non-batch dimensions: [b, ...] -> [b, prod(...)].
type Flatten struct{}

func NewFlatten() *Flatten { return &Flatten{} }

func (f *Flatten) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	return tensor.FlattenBatch(x)
}

func (f *Flatten) Tag() string { return "Flatten" }
