package layers

import (
	"fmt"

	"occunet/tensor"
)

// AvgPool3D averages non-overlapping cubic windows, shrinking each spatial
// axis of a [batch, chan, d, h, w] volume by the pool factor.
type AvgPool3D struct {
	poolSize int
}

// NewAvgPool3D creates an average-pooling layer with the given factor.
func NewAvgPool3D(p int) (*AvgPool3D, error) {
	if p < 1 {
		return nil, fmt.Errorf("%w: AvgPool3D factor must be >= 1, got %d", ErrConfiguration, p)
	}
	return &AvgPool3D{poolSize: p}, nil
}

// Forward pools a [batch, chan, d, h, w] volume. Spatial dims must be
// divisible by the pool factor.
func (a *AvgPool3D) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if len(x.Shape) != 5 {
		return nil, fmt.Errorf("%w: AvgPool3D expects 5-D input, got %v", ErrShapeMismatch, x.Shape)
	}
	batch, ch, d, h, w := x.Shape[0], x.Shape[1], x.Shape[2], x.Shape[3], x.Shape[4]
	p := a.poolSize
	if d%p != 0 || h%p != 0 || w%p != 0 {
		return nil, fmt.Errorf("%w: AvgPool3D factor %d does not divide spatial dims %v", ErrShapeMismatch, p, x.Shape[2:])
	}
	outD, outH, outW := d/p, h/p, w/p
	out := tensor.New(batch, ch, outD, outH, outW)
	inv := 1.0 / float64(p*p*p)

	for b := 0; b < batch; b++ {
		for c := 0; c < ch; c++ {
			for oz := 0; oz < outD; oz++ {
				for oy := 0; oy < outH; oy++ {
					for ox := 0; ox < outW; ox++ {
						sum := 0.0
						for pz := 0; pz < p; pz++ {
							for py := 0; py < p; py++ {
								for px := 0; px < p; px++ {
									iz := oz*p + pz
									iy := oy*p + py
									ix := ox*p + px
									idx := ((((b*ch+c)*d+iz)*h+iy)*w + ix)
									sum += x.Data[idx]
								}
							}
						}
						outIdx := ((((b*ch+c)*outD+oz)*outH+oy)*outW + ox)
						out.Data[outIdx] = sum * inv
					}
				}
			}
		}
	}
	return out, nil
}

func (a *AvgPool3D) Tag() string {
	return fmt.Sprintf("AvgPool3D_%d", a.poolSize)
}
