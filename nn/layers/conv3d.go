package layers

import (
	"fmt"

	"occunet/tensor"
)

// Conv3D is a 3D convolutional layer over [batch, chan, depth, height, width]
// volumes with stride and zero padding.
type Conv3D struct {
	inChan, outChan int // number of input/output channels
	kernel          int // cubic kernel edge
	stride          int
	padding         int

	W *tensor.Tensor // weights: [outChan, inChan, k, k, k]
	B *tensor.Tensor // bias: [outChan], nil when bias is disabled
}

// NewConv3D creates a Conv3D layer with fan-in scaled uniform weights.
func NewConv3D(inChan, outChan, kernel, stride, padding int, bias bool) (*Conv3D, error) {
	if inChan < 1 || outChan < 1 {
		return nil, fmt.Errorf("%w: Conv3D channels must be positive, got in=%d out=%d", ErrConfiguration, inChan, outChan)
	}
	if kernel < 1 || stride < 1 || padding < 0 {
		return nil, fmt.Errorf("%w: Conv3D kernel=%d stride=%d padding=%d", ErrConfiguration, kernel, stride, padding)
	}
	c := &Conv3D{
		inChan:  inChan,
		outChan: outChan,
		kernel:  kernel,
		stride:  stride,
		padding: padding,
		W:       tensor.New(outChan, inChan, kernel, kernel, kernel),
	}
	fanIn := inChan * kernel * kernel * kernel
	initUniform(c.W.Data, fanIn)
	if bias {
		c.B = tensor.New(outChan)
		initUniform(c.B.Data, fanIn)
	}
	return c, nil
}

// OutChannels returns the number of output channels.
func (c *Conv3D) OutChannels() int { return c.outChan }

// outDim computes one output edge length for an input edge length.
func (c *Conv3D) outDim(in int) int {
	return (in+2*c.padding-c.kernel)/c.stride + 1
}

// Forward performs the convolution on a [batch, inChan, d, h, w] volume.
// Out-of-bounds taps read as zero (zero padding).
func (c *Conv3D) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if len(input.Shape) != 5 {
		return nil, fmt.Errorf("%w: Conv3D expects 5-D input, got %v", ErrShapeMismatch, input.Shape)
	}
	batch, inChan := input.Shape[0], input.Shape[1]
	if inChan != c.inChan {
		return nil, fmt.Errorf("%w: Conv3D expects %d input channels, got %d", ErrShapeMismatch, c.inChan, inChan)
	}
	d, h, w := input.Shape[2], input.Shape[3], input.Shape[4]
	outD, outH, outW := c.outDim(d), c.outDim(h), c.outDim(w)
	if outD < 1 || outH < 1 || outW < 1 {
		return nil, fmt.Errorf("%w: Conv3D kernel %d does not fit input %v with padding %d", ErrShapeMismatch, c.kernel, input.Shape, c.padding)
	}

	output := tensor.New(batch, c.outChan, outD, outH, outW)
	k := c.kernel

	for b := 0; b < batch; b++ {
		for oc := 0; oc < c.outChan; oc++ {
			for oz := 0; oz < outD; oz++ {
				for oy := 0; oy < outH; oy++ {
					for ox := 0; ox < outW; ox++ {
						sum := 0.0
						if c.B != nil {
							sum = c.B.Data[oc]
						}
						for ic := 0; ic < c.inChan; ic++ {
							for dz := 0; dz < k; dz++ {
								iz := oz*c.stride + dz - c.padding
								if iz < 0 || iz >= d {
									continue
								}
								for dy := 0; dy < k; dy++ {
									iy := oy*c.stride + dy - c.padding
									if iy < 0 || iy >= h {
										continue
									}
									for dx := 0; dx < k; dx++ {
										ix := ox*c.stride + dx - c.padding
										if ix < 0 || ix >= w {
											continue
										}
										wIdx := ((((oc*c.inChan+ic)*k+dz)*k+dy)*k + dx)
										inIdx := ((((b*c.inChan+ic)*d+iz)*h+iy)*w + ix)
										sum += input.Data[inIdx] * c.W.Data[wIdx]
									}
								}
							}
						}
						outIdx := ((((b*c.outChan+oc)*outD+oz)*outH+oy)*outW + ox)
						output.Data[outIdx] = sum
					}
				}
			}
		}
	}
	return output, nil
}

// Parameters returns the layer's named parameter tensors.
func (c *Conv3D) Parameters() map[string]*tensor.Tensor {
	p := map[string]*tensor.Tensor{"weight": c.W}
	if c.B != nil {
		p["bias"] = c.B
	}
	return p
}

func (c *Conv3D) Tag() string {
	return fmt.Sprintf("Conv3D_%d_%d_%d", c.inChan, c.outChan, c.kernel)
}
