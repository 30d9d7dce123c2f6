package nn

import (
	"fmt"

	"occunet/nn/layers"
	"occunet/tensor"
)

// EncoderConfig describes a stack of volume encoder blocks. Every list is
// broadcast to the block count (the length of Channels): a single entry
// applies to all blocks, a full-length list sets each block individually.
type EncoderConfig struct {
	Channels       [][2]int // (in, out) channel pair per block; fixes the block count
	Kernels        []int
	Strides        []int
	Paddings       []int
	Bias           []bool
	Activations    []string
	Normalizations []string // "none", "batchnorm", "instancenorm"
	Downsamplings  []string // "none", "averagepool"
	PoolFactors    []int
	DropoutRates   []float64
}

// DefaultEncoderConfig mirrors the reference occupancy model: five blocks,
// 1→32→32→64→64→8 channels, 3³ kernels with unit stride and padding, leaky
// relu, instance normalization, factor-2 average pooling on all but the last
// block, no bias.
func DefaultEncoderConfig() EncoderConfig {
	return EncoderConfig{
		Channels:       [][2]int{{1, 32}, {32, 32}, {32, 64}, {64, 64}, {64, 8}},
		Kernels:        []int{3},
		Strides:        []int{1},
		Paddings:       []int{1},
		Bias:           []bool{false},
		Activations:    []string{"leaky relu"},
		Normalizations: []string{"instancenorm"},
		Downsamplings:  []string{"averagepool", "averagepool", "averagepool", "averagepool", "none"},
		PoolFactors:    []int{2},
		DropoutRates:   []float64{0},
	}
}

// EncoderBlock runs conv3d → normalization → activation → [pool] → [dropout]
// on a [batch, chan, d, h, w] volume.
type EncoderBlock struct {
	conv    *layers.Conv3D
	norm    volumeNorm // nil for "none"
	act     Activation
	pool    *layers.AvgPool3D // nil for "none"
	dropout *layers.Dropout   // nil when the rate is 0
}

func newEncoderBlock(cfg EncoderConfig, i int) (*EncoderBlock, error) {
	conv, err := layers.NewConv3D(cfg.Channels[i][0], cfg.Channels[i][1], cfg.Kernels[i], cfg.Strides[i], cfg.Paddings[i], cfg.Bias[i])
	if err != nil {
		return nil, err
	}
	b := &EncoderBlock{conv: conv}

	switch cfg.Normalizations[i] {
	case "none":
	case "batchnorm":
		bn, err := layers.NewBatchNorm3D(cfg.Channels[i][1])
		if err != nil {
			return nil, err
		}
		b.norm = bn
	case "instancenorm":
		b.norm = layers.NewInstanceNorm3D()
	default:
		return nil, fmt.Errorf("%w: unknown normalization %q", ErrConfiguration, cfg.Normalizations[i])
	}

	if b.act, err = ResolveActivation(cfg.Activations[i]); err != nil {
		return nil, err
	}

	switch cfg.Downsamplings[i] {
	case "none":
	case "averagepool":
		pool, err := layers.NewAvgPool3D(cfg.PoolFactors[i])
		if err != nil {
			return nil, err
		}
		b.pool = pool
	default:
		return nil, fmt.Errorf("%w: unknown downsampling %q", ErrConfiguration, cfg.Downsamplings[i])
	}

	if cfg.DropoutRates[i] > 0 {
		if b.dropout, err = layers.NewDropout(cfg.DropoutRates[i]); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Forward runs the block on a 5-D volume.
func (b *EncoderBlock) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	out, err := b.conv.Forward(x)
	if err != nil {
		return nil, err
	}
	if b.norm != nil {
		if out, err = b.norm.Forward(out); err != nil {
			return nil, err
		}
	}
	out = b.act.Apply(out)
	if b.pool != nil {
		if out, err = b.pool.Forward(out); err != nil {
			return nil, err
		}
	}
	if b.dropout != nil {
		if out, err = b.dropout.Forward(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (b *EncoderBlock) setTraining(training bool) {
	if t, ok := b.norm.(trainable); ok {
		t.SetTraining(training)
	}
	if b.dropout != nil {
		b.dropout.SetTraining(training)
	}
}

func (b *EncoderBlock) parameters() map[string]*tensor.Tensor {
	p := map[string]*tensor.Tensor{}
	prefixParams(p, "conv", b.conv.Parameters())
	if ps, ok := b.norm.(paramSource); ok {
		prefixParams(p, "norm", ps.Parameters())
	}
	if prelu, ok := b.act.(*PReLU); ok {
		p["act.alpha"] = prelu.Alpha
	}
	return p
}

// Encoder compresses a volume through a stack of encoder blocks.
type Encoder struct {
	blocks []*EncoderBlock
}

// NewEncoder builds the block stack from a broadcastable configuration.
func NewEncoder(cfg EncoderConfig) (*Encoder, error) {
	count := len(cfg.Channels)
	if count == 0 {
		return nil, fmt.Errorf("%w: encoder needs at least one block", ErrConfiguration)
	}

	var err error
	if cfg.Kernels, err = BroadcastParam(cfg.Kernels, count, "kernels"); err != nil {
		return nil, err
	}
	if cfg.Strides, err = BroadcastParam(cfg.Strides, count, "strides"); err != nil {
		return nil, err
	}
	if cfg.Paddings, err = BroadcastParam(cfg.Paddings, count, "paddings"); err != nil {
		return nil, err
	}
	if cfg.Bias, err = BroadcastParam(cfg.Bias, count, "bias"); err != nil {
		return nil, err
	}
	if cfg.Activations, err = BroadcastParam(cfg.Activations, count, "activations"); err != nil {
		return nil, err
	}
	if cfg.Normalizations, err = BroadcastParam(cfg.Normalizations, count, "normalizations"); err != nil {
		return nil, err
	}
	if cfg.Downsamplings, err = BroadcastParam(cfg.Downsamplings, count, "downsamplings"); err != nil {
		return nil, err
	}
	if cfg.PoolFactors, err = BroadcastParam(cfg.PoolFactors, count, "pool factors"); err != nil {
		return nil, err
	}
	if cfg.DropoutRates, err = BroadcastParam(cfg.DropoutRates, count, "dropout rates"); err != nil {
		return nil, err
	}

	e := &Encoder{blocks: make([]*EncoderBlock, count)}
	for i := 0; i < count; i++ {
		block, err := newEncoderBlock(cfg, i)
		if err != nil {
			return nil, fmt.Errorf("encoder block %d: %w", i, err)
		}
		e.blocks[i] = block
	}
	return e, nil
}

// Forward runs all blocks, returning the final feature volume.
func (e *Encoder) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	var err error
	for i, b := range e.blocks {
		if x, err = b.Forward(x); err != nil {
			return nil, fmt.Errorf("encoder block %d: %w", i, err)
		}
	}
	return x, nil
}

// SetTraining switches all blocks between training and eval behavior.
func (e *Encoder) SetTraining(training bool) {
	for _, b := range e.blocks {
		b.setTraining(training)
	}
}

// Parameters returns all parameter tensors keyed "<block>.<layer>.<name>".
func (e *Encoder) Parameters() map[string]*tensor.Tensor {
	p := map[string]*tensor.Tensor{}
	for i, b := range e.blocks {
		prefixParams(p, fmt.Sprintf("%d", i), b.parameters())
	}
	return p
}
