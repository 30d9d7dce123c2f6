package nn

import (
	"fmt"

	"occunet/nn/layers"
	"occunet/tensor"
)

// DecoderConfig describes a stack of coordinate-conditioned decoder blocks.
// Every list is broadcast to the block count (the length of Dims).
type DecoderConfig struct {
	Dims           [][2]int // (in, out) width pair per block; fixes the block count
	Bias           []bool
	Activations    []string
	Normalizations []string // "none", "cbatchnorm"
	DropoutRates   []float64
	Residual       []bool
	LatentDim      int // width of the conditioning latent rows
}

// DefaultDecoderConfig mirrors the reference occupancy model: five blocks of
// width 128 with conditional batch normalization and leaky relu, the first
// fed with the repeated latent concatenated to the coordinates.
func DefaultDecoderConfig(latentDim int) DecoderConfig {
	return DecoderConfig{
		Dims:           [][2]int{{latentDim + 3, 128}, {128, 128}, {128, 128}, {128, 128}, {128, 128}},
		Bias:           []bool{true},
		Activations:    []string{"leaky relu"},
		Normalizations: []string{"cbatchnorm"},
		DropoutRates:   []float64{0},
		Residual:       []bool{false},
		LatentDim:      latentDim,
	}
}

// DecoderBlock runs linear → conditional normalization(·, latent) →
// activation → [dropout], with an optional residual path added on top. The
// residual path is the identity when the widths match and a learned bias-free
// projection otherwise.
type DecoderBlock struct {
	linear   *layers.Linear
	norm     *layers.ConditionalBatchNorm // nil for "none"
	act      Activation
	dropout  *layers.Dropout // nil when the rate is 0
	residual bool
	skip     *layers.Linear // nil when the residual path is the identity
}

func newDecoderBlock(cfg DecoderConfig, i int) (*DecoderBlock, error) {
	inDim, outDim := cfg.Dims[i][0], cfg.Dims[i][1]
	b := &DecoderBlock{
		linear:   layers.NewLinear(inDim, outDim, cfg.Bias[i]),
		residual: cfg.Residual[i],
	}

	switch cfg.Normalizations[i] {
	case "none":
	case "cbatchnorm":
		cbn, err := layers.NewConditionalBatchNorm(outDim, cfg.LatentDim)
		if err != nil {
			return nil, err
		}
		b.norm = cbn
	default:
		return nil, fmt.Errorf("%w: unknown normalization %q", ErrConfiguration, cfg.Normalizations[i])
	}

	var err error
	if b.act, err = ResolveActivation(cfg.Activations[i]); err != nil {
		return nil, err
	}
	if cfg.DropoutRates[i] > 0 {
		if b.dropout, err = layers.NewDropout(cfg.DropoutRates[i]); err != nil {
			return nil, err
		}
	}
	if b.residual && inDim != outDim {
		b.skip = layers.NewLinear(inDim, outDim, false)
	}
	return b, nil
}

// Forward runs the block on state [n, in] conditioned by latent [n, latentDim].
func (b *DecoderBlock) Forward(state, latent *tensor.Tensor) (*tensor.Tensor, error) {
	out, err := b.linear.Forward(state)
	if err != nil {
		return nil, err
	}
	if b.norm != nil {
		if out, err = b.norm.Forward(out, latent); err != nil {
			return nil, err
		}
	}
	out = b.act.Apply(out)
	if b.dropout != nil {
		if out, err = b.dropout.Forward(out); err != nil {
			return nil, err
		}
	}
	if b.residual {
		skip := state
		if b.skip != nil {
			if skip, err = b.skip.Forward(state); err != nil {
				return nil, err
			}
		}
		if out, err = tensor.Add(out, skip); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (b *DecoderBlock) setTraining(training bool) {
	if b.norm != nil {
		b.norm.SetTraining(training)
	}
	if b.dropout != nil {
		b.dropout.SetTraining(training)
	}
}

func (b *DecoderBlock) parameters() map[string]*tensor.Tensor {
	p := map[string]*tensor.Tensor{}
	prefixParams(p, "linear", b.linear.Parameters())
	if b.norm != nil {
		prefixParams(p, "norm", b.norm.Parameters())
	}
	if b.skip != nil {
		prefixParams(p, "skip", b.skip.Parameters())
	}
	if prelu, ok := b.act.(*PReLU); ok {
		p["act.alpha"] = prelu.Alpha
	}
	return p
}

// Decoder maps per-query features to the scoring-head width, conditioning
// every block on the same latent rows.
type Decoder struct {
	blocks []*DecoderBlock
}

// NewDecoder builds the block stack from a broadcastable configuration.
func NewDecoder(cfg DecoderConfig) (*Decoder, error) {
	count := len(cfg.Dims)
	if count == 0 {
		return nil, fmt.Errorf("%w: decoder needs at least one block", ErrConfiguration)
	}
	if cfg.LatentDim < 1 {
		return nil, fmt.Errorf("%w: decoder latent dim must be positive, got %d", ErrConfiguration, cfg.LatentDim)
	}

	var err error
	if cfg.Bias, err = BroadcastParam(cfg.Bias, count, "bias"); err != nil {
		return nil, err
	}
	if cfg.Activations, err = BroadcastParam(cfg.Activations, count, "activations"); err != nil {
		return nil, err
	}
	if cfg.Normalizations, err = BroadcastParam(cfg.Normalizations, count, "normalizations"); err != nil {
		return nil, err
	}
	if cfg.DropoutRates, err = BroadcastParam(cfg.DropoutRates, count, "dropout rates"); err != nil {
		return nil, err
	}
	if cfg.Residual, err = BroadcastParam(cfg.Residual, count, "residual"); err != nil {
		return nil, err
	}

	d := &Decoder{blocks: make([]*DecoderBlock, count)}
	for i := 0; i < count; i++ {
		block, err := newDecoderBlock(cfg, i)
		if err != nil {
			return nil, fmt.Errorf("decoder block %d: %w", i, err)
		}
		d.blocks[i] = block
	}
	return d, nil
}

// OutDim returns the width produced by the last block.
func (d *Decoder) OutDim() int { return d.blocks[len(d.blocks)-1].linear.OutDim() }

// InDim returns the width expected by the first block.
func (d *Decoder) InDim() int { return d.blocks[0].linear.InDim() }

// Forward runs all blocks on state conditioned by latent.
func (d *Decoder) Forward(state, latent *tensor.Tensor) (*tensor.Tensor, error) {
	var err error
	for i, b := range d.blocks {
		if state, err = b.Forward(state, latent); err != nil {
			return nil, fmt.Errorf("decoder block %d: %w", i, err)
		}
	}
	return state, nil
}

// SetTraining switches all blocks between training and eval behavior.
func (d *Decoder) SetTraining(training bool) {
	for _, b := range d.blocks {
		b.setTraining(training)
	}
}

// Parameters returns all parameter tensors keyed "<block>.<layer>.<name>".
func (d *Decoder) Parameters() map[string]*tensor.Tensor {
	p := map[string]*tensor.Tensor{}
	for i, b := range d.blocks {
		prefixParams(p, fmt.Sprintf("%d", i), b.parameters())
	}
	return p
}
