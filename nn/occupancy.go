package nn

import (
	"fmt"

	"occunet/nn/layers"
	"occunet/tensor"
)

// Fusion selects how the encoder latent and the query coordinates are
// combined before decoding.
type Fusion int

const (
	// FusionRepeatConcat flattens the latent, repeats it per query and
	// concatenates it to the coordinates; the repeated latent also conditions
	// every decoder block's normalization.
	FusionRepeatConcat Fusion = iota
	// FusionNoConcat feeds the coordinates alone into the first decoder
	// block; the latent only conditions the normalization.
	FusionNoConcat
	// FusionConvolutional embeds the coordinates into a volume, concatenates
	// it channel-wise with the repeated encoder output and decodes with a
	// secondary convolutional stack.
	FusionConvolutional
)

// DefaultThreshold is the occupancy decision boundary: a coordinate counts
// as occupied when its score exceeds this value.
const DefaultThreshold = 0.1

// NetworkConfig assembles an occupancy network.
type NetworkConfig struct {
	Encoder EncoderConfig
	Decoder DecoderConfig // unused for FusionConvolutional
	Fusion  Fusion

	// OutputActivation defaults to "sigmoid".
	OutputActivation string
	// Threshold is the InferLabels decision boundary; defaults to
	// DefaultThreshold when zero.
	Threshold float64

	// FusionConvolutional only.
	CoordChannels int           // channels of the learned coordinate embedding
	FeatureShape  []int         // encoder output [chan, d, h, w]
	ConvDecoder   EncoderConfig // secondary convolutional stack
}

// DefaultNetworkConfig mirrors the reference model for cubic volumes of the
// given edge length (which must be divisible by 16 for the four pooling
// stages).
func DefaultNetworkConfig(volumeEdge int) NetworkConfig {
	reduced := volumeEdge / 16
	latentDim := 8 * reduced * reduced * reduced
	return NetworkConfig{
		Encoder:   DefaultEncoderConfig(),
		Decoder:   DefaultDecoderConfig(latentDim),
		Fusion:    FusionRepeatConcat,
		Threshold: DefaultThreshold,
	}
}

// OccupancyNetwork scores query coordinates against an encoded volume.
type OccupancyNetwork struct {
	fusion    Fusion
	encoder   *Encoder
	decoder   *Decoder // nil for FusionConvolutional
	head      *layers.Linear
	outAct    Activation
	threshold float64
	latentDim int

	// FusionConvolutional only.
	coordEmbed   *layers.Linear
	convDecoder  *Encoder
	featureShape []int
}

// NewOccupancyNetwork builds the network from cfg.
func NewOccupancyNetwork(cfg NetworkConfig) (*OccupancyNetwork, error) {
	encoder, err := NewEncoder(cfg.Encoder)
	if err != nil {
		return nil, err
	}

	outName := cfg.OutputActivation
	if outName == "" {
		outName = "sigmoid"
	}
	outAct, err := ResolveActivation(outName)
	if err != nil {
		return nil, err
	}

	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}

	n := &OccupancyNetwork{
		fusion:    cfg.Fusion,
		encoder:   encoder,
		outAct:    outAct,
		threshold: threshold,
	}

	switch cfg.Fusion {
	case FusionRepeatConcat, FusionNoConcat:
		decoder, err := NewDecoder(cfg.Decoder)
		if err != nil {
			return nil, err
		}
		wantIn := 3
		if cfg.Fusion == FusionRepeatConcat {
			wantIn = cfg.Decoder.LatentDim + 3
		}
		if decoder.InDim() != wantIn {
			return nil, fmt.Errorf("%w: first decoder block expects width %d, configured %d", ErrConfiguration, wantIn, decoder.InDim())
		}
		n.decoder = decoder
		n.latentDim = cfg.Decoder.LatentDim
		n.head = layers.NewLinear(decoder.OutDim(), 1, true)

	case FusionConvolutional:
		if len(cfg.FeatureShape) != 4 {
			return nil, fmt.Errorf("%w: convolutional fusion needs a [chan,d,h,w] feature shape, got %v", ErrConfiguration, cfg.FeatureShape)
		}
		if cfg.CoordChannels < 1 {
			return nil, fmt.Errorf("%w: convolutional fusion needs at least one coordinate channel, got %d", ErrConfiguration, cfg.CoordChannels)
		}
		d, h, w := cfg.FeatureShape[1], cfg.FeatureShape[2], cfg.FeatureShape[3]
		n.featureShape = append([]int(nil), cfg.FeatureShape...)
		n.coordEmbed = layers.NewLinear(3, cfg.CoordChannels*d*h*w, true)

		convDecoder, err := NewEncoder(cfg.ConvDecoder)
		if err != nil {
			return nil, err
		}
		n.convDecoder = convDecoder

		headIn, err := convStackOutputSize(cfg.ConvDecoder, d, h, w)
		if err != nil {
			return nil, err
		}
		n.head = layers.NewLinear(headIn, 1, true)

	default:
		return nil, fmt.Errorf("%w: unknown fusion strategy %d", ErrConfiguration, cfg.Fusion)
	}
	return n, nil
}

// convStackOutputSize traces an encoder configuration's output geometry for
// the given input edges, returning the flattened width.
func convStackOutputSize(cfg EncoderConfig, d, h, w int) (int, error) {
	count := len(cfg.Channels)
	kernels, err := BroadcastParam(cfg.Kernels, count, "kernels")
	if err != nil {
		return 0, err
	}
	strides, err := BroadcastParam(cfg.Strides, count, "strides")
	if err != nil {
		return 0, err
	}
	paddings, err := BroadcastParam(cfg.Paddings, count, "paddings")
	if err != nil {
		return 0, err
	}
	downs, err := BroadcastParam(cfg.Downsamplings, count, "downsamplings")
	if err != nil {
		return 0, err
	}
	factors, err := BroadcastParam(cfg.PoolFactors, count, "pool factors")
	if err != nil {
		return 0, err
	}
	edge := func(in, i int) int { return (in+2*paddings[i]-kernels[i])/strides[i] + 1 }
	for i := 0; i < count; i++ {
		d, h, w = edge(d, i), edge(h, i), edge(w, i)
		if downs[i] == "averagepool" {
			d, h, w = d/factors[i], h/factors[i], w/factors[i]
		}
		if d < 1 || h < 1 || w < 1 {
			return 0, fmt.Errorf("%w: convolutional decoder collapses the volume at block %d", ErrConfiguration, i)
		}
	}
	return cfg.Channels[count-1][1] * d * h * w, nil
}

// Threshold returns the configured decision boundary.
func (n *OccupancyNetwork) Threshold() float64 { return n.threshold }

// Predict scores coords [nq, 3] against volume [b, c, d, h, w], returning
// occupancy scores [nq, 1]. The query count must be a multiple of the batch
// size; queries are grouped block-contiguously per volume.
func (n *OccupancyNetwork) Predict(volume, coords *tensor.Tensor) (*tensor.Tensor, error) {
	features, err := n.Features(volume, coords)
	if err != nil {
		return nil, err
	}
	logits, err := n.head.Forward(features)
	if err != nil {
		return nil, err
	}
	return n.outAct.Apply(logits), nil
}

// Features runs the network up to but not including the scoring head,
// returning the per-query feature vectors the head consumes. This is the
// hand-off point for serving the head remotely.
func (n *OccupancyNetwork) Features(volume, coords *tensor.Tensor) (*tensor.Tensor, error) {
	if len(volume.Shape) != 5 {
		return nil, fmt.Errorf("%w: expected 5-D volume, got %v", ErrShapeMismatch, volume.Shape)
	}
	if len(coords.Shape) != 2 || coords.Shape[1] != 3 {
		return nil, fmt.Errorf("%w: expected [nq, 3] coordinates, got %v", ErrShapeMismatch, coords.Shape)
	}
	batch, nq := volume.Shape[0], coords.Shape[0]
	if nq%batch != 0 {
		return nil, fmt.Errorf("%w: query count %d is not a multiple of batch size %d", ErrShapeMismatch, nq, batch)
	}
	k := nq / batch

	enc, err := n.encoder.Forward(volume)
	if err != nil {
		return nil, err
	}

	var features *tensor.Tensor
	switch n.fusion {
	case FusionRepeatConcat, FusionNoConcat:
		flat, err := tensor.FlattenBatch(enc)
		if err != nil {
			return nil, err
		}
		if flat.Shape[1] != n.latentDim {
			return nil, fmt.Errorf("%w: encoder produced latent width %d, decoder conditioned on %d", ErrShapeMismatch, flat.Shape[1], n.latentDim)
		}
		latent, err := tensor.RepeatRows(flat, k)
		if err != nil {
			return nil, err
		}
		state := coords
		if n.fusion == FusionRepeatConcat {
			// Latent columns lead, coordinates trail.
			if state, err = tensor.ConcatCols(latent, coords); err != nil {
				return nil, err
			}
		}
		if features, err = n.decoder.Forward(state, latent); err != nil {
			return nil, err
		}

	case FusionConvolutional:
		for i, want := range n.featureShape {
			if enc.Shape[i+1] != want {
				return nil, fmt.Errorf("%w: encoder produced feature shape %v, expected %v", ErrShapeMismatch, enc.Shape[1:], n.featureShape)
			}
		}
		rep, err := tensor.RepeatBatch(enc, k)
		if err != nil {
			return nil, err
		}
		embFlat, err := n.coordEmbed.Forward(coords)
		if err != nil {
			return nil, err
		}
		ce := n.coordEmbed.OutDim() / (n.featureShape[1] * n.featureShape[2] * n.featureShape[3])
		emb, err := embFlat.Reshape(nq, ce, n.featureShape[1], n.featureShape[2], n.featureShape[3])
		if err != nil {
			return nil, err
		}
		fused, err := tensor.ConcatChannels(rep, emb)
		if err != nil {
			return nil, err
		}
		dec, err := n.convDecoder.Forward(fused)
		if err != nil {
			return nil, err
		}
		if features, err = tensor.FlattenBatch(dec); err != nil {
			return nil, err
		}
	}
	return features, nil
}

// Head returns the final linear scoring layer.
func (n *OccupancyNetwork) Head() *layers.Linear { return n.head }

// InferLabels scores coords against volume and thresholds the result into
// {0, 1} occupancy labels using the configured decision boundary.
func (n *OccupancyNetwork) InferLabels(volume, coords *tensor.Tensor) (*tensor.Tensor, error) {
	scores, err := n.Predict(volume, coords)
	if err != nil {
		return nil, err
	}
	return ThresholdScores(scores, n.threshold), nil
}

// ThresholdScores maps scores to 1 where score > threshold and 0 elsewhere.
func ThresholdScores(scores *tensor.Tensor, threshold float64) *tensor.Tensor {
	out := tensor.New(scores.Shape...)
	for i, v := range scores.Data {
		if v > threshold {
			out.Data[i] = 1
		}
	}
	return out
}

// Train switches the network into training mode (batch statistics, dropout).
func (n *OccupancyNetwork) Train() { n.setTraining(true) }

// Eval switches the network into deterministic eval mode.
func (n *OccupancyNetwork) Eval() { n.setTraining(false) }

func (n *OccupancyNetwork) setTraining(training bool) {
	n.encoder.SetTraining(training)
	if n.decoder != nil {
		n.decoder.SetTraining(training)
	}
	if n.convDecoder != nil {
		n.convDecoder.SetTraining(training)
	}
}

// Parameters returns every parameter tensor keyed by a dotted path such as
// "encoder.0.conv.weight".
func (n *OccupancyNetwork) Parameters() map[string]*tensor.Tensor {
	p := map[string]*tensor.Tensor{}
	prefixParams(p, "encoder", n.encoder.Parameters())
	if n.decoder != nil {
		prefixParams(p, "decoder", n.decoder.Parameters())
	}
	if n.coordEmbed != nil {
		prefixParams(p, "coord_embed", n.coordEmbed.Parameters())
	}
	if n.convDecoder != nil {
		prefixParams(p, "conv_decoder", n.convDecoder.Parameters())
	}
	prefixParams(p, "head", n.head.Parameters())
	return p
}

// LoadParameters restores parameter tensors exported by Parameters. Every
// entry must name an existing parameter with a matching shape, and every
// parameter must be present.
func (n *OccupancyNetwork) LoadParameters(params map[string]*tensor.Tensor) error {
	own := n.Parameters()
	for name := range params {
		if _, ok := own[name]; !ok {
			return fmt.Errorf("%w: unknown parameter %q", ErrConfiguration, name)
		}
	}
	for name, dst := range own {
		src, ok := params[name]
		if !ok {
			return fmt.Errorf("%w: missing parameter %q", ErrConfiguration, name)
		}
		if len(src.Data) != len(dst.Data) {
			return fmt.Errorf("%w: parameter %q has %d values, expected %d", ErrShapeMismatch, name, len(src.Data), len(dst.Data))
		}
		copy(dst.Data, src.Data)
	}
	return nil
}
