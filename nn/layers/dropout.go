package layers

import (
	"fmt"
	"math/rand"

	"occunet/tensor"
)

// Dropout zeroes each element with probability rate during training and
// rescales the survivors by 1/(1-rate) so the expectation is unchanged.
// In eval mode it is the identity.
type Dropout struct {
	rate     float64
	training bool
	rng      *rand.Rand
}

// NewDropout creates a Dropout layer with the given drop probability.
func NewDropout(rate float64) (*Dropout, error) {
	if rate < 0 || rate >= 1 {
		return nil, fmt.Errorf("%w: Dropout rate must be in [0,1), got %g", ErrConfiguration, rate)
	}
	return &Dropout{rate: rate, training: true, rng: rand.New(rand.NewSource(rand.Int63()))}, nil
}

// SetTraining switches the layer between dropping and identity behavior.
func (d *Dropout) SetTraining(training bool) { d.training = training }

// Seed reseeds the layer's random source, for reproducible runs.
func (d *Dropout) Seed(seed int64) { d.rng = rand.New(rand.NewSource(seed)) }

// Forward applies inverted dropout to x.
func (d *Dropout) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if !d.training || d.rate == 0 {
		return x.Clone(), nil
	}
	out := tensor.New(x.Shape...)
	keep := 1.0 - d.rate
	inv := 1.0 / keep
	for i, v := range x.Data {
		if d.rng.Float64() < keep {
			out.Data[i] = v * inv
		}
	}
	return out, nil
}

func (d *Dropout) Tag() string {
	return fmt.Sprintf("Dropout_%g", d.rate)
}
