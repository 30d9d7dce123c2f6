package nn

import (
	"fmt"
	"math"

	"occunet/tensor"
)

const (
	leakySlope = 0.01
	seluLambda = 1.0507009873554804934193349852946
	seluAlpha  = 1.6732632423543772848170429916717
)

// Activation is an element-wise nonlinearity.
type Activation interface {
	Apply(x *tensor.Tensor) *tensor.Tensor
	Name() string
}

type funcActivation struct {
	name string
	fn   func(float64) float64
}

func (a *funcActivation) Apply(x *tensor.Tensor) *tensor.Tensor {
	out := tensor.New(x.Shape...)
	for i, v := range x.Data {
		out.Data[i] = a.fn(v)
	}
	return out
}

func (a *funcActivation) Name() string { return a.name }

// PReLU is a rectifier with a single learnable slope for negative inputs.
type PReLU struct {
	Alpha *tensor.Tensor // [1]
}

// NewPReLU creates a PReLU with slope 0.25.
func NewPReLU() *PReLU {
	a := tensor.New(1)
	a.Data[0] = 0.25
	return &PReLU{Alpha: a}
}

func (p *PReLU) Apply(x *tensor.Tensor) *tensor.Tensor {
	out := tensor.New(x.Shape...)
	alpha := p.Alpha.Data[0]
	for i, v := range x.Data {
		if v >= 0 {
			out.Data[i] = v
		} else {
			out.Data[i] = alpha * v
		}
	}
	return out
}

func (p *PReLU) Name() string { return "prelu" }

// Sigmoid is the logistic function.
func Sigmoid(v float64) float64 { return 1.0 / (1.0 + math.Exp(-v)) }

// ResolveActivation maps an activation name to a fresh instance. Learnable
// activations are never shared between call sites.
func ResolveActivation(name string) (Activation, error) {
	switch name {
	case "none":
		return &funcActivation{name, func(v float64) float64 { return v }}, nil
	case "relu":
		return &funcActivation{name, func(v float64) float64 { return math.Max(v, 0) }}, nil
	case "leaky relu":
		return &funcActivation{name, func(v float64) float64 {
			if v >= 0 {
				return v
			}
			return leakySlope * v
		}}, nil
	case "prelu":
		return NewPReLU(), nil
	case "selu":
		return &funcActivation{name, func(v float64) float64 {
			if v >= 0 {
				return seluLambda * v
			}
			return seluLambda * seluAlpha * (math.Exp(v) - 1)
		}}, nil
	case "sigmoid":
		return &funcActivation{name, Sigmoid}, nil
	case "tanh":
		return &funcActivation{name, math.Tanh}, nil
	default:
		return nil, fmt.Errorf("%w: unknown activation %q", ErrConfiguration, name)
	}
}
