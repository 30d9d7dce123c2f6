package layers

import "errors"

// Sentinel errors shared by the layer constructors and forward paths.
// Constructors return ErrConfiguration for invalid hyper-parameters and
// unknown option names; forward passes return ErrShapeMismatch when the
// input geometry does not match the layer.
var (
	ErrConfiguration = errors.New("invalid configuration")
	ErrShapeMismatch = errors.New("shape mismatch")
)
