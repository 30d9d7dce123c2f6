package nn

import "occunet/nn/layers"

// Sentinels re-exported from the layers package so callers can match
// configuration and shape errors from either level.
var (
	ErrConfiguration = layers.ErrConfiguration
	ErrShapeMismatch = layers.ErrShapeMismatch
)
