package layers

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// initUniform fills data with draws from U(-1/√fanIn, +1/√fanIn).
func initUniform(data []float64, fanIn int) {
	bound := 1.0 / math.Sqrt(float64(fanIn))
	dist := distuv.Uniform{Min: -bound, Max: bound}
	for i := range data {
		data[i] = dist.Rand()
	}
}
