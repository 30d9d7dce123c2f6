package layers

import (
	"math"
	"testing"

	"occunet/tensor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sliceStats(data []float64) (mean, variance float64) {
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))
	for _, v := range data {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(data))
	return mean, variance
}

func TestInstanceNorm3DNormalizesPerSlice(t *testing.T) {
	n := NewInstanceNorm3D()
	in := tensor.New(2, 2, 2, 2, 2)
	for i := range in.Data {
		in.Data[i] = float64(i*i%13) + 0.5
	}

	out, err := n.Forward(in)
	require.NoError(t, err)
	require.Equal(t, in.Shape, out.Shape)

	spatial := 8
	for s := 0; s < 4; s++ {
		mean, variance := sliceStats(out.Data[s*spatial : (s+1)*spatial])
		assert.InDelta(t, 0, mean, 1e-9)
		assert.InDelta(t, 1, variance, 1e-3)
	}
}

func TestInstanceNorm3DDeterministic(t *testing.T) {
	n := NewInstanceNorm3D()
	in := tensor.New(1, 1, 2, 2, 2)
	for i := range in.Data {
		in.Data[i] = float64(i)
	}
	a, err := n.Forward(in)
	require.NoError(t, err)
	b, err := n.Forward(in)
	require.NoError(t, err)
	assert.Equal(t, a.Data, b.Data)
}

func TestBatchNorm3DTrainingStats(t *testing.T) {
	bn, err := NewBatchNorm3D(1)
	require.NoError(t, err)

	in := tensor.New(2, 1, 1, 1, 2)
	copy(in.Data, []float64{1, 3, 5, 7})

	out, err := bn.Forward(in)
	require.NoError(t, err)

	mean, variance := sliceStats(out.Data)
	assert.InDelta(t, 0, mean, 1e-9)
	assert.InDelta(t, 1, variance, 1e-3)

	// Running estimates move toward the batch stats with momentum 0.1.
	assert.InDelta(t, 0.4, bn.RunningMean.Data[0], 1e-9)
	assert.InDelta(t, 0.9*1+0.1*5, bn.RunningVar.Data[0], 1e-9)
}

func TestBatchNorm3DEvalUsesRunningStats(t *testing.T) {
	bn, err := NewBatchNorm3D(1)
	require.NoError(t, err)
	bn.SetTraining(false)
	bn.RunningMean.Data[0] = 2
	bn.RunningVar.Data[0] = 4

	in := tensor.New(1, 1, 1, 1, 2)
	copy(in.Data, []float64{2, 4})

	out, err := bn.Forward(in)
	require.NoError(t, err)
	assert.InDelta(t, 0, out.Data[0], 1e-6)
	assert.InDelta(t, 2/math.Sqrt(4+normEpsilon), out.Data[1], 1e-9)
}

func TestBatchNorm3DAffine(t *testing.T) {
	bn, err := NewBatchNorm3D(1)
	require.NoError(t, err)
	bn.SetTraining(false)
	bn.Gamma.Data[0] = 3
	bn.Beta.Data[0] = 1

	in := tensor.New(1, 1, 1, 1, 1)
	in.Data[0] = 0
	out, err := bn.Forward(in)
	require.NoError(t, err)
	assert.InDelta(t, 1, out.Data[0], 1e-9)
}
