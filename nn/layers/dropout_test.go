package layers

import (
	"errors"
	"testing"

	"occunet/tensor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDropoutEvalIdentity(t *testing.T) {
	d, err := NewDropout(0.5)
	require.NoError(t, err)
	d.SetTraining(false)

	in := tensor.New(4, 4)
	for i := range in.Data {
		in.Data[i] = float64(i)
	}
	out, err := d.Forward(in)
	require.NoError(t, err)
	assert.Equal(t, in.Data, out.Data)
}

func TestDropoutZeroRateIdentity(t *testing.T) {
	d, err := NewDropout(0)
	require.NoError(t, err)

	in := tensor.New(2, 2)
	copy(in.Data, []float64{1, 2, 3, 4})
	out, err := d.Forward(in)
	require.NoError(t, err)
	assert.Equal(t, in.Data, out.Data)
}

func TestDropoutTrainingScalesSurvivors(t *testing.T) {
	d, err := NewDropout(0.5)
	require.NoError(t, err)
	d.Seed(42)

	in := tensor.New(1, 1000)
	for i := range in.Data {
		in.Data[i] = 1
	}
	out, err := d.Forward(in)
	require.NoError(t, err)

	zeros := 0
	for _, v := range out.Data {
		if v == 0 {
			zeros++
		} else {
			assert.InDelta(t, 2, v, 1e-12)
		}
	}
	// Roughly half the elements should be dropped.
	assert.Greater(t, zeros, 350)
	assert.Less(t, zeros, 650)
}

func TestDropoutBadRate(t *testing.T) {
	_, err := NewDropout(1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
}
