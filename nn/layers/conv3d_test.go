package layers

import (
	"errors"
	"testing"

	"occunet/tensor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConv3DOutputShape(t *testing.T) {
	cases := []struct {
		name                    string
		kernel, stride, padding int
		in, want                int
	}{
		{"same", 3, 1, 1, 8, 8},
		{"valid", 3, 1, 0, 8, 6},
		{"strided", 3, 2, 1, 8, 4},
		{"unit kernel", 1, 1, 0, 5, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conv, err := NewConv3D(1, 2, tc.kernel, tc.stride, tc.padding, false)
			require.NoError(t, err)

			in := tensor.New(1, 1, tc.in, tc.in, tc.in)
			out, err := conv.Forward(in)
			require.NoError(t, err)
			assert.Equal(t, []int{1, 2, tc.want, tc.want, tc.want}, out.Shape)
		})
	}
}

func TestConv3DKnownValues(t *testing.T) {
	// 2x2x2 kernel of ones over a 2x2x2 input sums all eight voxels.
	conv, err := NewConv3D(1, 1, 2, 1, 0, true)
	require.NoError(t, err)
	for i := range conv.W.Data {
		conv.W.Data[i] = 1
	}
	conv.B.Data[0] = 0.5

	in := tensor.New(1, 1, 2, 2, 2)
	for i := range in.Data {
		in.Data[i] = float64(i + 1)
	}

	out, err := conv.Forward(in)
	require.NoError(t, err)
	require.Equal(t, []int{1, 1, 1, 1, 1}, out.Shape)
	assert.InDelta(t, 36.5, out.Data[0], 1e-12)
}

func TestConv3DZeroPadding(t *testing.T) {
	// With padding 1 and a centered one-hot kernel, output equals input.
	conv, err := NewConv3D(1, 1, 3, 1, 1, false)
	require.NoError(t, err)
	for i := range conv.W.Data {
		conv.W.Data[i] = 0
	}
	conv.W.Set(1, 0, 0, 1, 1, 1)

	in := tensor.New(1, 1, 3, 3, 3)
	for i := range in.Data {
		in.Data[i] = float64(i)
	}

	out, err := conv.Forward(in)
	require.NoError(t, err)
	assert.Equal(t, in.Data, out.Data)
}

func TestConv3DChannelMismatch(t *testing.T) {
	conv, err := NewConv3D(2, 4, 3, 1, 1, false)
	require.NoError(t, err)

	_, err = conv.Forward(tensor.New(1, 3, 8, 8, 8))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestConv3DBadConfig(t *testing.T) {
	_, err := NewConv3D(0, 4, 3, 1, 1, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))

	_, err = NewConv3D(1, 4, 3, 0, 1, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
}
