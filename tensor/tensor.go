package tensor

import "fmt"

// Tensor is a simple n-D array backed by a flat []float64.
type Tensor struct {
	Data  []float64
	Shape []int
}

// New allocates a Tensor of given shape (product of dims = len(Data)).
func New(shape ...int) *Tensor {
	// Compute total size
	total := 1
	for _, d := range shape {
		total *= d
	}
	return &Tensor{
		Data:  make([]float64, total),
		Shape: append([]int(nil), shape...),
	}
}

// NewWithData creates a 1-D tensor from existing data slice.
func NewWithData(data []float64) *Tensor {
	return &Tensor{
		Data:  append([]float64(nil), data...),
		Shape: []int{len(data)},
	}
}

// Clone returns a deep copy of t.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		Data:  append([]float64(nil), t.Data...),
		Shape: append([]int(nil), t.Shape...),
	}
}

// NumElements returns the total element count of t.
func (t *Tensor) NumElements() int {
	return len(t.Data)
}

// Reshape returns a copy of t with a new shape of the same total size.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	total := 1
	for _, d := range shape {
		total *= d
	}
	if total != len(t.Data) {
		return nil, fmt.Errorf("cannot reshape %v into %v", t.Shape, shape)
	}
	return &Tensor{
		Data:  append([]float64(nil), t.Data...),
		Shape: append([]int(nil), shape...),
	}, nil
}

// Add returns a+b (same shape), or error if shapes differ.
func Add(a, b *Tensor) (*Tensor, error) {
	// Shapes must match
	if len(a.Shape) != len(b.Shape) {
		return nil, fmt.Errorf("shape mismatch: %v vs %v", a.Shape, b.Shape)
	}
	for i := range a.Shape {
		if a.Shape[i] != b.Shape[i] {
			return nil, fmt.Errorf("shape mismatch: %v vs %v", a.Shape, b.Shape)
		}
	}
	// Element-wise add
	out := New(a.Shape...)
	for i := range a.Data {
		out.Data[i] = a.Data[i] + b.Data[i]
	}
	return out, nil
}

// MatMul returns a×b (2-D only), or error if dims mismatch.
func MatMul(a, b *Tensor) (*Tensor, error) {
	// Only 2-D tensors
	if len(a.Shape) != 2 || len(b.Shape) != 2 {
		return nil, fmt.Errorf("MatMul requires 2-D tensors, got %v and %v", a.Shape, b.Shape)
	}
	r, k := a.Shape[0], a.Shape[1]
	k2, c := b.Shape[0], b.Shape[1]
	if k != k2 {
		return nil, fmt.Errorf("inner dimensions must match: %d vs %d", k, k2)
	}
	out := New(r, c)
	// Compute C = A×B
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			sum := 0.0
			for t := 0; t < k; t++ {
				sum += a.Data[i*k+t] * b.Data[t*c+j]
			}
			out.Data[i*c+j] = sum
		}
	}
	return out, nil
}

// RepeatRows repeats each row of a 2-D tensor k consecutive times: row i of
// the result equals row i/k of the input. The copies of a source row are
// block-contiguous, never interleaved.
func RepeatRows(t *Tensor, k int) (*Tensor, error) {
	if len(t.Shape) != 2 {
		return nil, fmt.Errorf("RepeatRows requires a 2-D tensor, got %v", t.Shape)
	}
	if k < 1 {
		return nil, fmt.Errorf("RepeatRows requires k >= 1, got %d", k)
	}
	rows, cols := t.Shape[0], t.Shape[1]
	out := New(rows*k, cols)
	for i := 0; i < rows; i++ {
		src := t.Data[i*cols : (i+1)*cols]
		for j := 0; j < k; j++ {
			copy(out.Data[(i*k+j)*cols:(i*k+j+1)*cols], src)
		}
	}
	return out, nil
}

// RepeatBatch repeats each entry along the first axis k consecutive times,
// the n-D analogue of RepeatRows.
func RepeatBatch(t *Tensor, k int) (*Tensor, error) {
	if len(t.Shape) < 2 {
		return nil, fmt.Errorf("RepeatBatch requires at least 2 dims, got %v", t.Shape)
	}
	if k < 1 {
		return nil, fmt.Errorf("RepeatBatch requires k >= 1, got %d", k)
	}
	batch := t.Shape[0]
	stride := len(t.Data) / batch
	outShape := append([]int(nil), t.Shape...)
	outShape[0] = batch * k
	out := New(outShape...)
	for i := 0; i < batch; i++ {
		src := t.Data[i*stride : (i+1)*stride]
		for j := 0; j < k; j++ {
			copy(out.Data[(i*k+j)*stride:(i*k+j+1)*stride], src)
		}
	}
	return out, nil
}

// ConcatCols concatenates two 2-D tensors with equal row counts along the
// column axis: [r,ca] ++ [r,cb] -> [r,ca+cb].
func ConcatCols(a, b *Tensor) (*Tensor, error) {
	if len(a.Shape) != 2 || len(b.Shape) != 2 {
		return nil, fmt.Errorf("ConcatCols requires 2-D tensors, got %v and %v", a.Shape, b.Shape)
	}
	if a.Shape[0] != b.Shape[0] {
		return nil, fmt.Errorf("ConcatCols row counts must match: %d vs %d", a.Shape[0], b.Shape[0])
	}
	rows, ca, cb := a.Shape[0], a.Shape[1], b.Shape[1]
	out := New(rows, ca+cb)
	for i := 0; i < rows; i++ {
		copy(out.Data[i*(ca+cb):i*(ca+cb)+ca], a.Data[i*ca:(i+1)*ca])
		copy(out.Data[i*(ca+cb)+ca:(i+1)*(ca+cb)], b.Data[i*cb:(i+1)*cb])
	}
	return out, nil
}

// ConcatChannels concatenates two 5-D tensors [b,c,d,h,w] along the channel
// axis. Batch and spatial dims must agree.
func ConcatChannels(a, b *Tensor) (*Tensor, error) {
	if len(a.Shape) != 5 || len(b.Shape) != 5 {
		return nil, fmt.Errorf("ConcatChannels requires 5-D tensors, got %v and %v", a.Shape, b.Shape)
	}
	for _, i := range []int{0, 2, 3, 4} {
		if a.Shape[i] != b.Shape[i] {
			return nil, fmt.Errorf("ConcatChannels shapes incompatible: %v vs %v", a.Shape, b.Shape)
		}
	}
	batch, ca, cb := a.Shape[0], a.Shape[1], b.Shape[1]
	spatial := a.Shape[2] * a.Shape[3] * a.Shape[4]
	out := New(batch, ca+cb, a.Shape[2], a.Shape[3], a.Shape[4])
	for n := 0; n < batch; n++ {
		copy(out.Data[n*(ca+cb)*spatial:(n*(ca+cb)+ca)*spatial], a.Data[n*ca*spatial:(n+1)*ca*spatial])
		copy(out.Data[(n*(ca+cb)+ca)*spatial:(n+1)*(ca+cb)*spatial], b.Data[n*cb*spatial:(n+1)*cb*spatial])
	}
	return out, nil
}

// FlattenBatch collapses all non-batch dimensions: [b, ...] -> [b, prod(...)].
func FlattenBatch(t *Tensor) (*Tensor, error) {
	if len(t.Shape) < 2 {
		return nil, fmt.Errorf("FlattenBatch requires at least 2 dims, got %v", t.Shape)
	}
	batch := t.Shape[0]
	return t.Reshape(batch, len(t.Data)/batch)
}

// At returns the element at the given indices.
// For a 4D tensor [a, b, c, d], At(i, j, k, l) returns the element at position [i][j][k][l].
func (t *Tensor) At(indices ...int) float64 {
	if len(indices) != len(t.Shape) {
		panic(fmt.Sprintf("At: expected %d indices, got %d", len(t.Shape), len(indices)))
	}

	// Compute linear index
	idx := 0
	stride := 1
	for i := len(indices) - 1; i >= 0; i-- {
		if indices[i] < 0 || indices[i] >= t.Shape[i] {
			panic(fmt.Sprintf("At: index %d out of bounds for dimension %d (shape: %v)", indices[i], i, t.Shape))
		}
		idx += indices[i] * stride
		stride *= t.Shape[i]
	}

	return t.Data[idx]
}

// Set sets the element at the given indices to the given value.
func (t *Tensor) Set(value float64, indices ...int) {
	if len(indices) != len(t.Shape) {
		panic(fmt.Sprintf("Set: expected %d indices, got %d", len(t.Shape), len(indices)))
	}

	// Compute linear index
	idx := 0
	stride := 1
	for i := len(indices) - 1; i >= 0; i-- {
		if indices[i] < 0 || indices[i] >= t.Shape[i] {
			panic(fmt.Sprintf("Set: index %d out of bounds for dimension %d (shape: %v)", indices[i], i, t.Shape))
		}
		idx += indices[i] * stride
		stride *= t.Shape[i]
	}

	t.Data[idx] = value
}
