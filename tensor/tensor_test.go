package tensor

import "testing"

func TestNewShape(t *testing.T) {
	t1 := New(2, 3)
	if len(t1.Data) != 6 {
		t.Fatalf("expected 6 elements, got %d", len(t1.Data))
	}
	if len(t1.Shape) != 2 || t1.Shape[0] != 2 || t1.Shape[1] != 3 {
		t.Fatalf("unexpected shape: %v", t1.Shape)
	}
}

func TestAdd(t *testing.T) {
	a := &Tensor{Data: []float64{1, 2, 3}, Shape: []int{3}}
	b := &Tensor{Data: []float64{4, 5, 6}, Shape: []int{3}}
	c, err := Add(a, b)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{5, 7, 9}
	for i := range want {
		if c.Data[i] != want[i] {
			t.Errorf("at %d, got %f, want %f", i, c.Data[i], want[i])
		}
	}
}

func TestAddShapeMismatch(t *testing.T) {
	a := &Tensor{Data: []float64{1, 2, 3}, Shape: []int{3}}
	b := &Tensor{Data: []float64{1, 2, 3, 4}, Shape: []int{4}}
	if _, err := Add(a, b); err == nil {
		t.Fatal("expected shape mismatch error")
	}
}

func TestMatMul(t *testing.T) {
	a := &Tensor{Data: []float64{1, 2, 3, 4}, Shape: []int{2, 2}}
	b := &Tensor{Data: []float64{5, 6, 7, 8}, Shape: []int{2, 2}}
	c, err := MatMul(a, b)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{19, 22, 43, 50}
	for i := range want {
		if c.Data[i] != want[i] {
			t.Errorf("at %d, got %f, want %f", i, c.Data[i], want[i])
		}
	}
}

func TestClone(t *testing.T) {
	a := &Tensor{Data: []float64{1, 2, 3, 4}, Shape: []int{2, 2}}
	b := a.Clone()
	b.Data[0] = 99
	b.Shape[0] = 4
	if a.Data[0] != 1 || a.Shape[0] != 2 {
		t.Fatalf("clone aliases original: %v %v", a.Data, a.Shape)
	}
}

func TestReshape(t *testing.T) {
	a := &Tensor{Data: []float64{1, 2, 3, 4, 5, 6}, Shape: []int{2, 3}}
	b, err := a.Reshape(3, 2)
	if err != nil {
		t.Fatal(err)
	}
	if b.Shape[0] != 3 || b.Shape[1] != 2 {
		t.Fatalf("unexpected shape: %v", b.Shape)
	}
	if b.At(2, 1) != 6 {
		t.Errorf("got %f, want 6", b.At(2, 1))
	}
	if _, err := a.Reshape(4, 2); err == nil {
		t.Fatal("expected size mismatch error")
	}
}

func TestRepeatRows(t *testing.T) {
	a := &Tensor{Data: []float64{1, 2, 3, 4}, Shape: []int{2, 2}}
	b, err := RepeatRows(a, 3)
	if err != nil {
		t.Fatal(err)
	}
	if b.Shape[0] != 6 || b.Shape[1] != 2 {
		t.Fatalf("unexpected shape: %v", b.Shape)
	}
	// Row i of the result must equal row i/3 of the input, in contiguous
	// blocks rather than interleaved.
	for i := 0; i < 6; i++ {
		src := i / 3
		for j := 0; j < 2; j++ {
			if b.At(i, j) != a.At(src, j) {
				t.Errorf("row %d col %d: got %f, want %f", i, j, b.At(i, j), a.At(src, j))
			}
		}
	}
}

func TestRepeatRowsBadK(t *testing.T) {
	a := &Tensor{Data: []float64{1, 2}, Shape: []int{1, 2}}
	if _, err := RepeatRows(a, 0); err == nil {
		t.Fatal("expected error for k=0")
	}
}

func TestRepeatBatch(t *testing.T) {
	a := &Tensor{Data: []float64{1, 2, 3, 4, 5, 6, 7, 8}, Shape: []int{2, 1, 2, 2}}
	b, err := RepeatBatch(a, 2)
	if err != nil {
		t.Fatal(err)
	}
	if b.Shape[0] != 4 {
		t.Fatalf("unexpected shape: %v", b.Shape)
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			got := b.Data[i*4+j]
			want := a.Data[(i/2)*4+j]
			if got != want {
				t.Errorf("batch %d elem %d: got %f, want %f", i, j, got, want)
			}
		}
	}
}

func TestConcatCols(t *testing.T) {
	a := &Tensor{Data: []float64{1, 2, 3, 4}, Shape: []int{2, 2}}
	b := &Tensor{Data: []float64{5, 6}, Shape: []int{2, 1}}
	c, err := ConcatCols(a, b)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1, 2, 5, 3, 4, 6}
	for i := range want {
		if c.Data[i] != want[i] {
			t.Errorf("at %d, got %f, want %f", i, c.Data[i], want[i])
		}
	}
	d := &Tensor{Data: []float64{1, 2, 3}, Shape: []int{3, 1}}
	if _, err := ConcatCols(a, d); err == nil {
		t.Fatal("expected row count mismatch error")
	}
}

func TestConcatChannels(t *testing.T) {
	a := New(1, 2, 1, 1, 2)
	b := New(1, 1, 1, 1, 2)
	copy(a.Data, []float64{1, 2, 3, 4})
	copy(b.Data, []float64{5, 6})
	c, err := ConcatChannels(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if c.Shape[1] != 3 {
		t.Fatalf("unexpected shape: %v", c.Shape)
	}
	want := []float64{1, 2, 3, 4, 5, 6}
	for i := range want {
		if c.Data[i] != want[i] {
			t.Errorf("at %d, got %f, want %f", i, c.Data[i], want[i])
		}
	}
}

func TestFlattenBatch(t *testing.T) {
	a := New(2, 3, 2, 2, 2)
	b, err := FlattenBatch(a)
	if err != nil {
		t.Fatal(err)
	}
	if b.Shape[0] != 2 || b.Shape[1] != 24 {
		t.Fatalf("unexpected shape: %v", b.Shape)
	}
}
