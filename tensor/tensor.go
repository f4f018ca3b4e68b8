package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Tensor is a simple n-D array backed by a flat []float64.
type Tensor struct {
	Data  []float64
	Shape []int
}

// New allocates a zeroed Tensor of the given shape.
func New(shape ...int) *Tensor {
	total := 1
	for _, d := range shape {
		total *= d
	}
	return &Tensor{
		Data:  make([]float64, total),
		Shape: append([]int(nil), shape...),
	}
}

// NewWithData creates a 1-D tensor from a copy of data.
func NewWithData(data []float64) *Tensor {
	return &Tensor{
		Data:  append([]float64(nil), data...),
		Shape: []int{len(data)},
	}
}

// Numel returns the number of elements.
func (t *Tensor) Numel() int { return len(t.Data) }

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		Data:  append([]float64(nil), t.Data...),
		Shape: append([]int(nil), t.Shape...),
	}
}

// Reshape returns a copy with a new shape. The element count must match.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	total := 1
	for _, d := range shape {
		total *= d
	}
	if total != len(t.Data) {
		return nil, fmt.Errorf("reshape: %v has %d elements, want %d for %v", t.Shape, len(t.Data), total, shape)
	}
	out := t.Clone()
	out.Shape = append([]int(nil), shape...)
	return out, nil
}

// Scale multiplies every element by s in place and returns the tensor.
func (t *Tensor) Scale(s float64) *Tensor {
	for i := range t.Data {
		t.Data[i] *= s
	}
	return t
}

// MatMul returns a×b (2-D only), or error if dims mismatch.
// The multiply itself is delegated to gonum.
func MatMul(a, b *Tensor) (*Tensor, error) {
	if len(a.Shape) != 2 || len(b.Shape) != 2 {
		return nil, fmt.Errorf("MatMul requires 2-D tensors, got %v and %v", a.Shape, b.Shape)
	}
	r, k := a.Shape[0], a.Shape[1]
	k2, c := b.Shape[0], b.Shape[1]
	if k != k2 {
		return nil, fmt.Errorf("inner dimensions must match: %d vs %d", k, k2)
	}
	out := New(r, c)
	am := mat.NewDense(r, k, a.Data)
	bm := mat.NewDense(k2, c, b.Data)
	om := mat.NewDense(r, c, out.Data)
	om.Mul(am, bm)
	return out, nil
}

// Transpose returns the transpose of a 2-D tensor.
func Transpose(a *Tensor) (*Tensor, error) {
	if len(a.Shape) != 2 {
		return nil, fmt.Errorf("Transpose requires a 2-D tensor, got %v", a.Shape)
	}
	r, c := a.Shape[0], a.Shape[1]
	out := New(c, r)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Data[j*r+i] = a.Data[i*c+j]
		}
	}
	return out, nil
}

// At returns the element at the given indices.
// For a 4-D tensor [a, b, c, d], At(i, j, k, l) returns the element at [i][j][k][l].
func (t *Tensor) At(indices ...int) float64 {
	return t.Data[t.flatIndex("At", indices)]
}

// Set sets the element at the given indices to value.
func (t *Tensor) Set(value float64, indices ...int) {
	t.Data[t.flatIndex("Set", indices)] = value
}

func (t *Tensor) flatIndex(op string, indices []int) int {
	if len(indices) != len(t.Shape) {
		panic(fmt.Sprintf("%s: expected %d indices, got %d", op, len(t.Shape), len(indices)))
	}
	idx := 0
	stride := 1
	for i := len(indices) - 1; i >= 0; i-- {
		if indices[i] < 0 || indices[i] >= t.Shape[i] {
			panic(fmt.Sprintf("%s: index %d out of bounds for dimension %d (shape: %v)", op, indices[i], i, t.Shape))
		}
		idx += indices[i] * stride
		stride *= t.Shape[i]
	}
	return idx
}
