package layers

import (
	"visionlab/tensor"
)

// Flatten reshapes its input to 1-D and restores the shape on backward.
type Flatten struct {
	lastShape []int
}

func NewFlatten() *Flatten { return &Flatten{} }

func (f *Flatten) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	f.lastShape = append([]int(nil), x.Shape...)
	return x.Reshape(x.Numel())
}

func (f *Flatten) Backward(g *tensor.Tensor) (*tensor.Tensor, error) {
	return g.Reshape(f.lastShape...)
}

func (f *Flatten) Tag() string { return "Flatten" }
