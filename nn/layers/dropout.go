package layers

import (
	"fmt"
	"math/rand"

	"visionlab/tensor"
)

// Dropout zeroes each element with probability p during training and
// scales the survivors by 1/(1-p). During inference it is the identity.
type Dropout struct {
	p        float64
	rng      *rand.Rand
	training bool

	lastMask *tensor.Tensor
}

// NewDropout creates a Dropout layer with drop probability p.
func NewDropout(p float64, rng *rand.Rand) *Dropout {
	return &Dropout{p: p, rng: rng, training: true}
}

// SetTraining switches the layer between train and eval behavior.
func (d *Dropout) SetTraining(training bool) { d.training = training }

func (d *Dropout) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if !d.training || d.p == 0 {
		d.lastMask = nil
		return x.Clone(), nil
	}
	keep := 1 - d.p
	mask := tensor.New(x.Shape...)
	out := tensor.New(x.Shape...)
	for i, v := range x.Data {
		if d.rng.Float64() >= d.p {
			mask.Data[i] = 1 / keep
			out.Data[i] = v / keep
		}
	}
	d.lastMask = mask
	return out, nil
}

func (d *Dropout) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if d.lastMask == nil {
		return gradOut.Clone(), nil
	}
	if len(gradOut.Data) != len(d.lastMask.Data) {
		return nil, fmt.Errorf("dropout: gradOut has %d elements, mask has %d", len(gradOut.Data), len(d.lastMask.Data))
	}
	grad := tensor.New(gradOut.Shape...)
	for i, g := range gradOut.Data {
		grad.Data[i] = g * d.lastMask.Data[i]
	}
	return grad, nil
}

func (d *Dropout) Tag() string { return fmt.Sprintf("Dropout_%g", d.p) }
