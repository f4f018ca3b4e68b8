// Package optim implements the gradient-descent optimizers used by the
// training pipelines. Optimizers read fresh gradients from the model on
// every step; per-parameter state is keyed by the parameter tensor itself.
package optim

import (
	"fmt"
	"math"

	"visionlab/tensor"
)

// Model exposes parameters and their gradients to an optimizer.
// nn.Sequential satisfies this.
type Model interface {
	Params() []*tensor.Tensor
	Grads() []*tensor.Tensor
}

// Optimizer applies one update step to a model's parameters.
type Optimizer interface {
	Step(m Model) error
}

// SGD is stochastic gradient descent with optional momentum.
type SGD struct {
	LR       float64
	Momentum float64

	velocity map[*tensor.Tensor][]float64
}

// NewSGD creates an SGD optimizer.
func NewSGD(lr, momentum float64) *SGD {
	return &SGD{
		LR:       lr,
		Momentum: momentum,
		velocity: make(map[*tensor.Tensor][]float64),
	}
}

func (s *SGD) Step(m Model) error {
	params, grads := m.Params(), m.Grads()
	if len(params) != len(grads) {
		return fmt.Errorf("sgd: %d params but %d grads", len(params), len(grads))
	}
	for i, p := range params {
		g := grads[i]
		if g == nil {
			continue
		}
		if len(g.Data) != len(p.Data) {
			return fmt.Errorf("sgd: param %d has %d elements, grad has %d", i, len(p.Data), len(g.Data))
		}
		if s.Momentum == 0 {
			for j := range p.Data {
				p.Data[j] -= s.LR * g.Data[j]
			}
			continue
		}
		v, ok := s.velocity[p]
		if !ok {
			v = make([]float64, len(p.Data))
			s.velocity[p] = v
		}
		for j := range p.Data {
			v[j] = s.Momentum*v[j] - s.LR*g.Data[j]
			p.Data[j] += v[j]
		}
	}
	return nil
}

// Adam is the Adam optimizer (Kingma & Ba). GAN training uses Beta1=0.5.
type Adam struct {
	LR    float64
	Beta1 float64
	Beta2 float64
	Eps   float64

	step int
	m    map[*tensor.Tensor][]float64
	v    map[*tensor.Tensor][]float64
}

// NewAdam creates an Adam optimizer with the usual Beta2/Eps defaults.
func NewAdam(lr, beta1 float64) *Adam {
	return &Adam{
		LR:    lr,
		Beta1: beta1,
		Beta2: 0.999,
		Eps:   1e-8,
		m:     make(map[*tensor.Tensor][]float64),
		v:     make(map[*tensor.Tensor][]float64),
	}
}

func (a *Adam) Step(model Model) error {
	params, grads := model.Params(), model.Grads()
	if len(params) != len(grads) {
		return fmt.Errorf("adam: %d params but %d grads", len(params), len(grads))
	}
	a.step++
	bc1 := 1 - math.Pow(a.Beta1, float64(a.step))
	bc2 := 1 - math.Pow(a.Beta2, float64(a.step))
	for i, p := range params {
		g := grads[i]
		if g == nil {
			continue
		}
		if len(g.Data) != len(p.Data) {
			return fmt.Errorf("adam: param %d has %d elements, grad has %d", i, len(p.Data), len(g.Data))
		}
		m1, ok := a.m[p]
		if !ok {
			m1 = make([]float64, len(p.Data))
			a.m[p] = m1
		}
		v1, ok := a.v[p]
		if !ok {
			v1 = make([]float64, len(p.Data))
			a.v[p] = v1
		}
		for j := range p.Data {
			m1[j] = a.Beta1*m1[j] + (1-a.Beta1)*g.Data[j]
			v1[j] = a.Beta2*v1[j] + (1-a.Beta2)*g.Data[j]*g.Data[j]
			mHat := m1[j] / bc1
			vHat := v1[j] / bc2
			p.Data[j] -= a.LR * mHat / (math.Sqrt(vHat) + a.Eps)
		}
	}
	return nil
}
