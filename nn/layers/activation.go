package layers

import (
	"fmt"
	"math"

	"visionlab/tensor"
)

// ActFunc holds an elementwise activation and its derivative.
// Deriv receives both the input x and the output y = F(x) so that
// sigmoid/tanh can reuse the forward result.
type ActFunc struct {
	Name  string
	F     func(x float64) float64
	Deriv func(x, y float64) float64
}

// SupportedActivations contains the activation functions used by the models.
var SupportedActivations = map[string]ActFunc{
	"relu": {
		Name: "relu",
		F: func(x float64) float64 {
			if x > 0 {
				return x
			}
			return 0
		},
		Deriv: func(x, _ float64) float64 {
			if x > 0 {
				return 1
			}
			return 0
		},
	},
	"leakyrelu": {
		Name: "leakyrelu",
		F: func(x float64) float64 {
			if x > 0 {
				return x
			}
			return leakySlope * x
		},
		Deriv: func(x, _ float64) float64 {
			if x > 0 {
				return 1
			}
			return leakySlope
		},
	},
	"sigmoid": {
		Name:  "sigmoid",
		F:     func(x float64) float64 { return 1 / (1 + math.Exp(-x)) },
		Deriv: func(_, y float64) float64 { return y * (1 - y) },
	},
	"tanh": {
		Name:  "tanh",
		F:     math.Tanh,
		Deriv: func(_, y float64) float64 { return 1 - y*y },
	},
}

const leakySlope = 0.2

// Activation applies an elementwise nonlinearity.
type Activation struct {
	fn ActFunc

	lastInput  *tensor.Tensor
	lastOutput *tensor.Tensor
}

// NewActivation creates an activation layer by name.
func NewActivation(name string) (*Activation, error) {
	fn, ok := SupportedActivations[name]
	if !ok {
		return nil, fmt.Errorf("unsupported activation: %s", name)
	}
	return &Activation{fn: fn}, nil
}

// MustActivation is NewActivation that panics on unknown names.
// Model builders use it with the fixed names above.
func MustActivation(name string) *Activation {
	a, err := NewActivation(name)
	if err != nil {
		panic(err)
	}
	return a
}

// Forward applies the activation elementwise.
func (a *Activation) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	out := tensor.New(x.Shape...)
	for i, v := range x.Data {
		out.Data[i] = a.fn.F(v)
	}
	a.lastInput = x.Clone()
	a.lastOutput = out.Clone()
	return out, nil
}

// Backward multiplies the incoming gradient by the activation derivative.
func (a *Activation) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if a.lastInput == nil {
		return nil, fmt.Errorf("activation %s: no cached input for backward pass", a.fn.Name)
	}
	if len(gradOut.Data) != len(a.lastInput.Data) {
		return nil, fmt.Errorf("activation %s: gradOut has %d elements, input had %d",
			a.fn.Name, len(gradOut.Data), len(a.lastInput.Data))
	}
	grad := tensor.New(gradOut.Shape...)
	for i, g := range gradOut.Data {
		grad.Data[i] = g * a.fn.Deriv(a.lastInput.Data[i], a.lastOutput.Data[i])
	}
	return grad, nil
}

func (a *Activation) Tag() string {
	return "Activation_" + a.fn.Name
}
