package nn

import (
	"visionlab/tensor"
)

// Module defines a single layer/unit in the network.
type Module interface {
	Forward(input *tensor.Tensor) (*tensor.Tensor, error)
	// Backward computes gradients and propagates them.
	// It takes the gradient of the loss with respect to the module's output,
	// and returns the gradient of the loss with respect to the module's input.
	Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error)
}

// ParamModule is implemented by layers that carry trainable parameters.
// Params()[i] and Grads()[i] refer to the same parameter.
type ParamModule interface {
	Module
	Params() []*tensor.Tensor
	Grads() []*tensor.Tensor
}

// ModeModule is implemented by layers that behave differently during
// training and inference (Dropout).
type ModeModule interface {
	SetTraining(training bool)
}

// Sequential chains multiple Modules in order.
type Sequential struct {
	Layers []Module
}

// Forward applies each layer in sequence.
func (s *Sequential) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	var err error
	out := x
	for _, layer := range s.Layers {
		out, err = layer.Forward(out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Backward applies Backward in reverse order.
func (s *Sequential) Backward(grad *tensor.Tensor) (*tensor.Tensor, error) {
	var err error
	out := grad
	for i := len(s.Layers) - 1; i >= 0; i-- {
		out, err = s.Layers[i].Backward(out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Params collects the trainable parameters of all layers.
func (s *Sequential) Params() []*tensor.Tensor {
	var ps []*tensor.Tensor
	for _, layer := range s.Layers {
		if pm, ok := layer.(ParamModule); ok {
			ps = append(ps, pm.Params()...)
		}
	}
	return ps
}

// Grads collects the parameter gradients of all layers, aligned with Params.
func (s *Sequential) Grads() []*tensor.Tensor {
	var gs []*tensor.Tensor
	for _, layer := range s.Layers {
		if pm, ok := layer.(ParamModule); ok {
			gs = append(gs, pm.Grads()...)
		}
	}
	return gs
}

// SetTraining switches every mode-aware layer between train and eval.
func (s *Sequential) SetTraining(training bool) {
	for _, layer := range s.Layers {
		if mm, ok := layer.(ModeModule); ok {
			mm.SetTraining(training)
		}
	}
}
