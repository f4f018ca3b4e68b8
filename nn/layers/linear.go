package layers

import (
	"fmt"

	"visionlab/tensor"
)

// Linear is a fully-connected layer: y = Wx + B.
// Inputs are column vectors; a batch is a [inDim, batchSize] tensor.
type Linear struct {
	W, B *tensor.Tensor

	gradW *tensor.Tensor
	gradB *tensor.Tensor

	lastInput *tensor.Tensor
}

// NewLinear creates a Linear layer mapping inDim to outDim.
// Weights start at zero; callers initialize them (see model.InitLayers).
func NewLinear(inDim, outDim int) *Linear {
	return &Linear{
		W:     tensor.New(outDim, inDim),
		B:     tensor.New(outDim),
		gradW: tensor.New(outDim, inDim),
		gradB: tensor.New(outDim),
	}
}

// InDim returns the input dimension.
func (l *Linear) InDim() int { return l.W.Shape[1] }

// OutDim returns the output dimension.
func (l *Linear) OutDim() int { return l.W.Shape[0] }

// Forward computes y = Wx + B for a [inDim] vector or [inDim, batch] matrix.
func (l *Linear) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if len(x.Shape) == 1 {
		var err error
		x, err = x.Reshape(x.Shape[0], 1)
		if err != nil {
			return nil, err
		}
	}
	if len(x.Shape) != 2 || x.Shape[0] != l.InDim() {
		return nil, fmt.Errorf("linear: expected input [%d, batch], got %v", l.InDim(), x.Shape)
	}
	l.lastInput = x.Clone()

	wx, err := tensor.MatMul(l.W, x)
	if err != nil {
		return nil, err
	}
	// Broadcast bias across the batch.
	batch := wx.Shape[1]
	for j := 0; j < l.OutDim(); j++ {
		for b := 0; b < batch; b++ {
			wx.Data[j*batch+b] += l.B.Data[j]
		}
	}
	return wx, nil
}

// Backward computes dL/dW, dL/dB (averaged over the batch) and returns dL/dx.
func (l *Linear) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if l.lastInput == nil {
		return nil, fmt.Errorf("linear: no cached input for backward pass")
	}
	batch := l.lastInput.Shape[1]
	if len(gradOut.Shape) == 1 {
		var err error
		gradOut, err = gradOut.Reshape(gradOut.Shape[0], 1)
		if err != nil {
			return nil, err
		}
	}
	if gradOut.Shape[0] != l.OutDim() || gradOut.Shape[1] != batch {
		return nil, fmt.Errorf("linear: expected gradOut [%d, %d], got %v", l.OutDim(), batch, gradOut.Shape)
	}

	// dL/dW = gradOut · x^T / batch
	xT, err := tensor.Transpose(l.lastInput)
	if err != nil {
		return nil, err
	}
	gw, err := tensor.MatMul(gradOut, xT)
	if err != nil {
		return nil, err
	}
	l.gradW = gw.Scale(1 / float64(batch))

	// dL/dB = row sums of gradOut / batch
	l.gradB = tensor.New(l.OutDim())
	for j := 0; j < l.OutDim(); j++ {
		sum := 0.0
		for b := 0; b < batch; b++ {
			sum += gradOut.Data[j*batch+b]
		}
		l.gradB.Data[j] = sum / float64(batch)
	}

	// dL/dx = W^T · gradOut
	wT, err := tensor.Transpose(l.W)
	if err != nil {
		return nil, err
	}
	return tensor.MatMul(wT, gradOut)
}

// Params returns the trainable parameters.
func (l *Linear) Params() []*tensor.Tensor { return []*tensor.Tensor{l.W, l.B} }

// Grads returns the parameter gradients, aligned with Params.
func (l *Linear) Grads() []*tensor.Tensor { return []*tensor.Tensor{l.gradW, l.gradB} }

// Update applies a plain SGD step to the parameters.
func (l *Linear) Update(learningRate float64) {
	for i := range l.W.Data {
		l.W.Data[i] -= learningRate * l.gradW.Data[i]
	}
	for i := range l.B.Data {
		l.B.Data[i] -= learningRate * l.gradB.Data[i]
	}
}

func (l *Linear) Tag() string {
	return fmt.Sprintf("Linear_%d_%d", l.InDim(), l.OutDim())
}
