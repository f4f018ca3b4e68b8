package layers

import (
	"fmt"

	"visionlab/tensor"
)

// Conv2D is a 2-D convolution (stride 1, no padding) over [C,H,W] input.
type Conv2D struct {
	inChan, outChan int
	kh, kw          int

	W *tensor.Tensor // weights: [outChan, inChan, kh, kw]
	B *tensor.Tensor // bias: [outChan]

	gradW *tensor.Tensor
	gradB *tensor.Tensor

	lastInput *tensor.Tensor
}

// NewConv2D creates a Conv2D layer with a kh×kw kernel.
func NewConv2D(inChan, outChan, kh, kw int) *Conv2D {
	return &Conv2D{
		inChan:  inChan,
		outChan: outChan,
		kh:      kh,
		kw:      kw,
		W:       tensor.New(outChan, inChan, kh, kw),
		B:       tensor.New(outChan),
		gradW:   tensor.New(outChan, inChan, kh, kw),
		gradB:   tensor.New(outChan),
	}
}

// OutDims returns the output height and width for a given input size.
func (c *Conv2D) OutDims(inH, inW int) (int, int) {
	return inH - c.kh + 1, inW - c.kw + 1
}

func (c *Conv2D) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if len(x.Shape) != 3 || x.Shape[0] != c.inChan {
		return nil, fmt.Errorf("conv2d: expected [%d,H,W] input, got %v", c.inChan, x.Shape)
	}
	H, W := x.Shape[1], x.Shape[2]
	outH, outW := c.OutDims(H, W)
	if outH <= 0 || outW <= 0 {
		return nil, fmt.Errorf("conv2d: input %dx%d smaller than kernel %dx%d", H, W, c.kh, c.kw)
	}
	c.lastInput = x.Clone()

	out := tensor.New(c.outChan, outH, outW)
	for o := 0; o < c.outChan; o++ {
		for oh := 0; oh < outH; oh++ {
			for ow := 0; ow < outW; ow++ {
				sum := c.B.Data[o]
				for i := 0; i < c.inChan; i++ {
					for dy := 0; dy < c.kh; dy++ {
						for dx := 0; dx < c.kw; dx++ {
							w := c.W.Data[((o*c.inChan+i)*c.kh+dy)*c.kw+dx]
							v := x.Data[(i*H+oh+dy)*W+ow+dx]
							sum += w * v
						}
					}
				}
				out.Data[(o*outH+oh)*outW+ow] = sum
			}
		}
	}
	return out, nil
}

// Backward computes dL/dW, dL/dB and returns dL/dx.
func (c *Conv2D) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if c.lastInput == nil {
		return nil, fmt.Errorf("conv2d: no cached input for backward pass")
	}
	H, W := c.lastInput.Shape[1], c.lastInput.Shape[2]
	outH, outW := c.OutDims(H, W)
	if len(gradOut.Data) != c.outChan*outH*outW {
		return nil, fmt.Errorf("conv2d: gradOut has %d elements, want %d", len(gradOut.Data), c.outChan*outH*outW)
	}

	c.gradW = tensor.New(c.outChan, c.inChan, c.kh, c.kw)
	c.gradB = tensor.New(c.outChan)
	grad := tensor.New(c.inChan, H, W)

	for o := 0; o < c.outChan; o++ {
		for oh := 0; oh < outH; oh++ {
			for ow := 0; ow < outW; ow++ {
				g := gradOut.Data[(o*outH+oh)*outW+ow]
				c.gradB.Data[o] += g
				for i := 0; i < c.inChan; i++ {
					for dy := 0; dy < c.kh; dy++ {
						for dx := 0; dx < c.kw; dx++ {
							wIdx := ((o*c.inChan+i)*c.kh + dy) * c.kw
							xIdx := (i*H + oh + dy) * W
							c.gradW.Data[wIdx+dx] += g * c.lastInput.Data[xIdx+ow+dx]
							grad.Data[xIdx+ow+dx] += g * c.W.Data[wIdx+dx]
						}
					}
				}
			}
		}
	}
	return grad, nil
}

// Params returns the trainable parameters.
func (c *Conv2D) Params() []*tensor.Tensor { return []*tensor.Tensor{c.W, c.B} }

// Grads returns the parameter gradients, aligned with Params.
func (c *Conv2D) Grads() []*tensor.Tensor { return []*tensor.Tensor{c.gradW, c.gradB} }

func (c *Conv2D) Tag() string {
	return fmt.Sprintf("Conv2D_%d_%d_%dx%d", c.inChan, c.outChan, c.kh, c.kw)
}
