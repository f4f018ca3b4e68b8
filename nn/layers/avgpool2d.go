package layers

import (
	"fmt"

	"visionlab/tensor"
)

// AvgPool2D averages non-overlapping p×p windows over [C,H,W] input.
type AvgPool2D struct {
	poolSize int

	lastShape []int
}

func NewAvgPool2D(p int) *AvgPool2D {
	return &AvgPool2D{poolSize: p}
}

func (a *AvgPool2D) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	if len(x.Shape) != 3 {
		return nil, fmt.Errorf("avgpool2d: expected [C,H,W] input, got %v", x.Shape)
	}
	C, H, W := x.Shape[0], x.Shape[1], x.Shape[2]
	p := a.poolSize
	outH, outW := H/p, W/p
	if outH == 0 || outW == 0 {
		return nil, fmt.Errorf("avgpool2d: input %dx%d smaller than pool size %d", H, W, p)
	}
	a.lastShape = append([]int(nil), x.Shape...)

	out := tensor.New(C, outH, outW)
	inv := 1.0 / float64(p*p)
	for c := 0; c < C; c++ {
		for oh := 0; oh < outH; oh++ {
			for ow := 0; ow < outW; ow++ {
				sum := 0.0
				for ph := 0; ph < p; ph++ {
					for pw := 0; pw < p; pw++ {
						sum += x.Data[(c*H+oh*p+ph)*W+ow*p+pw]
					}
				}
				out.Data[(c*outH+oh)*outW+ow] = sum * inv
			}
		}
	}
	return out, nil
}

// Backward spreads each output gradient evenly across its pooling window.
func (a *AvgPool2D) Backward(gradOut *tensor.Tensor) (*tensor.Tensor, error) {
	if a.lastShape == nil {
		return nil, fmt.Errorf("avgpool2d: no cached input shape for backward pass")
	}
	C, H, W := a.lastShape[0], a.lastShape[1], a.lastShape[2]
	p := a.poolSize
	outH, outW := H/p, W/p
	if len(gradOut.Data) != C*outH*outW {
		return nil, fmt.Errorf("avgpool2d: gradOut has %d elements, want %d", len(gradOut.Data), C*outH*outW)
	}
	grad := tensor.New(C, H, W)
	inv := 1.0 / float64(p*p)
	for c := 0; c < C; c++ {
		for oh := 0; oh < outH; oh++ {
			for ow := 0; ow < outW; ow++ {
				g := gradOut.Data[(c*outH+oh)*outW+ow] * inv
				for ph := 0; ph < p; ph++ {
					for pw := 0; pw < p; pw++ {
						grad.Data[(c*H+oh*p+ph)*W+ow*p+pw] = g
					}
				}
			}
		}
	}
	return grad, nil
}

func (a *AvgPool2D) Tag() string { return fmt.Sprintf("AvgPool2D_%d", a.poolSize) }
