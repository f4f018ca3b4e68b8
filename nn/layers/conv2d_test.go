package layers

import (
	"math"
	"testing"

	"visionlab/tensor"
)

func TestConv2DForwardIdentityKernel(t *testing.T) {
	c := NewConv2D(1, 1, 3, 3)
	// Kernel with a single 1 at the center picks out the input pixel.
	c.W.Set(1, 0, 0, 1, 1)

	x := tensor.New(1, 4, 4)
	for i := range x.Data {
		x.Data[i] = float64(i)
	}
	out, err := c.Forward(x)
	if err != nil {
		t.Fatal(err)
	}
	if out.Shape[0] != 1 || out.Shape[1] != 2 || out.Shape[2] != 2 {
		t.Fatalf("unexpected shape: %v", out.Shape)
	}
	// Centers of the four 3x3 windows in a 4x4 image.
	want := []float64{5, 6, 9, 10}
	for i := range want {
		if out.Data[i] != want[i] {
			t.Errorf("out[%d] = %f, want %f", i, out.Data[i], want[i])
		}
	}
}

func TestConv2DForwardBias(t *testing.T) {
	c := NewConv2D(1, 2, 2, 2)
	c.B.Data[0] = 1
	c.B.Data[1] = -1
	out, err := c.Forward(tensor.New(1, 3, 3))
	if err != nil {
		t.Fatal(err)
	}
	// Zero input and weights: output is just the bias per channel.
	for i := 0; i < 4; i++ {
		if out.Data[i] != 1 {
			t.Errorf("channel 0 out[%d] = %f, want 1", i, out.Data[i])
		}
		if out.Data[4+i] != -1 {
			t.Errorf("channel 1 out[%d] = %f, want -1", i, out.Data[4+i])
		}
	}
}

// Numerical gradient check on a small conv.
func TestConv2DBackwardNumerical(t *testing.T) {
	c := NewConv2D(1, 1, 2, 2)
	copy(c.W.Data, []float64{0.5, -0.25, 0.75, 0.1})
	c.B.Data[0] = 0.2

	x := tensor.New(1, 3, 3)
	for i := range x.Data {
		x.Data[i] = float64(i%5) * 0.3
	}

	// Loss = sum of outputs; gradOut is all ones.
	out, err := c.Forward(x)
	if err != nil {
		t.Fatal(err)
	}
	gradOut := tensor.New(out.Shape...)
	for i := range gradOut.Data {
		gradOut.Data[i] = 1
	}
	gradIn, err := c.Backward(gradOut)
	if err != nil {
		t.Fatal(err)
	}

	sum := func(t2 *tensor.Tensor) float64 {
		s := 0.0
		for _, v := range t2.Data {
			s += v
		}
		return s
	}

	const h = 1e-6
	// Check dL/dW numerically.
	for i := range c.W.Data {
		orig := c.W.Data[i]
		c.W.Data[i] = orig + h
		up, _ := c.Forward(x)
		c.W.Data[i] = orig - h
		down, _ := c.Forward(x)
		c.W.Data[i] = orig
		num := (sum(up) - sum(down)) / (2 * h)
		if math.Abs(num-c.gradW.Data[i]) > 1e-4 {
			t.Errorf("gradW[%d] = %f, numerical %f", i, c.gradW.Data[i], num)
		}
	}
	// Check dL/dx numerically.
	for i := range x.Data {
		orig := x.Data[i]
		x.Data[i] = orig + h
		up, _ := c.Forward(x)
		x.Data[i] = orig - h
		down, _ := c.Forward(x)
		x.Data[i] = orig
		num := (sum(up) - sum(down)) / (2 * h)
		if math.Abs(num-gradIn.Data[i]) > 1e-4 {
			t.Errorf("gradIn[%d] = %f, numerical %f", i, gradIn.Data[i], num)
		}
	}
}

func TestConv2DInputValidation(t *testing.T) {
	c := NewConv2D(3, 8, 3, 3)
	if _, err := c.Forward(tensor.New(1, 8, 8)); err == nil {
		t.Fatal("expected channel mismatch error")
	}
	if _, err := c.Forward(tensor.New(3, 2, 2)); err == nil {
		t.Fatal("expected too-small input error")
	}
}
