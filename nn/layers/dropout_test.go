package layers

import (
	"math"
	"math/rand"
	"testing"

	"visionlab/tensor"
)

func TestDropoutEvalIsIdentity(t *testing.T) {
	d := NewDropout(0.5, rand.New(rand.NewSource(1)))
	d.SetTraining(false)
	x := tensor.NewWithData([]float64{1, 2, 3})
	out, err := d.Forward(x)
	if err != nil {
		t.Fatal(err)
	}
	for i := range x.Data {
		if out.Data[i] != x.Data[i] {
			t.Fatalf("eval dropout changed values: %v", out.Data)
		}
	}
}

func TestDropoutTrainMasksAndScales(t *testing.T) {
	d := NewDropout(0.5, rand.New(rand.NewSource(7)))
	x := tensor.New(1000)
	for i := range x.Data {
		x.Data[i] = 1
	}
	out, err := d.Forward(x)
	if err != nil {
		t.Fatal(err)
	}
	zeros, scaled := 0, 0
	for _, v := range out.Data {
		switch {
		case v == 0:
			zeros++
		case math.Abs(v-2) < 1e-12: // 1/(1-0.5)
			scaled++
		default:
			t.Fatalf("unexpected value %f", v)
		}
	}
	if zeros == 0 || scaled == 0 {
		t.Fatalf("mask degenerate: %d zeros, %d scaled", zeros, scaled)
	}
}

func TestDropoutBackwardUsesSameMask(t *testing.T) {
	d := NewDropout(0.5, rand.New(rand.NewSource(3)))
	x := tensor.New(100)
	for i := range x.Data {
		x.Data[i] = 1
	}
	out, err := d.Forward(x)
	if err != nil {
		t.Fatal(err)
	}
	g := tensor.New(100)
	for i := range g.Data {
		g.Data[i] = 1
	}
	grad, err := d.Backward(g)
	if err != nil {
		t.Fatal(err)
	}
	for i := range out.Data {
		if (out.Data[i] == 0) != (grad.Data[i] == 0) {
			t.Fatalf("mask mismatch at %d: out=%f grad=%f", i, out.Data[i], grad.Data[i])
		}
	}
}

func TestDropoutZeroProb(t *testing.T) {
	d := NewDropout(0, rand.New(rand.NewSource(1)))
	x := tensor.NewWithData([]float64{1, 2})
	out, err := d.Forward(x)
	if err != nil {
		t.Fatal(err)
	}
	if out.Data[0] != 1 || out.Data[1] != 2 {
		t.Fatalf("p=0 dropout changed values: %v", out.Data)
	}
}
