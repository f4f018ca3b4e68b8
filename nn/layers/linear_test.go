package layers

import (
	"math"
	"testing"

	"visionlab/tensor"
)

func newTestLinear() *Linear {
	l := NewLinear(2, 2)
	copy(l.W.Data, []float64{1, 2, 3, 4})
	copy(l.B.Data, []float64{0.5, -0.5})
	return l
}

func TestLinearForwardVector(t *testing.T) {
	l := newTestLinear()
	out, err := l.Forward(tensor.NewWithData([]float64{1, 1}))
	if err != nil {
		t.Fatal(err)
	}
	// y = Wx + b = [1+2+0.5, 3+4-0.5]
	want := []float64{3.5, 6.5}
	for i := range want {
		if math.Abs(out.Data[i]-want[i]) > 1e-12 {
			t.Errorf("out[%d] = %f, want %f", i, out.Data[i], want[i])
		}
	}
}

func TestLinearForwardBatch(t *testing.T) {
	l := newTestLinear()
	// Two columns: (1,1) and (0,2).
	x := &tensor.Tensor{Data: []float64{1, 0, 1, 2}, Shape: []int{2, 2}}
	out, err := l.Forward(x)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{3.5, 4.5, 6.5, 7.5}
	for i := range want {
		if math.Abs(out.Data[i]-want[i]) > 1e-12 {
			t.Errorf("out[%d] = %f, want %f", i, out.Data[i], want[i])
		}
	}
}

func TestLinearBackward(t *testing.T) {
	l := newTestLinear()
	x := tensor.NewWithData([]float64{1, 2})
	if _, err := l.Forward(x); err != nil {
		t.Fatal(err)
	}
	gradIn, err := l.Backward(tensor.NewWithData([]float64{1, 1}))
	if err != nil {
		t.Fatal(err)
	}

	// dL/dW = g·x^T: [[1,2],[1,2]]
	wantW := []float64{1, 2, 1, 2}
	for i := range wantW {
		if math.Abs(l.gradW.Data[i]-wantW[i]) > 1e-12 {
			t.Errorf("gradW[%d] = %f, want %f", i, l.gradW.Data[i], wantW[i])
		}
	}
	// dL/dB = g
	if l.gradB.Data[0] != 1 || l.gradB.Data[1] != 1 {
		t.Errorf("gradB = %v, want [1 1]", l.gradB.Data)
	}
	// dL/dx = W^T·g = [1+3, 2+4]
	if gradIn.Data[0] != 4 || gradIn.Data[1] != 6 {
		t.Errorf("gradIn = %v, want [4 6]", gradIn.Data)
	}
}

func TestLinearBackwardAveragesBatch(t *testing.T) {
	l := newTestLinear()
	// Two identical columns.
	x := &tensor.Tensor{Data: []float64{1, 1, 2, 2}, Shape: []int{2, 2}}
	if _, err := l.Forward(x); err != nil {
		t.Fatal(err)
	}
	g := &tensor.Tensor{Data: []float64{1, 1, 1, 1}, Shape: []int{2, 2}}
	if _, err := l.Backward(g); err != nil {
		t.Fatal(err)
	}
	// Same as the single-sample case because grads are batch means.
	wantW := []float64{1, 2, 1, 2}
	for i := range wantW {
		if math.Abs(l.gradW.Data[i]-wantW[i]) > 1e-12 {
			t.Errorf("gradW[%d] = %f, want %f", i, l.gradW.Data[i], wantW[i])
		}
	}
}

func TestLinearUpdate(t *testing.T) {
	l := newTestLinear()
	if _, err := l.Forward(tensor.NewWithData([]float64{1, 2})); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Backward(tensor.NewWithData([]float64{1, 1})); err != nil {
		t.Fatal(err)
	}
	l.Update(0.1)
	// W[0,0] was 1, grad 1 -> 0.9
	if math.Abs(l.W.Data[0]-0.9) > 1e-12 {
		t.Errorf("W[0] = %f, want 0.9", l.W.Data[0])
	}
	if math.Abs(l.B.Data[0]-0.4) > 1e-12 {
		t.Errorf("B[0] = %f, want 0.4", l.B.Data[0])
	}
}

func TestLinearInputMismatch(t *testing.T) {
	l := newTestLinear()
	if _, err := l.Forward(tensor.New(3)); err == nil {
		t.Fatal("expected dimension error")
	}
	if _, err := l.Backward(tensor.New(2)); err == nil {
		t.Fatal("expected no-cached-input error")
	}
}
