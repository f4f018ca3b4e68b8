package nn

import (
	"math"
	"testing"

	"visionlab/tensor"
)

func TestSoftmaxSumsToOne(t *testing.T) {
	logits := tensor.NewWithData([]float64{1, 2, 3, 4})
	probs := Softmax(logits)
	sum := 0.0
	for _, p := range probs.Data {
		if p <= 0 || p >= 1 {
			t.Fatalf("probability out of range: %f", p)
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Fatalf("probabilities sum to %f, want 1", sum)
	}
	// Largest logit gets the largest probability.
	for i := 0; i < 3; i++ {
		if probs.Data[i] >= probs.Data[i+1] {
			t.Fatalf("softmax not monotone: %v", probs.Data)
		}
	}
}

func TestSoftmaxLargeLogitsStable(t *testing.T) {
	logits := tensor.NewWithData([]float64{1000, 1000, 1000})
	probs := Softmax(logits)
	for _, p := range probs.Data {
		if math.IsNaN(p) || math.Abs(p-1.0/3) > 1e-12 {
			t.Fatalf("unstable softmax: %v", probs.Data)
		}
	}
}

func TestCrossEntropyLoss(t *testing.T) {
	ce := &CrossEntropyLoss{}
	probs := tensor.NewWithData([]float64{0.7, 0.2, 0.1})
	oneHot := tensor.NewWithData([]float64{1, 0, 0})

	loss := ce.Forward(probs, oneHot)
	if math.Abs(loss-(-math.Log(0.7))) > 1e-12 {
		t.Fatalf("loss = %f, want %f", loss, -math.Log(0.7))
	}

	grad := ce.Backward(probs, oneHot)
	want := []float64{-0.3, 0.2, 0.1}
	for i := range want {
		if math.Abs(grad.Data[i]-want[i]) > 1e-12 {
			t.Errorf("grad[%d] = %f, want %f", i, grad.Data[i], want[i])
		}
	}
}

func TestBCELoss(t *testing.T) {
	bce := &BCELoss{}
	pred := tensor.NewWithData([]float64{0.9, 0.1})
	target := tensor.NewWithData([]float64{1, 0})

	loss := bce.Forward(pred, target)
	want := -(math.Log(0.9) + math.Log(0.9)) / 2
	if math.Abs(loss-want) > 1e-12 {
		t.Fatalf("loss = %f, want %f", loss, want)
	}

	grad := bce.Backward(pred, target)
	// d/dp of -log(p) at 0.9 is -1/0.9; of -log(1-p) at 0.1 is 1/0.9.
	if math.Abs(grad.Data[0]-(-1/0.9)) > 1e-9 {
		t.Errorf("grad[0] = %f, want %f", grad.Data[0], -1/0.9)
	}
	if math.Abs(grad.Data[1]-(1/0.9)) > 1e-9 {
		t.Errorf("grad[1] = %f, want %f", grad.Data[1], 1/0.9)
	}
}

func TestBCELossClampsExtremes(t *testing.T) {
	bce := &BCELoss{}
	pred := tensor.NewWithData([]float64{0, 1})
	target := tensor.NewWithData([]float64{1, 0})
	loss := bce.Forward(pred, target)
	if math.IsInf(loss, 0) || math.IsNaN(loss) {
		t.Fatalf("loss not finite: %f", loss)
	}
	grad := bce.Backward(pred, target)
	for i, g := range grad.Data {
		if math.IsInf(g, 0) || math.IsNaN(g) {
			t.Fatalf("grad[%d] not finite: %f", i, g)
		}
	}
}
