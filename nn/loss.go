package nn

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"visionlab/tensor"
)

const epsLoss = 1e-10

// Softmax applies the softmax function to a 1-D tensor of logits.
func Softmax(logits *tensor.Tensor) *tensor.Tensor {
	maxLogit := floats.Max(logits.Data)
	exps := make([]float64, len(logits.Data))
	for i, v := range logits.Data {
		exps[i] = math.Exp(v - maxLogit)
	}
	expSum := floats.Sum(exps)
	out := tensor.New(len(logits.Data))
	for i, e := range exps {
		out.Data[i] = e / expSum
	}
	return out
}

// CrossEntropyLoss is softmax cross-entropy against a one-hot label.
type CrossEntropyLoss struct{}

// Forward returns -sum(label * log(softmaxOut)).
func (c *CrossEntropyLoss) Forward(softmaxOut, oneHotLabel *tensor.Tensor) float64 {
	loss := 0.0
	for i, y := range oneHotLabel.Data {
		if y > 0 {
			p := softmaxOut.Data[i]
			if p < epsLoss {
				p = epsLoss
			}
			loss -= y * math.Log(p)
		}
	}
	return loss
}

// Backward computes the gradient of the cross-entropy loss with softmax.
// grad = (softmax_output - one_hot_label)
func (c *CrossEntropyLoss) Backward(softmaxOut, oneHotLabel *tensor.Tensor) *tensor.Tensor {
	grad := tensor.New(len(softmaxOut.Data))
	for i := range grad.Data {
		grad.Data[i] = softmaxOut.Data[i] - oneHotLabel.Data[i]
	}
	return grad
}

// BCELoss is binary cross-entropy over sigmoid outputs in (0,1).
// target holds 0/1 values of the same shape as pred.
type BCELoss struct{}

// Forward returns the mean of -[t*log(p) + (1-t)*log(1-p)].
func (b *BCELoss) Forward(pred, target *tensor.Tensor) float64 {
	loss := 0.0
	for i, p := range pred.Data {
		p = clampProb(p)
		t := target.Data[i]
		loss -= t*math.Log(p) + (1-t)*math.Log(1-p)
	}
	return loss / float64(len(pred.Data))
}

// Backward returns dL/dpred per element. Batch averaging happens in the
// layer backward passes, so no division by the element count here.
func (b *BCELoss) Backward(pred, target *tensor.Tensor) *tensor.Tensor {
	grad := tensor.New(pred.Shape...)
	for i, p := range pred.Data {
		p = clampProb(p)
		t := target.Data[i]
		grad.Data[i] = (p - t) / (p * (1 - p))
	}
	return grad
}

func clampProb(p float64) float64 {
	if p < epsLoss {
		return epsLoss
	}
	if p > 1-epsLoss {
		return 1 - epsLoss
	}
	return p
}
