package dataset

import (
	"fmt"

	"visionlab/tensor"
)

// BatchIndices splits [0,n) into consecutive batches of at most batchSize.
// The final short batch is kept.
func BatchIndices(n, batchSize int) [][]int {
	var batches [][]int
	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}
		idx := make([]int, end-start)
		for i := range idx {
			idx[i] = start + i
		}
		batches = append(batches, idx)
	}
	return batches
}

// StackColumns packs equally-sized 1-D tensors into a [dim, batch] matrix,
// one tensor per column. This is the batch layout the Linear layer expects.
func StackColumns(vecs []*tensor.Tensor) (*tensor.Tensor, error) {
	if len(vecs) == 0 {
		return nil, fmt.Errorf("stack: empty batch")
	}
	dim := vecs[0].Numel()
	batch := len(vecs)
	out := tensor.New(dim, batch)
	for b, v := range vecs {
		if v.Numel() != dim {
			return nil, fmt.Errorf("stack: tensor %d has %d elements, want %d", b, v.Numel(), dim)
		}
		for j := 0; j < dim; j++ {
			out.Data[j*batch+b] = v.Data[j]
		}
	}
	return out, nil
}

// Column extracts column b of a [dim, batch] matrix as a 1-D tensor.
func Column(m *tensor.Tensor, b int) *tensor.Tensor {
	dim, batch := m.Shape[0], m.Shape[1]
	out := tensor.New(dim)
	for j := 0; j < dim; j++ {
		out.Data[j] = m.Data[j*batch+b]
	}
	return out
}
