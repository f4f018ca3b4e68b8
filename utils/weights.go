package utils

import (
	"encoding/json"
	"fmt"
	"os"

	"visionlab/nn"
	"visionlab/tensor"
)

// WeightData represents serializable weight data for a layer
type WeightData struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// ModelWeights represents all weights in a model
type ModelWeights struct {
	Version string                 `json:"version"`
	Layers  map[string]LayerWeight `json:"layers"`
}

// LayerWeight contains weights and bias for a layer
type LayerWeight struct {
	Weight *WeightData `json:"weight,omitempty"`
	Bias   *WeightData `json:"bias,omitempty"`
}

// CheckpointVersion is written into every saved weights file.
const CheckpointVersion = "1.0"

// SaveWeights saves model weights to a JSON file
func SaveWeights(filepath string, weights *ModelWeights) error {
	data, err := json.MarshalIndent(weights, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}
	return os.WriteFile(filepath, data, 0644)
}

// LoadWeights loads model weights from a JSON file
func LoadWeights(filepath string) (*ModelWeights, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read weights file: %w", err)
	}
	var weights ModelWeights
	if err := json.Unmarshal(data, &weights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weights: %w", err)
	}
	return &weights, nil
}

// TensorToWeightData converts a tensor to serializable weight data
func TensorToWeightData(name string, t *tensor.Tensor) *WeightData {
	return &WeightData{
		Name:  name,
		Shape: append([]int{}, t.Shape...),
		Data:  append([]float64{}, t.Data...),
	}
}

// WeightDataToTensor converts weight data back to a tensor
func WeightDataToTensor(wd *WeightData) *tensor.Tensor {
	t := tensor.New(wd.Shape...)
	copy(t.Data, wd.Data)
	return t
}

type tagged interface {
	Tag() string
}

// layerKey names a layer inside a checkpoint: position plus its Tag, so
// restore can verify it is loading into the same architecture.
func layerKey(i int, m nn.Module) string {
	tag := "layer"
	if t, ok := m.(tagged); ok {
		tag = t.Tag()
	}
	return fmt.Sprintf("%02d_%s", i, tag)
}

// SnapshotModel captures the parameters of every parameterized layer.
func SnapshotModel(model *nn.Sequential) *ModelWeights {
	weights := &ModelWeights{
		Version: CheckpointVersion,
		Layers:  make(map[string]LayerWeight),
	}
	for i, layer := range model.Layers {
		pm, ok := layer.(nn.ParamModule)
		if !ok {
			continue
		}
		params := pm.Params()
		lw := LayerWeight{}
		if len(params) > 0 {
			lw.Weight = TensorToWeightData("weight", params[0])
		}
		if len(params) > 1 {
			lw.Bias = TensorToWeightData("bias", params[1])
		}
		weights.Layers[layerKey(i, layer)] = lw
	}
	return weights
}

// RestoreModel loads a snapshot into a model of the same architecture.
// Every parameterized layer must be present with matching shapes.
func RestoreModel(model *nn.Sequential, weights *ModelWeights) error {
	for i, layer := range model.Layers {
		pm, ok := layer.(nn.ParamModule)
		if !ok {
			continue
		}
		key := layerKey(i, layer)
		lw, ok := weights.Layers[key]
		if !ok {
			return fmt.Errorf("checkpoint is missing layer %q", key)
		}
		params := pm.Params()
		stored := []*WeightData{lw.Weight, lw.Bias}
		for pi, p := range params {
			if pi >= len(stored) || stored[pi] == nil {
				return fmt.Errorf("checkpoint layer %q is missing parameter %d", key, pi)
			}
			if len(stored[pi].Data) != len(p.Data) {
				return fmt.Errorf("checkpoint layer %q parameter %d has %d elements, model expects %d",
					key, pi, len(stored[pi].Data), len(p.Data))
			}
			copy(p.Data, stored[pi].Data)
		}
	}
	return nil
}
