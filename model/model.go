// Package model assembles the networks used by the experiment pipelines.
package model

import (
	"fmt"
	"math"
	"math/rand"

	"visionlab/nn"
	"visionlab/nn/layers"
	"visionlab/utils"
)

// InitLayers fills every Linear and Conv2D weight with Xavier-scaled
// gaussian noise. Biases stay zero.
func InitLayers(model *nn.Sequential, rng *rand.Rand) {
	for _, layer := range model.Layers {
		switch l := layer.(type) {
		case *layers.Linear:
			scale := math.Sqrt(2.0 / float64(l.InDim()+l.OutDim()))
			for i := range l.W.Data {
				l.W.Data[i] = rng.NormFloat64() * scale
			}
		case *layers.Conv2D:
			fanIn := l.W.Shape[1] * l.W.Shape[2] * l.W.Shape[3]
			fanOut := l.W.Shape[0] * l.W.Shape[2] * l.W.Shape[3]
			scale := math.Sqrt(2.0 / float64(fanIn+fanOut))
			for i := range l.W.Data {
				l.W.Data[i] = rng.NormFloat64() * scale
			}
		}
	}
}

// backbone channel progression; three conv+pool blocks.
var backboneChannels = []int{3, 16, 32, 64}

// NewBackbone builds the convolutional feature extractor: three
// conv(3x3)+ReLU+avgpool(2) blocks followed by Flatten.
func NewBackbone() *nn.Sequential {
	var ls []nn.Module
	for i := 0; i < len(backboneChannels)-1; i++ {
		ls = append(ls,
			layers.NewConv2D(backboneChannels[i], backboneChannels[i+1], 3, 3),
			layers.MustActivation("relu"),
			layers.NewAvgPool2D(2),
		)
	}
	ls = append(ls, layers.NewFlatten())
	return &nn.Sequential{Layers: ls}
}

// FeatureDim returns the backbone output size for a square input.
func FeatureDim(imageSize int) (int, error) {
	h := imageSize
	for i := 0; i < len(backboneChannels)-1; i++ {
		h = (h - 2) / 2 // conv 3x3 valid, then pool 2
		if h < 1 {
			return 0, fmt.Errorf("image size %d too small for the backbone", imageSize)
		}
	}
	return backboneChannels[len(backboneChannels)-1] * h * h, nil
}

// LoadBackbone builds the backbone and loads pretrained weights from path.
// The loaded network is used as a frozen feature extractor: callers only
// run Forward through it and never update its parameters.
func LoadBackbone(path string) (*nn.Sequential, error) {
	backbone := NewBackbone()
	weights, err := utils.LoadWeights(path)
	if err != nil {
		return nil, fmt.Errorf("load backbone: %w", err)
	}
	if err := utils.RestoreModel(backbone, weights); err != nil {
		return nil, fmt.Errorf("load backbone: %w", err)
	}
	return backbone, nil
}

// NewHead builds the trainable classification head:
// Linear -> ReLU -> Dropout -> Linear(numClasses).
func NewHead(featDim, hiddenDim, numClasses int, dropout float64, rng *rand.Rand) *nn.Sequential {
	head := &nn.Sequential{Layers: []nn.Module{
		layers.NewLinear(featDim, hiddenDim),
		layers.MustActivation("relu"),
		layers.NewDropout(dropout, rng),
		layers.NewLinear(hiddenDim, numClasses),
	}}
	InitLayers(head, rng)
	return head
}

// NewGenerator builds the GAN generator: latent vector to a flat image in
// [-1,1] via a widening Linear stack with a tanh output.
func NewGenerator(latentDim, imgDim int, rng *rand.Rand) *nn.Sequential {
	g := &nn.Sequential{Layers: []nn.Module{
		layers.NewLinear(latentDim, 256),
		layers.MustActivation("leakyrelu"),
		layers.NewLinear(256, 512),
		layers.MustActivation("leakyrelu"),
		layers.NewLinear(512, 1024),
		layers.MustActivation("leakyrelu"),
		layers.NewLinear(1024, imgDim),
		layers.MustActivation("tanh"),
	}}
	InitLayers(g, rng)
	return g
}

// NewDiscriminator builds the GAN discriminator: flat image to a single
// real/fake probability.
func NewDiscriminator(imgDim int, rng *rand.Rand) *nn.Sequential {
	d := &nn.Sequential{Layers: []nn.Module{
		layers.NewLinear(imgDim, 512),
		layers.MustActivation("leakyrelu"),
		layers.NewLinear(512, 256),
		layers.MustActivation("leakyrelu"),
		layers.NewLinear(256, 1),
		layers.MustActivation("sigmoid"),
	}}
	InitLayers(d, rng)
	return d
}
