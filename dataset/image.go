package dataset

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math/rand"
	"os"

	"golang.org/x/image/draw"

	"visionlab/tensor"
)

// Normalization selects the value range of loaded pixels.
type Normalization int

const (
	// NormZeroOne maps pixels to [0,1] (classifier input).
	NormZeroOne Normalization = iota
	// NormTanh maps pixels to [-1,1] (GAN input, matches a tanh generator).
	NormTanh
)

// LoadImage decodes path, resizes it to size×size with bilinear
// interpolation, and returns a [3, size, size] CHW tensor.
func LoadImage(path string, size int, norm Normalization) (*tensor.Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return FromImage(img, size, norm), nil
}

// FromImage resizes img and converts it to a [3, size, size] CHW tensor.
func FromImage(img image.Image, size int, norm Normalization) *tensor.Tensor {
	resized := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Src, nil)

	t := tensor.New(3, size, size)
	plane := size * size
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			off := resized.PixOffset(x, y)
			for c := 0; c < 3; c++ {
				v := float64(resized.Pix[off+c]) / 255.0
				if norm == NormTanh {
					v = v*2 - 1
				}
				t.Data[c*plane+y*size+x] = v
			}
		}
	}
	return t
}

// FlipHorizontal mirrors a [C,H,W] tensor left-to-right.
func FlipHorizontal(t *tensor.Tensor) *tensor.Tensor {
	C, H, W := t.Shape[0], t.Shape[1], t.Shape[2]
	out := tensor.New(C, H, W)
	for c := 0; c < C; c++ {
		for y := 0; y < H; y++ {
			for x := 0; x < W; x++ {
				out.Data[(c*H+y)*W+x] = t.Data[(c*H+y)*W+(W-1-x)]
			}
		}
	}
	return out
}

// MaybeFlip applies a random horizontal flip with probability 0.5.
func MaybeFlip(t *tensor.Tensor, rng *rand.Rand) *tensor.Tensor {
	if rng.Float64() < 0.5 {
		return FlipHorizontal(t)
	}
	return t
}
