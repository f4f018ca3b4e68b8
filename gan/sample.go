package gan

import (
	"fmt"
	"image"
	"image/png"
	"math/rand"
	"os"

	"visionlab/dataset"
	"visionlab/model"
	"visionlab/nn"
	"visionlab/tensor"
	"visionlab/utils"
)

const gridPadding = 2

// Sample loads a generator checkpoint and writes one grid of fresh samples.
func Sample(cfg *utils.GANConfig, generatorPath, outPath string) error {
	rng := rand.New(rand.NewSource(cfg.Seed))
	g := model.NewGenerator(cfg.LatentDim, 3*cfg.ImageSize*cfg.ImageSize, rng)
	weights, err := utils.LoadWeights(generatorPath)
	if err != nil {
		return err
	}
	if err := utils.RestoreModel(g, weights); err != nil {
		return fmt.Errorf("load generator: %w", err)
	}
	z := tensor.New(cfg.LatentDim, cfg.SampleGrid*cfg.SampleGrid)
	for i := range z.Data {
		z.Data[i] = rng.NormFloat64()
	}
	return WriteSampleGrid(outPath, g, z, cfg.ImageSize, cfg.SampleGrid)
}

// WriteSampleGrid generates images from the given latents and writes them
// as a grid×grid PNG.
func WriteSampleGrid(path string, g *nn.Sequential, z *tensor.Tensor, imageSize, grid int) error {
	fake, err := g.Forward(z)
	if err != nil {
		return err
	}
	n := z.Shape[1]
	imgs := make([]*tensor.Tensor, n)
	for b := 0; b < n; b++ {
		col := dataset.Column(fake, b)
		imgs[b], err = col.Reshape(3, imageSize, imageSize)
		if err != nil {
			return err
		}
	}
	return WritePNGGrid(path, imgs, grid)
}

// WritePNGGrid renders [C,H,W] tensors in [-1,1] into a grid PNG.
func WritePNGGrid(path string, imgs []*tensor.Tensor, grid int) error {
	if len(imgs) == 0 {
		return fmt.Errorf("sample grid: no images")
	}
	H, W := imgs[0].Shape[1], imgs[0].Shape[2]
	cell := W + gridPadding
	out := image.NewNRGBA(image.Rect(0, 0, grid*cell+gridPadding, grid*cell+gridPadding))

	for i, img := range imgs {
		if i >= grid*grid {
			break
		}
		gy, gx := i/grid, i%grid
		x0 := gridPadding + gx*cell
		y0 := gridPadding + gy*cell
		for y := 0; y < H; y++ {
			for x := 0; x < W; x++ {
				off := out.PixOffset(x0+x, y0+y)
				for c := 0; c < 3; c++ {
					out.Pix[off+c] = toByte(img.Data[(c*H+y)*W+x])
				}
				out.Pix[off+3] = 0xff
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create sample grid: %w", err)
	}
	defer f.Close()
	return png.Encode(f, out)
}

// toByte maps [-1,1] to a pixel byte, clamping out-of-range values.
func toByte(v float64) uint8 {
	v = (v + 1) / 2 * 255
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(v)
}
