package gan

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"visionlab/nn/layers"
	"visionlab/utils"
)

func smallConfig(t *testing.T, dataDir string) *utils.GANConfig {
	t.Helper()
	return &utils.GANConfig{
		DataDir:        dataDir,
		ImageSize:      8,
		LatentDim:      4,
		Epochs:         2,
		BatchSize:      2,
		LearningRate:   0.001,
		Beta1:          0.5,
		Seed:           3,
		SampleInterval: 1,
		SampleGrid:     2,
		OutDir:         t.TempDir(),
	}
}

func writeFacePNG(t *testing.T, path string, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func faceDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < 4; i++ {
		shade := uint8(60 + 40*i)
		writeFacePNG(t, filepath.Join(dir, "face."+strconv.Itoa(i)+".png"), color.RGBA{R: shade, G: shade, B: shade, A: 255})
	}
	return dir
}

func TestSampleLatentShape(t *testing.T) {
	cfg := smallConfig(t, "")
	trainer := NewTrainer(cfg, rand.New(rand.NewSource(1)))

	z := trainer.SampleLatent(3)
	if z.Shape[0] != cfg.LatentDim || z.Shape[1] != 3 {
		t.Fatalf("unexpected latent shape: %v", z.Shape)
	}
}

func TestStepDAndStepG(t *testing.T) {
	cfg := smallConfig(t, "")
	rng := rand.New(rand.NewSource(2))
	trainer := NewTrainer(cfg, rng)

	// A fake "real" batch drawn from the generator's own range.
	real := trainer.SampleLatent(cfg.BatchSize)
	real, err := trainer.G.Forward(real)
	if err != nil {
		t.Fatal(err)
	}

	lossD, err := trainer.StepD(real)
	if err != nil {
		t.Fatal(err)
	}
	if math.IsNaN(lossD) || math.IsInf(lossD, 0) || lossD < 0 {
		t.Fatalf("bad discriminator loss: %f", lossD)
	}

	before := append([]float64(nil), trainer.G.Layers[0].(*layers.Linear).W.Data...)
	lossG, err := trainer.StepG(cfg.BatchSize)
	if err != nil {
		t.Fatal(err)
	}
	if math.IsNaN(lossG) || math.IsInf(lossG, 0) || lossG < 0 {
		t.Fatalf("bad generator loss: %f", lossG)
	}
	after := trainer.G.Layers[0].(*layers.Linear).W.Data
	changed := false
	for i := range before {
		if before[i] != after[i] {
			changed = true
			break
		}
	}
	if !changed {
		t.Fatal("generator step did not update its weights")
	}
}

func TestStepGLeavesDiscriminatorParams(t *testing.T) {
	cfg := smallConfig(t, "")
	trainer := NewTrainer(cfg, rand.New(rand.NewSource(4)))

	before := append([]float64(nil), trainer.D.Layers[0].(*layers.Linear).W.Data...)
	if _, err := trainer.StepG(cfg.BatchSize); err != nil {
		t.Fatal(err)
	}
	after := trainer.D.Layers[0].(*layers.Linear).W.Data
	for i := range before {
		if before[i] != after[i] {
			t.Fatal("generator step must not update discriminator weights")
		}
	}
}

func TestTrainWritesSamplesAndCheckpoints(t *testing.T) {
	cfg := smallConfig(t, faceDir(t))

	art, err := Train(cfg)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{art.GeneratorPath, art.DiscriminatorPath} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("checkpoint missing: %v", err)
		}
	}
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		grid := filepath.Join(art.RunDir, "samples_epoch_00"+strconv.Itoa(epoch)+".png")
		f, err := os.Open(grid)
		if err != nil {
			t.Fatalf("sample grid missing: %v", err)
		}
		img, err := png.Decode(f)
		f.Close()
		if err != nil {
			t.Fatalf("sample grid not decodable: %v", err)
		}
		wantSide := cfg.SampleGrid*(cfg.ImageSize+gridPadding) + gridPadding
		if img.Bounds().Dx() != wantSide || img.Bounds().Dy() != wantSide {
			t.Fatalf("grid is %dx%d, want %dx%d", img.Bounds().Dx(), img.Bounds().Dy(), wantSide, wantSide)
		}
	}
}

func TestSampleFromCheckpoint(t *testing.T) {
	cfg := smallConfig(t, faceDir(t))
	art, err := Train(cfg)
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "samples.png")
	if err := Sample(cfg, art.GeneratorPath, out); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Fatalf("sample output not decodable: %v", err)
	}
}

func TestSampleMissingCheckpoint(t *testing.T) {
	cfg := smallConfig(t, "")
	err := Sample(cfg, filepath.Join(t.TempDir(), "nope.json"), filepath.Join(t.TempDir(), "out.png"))
	if err == nil {
		t.Fatal("expected error for missing generator checkpoint")
	}
}
