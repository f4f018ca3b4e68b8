// Package gan implements the adversarial training experiment on a
// face-image directory: a generator learns to synthesize images that a
// discriminator cannot tell from real ones.
package gan

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"visionlab/dataset"
	"visionlab/model"
	"visionlab/nn"
	"visionlab/nn/optim"
	"visionlab/tensor"
	"visionlab/utils"
)

// Artifacts reports where training wrote its outputs.
type Artifacts struct {
	RunID             string
	RunDir            string
	GeneratorPath     string
	DiscriminatorPath string
}

// Trainer holds the adversarial pair and its optimizers.
type Trainer struct {
	G, D *nn.Sequential
	optG *optim.Adam
	optD *optim.Adam
	bce  *nn.BCELoss

	latentDim int
	imgDim    int
	rng       *rand.Rand
}

// NewTrainer builds a generator/discriminator pair for imgDim-sized flat
// images. GAN training conventionally runs Adam with beta1 well below the
// usual 0.9; cfg.Beta1 defaults to 0.5.
func NewTrainer(cfg *utils.GANConfig, rng *rand.Rand) *Trainer {
	imgDim := 3 * cfg.ImageSize * cfg.ImageSize
	return &Trainer{
		G:         model.NewGenerator(cfg.LatentDim, imgDim, rng),
		D:         model.NewDiscriminator(imgDim, rng),
		optG:      optim.NewAdam(cfg.LearningRate, cfg.Beta1),
		optD:      optim.NewAdam(cfg.LearningRate, cfg.Beta1),
		bce:       &nn.BCELoss{},
		latentDim: cfg.LatentDim,
		imgDim:    imgDim,
		rng:       rng,
	}
}

// SampleLatent draws an [latentDim, n] batch of standard-normal latents.
func (t *Trainer) SampleLatent(n int) *tensor.Tensor {
	z := tensor.New(t.latentDim, n)
	for i := range z.Data {
		z.Data[i] = t.rng.NormFloat64()
	}
	return z
}

// Generate runs the generator on z without touching gradients.
func (t *Trainer) Generate(z *tensor.Tensor) (*tensor.Tensor, error) {
	return t.G.Forward(z)
}

// StepD updates the discriminator on one combined real+fake batch and
// returns its loss. The fake half is treated as a constant (no generator
// update happens here).
func (t *Trainer) StepD(real *tensor.Tensor) (float64, error) {
	batch := real.Shape[1]
	fake, err := t.G.Forward(t.SampleLatent(batch))
	if err != nil {
		return 0, err
	}

	// Real columns first, generated columns after, targets 1 then 0.
	combined := tensor.New(t.imgDim, 2*batch)
	for j := 0; j < t.imgDim; j++ {
		copy(combined.Data[j*2*batch:j*2*batch+batch], real.Data[j*batch:(j+1)*batch])
		copy(combined.Data[j*2*batch+batch:(j+1)*2*batch], fake.Data[j*batch:(j+1)*batch])
	}
	target := tensor.New(1, 2*batch)
	for b := 0; b < batch; b++ {
		target.Data[b] = 1
	}

	pred, err := t.D.Forward(combined)
	if err != nil {
		return 0, err
	}
	loss := t.bce.Forward(pred, target)
	if _, err := t.D.Backward(t.bce.Backward(pred, target)); err != nil {
		return 0, err
	}
	if err := t.optD.Step(t.D); err != nil {
		return 0, err
	}
	return loss, nil
}

// StepG updates the generator so the discriminator scores its output as
// real, and returns the generator loss.
func (t *Trainer) StepG(batch int) (float64, error) {
	z := t.SampleLatent(batch)
	fake, err := t.G.Forward(z)
	if err != nil {
		return 0, err
	}
	pred, err := t.D.Forward(fake)
	if err != nil {
		return 0, err
	}
	target := tensor.New(1, batch)
	for b := range target.Data {
		target.Data[b] = 1
	}
	loss := t.bce.Forward(pred, target)

	gradFake, err := t.D.Backward(t.bce.Backward(pred, target))
	if err != nil {
		return 0, err
	}
	if _, err := t.G.Backward(gradFake); err != nil {
		return 0, err
	}
	// Only the generator steps here; the discriminator gradients produced
	// above are overwritten by its next StepD.
	if err := t.optG.Step(t.G); err != nil {
		return 0, err
	}
	return loss, nil
}

// Train runs the full GAN experiment: load faces, adversarial loop,
// per-interval sample grids and weight checkpoints.
func Train(cfg *utils.GANConfig) (*Artifacts, error) {
	runID := uuid.New().String()[:8]
	logger := log.WithFields(log.Fields{"run_id": runID, "pipeline": "gan"})
	rng := rand.New(rand.NewSource(cfg.Seed))
	stats := &utils.TimingStats{}
	totalStart := time.Now()

	start := time.Now()
	table, err := dataset.Scan(cfg.DataDir, false)
	if err != nil {
		return nil, err
	}
	images := make([]*tensor.Tensor, len(table.Samples))
	for i, s := range table.Samples {
		img, err := dataset.LoadImage(s.Path, cfg.ImageSize, dataset.NormTanh)
		if err != nil {
			return nil, err
		}
		images[i] = img
	}
	stats.DataLoadingTime = time.Since(start)
	logger.WithField("images", len(images)).Info("dataset ready")

	start = time.Now()
	trainer := NewTrainer(cfg, rng)
	stats.ModelInitTime = time.Since(start)

	runDir := filepath.Join(cfg.OutDir, "gan-"+runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}

	// Fixed latents so successive sample grids show the same points evolving.
	fixedZ := trainer.SampleLatent(cfg.SampleGrid * cfg.SampleGrid)

	steps := 0
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		perm := rng.Perm(len(images))
		lossD, lossG := 0.0, 0.0
		batches := dataset.BatchIndices(len(perm), cfg.BatchSize)
		for _, idx := range batches {
			batch := make([]*tensor.Tensor, len(idx))
			for i, j := range idx {
				batch[i] = dataset.MaybeFlip(images[perm[j]], rng)
			}
			flat := make([]*tensor.Tensor, len(batch))
			for i, img := range batch {
				flat[i], err = img.Reshape(img.Numel())
				if err != nil {
					return nil, err
				}
			}
			real, err := dataset.StackColumns(flat)
			if err != nil {
				return nil, err
			}

			stepStart := time.Now()
			ld, err := trainer.StepD(real)
			if err != nil {
				return nil, fmt.Errorf("discriminator step: %w", err)
			}
			lg, err := trainer.StepG(len(idx))
			if err != nil {
				return nil, fmt.Errorf("generator step: %w", err)
			}
			stats.ForwardPassTime += time.Since(stepStart)
			lossD += ld
			lossG += lg
			steps++
		}
		lossD /= float64(len(batches))
		lossG /= float64(len(batches))
		logger.WithFields(log.Fields{
			"epoch": epoch + 1, "loss_d": fmt.Sprintf("%.6f", lossD), "loss_g": fmt.Sprintf("%.6f", lossG),
		}).Info("epoch done")

		if (epoch+1)%cfg.SampleInterval == 0 {
			sampleStart := time.Now()
			gridPath := filepath.Join(runDir, fmt.Sprintf("samples_epoch_%03d.png", epoch+1))
			if err := WriteSampleGrid(gridPath, trainer.G, fixedZ, cfg.ImageSize, cfg.SampleGrid); err != nil {
				return nil, err
			}
			if err := checkpoint(runDir, trainer); err != nil {
				return nil, err
			}
			stats.SampleGenTime += time.Since(sampleStart)
			logger.WithField("samples", gridPath).Info("samples written")
		}
	}

	if err := checkpoint(runDir, trainer); err != nil {
		return nil, err
	}
	stats.TotalTime = time.Since(totalStart)
	utils.PrintTimingStats(stats, steps)
	logger.WithField("dir", runDir).Info("training complete")
	return &Artifacts{
		RunID:             runID,
		RunDir:            runDir,
		GeneratorPath:     filepath.Join(runDir, "generator.json"),
		DiscriminatorPath: filepath.Join(runDir, "discriminator.json"),
	}, nil
}

func checkpoint(runDir string, t *Trainer) error {
	if err := utils.SaveWeights(filepath.Join(runDir, "generator.json"), utils.SnapshotModel(t.G)); err != nil {
		return err
	}
	return utils.SaveWeights(filepath.Join(runDir, "discriminator.json"), utils.SnapshotModel(t.D))
}
