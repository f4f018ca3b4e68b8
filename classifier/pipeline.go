// Package classifier implements the transfer-learning experiment: a frozen
// pretrained convolutional backbone feeding a small trainable head.
package classifier

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
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

// TrainArtifacts reports where training wrote its outputs.
type TrainArtifacts struct {
	RunID        string
	RunDir       string
	HeadPath     string
	BackbonePath string
	Classes      []string
}

// Train runs the transfer-learning pipeline: scan, extract features through
// the frozen backbone, train the head, checkpoint it.
func Train(cfg *utils.ClassifierConfig) (*TrainArtifacts, error) {
	runID := uuid.New().String()[:8]
	logger := log.WithFields(log.Fields{"run_id": runID, "pipeline": "classifier"})
	rng := rand.New(rand.NewSource(cfg.Seed))
	stats := &utils.TimingStats{}
	totalStart := time.Now()

	start := time.Now()
	table, err := dataset.Scan(cfg.TrainDir, true)
	if err != nil {
		return nil, err
	}
	if len(table.Classes) < 2 {
		return nil, fmt.Errorf("need at least 2 classes, found %d in %s", len(table.Classes), cfg.TrainDir)
	}
	table.Shuffle(rng)
	train, val := table.Split(cfg.ValFraction)
	logger.WithFields(log.Fields{
		"train": len(train.Samples), "val": len(val.Samples), "classes": table.Classes,
	}).Info("dataset ready")

	backbone, err := loadOrInitBackbone(cfg.BackbonePath, rng, logger)
	if err != nil {
		return nil, err
	}
	featDim, err := model.FeatureDim(cfg.ImageSize)
	if err != nil {
		return nil, err
	}
	stats.DataLoadingTime = time.Since(start)

	start = time.Now()
	trainFeats, trainLabels, err := extractFeatures(backbone, train, cfg.ImageSize, true, rng)
	if err != nil {
		return nil, err
	}
	valFeats, valLabels, err := extractFeatures(backbone, val, cfg.ImageSize, false, nil)
	if err != nil {
		return nil, err
	}
	stats.FeatureExtractTime = time.Since(start)
	logger.WithField("feat_dim", featDim).Info("features extracted")

	head := model.NewHead(featDim, cfg.HiddenDim, len(table.Classes), cfg.DropoutProb, rng)
	opt := optim.NewAdam(cfg.LearningRate, 0.9)
	steps := 0

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		head.SetTraining(true)
		perm := rng.Perm(len(trainFeats))
		epochLoss := 0.0
		for _, idx := range dataset.BatchIndices(len(perm), cfg.BatchSize) {
			batchFeats := make([]*tensor.Tensor, len(idx))
			batchLabels := make([]int, len(idx))
			for i, j := range idx {
				batchFeats[i] = trainFeats[perm[j]]
				batchLabels[i] = trainLabels[perm[j]]
			}
			loss, err := trainStep(head, opt, batchFeats, batchLabels, len(table.Classes), stats)
			if err != nil {
				return nil, err
			}
			epochLoss += loss * float64(len(idx))
			steps++
		}
		epochLoss /= float64(len(trainFeats))

		head.SetTraining(false)
		valAcc := accuracy(head, valFeats, valLabels)
		logger.WithFields(log.Fields{
			"epoch": epoch + 1, "loss": fmt.Sprintf("%.6f", epochLoss),
			"val_acc": fmt.Sprintf("%.4f", valAcc),
		}).Info("epoch done")
	}

	runDir := filepath.Join(cfg.OutDir, "classifier-"+runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	headPath := filepath.Join(runDir, "head.json")
	if err := utils.SaveWeights(headPath, utils.SnapshotModel(head)); err != nil {
		return nil, err
	}
	// Snapshot the extractor the head was trained against. Predict must load
	// this exact backbone; a re-initialized one yields different features.
	backbonePath := filepath.Join(runDir, "backbone.json")
	if err := utils.SaveWeights(backbonePath, utils.SnapshotModel(backbone)); err != nil {
		return nil, err
	}
	if err := writeClasses(filepath.Join(runDir, "classes.txt"), table.Classes); err != nil {
		return nil, err
	}

	stats.TotalTime = time.Since(totalStart)
	utils.PrintTimingStats(stats, steps)
	logger.WithFields(log.Fields{"head": headPath, "backbone": backbonePath}).Info("training complete")
	return &TrainArtifacts{
		RunID:        runID,
		RunDir:       runDir,
		HeadPath:     headPath,
		BackbonePath: backbonePath,
		Classes:      table.Classes,
	}, nil
}

// Prediction is one row of the submission file.
type Prediction struct {
	ID    string
	Label int
}

// Predict runs the frozen backbone and a trained head over the test
// directory and writes the submission CSV.
func Predict(cfg *utils.ClassifierConfig, numClasses int, submissionPath string) error {
	logger := log.WithField("pipeline", "classifier")
	rng := rand.New(rand.NewSource(cfg.Seed))

	table, err := dataset.Scan(cfg.TestDir, false)
	if err != nil {
		return err
	}
	backbone, err := loadOrInitBackbone(cfg.BackbonePath, rng, logger)
	if err != nil {
		return err
	}
	featDim, err := model.FeatureDim(cfg.ImageSize)
	if err != nil {
		return err
	}

	head := model.NewHead(featDim, cfg.HiddenDim, numClasses, cfg.DropoutProb, rng)
	weights, err := utils.LoadWeights(cfg.HeadPath)
	if err != nil {
		return err
	}
	if err := utils.RestoreModel(head, weights); err != nil {
		return fmt.Errorf("load head: %w", err)
	}
	head.SetTraining(false)

	feats, _, err := extractFeatures(backbone, table, cfg.ImageSize, false, nil)
	if err != nil {
		return err
	}
	preds := make([]Prediction, len(feats))
	for i, f := range feats {
		out, err := head.Forward(f)
		if err != nil {
			return err
		}
		preds[i] = Prediction{ID: table.Samples[i].ID, Label: argmax(nn.Softmax(out).Data)}
	}
	if err := WriteSubmission(submissionPath, preds); err != nil {
		return err
	}
	logger.WithFields(log.Fields{"rows": len(preds), "out": submissionPath}).Info("submission written")
	return nil
}

// WriteSubmission writes the Id,Label CSV, sorted by Id.
func WriteSubmission(path string, preds []Prediction) error {
	sort.Slice(preds, func(i, j int) bool { return preds[i].ID < preds[j].ID })
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"Id", "Label"}); err != nil {
		return err
	}
	for _, p := range preds {
		if err := w.Write([]string{p.ID, strconv.Itoa(p.Label)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// loadOrInitBackbone loads pretrained weights when a path is configured.
// With no path the backbone is seeded random, which still yields usable
// fixed features for the head. Train always snapshots the backbone it used
// into the run dir, so Predict should be pointed at that checkpoint.
func loadOrInitBackbone(path string, rng *rand.Rand, logger *log.Entry) (*nn.Sequential, error) {
	if path == "" {
		logger.Warn("no backbone checkpoint configured, using randomly initialized backbone")
		backbone := model.NewBackbone()
		model.InitLayers(backbone, rng)
		return backbone, nil
	}
	return model.LoadBackbone(path)
}

// extractFeatures runs every sample through the frozen backbone once and
// caches the resulting feature vectors. Augmentation (random horizontal
// flip) is applied while extracting train features.
func extractFeatures(backbone *nn.Sequential, table *dataset.Table, imageSize int, augment bool, rng *rand.Rand) ([]*tensor.Tensor, []int, error) {
	feats := make([]*tensor.Tensor, len(table.Samples))
	labels := make([]int, len(table.Samples))
	for i, s := range table.Samples {
		img, err := dataset.LoadImage(s.Path, imageSize, dataset.NormZeroOne)
		if err != nil {
			return nil, nil, err
		}
		if augment {
			img = dataset.MaybeFlip(img, rng)
		}
		f, err := backbone.Forward(img)
		if err != nil {
			return nil, nil, fmt.Errorf("backbone forward %s: %w", s.Path, err)
		}
		feats[i] = f
		labels[i] = s.Label
	}
	return feats, labels, nil
}

// trainStep runs one mini-batch through the head and applies an update.
// It returns the mean cross-entropy loss of the batch.
func trainStep(head *nn.Sequential, opt optim.Optimizer, feats []*tensor.Tensor, labels []int, numClasses int, stats *utils.TimingStats) (float64, error) {
	x, err := dataset.StackColumns(feats)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	logits, err := head.Forward(x)
	if err != nil {
		return 0, err
	}
	stats.ForwardPassTime += time.Since(start)

	start = time.Now()
	ce := &nn.CrossEntropyLoss{}
	batch := len(feats)
	loss := 0.0
	grad := tensor.New(numClasses, batch)
	for b := 0; b < batch; b++ {
		probs := nn.Softmax(dataset.Column(logits, b))
		oneHot := tensor.New(numClasses)
		oneHot.Data[labels[b]] = 1
		loss += ce.Forward(probs, oneHot)
		g := ce.Backward(probs, oneHot)
		for j := 0; j < numClasses; j++ {
			grad.Data[j*batch+b] = g.Data[j]
		}
	}
	loss /= float64(batch)
	stats.LossComputationTime += time.Since(start)

	start = time.Now()
	if _, err := head.Backward(grad); err != nil {
		return 0, err
	}
	stats.BackwardPassTime += time.Since(start)

	start = time.Now()
	if err := opt.Step(head); err != nil {
		return 0, err
	}
	stats.UpdateTime += time.Since(start)
	return loss, nil
}

// accuracy evaluates argmax accuracy of the head over cached features.
func accuracy(head *nn.Sequential, feats []*tensor.Tensor, labels []int) float64 {
	if len(feats) == 0 {
		return 0
	}
	correct := 0
	for i, f := range feats {
		out, err := head.Forward(f)
		if err != nil {
			continue
		}
		if argmax(out.Data) == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(feats))
}

func argmax(xs []float64) int {
	best := 0
	for i, v := range xs {
		if v > xs[best] {
			best = i
		}
	}
	return best
}

func writeClasses(path string, classes []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	for i, c := range classes {
		if _, err := fmt.Fprintf(f, "%d,%s\n", i, c); err != nil {
			return err
		}
	}
	return nil
}
