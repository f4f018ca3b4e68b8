package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"visionlab/classifier"
	"visionlab/utils"
)

func newTrainClassifierCmd() *cobra.Command {
	v := utils.NewViper()
	cmd := &cobra.Command{
		Use:   "train-classifier",
		Short: "Train the transfer-learning image classifier head",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := utils.LoadClassifierConfig(v)
			if err != nil {
				return err
			}
			if cfg.TrainDir == "" {
				return fmt.Errorf("--train-dir is required")
			}
			artifacts, err := classifier.Train(cfg)
			if err != nil {
				return err
			}
			fmt.Printf("Run %s complete. Head weights: %s\n", artifacts.RunID, artifacts.HeadPath)
			return nil
		},
	}
	f := cmd.Flags()
	f.String("train-dir", "", "Directory of labeled training images")
	f.String("backbone", "", "Pretrained backbone weights (JSON); random init when empty")
	f.Int("image-size", 64, "Square image size")
	f.Int("epochs", 10, "Number of training epochs")
	f.Int("batch", 32, "Mini-batch size")
	f.Float64("lr", 0.001, "Learning rate")
	f.Float64("dropout", 0.5, "Head dropout probability")
	f.Int("hidden", 128, "Head hidden dimension")
	f.Float64("val-fraction", 0.1, "Validation holdout fraction")
	f.Int64("seed", 42, "Random seed")
	f.String("out", "out", "Output directory")
	bind(v, cmd, map[string]string{
		"train_dir": "train-dir", "backbone": "backbone", "image_size": "image-size",
		"epochs": "epochs", "batch_size": "batch", "lr": "lr", "dropout": "dropout",
		"hidden_dim": "hidden", "val_fraction": "val-fraction", "seed": "seed", "out": "out",
	})
	return cmd
}

func newPredictCmd() *cobra.Command {
	v := utils.NewViper()
	var numClasses int
	var submission string
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Run inference over a test directory and write the submission CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := utils.LoadClassifierConfig(v)
			if err != nil {
				return err
			}
			if cfg.TestDir == "" || cfg.HeadPath == "" {
				return fmt.Errorf("--test-dir and --head are required")
			}
			if numClasses < 2 {
				return fmt.Errorf("--num-classes must be at least 2")
			}
			return classifier.Predict(cfg, numClasses, submission)
		},
	}
	f := cmd.Flags()
	f.String("test-dir", "", "Directory of test images")
	f.String("backbone", "", "Backbone weights (JSON) written by train-classifier; random init when empty")
	f.String("head", "", "Trained head weights (JSON)")
	f.Int("image-size", 64, "Square image size")
	f.Int("hidden", 128, "Head hidden dimension")
	f.Int64("seed", 42, "Random seed")
	f.IntVar(&numClasses, "num-classes", 2, "Number of classes the head was trained with")
	f.StringVar(&submission, "submission", "submission.csv", "Submission CSV path")
	bind(v, cmd, map[string]string{
		"test_dir": "test-dir", "backbone": "backbone", "head": "head",
		"image_size": "image-size", "hidden_dim": "hidden", "seed": "seed",
	})
	return cmd
}
