package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"visionlab/gan"
	"visionlab/utils"
)

func newTrainGANCmd() *cobra.Command {
	v := utils.NewViper()
	cmd := &cobra.Command{
		Use:   "train-gan",
		Short: "Train the GAN on a face-image directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := utils.LoadGANConfig(v)
			if err != nil {
				return err
			}
			if cfg.DataDir == "" {
				return fmt.Errorf("--data-dir is required")
			}
			artifacts, err := gan.Train(cfg)
			if err != nil {
				return err
			}
			fmt.Printf("Run %s complete. Artifacts in %s\n", artifacts.RunID, artifacts.RunDir)
			return nil
		},
	}
	f := cmd.Flags()
	f.String("data-dir", "", "Directory of face images")
	f.Int("image-size", 64, "Square image size")
	f.Int("latent", 100, "Latent dimension")
	f.Int("epochs", 10, "Number of training epochs")
	f.Int("batch", 32, "Mini-batch size")
	f.Float64("lr", 0.0002, "Learning rate")
	f.Float64("beta1", 0.5, "Adam beta1")
	f.Int64("seed", 42, "Random seed")
	f.Int("sample-interval", 1, "Epochs between sample grids")
	f.Int("sample-grid", 5, "Sample grid side length")
	f.String("out", "out", "Output directory")
	bind(v, cmd, map[string]string{
		"data_dir": "data-dir", "image_size": "image-size", "latent_dim": "latent",
		"epochs": "epochs", "batch_size": "batch", "lr": "lr", "beta1": "beta1",
		"seed": "seed", "sample_interval": "sample-interval", "sample_grid": "sample-grid",
		"out": "out",
	})
	return cmd
}

func newSampleCmd() *cobra.Command {
	v := utils.NewViper()
	var generator, out string
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Generate a sample grid from a trained generator checkpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := utils.LoadGANConfig(v)
			if err != nil {
				return err
			}
			if generator == "" {
				return fmt.Errorf("--generator is required")
			}
			if err := gan.Sample(cfg, generator, out); err != nil {
				return err
			}
			fmt.Printf("Samples written to %s\n", out)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&generator, "generator", "", "Generator weights (JSON)")
	f.StringVar(&out, "samples-out", "samples.png", "Output PNG path")
	f.Int("image-size", 64, "Square image size")
	f.Int("latent", 100, "Latent dimension")
	f.Int64("seed", 42, "Random seed")
	f.Int("sample-grid", 5, "Sample grid side length")
	bind(v, cmd, map[string]string{
		"image_size": "image-size", "latent_dim": "latent", "seed": "seed",
		"sample_grid": "sample-grid",
	})
	return cmd
}

// bind connects viper config keys to cobra flags so that flag values
// override env and defaults.
func bind(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, flag := range keys {
		// BindPFlag only errors on a nil flag, which would be a programming
		// mistake in the tables above.
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
}
