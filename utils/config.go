package utils

import (
	"fmt"

	"github.com/spf13/viper"
)

// ClassifierConfig holds the transfer-learning experiment configuration.
type ClassifierConfig struct {
	TrainDir     string
	TestDir      string
	BackbonePath string
	HeadPath     string
	ImageSize    int
	Epochs       int
	BatchSize    int
	LearningRate float64
	DropoutProb  float64
	HiddenDim    int
	ValFraction  float64
	Seed         int64
	OutDir       string
}

// GANConfig holds the GAN experiment configuration.
type GANConfig struct {
	DataDir        string
	ImageSize      int
	LatentDim      int
	Epochs         int
	BatchSize      int
	LearningRate   float64
	Beta1          float64
	Seed           int64
	SampleInterval int
	SampleGrid     int
	OutDir         string
}

// NewViper returns a viper instance with experiment defaults bound to the
// VISIONLAB_* environment. Command flags override these via BindPFlag.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("visionlab")
	v.AutomaticEnv()

	v.SetDefault("image_size", 64)
	v.SetDefault("epochs", 10)
	v.SetDefault("batch_size", 32)
	v.SetDefault("lr", 0.001)
	v.SetDefault("dropout", 0.5)
	v.SetDefault("hidden_dim", 128)
	v.SetDefault("val_fraction", 0.1)
	v.SetDefault("seed", 42)
	v.SetDefault("out", "out")
	v.SetDefault("latent_dim", 100)
	v.SetDefault("beta1", 0.5)
	v.SetDefault("sample_interval", 1)
	v.SetDefault("sample_grid", 5)
	return v
}

// LoadClassifierConfig reads and validates the classifier configuration.
func LoadClassifierConfig(v *viper.Viper) (*ClassifierConfig, error) {
	cfg := &ClassifierConfig{
		TrainDir:     v.GetString("train_dir"),
		TestDir:      v.GetString("test_dir"),
		BackbonePath: v.GetString("backbone"),
		HeadPath:     v.GetString("head"),
		ImageSize:    v.GetInt("image_size"),
		Epochs:       v.GetInt("epochs"),
		BatchSize:    v.GetInt("batch_size"),
		LearningRate: v.GetFloat64("lr"),
		DropoutProb:  v.GetFloat64("dropout"),
		HiddenDim:    v.GetInt("hidden_dim"),
		ValFraction:  v.GetFloat64("val_fraction"),
		Seed:         v.GetInt64("seed"),
		OutDir:       v.GetString("out"),
	}
	if err := validateCommon(cfg.ImageSize, cfg.Epochs, cfg.BatchSize, cfg.LearningRate); err != nil {
		return nil, err
	}
	if cfg.ValFraction < 0 || cfg.ValFraction >= 1 {
		return nil, fmt.Errorf("val_fraction must be in [0,1), got %g", cfg.ValFraction)
	}
	if cfg.DropoutProb < 0 || cfg.DropoutProb >= 1 {
		return nil, fmt.Errorf("dropout must be in [0,1), got %g", cfg.DropoutProb)
	}
	if cfg.HiddenDim <= 0 {
		return nil, fmt.Errorf("hidden_dim must be positive")
	}
	return cfg, nil
}

// LoadGANConfig reads and validates the GAN configuration.
func LoadGANConfig(v *viper.Viper) (*GANConfig, error) {
	cfg := &GANConfig{
		DataDir:        v.GetString("data_dir"),
		ImageSize:      v.GetInt("image_size"),
		LatentDim:      v.GetInt("latent_dim"),
		Epochs:         v.GetInt("epochs"),
		BatchSize:      v.GetInt("batch_size"),
		LearningRate:   v.GetFloat64("lr"),
		Beta1:          v.GetFloat64("beta1"),
		Seed:           v.GetInt64("seed"),
		SampleInterval: v.GetInt("sample_interval"),
		SampleGrid:     v.GetInt("sample_grid"),
		OutDir:         v.GetString("out"),
	}
	if err := validateCommon(cfg.ImageSize, cfg.Epochs, cfg.BatchSize, cfg.LearningRate); err != nil {
		return nil, err
	}
	if cfg.LatentDim <= 0 {
		return nil, fmt.Errorf("latent_dim must be positive")
	}
	if cfg.Beta1 < 0 || cfg.Beta1 >= 1 {
		return nil, fmt.Errorf("beta1 must be in [0,1), got %g", cfg.Beta1)
	}
	if cfg.SampleInterval <= 0 {
		return nil, fmt.Errorf("sample_interval must be positive")
	}
	if cfg.SampleGrid <= 0 {
		return nil, fmt.Errorf("sample_grid must be positive")
	}
	return cfg, nil
}

func validateCommon(imageSize, epochs, batchSize int, lr float64) error {
	if imageSize <= 0 {
		return fmt.Errorf("image_size must be positive")
	}
	if epochs <= 0 {
		return fmt.Errorf("epochs must be positive")
	}
	if batchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if lr <= 0 {
		return fmt.Errorf("learning rate must be positive")
	}
	return nil
}
