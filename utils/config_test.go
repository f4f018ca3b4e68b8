package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifierConfigDefaults(t *testing.T) {
	v := NewViper()
	v.Set("train_dir", "/data/train")

	cfg, err := LoadClassifierConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "/data/train", cfg.TrainDir)
	assert.Equal(t, 64, cfg.ImageSize)
	assert.Equal(t, 10, cfg.Epochs)
	assert.Equal(t, 32, cfg.BatchSize)
	assert.Equal(t, 0.001, cfg.LearningRate)
	assert.Equal(t, 0.5, cfg.DropoutProb)
	assert.Equal(t, 128, cfg.HiddenDim)
	assert.Equal(t, 0.1, cfg.ValFraction)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, "out", cfg.OutDir)
}

func TestGANConfigDefaults(t *testing.T) {
	v := NewViper()
	v.Set("data_dir", "/data/faces")

	cfg, err := LoadGANConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.LatentDim)
	assert.Equal(t, 0.5, cfg.Beta1)
	assert.Equal(t, 1, cfg.SampleInterval)
	assert.Equal(t, 5, cfg.SampleGrid)
}

func TestClassifierConfigValidation(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value interface{}
	}{
		{"zero epochs", "epochs", 0},
		{"negative batch", "batch_size", -1},
		{"zero lr", "lr", 0.0},
		{"dropout one", "dropout", 1.0},
		{"val fraction one", "val_fraction", 1.0},
		{"zero hidden", "hidden_dim", 0},
		{"zero image size", "image_size", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := NewViper()
			v.Set(tc.key, tc.value)
			_, err := LoadClassifierConfig(v)
			assert.Error(t, err)
		})
	}
}

func TestGANConfigValidation(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value interface{}
	}{
		{"zero latent", "latent_dim", 0},
		{"beta1 one", "beta1", 1.0},
		{"zero sample interval", "sample_interval", 0},
		{"zero sample grid", "sample_grid", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := NewViper()
			v.Set(tc.key, tc.value)
			_, err := LoadGANConfig(v)
			assert.Error(t, err)
		})
	}
}
