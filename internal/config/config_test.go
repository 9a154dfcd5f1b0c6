package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
seed: 42
data:
  path: /data/esc50
  sample_rate: 16000
  batch_size: 8
  train_folds: [1, 2, 3]
  val_folds: [4]
  test_folds: [5]
model:
  base_filters: 32
  num_classes: 50
  optim:
    lr: 0.001
trainer:
  max_epochs: 10
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML), nil)
	require.NoError(t, err)

	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, []int{1, 2, 3}, cfg.Data.TrainFolds)
	assert.Equal(t, 0.001, cfg.Model.Optim.LR)
	// Defaults applied during validation.
	assert.Equal(t, 5, cfg.Data.ClipSeconds)
	assert.Equal(t, 50, cfg.Trainer.LogEvery)
}

func TestLoadRejectsUnknownField(t *testing.T) {
	_, err := Load(writeConfig(t, validYAML+"\nmystery_knob: 3\n"), nil)
	assert.Error(t, err)
}

func TestLoadRejectsMissingRequired(t *testing.T) {
	_, err := Load(writeConfig(t, "seed: 1\n"), nil)
	assert.Error(t, err)
}

func TestOverridesApplyBeforeValidation(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML), []string{
		"model.optim.lr=0.01",
		"data.train_folds=1,2",
		"trainer.max_epochs=3",
	})
	require.NoError(t, err)

	assert.Equal(t, 0.01, cfg.Model.Optim.LR)
	assert.Equal(t, []int{1, 2}, cfg.Data.TrainFolds)
	assert.Equal(t, 3, cfg.Trainer.MaxEpochs)
}

func TestOverrideRejectsUnknownKey(t *testing.T) {
	_, err := Load(writeConfig(t, validYAML), []string{"nope=1"})
	assert.Error(t, err)
}

func TestOverrideRejectsMalformedPair(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.ApplyOverride("model.optim.lr"))
	assert.Error(t, cfg.ApplyOverride("model.optim.lr=abc"))
}
