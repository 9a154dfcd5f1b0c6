// Package config loads and validates the typed run configuration.
//
// Configuration is YAML decoded strictly: unknown fields are an error, so
// typos fail at load instead of silently training with defaults. CLI
// overrides use dotted key=value paths, e.g. "model.optim.lr=0.01".
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full run configuration.
type Config struct {
	Seed    int64         `yaml:"seed"`
	Data    DataConfig    `yaml:"data"`
	Model   ModelConfig   `yaml:"model"`
	Trainer TrainerConfig `yaml:"trainer"`
}

// DataConfig locates the corpus and shapes the loaders.
type DataConfig struct {
	Path        string `yaml:"path"`
	SampleRate  int    `yaml:"sample_rate"`
	BatchSize   int    `yaml:"batch_size"`
	ClipSeconds int    `yaml:"clip_seconds"`
	TrainFolds  []int  `yaml:"train_folds"`
	ValFolds    []int  `yaml:"val_folds"`
	TestFolds   []int  `yaml:"test_folds"`
	NumWorkers  int    `yaml:"num_workers"`
}

// ModelConfig shapes the network and its optimizer.
type ModelConfig struct {
	BaseFilters int         `yaml:"base_filters"`
	NumClasses  int         `yaml:"num_classes"`
	Optim       OptimConfig `yaml:"optim"`
}

// OptimConfig holds optimizer hyperparameters.
type OptimConfig struct {
	LR float64 `yaml:"lr"`
}

// TrainerConfig controls the fit loop.
type TrainerConfig struct {
	MaxEpochs     int    `yaml:"max_epochs"`
	LogEvery      int    `yaml:"log_every"`
	CheckpointDir string `yaml:"checkpoint_dir"`
}

// Load reads, override-patches and validates a config file.
func Load(path string, overrides []string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open: %w", err)
	}
	defer f.Close()

	cfg := &Config{}
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	for _, o := range overrides {
		if err := cfg.ApplyOverride(o); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverride patches one dotted key=value pair onto the config.
func (c *Config) ApplyOverride(kv string) error {
	key, value, ok := strings.Cut(kv, "=")
	if !ok {
		return fmt.Errorf("config: override %q is not key=value", kv)
	}

	var err error
	switch key {
	case "seed":
		c.Seed, err = strconv.ParseInt(value, 10, 64)
	case "data.path":
		c.Data.Path = value
	case "data.sample_rate":
		c.Data.SampleRate, err = strconv.Atoi(value)
	case "data.batch_size":
		c.Data.BatchSize, err = strconv.Atoi(value)
	case "data.clip_seconds":
		c.Data.ClipSeconds, err = strconv.Atoi(value)
	case "data.num_workers":
		c.Data.NumWorkers, err = strconv.Atoi(value)
	case "data.train_folds":
		c.Data.TrainFolds, err = parseFolds(value)
	case "data.val_folds":
		c.Data.ValFolds, err = parseFolds(value)
	case "data.test_folds":
		c.Data.TestFolds, err = parseFolds(value)
	case "model.base_filters":
		c.Model.BaseFilters, err = strconv.Atoi(value)
	case "model.num_classes":
		c.Model.NumClasses, err = strconv.Atoi(value)
	case "model.optim.lr":
		c.Model.Optim.LR, err = strconv.ParseFloat(value, 64)
	case "trainer.max_epochs":
		c.Trainer.MaxEpochs, err = strconv.Atoi(value)
	case "trainer.log_every":
		c.Trainer.LogEvery, err = strconv.Atoi(value)
	case "trainer.checkpoint_dir":
		c.Trainer.CheckpointDir = value
	default:
		return fmt.Errorf("config: unknown override key %q", key)
	}
	if err != nil {
		return fmt.Errorf("config: override %q: %w", kv, err)
	}
	return nil
}

func parseFolds(value string) ([]int, error) {
	parts := strings.Split(value, ",")
	folds := make([]int, 0, len(parts))
	for _, p := range parts {
		fold, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		folds = append(folds, fold)
	}
	return folds, nil
}

// Validate checks the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Data.Path == "" {
		return errors.New("config: data.path is required")
	}
	if c.Data.SampleRate <= 0 {
		return fmt.Errorf("config: data.sample_rate must be > 0 (got %d)", c.Data.SampleRate)
	}
	if c.Data.BatchSize <= 0 {
		return fmt.Errorf("config: data.batch_size must be > 0 (got %d)", c.Data.BatchSize)
	}
	if c.Data.ClipSeconds <= 0 {
		c.Data.ClipSeconds = 5
	}
	if len(c.Data.TrainFolds) == 0 {
		return errors.New("config: data.train_folds is required")
	}
	if c.Data.NumWorkers <= 0 {
		c.Data.NumWorkers = 1
	}
	if c.Model.BaseFilters <= 0 {
		return fmt.Errorf("config: model.base_filters must be > 0 (got %d)", c.Model.BaseFilters)
	}
	if c.Model.NumClasses <= 0 {
		return fmt.Errorf("config: model.num_classes must be > 0 (got %d)", c.Model.NumClasses)
	}
	if c.Model.Optim.LR <= 0 {
		return fmt.Errorf("config: model.optim.lr must be > 0 (got %g)", c.Model.Optim.LR)
	}
	if c.Trainer.MaxEpochs <= 0 {
		return fmt.Errorf("config: trainer.max_epochs must be > 0 (got %d)", c.Trainer.MaxEpochs)
	}
	if c.Trainer.LogEvery <= 0 {
		c.Trainer.LogEvery = 50
	}
	return nil
}
