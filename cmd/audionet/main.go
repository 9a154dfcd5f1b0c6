// Command audionet trains the AudioNet classifier on an ESC-50 layout
// corpus. Configuration comes from a YAML file, optionally overridden by
// trailing key=value arguments and swept by a sweep file:
//
//	audionet -config configs/default.yaml trainer.max_epochs=5
//	audionet -config configs/default.yaml -sweep configs/sweep.yaml
package main

import (
	"flag"
	"fmt"

	"github.com/audionet-ml/audionet/internal/autodiff"
	"github.com/audionet-ml/audionet/internal/backend/cpu"
	"github.com/audionet-ml/audionet/internal/config"
	"github.com/audionet-ml/audionet/internal/dataset"
	"github.com/audionet-ml/audionet/internal/experiment"
	"github.com/audionet-ml/audionet/internal/logging"
	"github.com/audionet-ml/audionet/internal/model"
	"github.com/audionet-ml/audionet/internal/optim"
	"github.com/audionet-ml/audionet/internal/trainer"
)

func main() {
	configPath := flag.String("config", "configs/default.yaml", "Path to the YAML config file")
	sweepPath := flag.String("sweep", "", "Optional YAML sweep file; one training run per entry")
	flag.Parse()

	logger := logging.NewDefaultLogger()

	cfg, err := config.Load(*configPath, flag.Args())
	if err != nil {
		logger.Fatal(err, "loading config")
	}

	if *sweepPath == "" {
		if err := runOnce(*cfg, logger); err != nil {
			logger.Fatal(err, "training run failed")
		}
		return
	}

	entries, err := experiment.LoadSweep(*sweepPath)
	if err != nil {
		logger.Fatal(err, "loading sweep")
	}
	for i, entry := range entries {
		logger.Info("starting sweep entry", logging.Fields{
			"index": i,
			"total": len(entries),
			"entry": entry.String(),
		})
		runCfg, err := entry.Apply(*cfg)
		if err != nil {
			logger.Fatal(err, "applying sweep entry")
		}
		if err := runOnce(runCfg, logger); err != nil {
			logger.Fatal(err, fmt.Sprintf("sweep entry %d failed", i))
		}
	}
}

func runOnce(cfg config.Config, logger logging.Logger) error {
	experiment.Seed(cfg.Seed)

	run, err := experiment.NewRun(cfg.Trainer.CheckpointDir, logger)
	if err != nil {
		return err
	}
	defer run.Close()

	log := run.Logger()
	log.Info("resolved config", logging.Fields{
		"data":         cfg.Data.Path,
		"sample_rate":  cfg.Data.SampleRate,
		"batch_size":   cfg.Data.BatchSize,
		"clip_seconds": cfg.Data.ClipSeconds,
		"base_filters": cfg.Model.BaseFilters,
		"num_classes":  cfg.Model.NumClasses,
		"lr":           cfg.Model.Optim.LR,
		"max_epochs":   cfg.Trainer.MaxEpochs,
		"seed":         cfg.Seed,
	})

	train, err := newLoader(cfg, cfg.Data.TrainFolds, true, 1)
	if err != nil {
		return fmt.Errorf("building training data: %w", err)
	}
	val, err := newLoader(cfg, cfg.Data.ValFolds, false, 2)
	if err != nil {
		return fmt.Errorf("building validation data: %w", err)
	}
	test, err := newLoader(cfg, cfg.Data.TestFolds, false, 3)
	if err != nil {
		return fmt.Errorf("building test data: %w", err)
	}

	backend := autodiff.New(cpu.New())
	net := model.NewAudioNet(cfg.Model.BaseFilters, cfg.Model.NumClasses, backend)
	opt := optim.NewAdam(net.Parameters(), optim.AdamConfig{LR: float32(cfg.Model.Optim.LR)})

	tr, err := trainer.New(backend, net, opt, run, trainer.Config{
		MaxEpochs: cfg.Trainer.MaxEpochs,
		LogEvery:  cfg.Trainer.LogEvery,
	})
	if err != nil {
		return err
	}

	if err := tr.Fit(train, val); err != nil {
		return err
	}

	fields := logging.Fields{"steps": tr.Step()}
	if loss, ok := run.Tracker().LastValue("train_loss"); ok {
		fields["train_loss"] = loss
	}
	if acc, ok := run.Tracker().LastValue("val_acc"); ok {
		fields["val_acc"] = acc
	}
	if test != nil {
		acc, err := tr.Evaluate(test)
		if err != nil {
			return fmt.Errorf("evaluating test folds: %w", err)
		}
		run.Tracker().Log("test_acc", tr.Step(), acc)
		fields["test_acc"] = acc
	}
	log.Info("fit complete", fields)
	return nil
}

// newLoader builds a dataset+loader pair for one fold set. An empty fold
// set means the split is not used and yields a nil loader. Each split gets
// its own shuffle stream derived from the run seed.
func newLoader(cfg config.Config, folds []int, shuffle bool, stream int64) (*dataset.Loader, error) {
	if len(folds) == 0 {
		return nil, nil
	}
	ds, err := dataset.NewESC50(cfg.Data.Path, cfg.Data.SampleRate, cfg.Data.ClipSeconds, folds)
	if err != nil {
		return nil, err
	}
	loader, err := dataset.NewLoader(ds, cfg.Data.BatchSize, shuffle, experiment.StreamSeed(cfg.Seed, stream))
	if err != nil {
		return nil, err
	}
	loader.SetWorkers(cfg.Data.NumWorkers)
	return loader, nil
}
