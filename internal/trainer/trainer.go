// Package trainer drives the optimization loop: batches in, gradient
// steps out, metrics into the run tracker, checkpoints per epoch.
package trainer

import (
	"fmt"
	"path/filepath"

	"gonum.org/v1/gonum/stat"

	"github.com/audionet-ml/audionet/internal/autodiff"
	"github.com/audionet-ml/audionet/internal/dataset"
	"github.com/audionet-ml/audionet/internal/experiment"
	"github.com/audionet-ml/audionet/internal/logging"
	"github.com/audionet-ml/audionet/internal/model"
	"github.com/audionet-ml/audionet/internal/nn"
	"github.com/audionet-ml/audionet/internal/optim"
	"github.com/audionet-ml/audionet/internal/tensor"
)

// Config holds the loop-level knobs.
type Config struct {
	MaxEpochs int
	LogEvery  int
}

// Trainer runs the explicit train/validate loop over an AudioNet model.
// The model must be built on the trainer's autodiff backend so forward
// passes record onto the tape.
type Trainer[B tensor.Backend] struct {
	backend *autodiff.Backend[B]
	model   *model.AudioNet[*autodiff.Backend[B]]
	opt     optim.Optimizer
	loss    *nn.CrossEntropyLoss[*autodiff.Backend[B]]
	run     *experiment.Run
	cfg     Config

	step int // global step across epochs
}

// New wires a trainer. cfg.MaxEpochs must be positive.
func New[B tensor.Backend](
	backend *autodiff.Backend[B],
	m *model.AudioNet[*autodiff.Backend[B]],
	opt optim.Optimizer,
	run *experiment.Run,
	cfg Config,
) (*Trainer[B], error) {
	if cfg.MaxEpochs <= 0 {
		return nil, fmt.Errorf("trainer: max epochs must be positive, got %d", cfg.MaxEpochs)
	}
	return &Trainer[B]{
		backend: backend,
		model:   m,
		opt:     opt,
		loss:    nn.NewCrossEntropyLoss(backend),
		run:     run,
		cfg:     cfg,
	}, nil
}

// Fit trains for MaxEpochs epochs, validating after each one when a
// validation loader is given. Checkpoints land in the run directory.
func (t *Trainer[B]) Fit(train, val *dataset.Loader) error {
	log := t.run.Logger()
	log.Info("starting fit", logging.Fields{
		"epochs":  t.cfg.MaxEpochs,
		"batches": train.NumBatches(),
		"lr":      t.opt.GetLR(),
	})

	for epoch := 0; epoch < t.cfg.MaxEpochs; epoch++ {
		if err := t.trainEpoch(epoch, train); err != nil {
			return fmt.Errorf("epoch %d: %w", epoch, err)
		}

		if val != nil {
			acc, err := t.Evaluate(val)
			if err != nil {
				return fmt.Errorf("validating epoch %d: %w", epoch, err)
			}
			t.run.Tracker().Log("val_acc", epoch, acc)
			log.Info("epoch complete", logging.Fields{"epoch": epoch, "val_acc": acc})
		}

		if dir := t.run.Dir(); dir != "" {
			path := filepath.Join(dir, fmt.Sprintf("epoch_%03d.ckpt", epoch))
			if err := SaveCheckpoint(path, epoch, t.model); err != nil {
				return fmt.Errorf("checkpointing epoch %d: %w", epoch, err)
			}
		}
	}
	return nil
}

// trainEpoch runs one pass over the training loader with recording on.
func (t *Trainer[B]) trainEpoch(epoch int, train *dataset.Loader) error {
	t.model.SetTraining(true)
	tape := t.backend.Tape()
	tape.StartRecording()
	defer tape.StopRecording()

	it := train.Epoch(epoch)
	for it.Next() {
		batch := it.Batch()
		features := tensor.New[float32](batch.Features, t.backend)
		labels := tensor.New[int32](batch.Labels, t.backend)

		t.opt.ZeroGrad()
		logits := t.model.Forward(features)
		loss := t.loss.Forward(logits, labels)

		seed := tensor.Ones[float32](tensor.Shape{1}, t.backend)
		grads := tape.Backward(seed.Raw(), t.backend)
		t.opt.Step(grads)
		tape.Clear()

		lossValue := float64(loss.Raw().AsFloat32()[0])
		t.run.Tracker().Log("train_loss", t.step, lossValue)
		if t.cfg.LogEvery > 0 && t.step%t.cfg.LogEvery == 0 {
			t.run.Logger().Info("train step", logging.Fields{
				"epoch": epoch,
				"step":  t.step,
				"loss":  lossValue,
			})
		}
		t.step++
	}
	return it.Err()
}

// Evaluate computes mean accuracy over a loader, weighted by batch size,
// with recording off and running statistics in place of batch statistics.
func (t *Trainer[B]) Evaluate(loader *dataset.Loader) (float64, error) {
	t.model.SetTraining(false)
	tape := t.backend.Tape()
	wasRecording := tape.IsRecording()
	tape.StopRecording()
	defer func() {
		if wasRecording {
			tape.StartRecording()
		}
	}()

	var accuracies, weights []float64
	it := loader.Epoch(0)
	for it.Next() {
		batch := it.Batch()
		features := tensor.New[float32](batch.Features, t.backend)
		labels := tensor.New[int32](batch.Labels, t.backend)

		logits := t.model.Forward(features)
		accuracies = append(accuracies, nn.Accuracy(logits, labels))
		weights = append(weights, float64(batch.Size))
	}
	if err := it.Err(); err != nil {
		return 0, err
	}
	if len(accuracies) == 0 {
		return 0, nil
	}
	return stat.Mean(accuracies, weights), nil
}

// Step returns the number of optimization steps taken so far.
func (t *Trainer[B]) Step() int { return t.step }
