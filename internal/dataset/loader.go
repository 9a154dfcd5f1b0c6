package dataset

import (
	"fmt"
	"math/rand"

	"github.com/audionet-ml/audionet/internal/parallel"
	"github.com/audionet-ml/audionet/internal/tensor"
)

// Dataset is the sample source a Loader iterates. ESC50 implements it;
// tests substitute in-memory datasets.
type Dataset interface {
	Len() int
	Get(i int) (features *tensor.RawTensor, label int32, err error)
	FeatureShape() tensor.Shape
}

// Batch is one collated training batch: features (N, 1, F, T) and int32
// labels (N).
type Batch struct {
	Features *tensor.RawTensor
	Labels   *tensor.RawTensor
	Size     int
}

// Loader shuffles, batches and prefetches a dataset. Sample loading
// fans out across workers; datasets must therefore be safe for
// concurrent reads, which holds for file-backed ESC50.
type Loader struct {
	dataset   Dataset
	batchSize int
	shuffle   bool
	seed      int64
	par       parallel.Config
}

// NewLoader creates a loader. A zero-length dataset is refused outright
// rather than producing silent empty epochs.
func NewLoader(dataset Dataset, batchSize int, shuffle bool, seed int64) (*Loader, error) {
	if dataset.Len() == 0 {
		return nil, fmt.Errorf("loader: dataset is empty (no samples in selected folds)")
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("loader: invalid batch size %d", batchSize)
	}
	par := parallel.DefaultConfig()
	// Sample loads decode audio and compute spectrograms; they are heavy
	// enough to parallelize one by one.
	par.MinChunkSize = 1
	return &Loader{
		dataset:   dataset,
		batchSize: batchSize,
		shuffle:   shuffle,
		seed:      seed,
		par:       par,
	}, nil
}

// SetWorkers bounds concurrent sample loads per batch. n <= 0 restores
// the CPU-count default.
func (l *Loader) SetWorkers(n int) {
	if n <= 0 {
		l.par = parallel.DefaultConfig()
		l.par.MinChunkSize = 1
		return
	}
	l.par = parallel.Config{Enabled: n > 1, NumWorkers: n, MinChunkSize: 1}
}

// NumBatches returns the batch count per epoch; the final short batch
// counts.
func (l *Loader) NumBatches() int {
	return (l.dataset.Len() + l.batchSize - 1) / l.batchSize
}

// Epoch returns a batch iterator for the given epoch. Shuffling is
// deterministic in (seed, epoch), so restarted runs revisit identical
// batch orders.
func (l *Loader) Epoch(epoch int) *Iterator {
	order := make([]int, l.dataset.Len())
	for i := range order {
		order[i] = i
	}
	if l.shuffle {
		rng := rand.New(rand.NewSource(l.seed + int64(epoch)))
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}
	return &Iterator{loader: l, order: order}
}

// Iterator yields batches of one epoch.
type Iterator struct {
	loader *Loader
	order  []int
	cursor int
	batch  Batch
	err    error
}

// Next loads the next batch, returning false at the end of the epoch or
// on the first load failure.
func (it *Iterator) Next() bool {
	if it.err != nil || it.cursor >= len(it.order) {
		return false
	}

	end := it.cursor + it.loader.batchSize
	if end > len(it.order) {
		end = len(it.order)
	}
	indices := it.order[it.cursor:end]
	it.cursor = end

	batch, err := it.loader.collate(indices)
	if err != nil {
		it.err = err
		return false
	}
	it.batch = batch
	return true
}

// Batch returns the batch loaded by the last successful Next.
func (it *Iterator) Batch() Batch { return it.batch }

// Err returns the load error that stopped iteration, if any.
func (it *Iterator) Err() error { return it.err }

// collate loads the given samples concurrently and stacks them into
// batch tensors.
func (l *Loader) collate(indices []int) (Batch, error) {
	n := len(indices)
	featShape := l.dataset.FeatureShape()

	batchShape := append(tensor.Shape{n}, featShape...)
	features := tensor.MustNewRaw(batchShape, tensor.Float32, tensor.CPU)
	labels := tensor.MustNewRaw(tensor.Shape{n}, tensor.Int32, tensor.CPU)

	featData := features.AsFloat32()
	labelData := labels.AsInt32()
	sampleLen := featShape.NumElements()

	errs := make([]error, n)
	parallel.For(n, l.par, func(i int) {
		sample, label, err := l.dataset.Get(indices[i])
		if err != nil {
			errs[i] = err
			return
		}
		if !sample.Shape().Equal(featShape) {
			errs[i] = fmt.Errorf("loader: sample %d has shape %v, want %v", indices[i], sample.Shape(), featShape)
			return
		}
		copy(featData[i*sampleLen:(i+1)*sampleLen], sample.AsFloat32())
		labelData[i] = label
	})
	for _, err := range errs {
		if err != nil {
			return Batch{}, err
		}
	}

	return Batch{Features: features, Labels: labels, Size: n}, nil
}
