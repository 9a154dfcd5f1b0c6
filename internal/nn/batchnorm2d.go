package nn

import (
	"fmt"

	"github.com/audionet-ml/audionet/internal/tensor"
)

// BatchNorm2D normalizes each channel of a (N, C, H, W) input.
//
// In training mode it normalizes with the current batch's statistics and
// updates exponential running estimates; in inference mode it normalizes
// with those running estimates. Gamma starts at one, beta at zero, the
// running variance at one, matching the common framework defaults.
type BatchNorm2D[B tensor.Backend] struct {
	numFeatures int
	eps         float32
	momentum    float32
	training    bool

	gamma *Parameter[B]
	beta  *Parameter[B]

	runningMean *tensor.RawTensor
	runningVar  *tensor.RawTensor

	backend B
}

// NewBatchNorm2D creates a batch normalization layer for numFeatures
// channels with eps 1e-5 and momentum 0.1.
func NewBatchNorm2D[B tensor.Backend](name string, numFeatures int, backend B) *BatchNorm2D[B] {
	if numFeatures <= 0 {
		panic(fmt.Sprintf("batchnorm2d: invalid feature count %d", numFeatures))
	}

	runningMean := tensor.MustNewRaw(tensor.Shape{numFeatures}, tensor.Float32, backend.Device())
	runningVar := tensor.MustNewRaw(tensor.Shape{numFeatures}, tensor.Float32, backend.Device())
	for i := range runningVar.AsFloat32() {
		runningVar.AsFloat32()[i] = 1
	}

	return &BatchNorm2D[B]{
		numFeatures: numFeatures,
		eps:         1e-5,
		momentum:    0.1,
		training:    true,
		gamma:       NewParameter(name+".gamma", Ones(tensor.Shape{numFeatures}, backend)),
		beta:        NewParameter(name+".beta", Zeros(tensor.Shape{numFeatures}, backend)),
		runningMean: runningMean,
		runningVar:  runningVar,
		backend:     backend,
	}
}

// SetTraining switches between batch statistics and running statistics.
func (b *BatchNorm2D[B]) SetTraining(training bool) { b.training = training }

// Forward normalizes the input.
func (b *BatchNorm2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("batchnorm2d: expected 4D input, got %v", shape))
	}
	if shape[1] != b.numFeatures {
		panic(fmt.Sprintf("batchnorm2d: input has %d channels, layer expects %d", shape[1], b.numFeatures))
	}

	var mean, variance *tensor.RawTensor
	if b.training {
		mean, variance = b.backend.BatchStats2D(input.Raw())
		b.updateRunningStats(mean, variance, shape)
	} else {
		mean, variance = b.runningMean, b.runningVar
	}

	raw := b.backend.BatchNorm2D(input.Raw(), b.gamma.Tensor().Raw(), b.beta.Tensor().Raw(), mean, variance, b.eps)
	return tensor.New[float32, B](raw, b.backend)
}

// updateRunningStats blends the batch statistics into the running
// estimates. The batch variance is biased (divided by m); the running
// variance stores the unbiased version, scaled by m/(m-1).
func (b *BatchNorm2D[B]) updateRunningStats(mean, variance *tensor.RawTensor, inputShape tensor.Shape) {
	m := float32(inputShape[0] * inputShape[2] * inputShape[3])
	unbias := float32(1)
	if m > 1 {
		unbias = m / (m - 1)
	}

	rm, rv := b.runningMean.AsFloat32(), b.runningVar.AsFloat32()
	bm, bv := mean.AsFloat32(), variance.AsFloat32()
	for i := range rm {
		rm[i] = (1-b.momentum)*rm[i] + b.momentum*bm[i]
		rv[i] = (1-b.momentum)*rv[i] + b.momentum*bv[i]*unbias
	}
}

// Parameters returns gamma and beta. Running statistics are buffers, not
// parameters, and are never touched by the optimizer.
func (b *BatchNorm2D[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{b.gamma, b.beta}
}

// RunningStats exposes the running mean and variance for checkpointing.
func (b *BatchNorm2D[B]) RunningStats() (mean, variance *tensor.RawTensor) {
	return b.runningMean, b.runningVar
}

func (b *BatchNorm2D[B]) String() string {
	return fmt.Sprintf("BatchNorm2D(features=%d, eps=%g, momentum=%g)", b.numFeatures, b.eps, b.momentum)
}
