package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audionet-ml/audionet/internal/backend/cpu"
	"github.com/audionet-ml/audionet/internal/tensor"
)

// BatchNorm2D is the one layer whose forward pass depends on the mode;
// containers discover that through Stateful.
var _ Stateful = (*BatchNorm2D[*cpu.Backend])(nil)

func TestConv2DOutputShape(t *testing.T) {
	backend := cpu.New()
	conv := NewConv2D("conv1", 1, 8, 11, 1, 5, backend)

	input := tensor.Zeros[float32](tensor.Shape{2, 1, 64, 32}, backend)
	out := conv.Forward(input)

	// kernel 11 with padding 5 preserves spatial size
	assert.Equal(t, tensor.Shape{2, 8, 64, 32}, out.Shape())
	assert.Len(t, conv.Parameters(), 2)
}

func TestConv2DBiasApplied(t *testing.T) {
	backend := cpu.New()
	conv := NewConv2D("conv", 1, 1, 1, 1, 0, backend)

	// Zero the weight so output is bias only.
	for i := range conv.weight.Tensor().Raw().AsFloat32() {
		conv.weight.Tensor().Raw().AsFloat32()[i] = 0
	}
	conv.bias.Tensor().Raw().AsFloat32()[0] = 3.5

	input := tensor.Ones[float32](tensor.Shape{1, 1, 2, 2}, backend)
	out := conv.Forward(input)
	for _, v := range out.Raw().AsFloat32() {
		assert.InDelta(t, 3.5, float64(v), 1e-6)
	}
}

func TestLinearForward(t *testing.T) {
	backend := cpu.New()
	layer := NewLinear("fc", 3, 2, backend)

	w := layer.weight.Tensor().Raw().AsFloat32()
	copy(w, []float32{1, 0, 0, 0, 1, 0}) // row 0 picks x0, row 1 picks x1
	layer.bias.Tensor().Raw().AsFloat32()[1] = 10

	input := tensor.FromSlice([]float32{5, 6, 7}, tensor.Shape{1, 3}, backend)
	out := layer.Forward(input)

	require.Equal(t, tensor.Shape{1, 2}, out.Shape())
	assert.InDeltaSlice(t, []float32{5, 16}, out.Raw().AsFloat32(), 1e-6)
}

func TestBatchNormTrainingNormalizesBatch(t *testing.T) {
	backend := cpu.New()
	bn := NewBatchNorm2D("bn", 1, backend)

	input := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 1, 1, 2}, backend)
	out := bn.Forward(input)

	var mean float64
	for _, v := range out.Raw().AsFloat32() {
		mean += float64(v)
	}
	assert.InDelta(t, 0, mean/4, 1e-5)
}

func TestBatchNormRunningStatsUpdate(t *testing.T) {
	backend := cpu.New()
	bn := NewBatchNorm2D("bn", 1, backend)

	input := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 1, 1, 2}, backend)
	bn.Forward(input)

	rm, rv := bn.RunningStats()
	// running_mean = 0.9*0 + 0.1*2.5; running_var blends the unbiased
	// variance 4/3 * 1.25 into the initial 1.
	assert.InDelta(t, 0.25, float64(rm.AsFloat32()[0]), 1e-6)
	assert.InDelta(t, 0.9+0.1*1.25*4.0/3.0, float64(rv.AsFloat32()[0]), 1e-5)
}

func TestBatchNormEvalUsesRunningStats(t *testing.T) {
	backend := cpu.New()
	bn := NewBatchNorm2D("bn", 1, backend)
	bn.SetTraining(false)

	// Fresh running stats are mean 0, var 1, so eval is near-identity.
	input := tensor.FromSlice([]float32{1, -2, 3, -4}, tensor.Shape{1, 1, 2, 2}, backend)
	out := bn.Forward(input)
	assert.InDeltaSlice(t, input.Raw().AsFloat32(), out.Raw().AsFloat32(), 1e-4)
}

func TestReLUForward(t *testing.T) {
	backend := cpu.New()
	relu := NewReLU(backend)
	input := tensor.FromSlice([]float32{-1, 2, -3, 4}, tensor.Shape{4}, backend)
	out := relu.Forward(input)
	assert.Equal(t, []float32{0, 2, 0, 4}, out.Raw().AsFloat32())
}

func TestCrossEntropyUniformLogits(t *testing.T) {
	backend := cpu.New()
	loss := NewCrossEntropyLoss(backend)

	logits := tensor.Zeros[float32](tensor.Shape{2, 4}, backend)
	targets := tensor.FromSlice([]int32{0, 3}, tensor.Shape{2}, backend)

	out := loss.Forward(logits, targets)
	// Uniform logits give loss = log(numClasses).
	assert.InDelta(t, math.Log(4), float64(out.Raw().AsFloat32()[0]), 1e-6)
}

func TestAccuracy(t *testing.T) {
	backend := cpu.New()
	logits := tensor.FromSlice([]float32{
		1, 5, 2,
		9, 0, 0,
		0, 0, 7,
	}, tensor.Shape{3, 3}, backend)
	targets := tensor.FromSlice([]int32{1, 0, 1}, tensor.Shape{3}, backend)

	assert.InDelta(t, 2.0/3.0, Accuracy(logits, targets), 1e-9)
}

func TestAccuracyTieGoesToLowestIndex(t *testing.T) {
	backend := cpu.New()
	logits := tensor.FromSlice([]float32{3, 3, 3}, tensor.Shape{1, 3}, backend)

	zero := tensor.FromSlice([]int32{0}, tensor.Shape{1}, backend)
	two := tensor.FromSlice([]int32{2}, tensor.Shape{1}, backend)

	assert.Equal(t, 1.0, Accuracy(logits, zero))
	assert.Equal(t, 0.0, Accuracy(logits, two))
}

func TestXavierWithinBound(t *testing.T) {
	backend := cpu.New()
	w := Xavier(100, 100, tensor.Shape{100, 100}, backend)

	bound := float32(math.Sqrt(6.0 / 200.0))
	for _, v := range w.Raw().AsFloat32() {
		assert.LessOrEqual(t, v, bound)
		assert.GreaterOrEqual(t, v, -bound)
	}
}
