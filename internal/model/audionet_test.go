package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audionet-ml/audionet/internal/autodiff"
	"github.com/audionet-ml/audionet/internal/backend/cpu"
	"github.com/audionet-ml/audionet/internal/tensor"
)

func TestAudioNetForwardShape(t *testing.T) {
	backend := cpu.New()
	net := NewAudioNet(4, 10, backend)

	input := tensor.Zeros[float32](tensor.Shape{2, 1, 16, 20}, backend)
	logits := net.Forward(input)

	assert.Equal(t, tensor.Shape{2, 10}, logits.Shape())
}

func TestAudioNetHeadWidth(t *testing.T) {
	backend := cpu.New()
	net := NewAudioNet(8, 50, backend)

	// The head must consume exactly the pooled channel vector.
	var fcWeight *tensor.Tensor[float32, *cpu.Backend]
	for _, p := range net.Parameters() {
		if p.Name() == "fc.weight" {
			fcWeight = p.Tensor()
		}
	}
	require.NotNil(t, fcWeight)
	assert.Equal(t, tensor.Shape{50, 32}, fcWeight.Shape())
}

func TestAudioNetParameterCount(t *testing.T) {
	backend := cpu.New()
	net := NewAudioNet(4, 10, backend)

	// 4 convs and the linear carry weight+bias, 4 batch norms carry
	// gamma+beta.
	assert.Len(t, net.Parameters(), 18)

	names := map[string]bool{}
	for _, p := range net.Parameters() {
		names[p.Name()] = true
	}
	assert.True(t, names["conv1.weight"])
	assert.True(t, names["bn4.gamma"])
	assert.True(t, names["fc.bias"])
}

func TestAudioNetRecordsGradients(t *testing.T) {
	backend := autodiff.New(cpu.New())
	net := NewAudioNet(2, 5, backend)

	backend.Tape().StartRecording()
	defer backend.Tape().StopRecording()

	input := tensor.Uniform(tensor.Shape{1, 1, 12, 12}, -1, 1, backend)
	logits := net.Forward(input)

	require.Equal(t, tensor.Shape{1, 5}, logits.Shape())
	assert.Greater(t, backend.Tape().NumOps(), 0)
}

func TestAudioNetEvalModeIsDeterministic(t *testing.T) {
	backend := cpu.New()
	net := NewAudioNet(2, 5, backend)
	net.SetTraining(false)

	input := tensor.Uniform(tensor.Shape{1, 1, 12, 12}, -1, 1, backend)
	first := net.Forward(input).Raw().AsFloat32()
	second := net.Forward(input).Raw().AsFloat32()

	assert.Equal(t, first, second)
}

func TestSetTrainingReachesEveryBatchNorm(t *testing.T) {
	backend := cpu.New()
	net := NewAudioNet(2, 5, backend)
	net.SetTraining(false)

	// In eval mode no forward pass may touch the running statistics.
	var before [][]float32
	for _, bn := range net.BatchNorms() {
		mean, _ := bn.RunningStats()
		snap := make([]float32, len(mean.AsFloat32()))
		copy(snap, mean.AsFloat32())
		before = append(before, snap)
	}

	input := tensor.Uniform(tensor.Shape{2, 1, 12, 12}, -1, 1, backend)
	net.Forward(input)
	for i, bn := range net.BatchNorms() {
		mean, _ := bn.RunningStats()
		assert.Equal(t, before[i], mean.AsFloat32())
	}

	// Back in training mode the statistics move again.
	net.SetTraining(true)
	net.Forward(input)
	changed := false
	for i, bn := range net.BatchNorms() {
		mean, _ := bn.RunningStats()
		if !assert.ObjectsAreEqual(before[i], mean.AsFloat32()) {
			changed = true
		}
	}
	assert.True(t, changed)
}

func TestAudioNetRejectsBadInput(t *testing.T) {
	backend := cpu.New()
	net := NewAudioNet(2, 5, backend)

	assert.Panics(t, func() {
		net.Forward(tensor.Zeros[float32](tensor.Shape{2, 3, 8, 8}, backend))
	})
	assert.Panics(t, func() { NewAudioNet(0, 5, backend) })
}
