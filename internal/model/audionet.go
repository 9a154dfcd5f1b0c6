// Package model defines AudioNet, the convolutional classifier for
// log-mel spectrogram inputs.
package model

import (
	"fmt"

	"github.com/audionet-ml/audionet/internal/nn"
	"github.com/audionet-ml/audionet/internal/tensor"
)

// AudioNet is a four-block CNN over (N, 1, nMels, nFrames) features:
//
//	conv(1→F, k11, pad5) → BN → ReLU
//	conv(F→F, k3, pad1) → BN → ReLU → maxpool(2)
//	conv(F→2F, k3, pad1) → BN → ReLU
//	conv(2F→4F, k3, pad1) → BN → ReLU → maxpool(2)
//	global avg pool → flatten (N, 4F) → linear 4F→numClasses
//
// The head consumes the globally pooled channel vector, so the network
// accepts any input large enough to survive both pooling stages. Forward
// returns raw logits; softmax lives inside the loss.
type AudioNet[B tensor.Backend] struct {
	baseFilters int
	numClasses  int

	conv1, conv2, conv3, conv4 *nn.Conv2D[B]
	bn1, bn2, bn3, bn4         *nn.BatchNorm2D[B]
	relu                       *nn.ReLU[B]
	pool                       *nn.MaxPool2D[B]
	gap                        *nn.GlobalAvgPool2D[B]
	fc                         *nn.Linear[B]

	backend B
}

// NewAudioNet constructs the network with baseFilters channels in the
// first block and a numClasses-way linear head.
func NewAudioNet[B tensor.Backend](baseFilters, numClasses int, backend B) *AudioNet[B] {
	if baseFilters <= 0 || numClasses <= 0 {
		panic(fmt.Sprintf("audionet: invalid baseFilters=%d numClasses=%d", baseFilters, numClasses))
	}

	return &AudioNet[B]{
		baseFilters: baseFilters,
		numClasses:  numClasses,
		conv1:       nn.NewConv2D("conv1", 1, baseFilters, 11, 1, 5, backend),
		bn1:         nn.NewBatchNorm2D("bn1", baseFilters, backend),
		conv2:       nn.NewConv2D("conv2", baseFilters, baseFilters, 3, 1, 1, backend),
		bn2:         nn.NewBatchNorm2D("bn2", baseFilters, backend),
		conv3:       nn.NewConv2D("conv3", baseFilters, 2*baseFilters, 3, 1, 1, backend),
		bn3:         nn.NewBatchNorm2D("bn3", 2*baseFilters, backend),
		conv4:       nn.NewConv2D("conv4", 2*baseFilters, 4*baseFilters, 3, 1, 1, backend),
		bn4:         nn.NewBatchNorm2D("bn4", 4*baseFilters, backend),
		relu:        nn.NewReLU(backend),
		pool:        nn.NewMaxPool2D(2, backend),
		gap:         nn.NewGlobalAvgPool2D(backend),
		fc:          nn.NewLinear("fc", 4*baseFilters, numClasses, backend),
		backend:     backend,
	}
}

// Forward maps (N, 1, H, W) features to (N, numClasses) logits.
func (m *AudioNet[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 4 || shape[1] != 1 {
		panic(fmt.Sprintf("audionet: expected (N, 1, H, W) input, got %v", shape))
	}

	x := m.relu.Forward(m.bn1.Forward(m.conv1.Forward(input)))
	x = m.pool.Forward(m.relu.Forward(m.bn2.Forward(m.conv2.Forward(x))))
	x = m.relu.Forward(m.bn3.Forward(m.conv3.Forward(x)))
	x = m.pool.Forward(m.relu.Forward(m.bn4.Forward(m.conv4.Forward(x))))

	pooled := m.gap.Forward(x) // (N, 4F, 1, 1)
	flat := pooled.Reshape(shape[0], 4*m.baseFilters)
	return m.fc.Forward(flat)
}

// modules lists the parameterized layers in forward order.
func (m *AudioNet[B]) modules() []nn.Module[B] {
	return []nn.Module[B]{
		m.conv1, m.bn1, m.conv2, m.bn2,
		m.conv3, m.bn3, m.conv4, m.bn4, m.fc,
	}
}

// Parameters returns every trainable parameter in forward order.
func (m *AudioNet[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	for _, mod := range m.modules() {
		params = append(params, mod.Parameters()...)
	}
	return params
}

// SetTraining switches every stateful layer (the batch norms) between
// training and inference behavior.
func (m *AudioNet[B]) SetTraining(training bool) {
	for _, mod := range m.modules() {
		if s, ok := mod.(nn.Stateful); ok {
			s.SetTraining(training)
		}
	}
}

// BatchNorms exposes the normalization layers for checkpointing their
// running statistics.
func (m *AudioNet[B]) BatchNorms() []*nn.BatchNorm2D[B] {
	return []*nn.BatchNorm2D[B]{m.bn1, m.bn2, m.bn3, m.bn4}
}

// NumClasses returns the size of the logit dimension.
func (m *AudioNet[B]) NumClasses() int { return m.numClasses }

// BaseFilters returns the channel width of the first block.
func (m *AudioNet[B]) BaseFilters() int { return m.baseFilters }

func (m *AudioNet[B]) String() string {
	return fmt.Sprintf("AudioNet(baseFilters=%d, numClasses=%d)", m.baseFilters, m.numClasses)
}
