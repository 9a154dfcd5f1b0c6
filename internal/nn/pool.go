package nn

import (
	"fmt"

	"github.com/audionet-ml/audionet/internal/tensor"
)

// MaxPool2D applies square max pooling with stride equal to the window
// size, halving spatial dimensions for kernelSize 2.
type MaxPool2D[B tensor.Backend] struct {
	kernelSize int
	backend    B
}

// NewMaxPool2D creates a max pooling layer.
func NewMaxPool2D[B tensor.Backend](kernelSize int, backend B) *MaxPool2D[B] {
	if kernelSize <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid kernel size %d", kernelSize))
	}
	return &MaxPool2D[B]{kernelSize: kernelSize, backend: backend}
}

// Forward pools the input.
func (m *MaxPool2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	raw := m.backend.MaxPool2D(input.Raw(), m.kernelSize, m.kernelSize)
	return tensor.New[float32, B](raw, m.backend)
}

// Parameters returns nil; pooling has no trainable state.
func (m *MaxPool2D[B]) Parameters() []*Parameter[B] { return nil }

// GlobalAvgPool2D averages every (H, W) plane to a single value,
// producing (N, C, 1, 1) regardless of the input's spatial size.
type GlobalAvgPool2D[B tensor.Backend] struct {
	backend B
}

// NewGlobalAvgPool2D creates a global average pooling layer.
func NewGlobalAvgPool2D[B tensor.Backend](backend B) *GlobalAvgPool2D[B] {
	return &GlobalAvgPool2D[B]{backend: backend}
}

// Forward pools the input.
func (g *GlobalAvgPool2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	raw := g.backend.GlobalAvgPool2D(input.Raw())
	return tensor.New[float32, B](raw, g.backend)
}

// Parameters returns nil.
func (g *GlobalAvgPool2D[B]) Parameters() []*Parameter[B] { return nil }
