package nn

import "github.com/audionet-ml/audionet/internal/tensor"

// ReLU applies max(0, x) element-wise.
type ReLU[B tensor.Backend] struct {
	backend B
}

// NewReLU creates a ReLU activation.
func NewReLU[B tensor.Backend](backend B) *ReLU[B] {
	return &ReLU[B]{backend: backend}
}

// Forward applies the activation.
func (r *ReLU[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	raw := r.backend.ReLU(input.Raw())
	return tensor.New[float32, B](raw, r.backend)
}

// Parameters returns nil.
func (r *ReLU[B]) Parameters() []*Parameter[B] { return nil }
