// Package nn implements the neural network building blocks used by the
// audio classifier: convolution, batch normalization, pooling, linear
// layers, activations and the cross-entropy loss.
//
// Design follows PyTorch's nn.Module adapted for Go generics: modules are
// composed explicitly, parameters are exposed for the optimizer, and all
// gradient tracking happens through the backend.
package nn

import "github.com/audionet-ml/audionet/internal/tensor"

// Module is the base interface for all network components.
type Module[B tensor.Backend] interface {
	// Forward computes the module output for the given input.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters, including those of
	// nested modules. Modules without parameters return nil.
	Parameters() []*Parameter[B]
}

// Stateful is implemented by modules whose forward pass differs between
// training and inference, such as batch normalization.
type Stateful interface {
	// SetTraining switches the module between training and inference
	// behavior.
	SetTraining(training bool)
}
