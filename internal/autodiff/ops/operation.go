// Package ops defines the differentiable operations recorded on the
// gradient tape. Each operation keeps its forward inputs and output and
// knows how to turn the output gradient into input gradients.
package ops

import "github.com/audionet-ml/audionet/internal/tensor"

// Operation is a single node of the recorded computation graph.
type Operation interface {
	// Backward computes gradients for the inputs given the output gradient.
	// The returned slice is index-aligned with Inputs(); a nil entry means
	// no gradient flows to that input.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the forward-pass input tensors.
	Inputs() []*tensor.RawTensor

	// Output returns the forward-pass output tensor.
	Output() *tensor.RawTensor
}
