// Package optim implements the optimizers used for training: Adam and
// plain SGD with optional momentum.
//
// Optimizers consume the gradient map produced by a tape backward pass
// and update parameter tensors in place:
//
//	optimizer.ZeroGrad()
//	loss := criterion.Forward(model.Forward(input), targets)
//	grads := backend.Tape().Backward(seed, backend)
//	optimizer.Step(grads)
package optim

import (
	"github.com/audionet-ml/audionet/internal/nn"
	"github.com/audionet-ml/audionet/internal/tensor"
)

// Optimizer updates model parameters from a gradient map.
type Optimizer interface {
	// Step applies one update to every parameter that has a gradient in
	// the map. Parameters absent from the map are skipped.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// ZeroGrad clears all parameter gradients before the next iteration.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float32
}

// getGradient looks up a parameter's gradient by its raw tensor identity.
func getGradient[B tensor.Backend](param *nn.Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) *tensor.RawTensor {
	if param == nil {
		return nil
	}
	return grads[param.Tensor().Raw()]
}
