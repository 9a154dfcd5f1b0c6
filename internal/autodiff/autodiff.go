// Package autodiff adds reverse-mode automatic differentiation on top of
// any compute backend.
//
// Backend[B] is a decorator: it forwards every operation to the wrapped
// backend and, while its GradientTape is recording, appends an ops node
// that knows the operation's backward rule. Calling Tape().Backward then
// yields a gradient per participating tensor.
//
//	ad := autodiff.New(cpu.New())
//	ad.Tape().StartRecording()
//	// ... forward pass ...
//	grads := ad.Tape().Backward(outputGrad, ad)
package autodiff

import (
	"github.com/audionet-ml/audionet/internal/autodiff/ops"
	"github.com/audionet-ml/audionet/internal/tensor"
)

// Backend wraps an inner backend with gradient tracking. It satisfies
// tensor.Backend itself, so differentiable and plain code share one API.
type Backend[B tensor.Backend] struct {
	inner B
	tape  *GradientTape
}

// New wraps the given backend with a fresh gradient tape.
func New[B tensor.Backend](backend B) *Backend[B] {
	return &Backend[B]{inner: backend, tape: NewGradientTape()}
}

// Tape exposes the gradient tape for recording control and backward passes.
func (b *Backend[B]) Tape() *GradientTape { return b.tape }

// Inner returns the wrapped backend.
func (b *Backend[B]) Inner() B { return b.inner }

// Name returns the backend name.
func (b *Backend[B]) Name() string { return "Autodiff(" + b.inner.Name() + ")" }

// Device returns the compute device.
func (b *Backend[B]) Device() tensor.Device { return b.inner.Device() }

// Add performs element-wise addition and records the operation.
func (b *Backend[B]) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Add(x, y)
	b.tape.Record(ops.NewAddOp(x, y, out))
	return out
}

// Sub performs element-wise subtraction and records the operation.
func (b *Backend[B]) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Sub(x, y)
	b.tape.Record(ops.NewSubOp(x, y, out))
	return out
}

// Mul performs element-wise multiplication and records the operation.
func (b *Backend[B]) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Mul(x, y)
	b.tape.Record(ops.NewMulOp(x, y, out))
	return out
}

// Div performs element-wise division and records the operation.
func (b *Backend[B]) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Div(x, y)
	b.tape.Record(ops.NewDivOp(x, y, out))
	return out
}

// MatMul performs matrix multiplication and records the operation.
func (b *Backend[B]) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.MatMul(x, y)
	b.tape.Record(ops.NewMatMulOp(x, y, out))
	return out
}

// Reshape changes a tensor's shape and records the operation. Recording
// matters even for a pure view: gradients computed against the view must
// flow back to the original tensor, or parameters reshaped for
// broadcasting would never receive updates.
func (b *Backend[B]) Reshape(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	out := b.inner.Reshape(x, shape)
	b.tape.Record(ops.NewReshapeOp(x, out))
	return out
}

// Transpose permutes axes and records the operation.
func (b *Backend[B]) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	nd := len(x.Shape())
	if len(axes) == 0 {
		axes = make([]int, nd)
		for i := range axes {
			axes[i] = nd - 1 - i
		}
	}
	out := b.inner.Transpose(x, axes...)
	b.tape.Record(ops.NewTransposeOp(x, out, axes))
	return out
}

// ReLU applies the activation and records the operation.
func (b *Backend[B]) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.ReLU(x)
	b.tape.Record(ops.NewReLUOp(x, out))
	return out
}

// Conv2D performs 2D cross-correlation and records the operation.
func (b *Backend[B]) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	out := b.inner.Conv2D(input, kernel, stride, padding)
	b.tape.Record(ops.NewConv2DOp(input, kernel, out, stride, padding))
	return out
}

// Conv2DInputBackward delegates to the inner backend. Gradient kernels
// are not themselves differentiated.
func (b *Backend[B]) Conv2DInputBackward(grad, kernel *tensor.RawTensor, inputShape tensor.Shape, stride, padding int) *tensor.RawTensor {
	return b.inner.Conv2DInputBackward(grad, kernel, inputShape, stride, padding)
}

// Conv2DKernelBackward delegates to the inner backend.
func (b *Backend[B]) Conv2DKernelBackward(input, grad *tensor.RawTensor, kernelShape tensor.Shape, stride, padding int) *tensor.RawTensor {
	return b.inner.Conv2DKernelBackward(input, grad, kernelShape, stride, padding)
}

// MaxPool2D performs max pooling and records the operation. The winner
// indices are captured at record time for gradient routing.
func (b *Backend[B]) MaxPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	out := b.inner.MaxPool2D(input, kernelSize, stride)
	if b.tape.IsRecording() {
		indices := b.inner.MaxIndices2D(input, kernelSize, stride)
		b.tape.Record(ops.NewMaxPool2DOp(input, out, indices))
	}
	return out
}

// MaxIndices2D delegates to the inner backend.
func (b *Backend[B]) MaxIndices2D(input *tensor.RawTensor, kernelSize, stride int) []int {
	return b.inner.MaxIndices2D(input, kernelSize, stride)
}

// MaxPool2DBackward delegates to the inner backend.
func (b *Backend[B]) MaxPool2DBackward(input, grad *tensor.RawTensor, maxIndices []int) *tensor.RawTensor {
	return b.inner.MaxPool2DBackward(input, grad, maxIndices)
}

// GlobalAvgPool2D averages spatial planes and records the operation.
func (b *Backend[B]) GlobalAvgPool2D(input *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.GlobalAvgPool2D(input)
	b.tape.Record(ops.NewGlobalAvgPool2DOp(input, out))
	return out
}

// BatchStats2D delegates to the inner backend. The statistics feed the
// fused BatchNorm2D node, which owns the full backward rule.
func (b *Backend[B]) BatchStats2D(input *tensor.RawTensor) (mean, variance *tensor.RawTensor) {
	return b.inner.BatchStats2D(input)
}

// BatchNorm2D normalizes with the given statistics and records a fused
// node whose backward treats mean and variance as functions of the input.
func (b *Backend[B]) BatchNorm2D(input, gamma, beta, mean, variance *tensor.RawTensor, eps float32) *tensor.RawTensor {
	out := b.inner.BatchNorm2D(input, gamma, beta, mean, variance, eps)
	b.tape.Record(ops.NewBatchNorm2DOp(input, gamma, beta, mean, variance, out, eps))
	return out
}

// CrossEntropy computes the fused softmax cross-entropy loss and records
// the operation. It is not part of tensor.Backend; loss layers discover
// it by type assertion.
func (b *Backend[B]) CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	out := ops.CrossEntropyForward(logits, targets, b.Device())
	b.tape.Record(ops.NewCrossEntropyOp(logits, targets, out))
	return out
}
