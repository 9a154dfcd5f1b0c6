package ops

import "github.com/audionet-ml/audionet/internal/tensor"

// Conv2DOp records a 2D cross-correlation. The backward pass delegates to
// the backend's dedicated gradient kernels.
type Conv2DOp struct {
	input, kernel, output *tensor.RawTensor
	stride, padding       int
}

func NewConv2DOp(input, kernel, output *tensor.RawTensor, stride, padding int) *Conv2DOp {
	return &Conv2DOp{input: input, kernel: kernel, output: output, stride: stride, padding: padding}
}

func (op *Conv2DOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input, op.kernel}
}

func (op *Conv2DOp) Output() *tensor.RawTensor { return op.output }

func (op *Conv2DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	gradInput := backend.Conv2DInputBackward(outputGrad, op.kernel, op.input.Shape(), op.stride, op.padding)
	gradKernel := backend.Conv2DKernelBackward(op.input, outputGrad, op.kernel.Shape(), op.stride, op.padding)
	return []*tensor.RawTensor{gradInput, gradKernel}
}
