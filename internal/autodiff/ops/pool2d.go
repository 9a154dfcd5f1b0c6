package ops

import "github.com/audionet-ml/audionet/internal/tensor"

// MaxPool2DOp records a max pooling step. The winning input positions are
// captured at record time so the backward pass can route gradients to them.
type MaxPool2DOp struct {
	input, output *tensor.RawTensor
	maxIndices    []int
}

func NewMaxPool2DOp(input, output *tensor.RawTensor, maxIndices []int) *MaxPool2DOp {
	return &MaxPool2DOp{input: input, output: output, maxIndices: maxIndices}
}

func (op *MaxPool2DOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }
func (op *MaxPool2DOp) Output() *tensor.RawTensor   { return op.output }

func (op *MaxPool2DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.MaxPool2DBackward(op.input, outputGrad, op.maxIndices)}
}

// GlobalAvgPool2DOp records spatial averaging of (N, C, H, W) down to
// (N, C, 1, 1). Each input position receives grad / (H*W).
type GlobalAvgPool2DOp struct {
	input, output *tensor.RawTensor
}

func NewGlobalAvgPool2DOp(input, output *tensor.RawTensor) *GlobalAvgPool2DOp {
	return &GlobalAvgPool2DOp{input: input, output: output}
}

func (op *GlobalAvgPool2DOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }
func (op *GlobalAvgPool2DOp) Output() *tensor.RawTensor   { return op.output }

func (op *GlobalAvgPool2DOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	is := op.input.Shape()
	n, ch, h, w := is[0], is[1], is[2], is[3]
	plane := h * w
	inv := 1 / float32(plane)

	grad := tensor.MustNewRaw(is, tensor.Float32, op.input.Device())
	gData, outData := outputGrad.AsFloat32(), grad.AsFloat32()
	for j := 0; j < n*ch; j++ {
		g := gData[j] * inv
		base := j * plane
		for i := 0; i < plane; i++ {
			outData[base+i] = g
		}
	}
	return []*tensor.RawTensor{grad}
}
