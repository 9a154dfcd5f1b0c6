package tensor

// Backend is the compute interface every tensor operation dispatches
// through. The CPU backend implements the math; the autodiff backend wraps
// another Backend and records operations on a gradient tape.
//
// Backends never mutate their inputs: each call returns a freshly allocated
// output (or a cheap view for Reshape), which keeps recorded computation
// graphs valid.
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// MatMul multiplies 2D matrices: [M,K] @ [K,N] -> [M,N].
	MatMul(a, b *RawTensor) *RawTensor

	// Conv2D convolves input [N,C_in,H,W] with kernel [C_out,C_in,KH,KW].
	Conv2D(input, kernel *RawTensor, stride, padding int) *RawTensor
	// Conv2DInputBackward and Conv2DKernelBackward compute the two Conv2D
	// gradients given the output gradient and the shape of the tensor the
	// gradient is taken with respect to.
	Conv2DInputBackward(grad, kernel *RawTensor, inputShape Shape, stride, padding int) *RawTensor
	Conv2DKernelBackward(input, grad *RawTensor, kernelShape Shape, stride, padding int) *RawTensor

	// MaxPool2D applies square max pooling. MaxIndices2D returns, for each
	// output position, the flat input index that held the maximum; the
	// backward pass routes gradients through those positions only.
	MaxPool2D(input *RawTensor, kernelSize, stride int) *RawTensor
	MaxIndices2D(input *RawTensor, kernelSize, stride int) []int
	MaxPool2DBackward(input, grad *RawTensor, maxIndices []int) *RawTensor

	// GlobalAvgPool2D reduces [N,C,H,W] to [N,C,1,1] by spatial mean.
	GlobalAvgPool2D(input *RawTensor) *RawTensor

	// BatchStats2D returns the per-channel mean and biased variance of a
	// [N,C,H,W] tensor, each shaped [C].
	BatchStats2D(input *RawTensor) (mean, variance *RawTensor)
	// BatchNorm2D normalizes input with the supplied per-channel statistics
	// and affine parameters: gamma*(x-mean)/sqrt(var+eps) + beta.
	BatchNorm2D(input, gamma, beta, mean, variance *RawTensor, eps float32) *RawTensor

	// ReLU applies max(0, x) element-wise.
	ReLU(x *RawTensor) *RawTensor

	// Reshape reinterprets the tensor under a new shape with the same
	// element count.
	Reshape(t *RawTensor, shape Shape) *RawTensor
	// Transpose permutes dimensions. Empty axes reverse all dimensions.
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// Metadata.
	Name() string
	Device() Device
}
