// Package cpu implements the pure-Go CPU compute backend.
package cpu

import (
	"fmt"

	"github.com/audionet-ml/audionet/internal/parallel"
	"github.com/audionet-ml/audionet/internal/tensor"
)

// Backend implements tensor.Backend on the host CPU. All operations are
// float32; labels (int32) never flow through backend math.
type Backend struct {
	par parallel.Config
}

// New creates a CPU backend with default parallelism.
func New() *Backend {
	return &Backend{par: parallel.DefaultConfig()}
}

// Name returns the backend name.
func (c *Backend) Name() string { return "CPU" }

// Device returns the compute device.
func (c *Backend) Device() tensor.Device { return tensor.CPU }

// Add performs element-wise addition with broadcasting.
func (c *Backend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary("add", a, b, func(x, y float32) float32 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (c *Backend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary("sub", a, b, func(x, y float32) float32 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (c *Backend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary("mul", a, b, func(x, y float32) float32 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (c *Backend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary("div", a, b, func(x, y float32) float32 { return x / y })
}

// binary applies op element-wise, broadcasting the smaller operand.
func (c *Backend) binary(name string, a, b *tensor.RawTensor, op func(x, y float32) float32) *tensor.RawTensor {
	if a.DType() != tensor.Float32 || b.DType() != tensor.Float32 {
		panic(fmt.Sprintf("%s: requires float32 operands, got %s and %s", name, a.DType(), b.DType()))
	}

	outShape, err := tensor.Broadcast(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}
	out := tensor.MustNewRaw(outShape, tensor.Float32, c.Device())

	aData, bData, outData := a.AsFloat32(), b.AsFloat32(), out.AsFloat32()

	// Fast path: identical shapes need no index translation.
	if a.Shape().Equal(b.Shape()) {
		for i := range outData {
			outData[i] = op(aData[i], bData[i])
		}
		return out
	}

	aStride := broadcastStrides(a.Shape(), outShape)
	bStride := broadcastStrides(b.Shape(), outShape)
	outStride := outShape.Strides()

	n := outShape.NumElements()
	for i := 0; i < n; i++ {
		ai, bi := 0, 0
		rem := i
		for d := 0; d < len(outShape); d++ {
			idx := rem / outStride[d]
			rem %= outStride[d]
			ai += idx * aStride[d]
			bi += idx * bStride[d]
		}
		outData[i] = op(aData[ai], bData[bi])
	}
	return out
}

// broadcastStrides maps output dimensions onto an input's strides, using
// stride 0 where the input dimension is 1 (or missing) and therefore
// broadcast.
func broadcastStrides(in, out tensor.Shape) []int {
	inStrides := in.Strides()
	strides := make([]int, len(out))
	offset := len(out) - len(in)
	for d := range out {
		j := d - offset
		if j < 0 || in[j] == 1 {
			strides[d] = 0
		} else {
			strides[d] = inStrides[j]
		}
	}
	return strides
}
