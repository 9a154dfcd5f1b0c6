package cpu

import (
	"fmt"

	"github.com/audionet-ml/audionet/internal/parallel"
	"github.com/audionet-ml/audionet/internal/tensor"
)

// Conv2D computes a 2D cross-correlation of input (N, Cin, H, W) with
// kernel (Cout, Cin, KH, KW), producing (N, Cout, Hout, Wout).
func (c *Backend) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	is, ks := input.Shape(), kernel.Shape()
	if len(is) != 4 || len(ks) != 4 {
		panic(fmt.Sprintf("conv2d: requires 4D input and kernel, got %v and %v", is, ks))
	}
	if is[1] != ks[1] {
		panic(fmt.Sprintf("conv2d: input channels %d != kernel channels %d", is[1], ks[1]))
	}
	n, cin, h, w := is[0], is[1], is[2], is[3]
	cout, kh, kw := ks[0], ks[2], ks[3]
	hout := (h+2*padding-kh)/stride + 1
	wout := (w+2*padding-kw)/stride + 1
	if hout <= 0 || wout <= 0 {
		panic(fmt.Sprintf("conv2d: kernel %dx%d too large for input %dx%d with padding %d", kh, kw, h, w, padding))
	}

	out := tensor.MustNewRaw(tensor.Shape{n, cout, hout, wout}, tensor.Float32, c.Device())
	inData, kData, outData := input.AsFloat32(), kernel.AsFloat32(), out.AsFloat32()

	parallel.For(n*cout, c.par, func(job int) {
		b, oc := job/cout, job%cout
		inBase := b * cin * h * w
		kBase := oc * cin * kh * kw
		outBase := (b*cout + oc) * hout * wout
		for oh := 0; oh < hout; oh++ {
			for ow := 0; ow < wout; ow++ {
				var sum float32
				ihBase := oh*stride - padding
				iwBase := ow*stride - padding
				for ic := 0; ic < cin; ic++ {
					inCh := inBase + ic*h*w
					kCh := kBase + ic*kh*kw
					for fy := 0; fy < kh; fy++ {
						iy := ihBase + fy
						if iy < 0 || iy >= h {
							continue
						}
						rowIn := inCh + iy*w
						rowK := kCh + fy*kw
						for fx := 0; fx < kw; fx++ {
							ix := iwBase + fx
							if ix < 0 || ix >= w {
								continue
							}
							sum += inData[rowIn+ix] * kData[rowK+fx]
						}
					}
				}
				outData[outBase+oh*wout+ow] = sum
			}
		}
	})
	return out
}

// Conv2DInputBackward computes the gradient of a Conv2D with respect to
// its input. grad has the forward output's shape (N, Cout, Hout, Wout).
func (c *Backend) Conv2DInputBackward(grad, kernel *tensor.RawTensor, inputShape tensor.Shape, stride, padding int) *tensor.RawTensor {
	gs, ks := grad.Shape(), kernel.Shape()
	n, cout, hout, wout := gs[0], gs[1], gs[2], gs[3]
	cin, kh, kw := ks[1], ks[2], ks[3]
	h, w := inputShape[2], inputShape[3]

	out := tensor.MustNewRaw(inputShape, tensor.Float32, c.Device())
	gData, kData, outData := grad.AsFloat32(), kernel.AsFloat32(), out.AsFloat32()

	// Each worker owns one (batch, input channel) plane, so writes never
	// race across goroutines.
	parallel.For(n*cin, c.par, func(job int) {
		b, ic := job/cin, job%cin
		outBase := (b*cin + ic) * h * w
		for oc := 0; oc < cout; oc++ {
			gBase := (b*cout + oc) * hout * wout
			kBase := (oc*cin + ic) * kh * kw
			for oh := 0; oh < hout; oh++ {
				for ow := 0; ow < wout; ow++ {
					g := gData[gBase+oh*wout+ow]
					if g == 0 {
						continue
					}
					ihBase := oh*stride - padding
					iwBase := ow*stride - padding
					for fy := 0; fy < kh; fy++ {
						iy := ihBase + fy
						if iy < 0 || iy >= h {
							continue
						}
						for fx := 0; fx < kw; fx++ {
							ix := iwBase + fx
							if ix < 0 || ix >= w {
								continue
							}
							outData[outBase+iy*w+ix] += g * kData[kBase+fy*kw+fx]
						}
					}
				}
			}
		}
	})
	return out
}

// Conv2DKernelBackward computes the gradient of a Conv2D with respect to
// its kernel.
func (c *Backend) Conv2DKernelBackward(input, grad *tensor.RawTensor, kernelShape tensor.Shape, stride, padding int) *tensor.RawTensor {
	is, gs := input.Shape(), grad.Shape()
	n, cin, h, w := is[0], is[1], is[2], is[3]
	cout, hout, wout := gs[1], gs[2], gs[3]
	kh, kw := kernelShape[2], kernelShape[3]

	out := tensor.MustNewRaw(kernelShape, tensor.Float32, c.Device())
	inData, gData, outData := input.AsFloat32(), grad.AsFloat32(), out.AsFloat32()

	// One worker per (output channel, input channel) kernel plane.
	parallel.For(cout*cin, c.par, func(job int) {
		oc, ic := job/cin, job%cin
		kBase := (oc*cin + ic) * kh * kw
		for b := 0; b < n; b++ {
			inBase := (b*cin + ic) * h * w
			gBase := (b*cout + oc) * hout * wout
			for oh := 0; oh < hout; oh++ {
				for ow := 0; ow < wout; ow++ {
					g := gData[gBase+oh*wout+ow]
					if g == 0 {
						continue
					}
					ihBase := oh*stride - padding
					iwBase := ow*stride - padding
					for fy := 0; fy < kh; fy++ {
						iy := ihBase + fy
						if iy < 0 || iy >= h {
							continue
						}
						for fx := 0; fx < kw; fx++ {
							ix := iwBase + fx
							if ix < 0 || ix >= w {
								continue
							}
							outData[kBase+fy*kw+fx] += g * inData[inBase+iy*w+ix]
						}
					}
				}
			}
		}
	})
	return out
}
