package cpu

import (
	"fmt"
	"math"

	"github.com/audionet-ml/audionet/internal/parallel"
	"github.com/audionet-ml/audionet/internal/tensor"
)

// BatchStats2D computes the per-channel mean and biased variance of a
// (N, C, H, W) input over the N, H and W axes. Both results have shape (C).
func (c *Backend) BatchStats2D(input *tensor.RawTensor) (mean, variance *tensor.RawTensor) {
	is := input.Shape()
	if len(is) != 4 {
		panic(fmt.Sprintf("batchstats2d: requires 4D input, got %v", is))
	}
	n, ch, h, w := is[0], is[1], is[2], is[3]
	plane := h * w
	count := float32(n * plane)

	mean = tensor.MustNewRaw(tensor.Shape{ch}, tensor.Float32, c.Device())
	variance = tensor.MustNewRaw(tensor.Shape{ch}, tensor.Float32, c.Device())
	inData := input.AsFloat32()
	mData, vData := mean.AsFloat32(), variance.AsFloat32()

	parallel.For(ch, c.par, func(k int) {
		var sum float64
		for b := 0; b < n; b++ {
			base := (b*ch + k) * plane
			for i := 0; i < plane; i++ {
				sum += float64(inData[base+i])
			}
		}
		mu := sum / float64(count)

		var sq float64
		for b := 0; b < n; b++ {
			base := (b*ch + k) * plane
			for i := 0; i < plane; i++ {
				d := float64(inData[base+i]) - mu
				sq += d * d
			}
		}
		mData[k] = float32(mu)
		vData[k] = float32(sq / float64(count))
	})
	return mean, variance
}

// BatchNorm2D normalizes each channel of a (N, C, H, W) input with the
// given per-channel statistics and applies the affine transform
// gamma*xhat + beta.
func (c *Backend) BatchNorm2D(input, gamma, beta, mean, variance *tensor.RawTensor, eps float32) *tensor.RawTensor {
	is := input.Shape()
	if len(is) != 4 {
		panic(fmt.Sprintf("batchnorm2d: requires 4D input, got %v", is))
	}
	n, ch, h, w := is[0], is[1], is[2], is[3]
	plane := h * w

	out := tensor.MustNewRaw(is, tensor.Float32, c.Device())
	inData, outData := input.AsFloat32(), out.AsFloat32()
	gData, bData := gamma.AsFloat32(), beta.AsFloat32()
	mData, vData := mean.AsFloat32(), variance.AsFloat32()

	parallel.For(n*ch, c.par, func(job int) {
		k := job % ch
		invStd := float32(1.0 / math.Sqrt(float64(vData[k]+eps)))
		scale := gData[k] * invStd
		shift := bData[k] - mData[k]*scale
		base := job * plane
		for i := 0; i < plane; i++ {
			outData[base+i] = inData[base+i]*scale + shift
		}
	})
	return out
}
