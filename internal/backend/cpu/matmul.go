package cpu

import (
	"fmt"

	"github.com/audionet-ml/audionet/internal/parallel"
	"github.com/audionet-ml/audionet/internal/tensor"
)

// MatMul computes the 2D matrix product a @ b.
func (c *Backend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	as, bs := a.Shape(), b.Shape()
	if len(as) != 2 || len(bs) != 2 {
		panic(fmt.Sprintf("matmul: requires 2D operands, got %v and %v", as, bs))
	}
	if as[1] != bs[0] {
		panic(fmt.Sprintf("matmul: inner dimensions mismatch: %v x %v", as, bs))
	}
	m, k, n := as[0], as[1], bs[1]

	out := tensor.MustNewRaw(tensor.Shape{m, n}, tensor.Float32, c.Device())
	aData, bData, outData := a.AsFloat32(), b.AsFloat32(), out.AsFloat32()

	parallel.For(m, c.par, func(i int) {
		aRow := aData[i*k : (i+1)*k]
		outRow := outData[i*n : (i+1)*n]
		for p := 0; p < k; p++ {
			av := aRow[p]
			if av == 0 {
				continue
			}
			bRow := bData[p*n : (p+1)*n]
			for j := 0; j < n; j++ {
				outRow[j] += av * bRow[j]
			}
		}
	})
	return out
}
