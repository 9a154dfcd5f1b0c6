package tensor

import (
	"math"
	"math/rand"
	"sync"
)

// The package RNG feeds every random tensor initializer. Training seeds it
// once at startup so repeated runs with the same seed produce identical
// parameter initializations.
var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(1))
)

// Seed reseeds the initializer RNG.
func Seed(seed int64) {
	rngMu.Lock()
	defer rngMu.Unlock()
	rng = rand.New(rand.NewSource(seed))
}

// RandFloat64 draws a uniform value in [0, 1) from the package RNG.
func RandFloat64() float64 {
	rngMu.Lock()
	defer rngMu.Unlock()
	return rng.Float64()
}

// Zeros creates a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy), b.Device())
	if err != nil {
		panic(err)
	}
	return New[T, B](raw, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return Full[T, B](shape, 1, b)
}

// Full creates a tensor filled with a constant value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// Randn creates a float32 tensor drawn from N(0, 1) using the Box-Muller
// transform and the seeded package RNG.
func Randn[B Backend](shape Shape, b B) *Tensor[float32, B] {
	t := Zeros[float32, B](shape, b)
	data := t.Data()
	for i := 0; i < len(data); i += 2 {
		u1 := RandFloat64()
		u2 := RandFloat64()
		r := math.Sqrt(-2.0 * math.Log(1-u1))
		data[i] = float32(r * math.Cos(2*math.Pi*u2))
		if i+1 < len(data) {
			data[i+1] = float32(r * math.Sin(2*math.Pi*u2))
		}
	}
	return t
}

// Uniform creates a float32 tensor drawn uniformly from [lo, hi).
func Uniform[B Backend](shape Shape, lo, hi float64, b B) *Tensor[float32, B] {
	t := Zeros[float32, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = float32(lo + RandFloat64()*(hi-lo))
	}
	return t
}
