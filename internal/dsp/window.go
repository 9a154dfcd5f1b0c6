package dsp

import "math"

// HannWindow returns a periodic Hann window of the given size,
// w[n] = 0.5*(1 - cos(2πn/N)). The periodic form is the standard choice
// for spectral analysis.
func HannWindow(size int) []float64 {
	w := make([]float64, size)
	for n := range w {
		w[n] = 0.5 * (1 - math.Cos(2*math.Pi*float64(n)/float64(size)))
	}
	return w
}
