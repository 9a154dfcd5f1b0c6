package dsp

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/audionet-ml/audionet/internal/tensor"
)

// amin floors power values before the logarithm so silence does not
// produce -Inf.
const amin = 1e-10

// AmplitudeToDB converts a power spectrogram to decibels in place:
// 10*log10(x), then clamped from below to max(dB) - topDB across the
// whole tensor. topDB 80 is the conventional dynamic range.
func AmplitudeToDB(spec *tensor.RawTensor, topDB float64) *tensor.RawTensor {
	data := spec.AsFloat32()
	if len(data) == 0 {
		return spec
	}

	db := make([]float64, len(data))
	for i, v := range data {
		p := float64(v)
		if p < amin {
			p = amin
		}
		db[i] = 10 * math.Log10(p)
	}

	floor := floats.Max(db) - topDB
	for i, v := range db {
		if v < floor {
			v = floor
		}
		data[i] = float32(v)
	}
	return spec
}
