package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audionet-ml/audionet/internal/tensor"
)

func sine(freq float64, sampleRate, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate)))
	}
	return out
}

func TestResampleHalvesLength(t *testing.T) {
	in := sine(440, 44100, 44100)
	out := Resample(in, 44100, 22050)
	assert.Equal(t, 22050, len(out))
}

func TestResampleSameRateIsIdentity(t *testing.T) {
	in := []float32{1, 2, 3}
	assert.Equal(t, in, Resample(in, 8000, 8000))
}

func TestResamplePreservesConstantSignal(t *testing.T) {
	in := make([]float32, 1000)
	for i := range in {
		in[i] = 0.5
	}
	out := Resample(in, 44100, 16000)
	for _, v := range out {
		assert.InDelta(t, 0.5, float64(v), 1e-6)
	}
}

func TestHannWindowEndpoints(t *testing.T) {
	w := HannWindow(400)
	assert.InDelta(t, 0, w[0], 1e-12)
	assert.InDelta(t, 1, w[200], 1e-12) // periodic window peaks at N/2
}

func TestMelScaleRoundTrip(t *testing.T) {
	for _, hz := range []float64{0, 100, 1000, 8000, 22050} {
		assert.InDelta(t, hz, MelToHz(HzToMel(hz)), 1e-6)
	}
}

func TestMelSpectrogramShape(t *testing.T) {
	cfg := DefaultMelConfig(16000)
	mel, err := NewMelSpectrogram(cfg)
	require.NoError(t, err)

	// 1 second at 16 kHz with hop 200: 16000/200 + 1 = 81 centered frames.
	spec, err := mel.Compute(sine(440, 16000, 16000))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 128, 81}, spec.Shape())
	assert.Equal(t, 81, mel.NumFrames(16000))
}

func TestMelSpectrogramDeterministic(t *testing.T) {
	mel, err := NewMelSpectrogram(DefaultMelConfig(16000))
	require.NoError(t, err)

	in := sine(1000, 16000, 8000)
	a, err := mel.Compute(in)
	require.NoError(t, err)
	b, err := mel.Compute(in)
	require.NoError(t, err)
	assert.Equal(t, a.AsFloat32(), b.AsFloat32())
}

func TestMelEnergyConcentratesAtToneFrequency(t *testing.T) {
	mel, err := NewMelSpectrogram(DefaultMelConfig(16000))
	require.NoError(t, err)

	low, err := mel.Compute(sine(300, 16000, 8000))
	require.NoError(t, err)
	high, err := mel.Compute(sine(6000, 16000, 8000))
	require.NoError(t, err)

	// The peak mel bin of a high tone sits above that of a low tone.
	assert.Greater(t, peakBin(high), peakBin(low))
}

func peakBin(spec *tensor.RawTensor) int {
	shape := spec.Shape()
	nMels, nFrames := shape[1], shape[2]
	data := spec.AsFloat32()

	best, bestVal := 0, float32(math.Inf(-1))
	for m := 0; m < nMels; m++ {
		var rowSum float32
		for f := 0; f < nFrames; f++ {
			rowSum += data[m*nFrames+f]
		}
		if rowSum > bestVal {
			best, bestVal = m, rowSum
		}
	}
	return best
}

func TestMelRejectsInvalidConfig(t *testing.T) {
	_, err := NewMelSpectrogram(MelConfig{SampleRate: 0})
	assert.Error(t, err)

	cfg := DefaultMelConfig(16000)
	cfg.WinLength = cfg.NFFT + 1
	_, err = NewMelSpectrogram(cfg)
	assert.Error(t, err)
}

func TestAmplitudeToDBClampsDynamicRange(t *testing.T) {
	spec := tensor.MustNewRaw(tensor.Shape{1, 1, 3}, tensor.Float32, tensor.CPU)
	copy(spec.AsFloat32(), []float32{1, 1e-4, 1e-20})

	AmplitudeToDB(spec, 80)
	data := spec.AsFloat32()

	assert.InDelta(t, 0, float64(data[0]), 1e-5)
	assert.InDelta(t, -40, float64(data[1]), 1e-4)
	// Floored at max - topDB, not at 10*log10(amin).
	assert.InDelta(t, -80, float64(data[2]), 1e-4)
}

func TestPipelineEndToEnd(t *testing.T) {
	p, err := NewPipeline(16000)
	require.NoError(t, err)

	// 2 seconds at 44.1 kHz in, (1, 128, frames) out at 16 kHz.
	features, err := p.Transform(sine(440, 44100, 88200), 44100)
	require.NoError(t, err)

	shape := features.Shape()
	require.Len(t, shape, 3)
	assert.Equal(t, 1, shape[0])
	assert.Equal(t, 128, shape[1])
	assert.Equal(t, p.NumFrames(32000), shape[2])
}
