package dsp

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/audionet-ml/audionet/internal/tensor"
)

// MelConfig parametrizes the mel spectrogram stage. DefaultMelConfig
// gives the conventional 400/200/128 analysis setup with the full
// Nyquist band.
type MelConfig struct {
	SampleRate int
	NFFT       int
	WinLength  int
	HopLength  int
	NMels      int
	FMin       float64
	FMax       float64 // 0 means sampleRate/2
}

// DefaultMelConfig returns the default analysis parameters for the given
// sample rate.
func DefaultMelConfig(sampleRate int) MelConfig {
	return MelConfig{
		SampleRate: sampleRate,
		NFFT:       400,
		WinLength:  400,
		HopLength:  200,
		NMels:      128,
		FMin:       0,
		FMax:       float64(sampleRate) / 2,
	}
}

// MelSpectrogram computes power mel spectrograms. The Hann window and
// the triangular filter bank are precomputed once per configuration.
type MelSpectrogram struct {
	cfg        MelConfig
	window     []float64
	filterBank [][]float64 // nMels x (nFFT/2+1)
}

// NewMelSpectrogram builds the transform for the given configuration.
func NewMelSpectrogram(cfg MelConfig) (*MelSpectrogram, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("mel: invalid sample rate %d", cfg.SampleRate)
	}
	if cfg.NFFT <= 0 || cfg.WinLength <= 0 || cfg.HopLength <= 0 || cfg.NMels <= 0 {
		return nil, fmt.Errorf("mel: invalid analysis parameters %+v", cfg)
	}
	if cfg.WinLength > cfg.NFFT {
		return nil, fmt.Errorf("mel: window length %d exceeds FFT size %d", cfg.WinLength, cfg.NFFT)
	}
	fMax := cfg.FMax
	if fMax == 0 {
		fMax = float64(cfg.SampleRate) / 2
		cfg.FMax = fMax
	}
	if cfg.FMin < 0 || fMax <= cfg.FMin {
		return nil, fmt.Errorf("mel: invalid frequency range [%g, %g]", cfg.FMin, fMax)
	}

	return &MelSpectrogram{
		cfg:        cfg,
		window:     HannWindow(cfg.WinLength),
		filterBank: melFilterBank(cfg.NMels, cfg.NFFT/2+1, cfg.SampleRate, cfg.FMin, fMax),
	}, nil
}

// NumMels returns the mel bin count.
func (m *MelSpectrogram) NumMels() int { return m.cfg.NMels }

// NumFrames returns the frame count produced for a waveform of the given
// length. Frames are centered, so the count is len/hop + 1.
func (m *MelSpectrogram) NumFrames(numSamples int) int {
	return numSamples/m.cfg.HopLength + 1
}

// Compute returns the power mel spectrogram of a mono waveform as a
// (1, nMels, nFrames) tensor. The waveform is reflect-padded by nFFT/2
// on both sides so frames are centered on their timestamps.
func (m *MelSpectrogram) Compute(samples []float32) (*tensor.RawTensor, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("mel: empty waveform")
	}

	padded := reflectPad(samples, m.cfg.NFFT/2)
	numFrames := (len(padded)-m.cfg.NFFT)/m.cfg.HopLength + 1
	freqBins := m.cfg.NFFT/2 + 1

	out := tensor.MustNewRaw(tensor.Shape{1, m.cfg.NMels, numFrames}, tensor.Float32, tensor.CPU)
	outData := out.AsFloat32()

	frame := make([]float64, m.cfg.NFFT)
	power := make([]float64, freqBins)
	for f := 0; f < numFrames; f++ {
		start := f * m.cfg.HopLength
		for i := 0; i < m.cfg.WinLength; i++ {
			frame[i] = float64(padded[start+i]) * m.window[i]
		}
		for i := m.cfg.WinLength; i < m.cfg.NFFT; i++ {
			frame[i] = 0
		}

		spectrum := fft.FFTReal(frame)
		for k := 0; k < freqBins; k++ {
			mag := cmplx.Abs(spectrum[k])
			power[k] = mag * mag
		}

		for mel := 0; mel < m.cfg.NMels; mel++ {
			var sum float64
			filter := m.filterBank[mel]
			for k := 0; k < freqBins; k++ {
				sum += power[k] * filter[k]
			}
			outData[mel*numFrames+f] = float32(sum)
		}
	}
	return out, nil
}

// HzToMel converts Hz to the HTK mel scale.
func HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// MelToHz converts HTK mels back to Hz.
func MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// melFilterBank builds nMels triangular filters over freqBins linearly
// spaced FFT frequencies. Filter centers are equally spaced on the mel
// scale; each filter rises from its left neighbor's center and falls to
// its right neighbor's.
func melFilterBank(nMels, freqBins, sampleRate int, fMin, fMax float64) [][]float64 {
	lowMel := HzToMel(fMin)
	highMel := HzToMel(fMax)

	hzPoints := make([]float64, nMels+2)
	melStep := (highMel - lowMel) / float64(nMels+1)
	for i := range hzPoints {
		hzPoints[i] = MelToHz(lowMel + float64(i)*melStep)
	}

	bank := make([][]float64, nMels)
	for m := range bank {
		bank[m] = make([]float64, freqBins)
		left, center, right := hzPoints[m], hzPoints[m+1], hzPoints[m+2]
		for k := 0; k < freqBins; k++ {
			freq := float64(k) * float64(sampleRate) / 2 / float64(freqBins-1)
			var w float64
			switch {
			case freq <= left || freq >= right:
				w = 0
			case freq <= center:
				w = (freq - left) / (center - left)
			default:
				w = (right - freq) / (right - center)
			}
			bank[m][k] = w
		}
	}
	return bank
}

// reflectPad mirrors pad samples around each edge of the waveform.
func reflectPad(samples []float32, pad int) []float32 {
	n := len(samples)
	if pad >= n {
		// Short inputs fall back to edge replication to stay in bounds.
		out := make([]float32, n+2*pad)
		for i := range out {
			j := i - pad
			if j < 0 {
				j = 0
			}
			if j >= n {
				j = n - 1
			}
			out[i] = samples[j]
		}
		return out
	}

	out := make([]float32, n+2*pad)
	for i := 0; i < pad; i++ {
		out[i] = samples[pad-i]
	}
	copy(out[pad:], samples)
	for i := 0; i < pad; i++ {
		out[pad+n+i] = samples[n-2-i]
	}
	return out
}
