package dsp

import "github.com/audionet-ml/audionet/internal/tensor"

// Pipeline chains the three feature stages: resample to the target rate,
// mel spectrogram, amplitude to dB.
type Pipeline struct {
	targetRate int
	mel        *MelSpectrogram
	topDB      float64
}

// NewPipeline builds the standard pipeline for a target sample rate with
// default mel parameters and an 80 dB dynamic range.
func NewPipeline(targetRate int) (*Pipeline, error) {
	mel, err := NewMelSpectrogram(DefaultMelConfig(targetRate))
	if err != nil {
		return nil, err
	}
	return &Pipeline{targetRate: targetRate, mel: mel, topDB: 80}, nil
}

// TargetRate returns the pipeline's output sample rate.
func (p *Pipeline) TargetRate() int { return p.targetRate }

// NumMels returns the mel bin count of the feature maps.
func (p *Pipeline) NumMels() int { return p.mel.NumMels() }

// NumFrames returns the frame count for a waveform of the given length
// at the target rate.
func (p *Pipeline) NumFrames(numSamples int) int { return p.mel.NumFrames(numSamples) }

// Transform converts a mono waveform at origRate into a (1, nMels,
// nFrames) log-mel feature tensor.
func (p *Pipeline) Transform(samples []float32, origRate int) (*tensor.RawTensor, error) {
	resampled := Resample(samples, origRate, p.targetRate)
	spec, err := p.mel.Compute(resampled)
	if err != nil {
		return nil, err
	}
	return AmplitudeToDB(spec, p.topDB), nil
}
