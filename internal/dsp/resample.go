// Package dsp implements the fixed feature pipeline that turns a mono
// waveform into a log-mel spectrogram: resample, mel spectrogram,
// amplitude-to-dB. All stages are pure functions of their configuration,
// so identical inputs always produce identical features.
package dsp

// Resample converts a waveform between sample rates by linear
// interpolation. Equal rates return the input unchanged.
func Resample(samples []float32, origRate, targetRate int) []float32 {
	if origRate == targetRate || len(samples) == 0 {
		return samples
	}

	// Integer length math keeps exact-ratio conversions exact; float
	// rounding here would occasionally drop the final sample.
	outLen := len(samples) * targetRate / origRate
	if outLen == 0 {
		return nil
	}
	ratio := float64(targetRate) / float64(origRate)

	out := make([]float32, outLen)
	for i := range out {
		pos := float64(i) / ratio
		left := int(pos)
		if left >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(pos - float64(left))
		out[i] = samples[left]*(1-frac) + samples[left+1]*frac
	}
	return out
}
