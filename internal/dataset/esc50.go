// Package dataset reads the ESC-50 environmental sound corpus and feeds
// batched feature tensors to the trainer.
//
// The corpus layout is a CSV manifest at <root>/meta/esc50.csv with the
// audio clips under <root>/audio/. Every clip is nominally 5 seconds;
// waveforms are clipped or zero-padded to exactly that duration so all
// feature maps in a batch share one shape.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-audio/wav"

	"github.com/audionet-ml/audionet/internal/dsp"
	"github.com/audionet-ml/audionet/internal/tensor"
)

// NumClasses is the number of ESC-50 target classes.
const NumClasses = 50

// DefaultClipSeconds is the nominal ESC-50 clip duration.
const DefaultClipSeconds = 5

// LoadError reports a failure to load one sample. The dataset performs no
// retries or skipping; a bad file fails the epoch.
type LoadError struct {
	Filename string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("dataset: load %s: %v", e.Filename, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

type manifestRow struct {
	filename string
	fold     int
	target   int
}

// ESC50 is a fold-filtered view of the corpus. Cross-validation uses the
// manifest's fold column: typical splits train on folds 1-3, validate on
// 4 and test on 5.
type ESC50 struct {
	root        string
	rows        []manifestRow
	pipeline    *dsp.Pipeline
	clipSeconds int
}

// NewESC50 opens the manifest under root and keeps rows whose fold is in
// folds. Audio is transformed at the given target sample rate after being
// normalized to clipSeconds of duration.
func NewESC50(root string, targetRate, clipSeconds int, folds []int) (*ESC50, error) {
	if clipSeconds <= 0 {
		clipSeconds = DefaultClipSeconds
	}
	pipeline, err := dsp.NewPipeline(targetRate)
	if err != nil {
		return nil, err
	}

	manifest := filepath.Join(root, "meta", "esc50.csv")
	f, err := os.Open(manifest)
	if err != nil {
		return nil, fmt.Errorf("dataset: open manifest: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataset: parse manifest %s: %w", manifest, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset: empty manifest %s", manifest)
	}

	cols := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		cols[name] = i
	}
	for _, name := range []string{"filename", "fold", "target"} {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("dataset: manifest missing column %q", name)
		}
	}

	wanted := make(map[int]bool, len(folds))
	for _, f := range folds {
		wanted[f] = true
	}

	var rows []manifestRow
	for lineNo, rec := range records[1:] {
		fold, err := strconv.Atoi(rec[cols["fold"]])
		if err != nil {
			return nil, fmt.Errorf("dataset: manifest line %d: bad fold: %w", lineNo+2, err)
		}
		if !wanted[fold] {
			continue
		}
		target, err := strconv.Atoi(rec[cols["target"]])
		if err != nil {
			return nil, fmt.Errorf("dataset: manifest line %d: bad target: %w", lineNo+2, err)
		}
		if target < 0 || target >= NumClasses {
			return nil, fmt.Errorf("dataset: manifest line %d: target %d out of range", lineNo+2, target)
		}
		rows = append(rows, manifestRow{
			filename: rec[cols["filename"]],
			fold:     fold,
			target:   target,
		})
	}

	return &ESC50{root: root, rows: rows, pipeline: pipeline, clipSeconds: clipSeconds}, nil
}

// Len returns the number of samples in the selected folds.
func (d *ESC50) Len() int { return len(d.rows) }

// FeatureShape returns the shape every Get result has: (1, nMels,
// nFrames) for a 5-second clip at the target rate.
func (d *ESC50) FeatureShape() tensor.Shape {
	samples := d.clipSeconds * d.pipeline.TargetRate()
	return tensor.Shape{1, d.pipeline.NumMels(), d.pipeline.NumFrames(samples)}
}

// Get loads sample i: decodes the WAV, mixes to mono, normalizes the
// duration and runs the feature pipeline. Failures are wrapped in a
// LoadError.
func (d *ESC50) Get(i int) (*tensor.RawTensor, int32, error) {
	row := d.rows[i]
	path := filepath.Join(d.root, "audio", row.filename)

	samples, sampleRate, err := readWAV(path)
	if err != nil {
		return nil, 0, &LoadError{Filename: row.filename, Err: err}
	}

	samples = fitDuration(samples, d.clipSeconds*sampleRate)
	features, err := d.pipeline.Transform(samples, sampleRate)
	if err != nil {
		return nil, 0, &LoadError{Filename: row.filename, Err: err}
	}
	return features, int32(row.target), nil
}

// readWAV decodes a WAV file to a mono float32 waveform in [-1, 1].
func readWAV(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, 0, fmt.Errorf("no audio data")
	}

	floatBuf := buf.AsFloat32Buffer()
	channels := buf.Format.NumChannels
	if channels <= 1 {
		return floatBuf.Data, buf.Format.SampleRate, nil
	}

	// Mix interleaved channels down to mono.
	frames := len(floatBuf.Data) / channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += floatBuf.Data[i*channels+c]
		}
		mono[i] = sum / float32(channels)
	}
	return mono, buf.Format.SampleRate, nil
}

// fitDuration clips or zero-pads a waveform to exactly n samples.
func fitDuration(samples []float32, n int) []float32 {
	if len(samples) == n {
		return samples
	}
	if len(samples) > n {
		return samples[:n]
	}
	out := make([]float32, n)
	copy(out, samples)
	return out
}
