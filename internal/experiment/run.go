package experiment

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/audionet-ml/audionet/internal/logging"
	"github.com/audionet-ml/audionet/internal/tensor"
)

// Run bundles everything one training run needs: its identity, a run
// directory for checkpoints and metrics, a logger scoped with the run ID,
// and a metric tracker. Runs are passed explicitly; nothing here is global.
type Run struct {
	id      string
	dir     string
	logger  logging.Logger
	tracker *Tracker
	metrics *os.File
}

// NewRun creates a run directory under baseDir and opens its metrics sink.
// baseDir may be empty, in which case no directory or sink is created and
// metrics stay in memory only.
func NewRun(baseDir string, logger logging.Logger) (*Run, error) {
	id := uuid.NewString()

	r := &Run{
		id:     id,
		logger: logger.WithFields(logging.Fields{"run_id": id}),
	}

	if baseDir == "" {
		r.tracker = NewTracker(nil)
		return r, nil
	}

	r.dir = filepath.Join(baseDir, id)
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}

	f, err := os.Create(filepath.Join(r.dir, "metrics.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("creating metrics sink: %w", err)
	}
	r.metrics = f
	r.tracker = NewTracker(f)
	return r, nil
}

// ID returns the run's UUID.
func (r *Run) ID() string { return r.id }

// Dir returns the run directory, empty if the run is memory-only.
func (r *Run) Dir() string { return r.dir }

// Logger returns the run-scoped logger.
func (r *Run) Logger() logging.Logger { return r.logger }

// Tracker returns the run's metric tracker.
func (r *Run) Tracker() *Tracker { return r.tracker }

// Close flushes and closes the metrics sink.
func (r *Run) Close() error {
	if r.metrics == nil {
		return nil
	}
	return r.metrics.Close()
}

// Seed makes a run reproducible: the same seed drives parameter
// initialization and, through StreamSeed, the loader shuffle RNGs.
func Seed(seed int64) {
	tensor.Seed(seed)
}

// StreamSeed derives a child seed from the run seed and a stream label,
// so independent consumers (one per data split) do not share shuffle
// state with each other or with parameter initialization.
func StreamSeed(seed, stream int64) int64 {
	return seed ^ (stream * 0x9e3779b9)
}
