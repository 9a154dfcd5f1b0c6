package experiment

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/audionet-ml/audionet/internal/config"
)

// SweepEntry is one set of hyperparameter values to inject into a run's
// config before model construction. Zero-valued fields leave the config
// untouched, so a sweep file can vary a single knob.
type SweepEntry struct {
	SampleRate  int     `yaml:"sample_rate"`
	BaseFilters int     `yaml:"base_filters"`
	LR          float64 `yaml:"lr"`
}

// LoadSweep parses a YAML sweep file: a list of value sets, one run each.
func LoadSweep(path string) ([]SweepEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening sweep file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var entries []SweepEntry
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("parsing sweep file %s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("sweep file %s holds no entries", path)
	}
	return entries, nil
}

// Apply overwrites the swept fields on a copy of cfg and revalidates it.
func (e SweepEntry) Apply(cfg config.Config) (config.Config, error) {
	if e.SampleRate != 0 {
		cfg.Data.SampleRate = e.SampleRate
	}
	if e.BaseFilters != 0 {
		cfg.Model.BaseFilters = e.BaseFilters
	}
	if e.LR != 0 {
		cfg.Model.Optim.LR = e.LR
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("sweep entry produced invalid config: %w", err)
	}
	return cfg, nil
}

func (e SweepEntry) String() string {
	return fmt.Sprintf("sweep(sample_rate=%d, base_filters=%d, lr=%g)", e.SampleRate, e.BaseFilters, e.LR)
}
