// Package experiment carries the per-run context shared across training:
// run identity, logging, metric tracking, and seeding.
package experiment

import (
	"encoding/json"
	"io"
	"sync"
)

// Point is one recorded scalar in a metric series.
type Point struct {
	Step  int     `json:"step"`
	Value float64 `json:"value"`
}

// Tracker accumulates named scalar series in memory and, when a sink is
// attached, appends each point as a JSON line. Safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	series map[string][]Point
	sink   io.Writer
	enc    *json.Encoder
}

// NewTracker creates an in-memory tracker. sink may be nil.
func NewTracker(sink io.Writer) *Tracker {
	t := &Tracker{series: make(map[string][]Point), sink: sink}
	if sink != nil {
		t.enc = json.NewEncoder(sink)
	}
	return t
}

type jsonlRecord struct {
	Metric string  `json:"metric"`
	Step   int     `json:"step"`
	Value  float64 `json:"value"`
}

// Log appends a value to the named series and writes it to the sink.
func (t *Tracker) Log(name string, step int, value float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.series[name] = append(t.series[name], Point{Step: step, Value: value})
	if t.enc != nil {
		// Sink failures are ignored; the in-memory series stays authoritative.
		_ = t.enc.Encode(jsonlRecord{Metric: name, Step: step, Value: value})
	}
}

// Series returns a copy of the named series, nil if never logged.
func (t *Tracker) Series(name string) []Point {
	t.mu.Lock()
	defer t.mu.Unlock()

	pts := t.series[name]
	if pts == nil {
		return nil
	}
	out := make([]Point, len(pts))
	copy(out, pts)
	return out
}

// LastValue returns the most recent value of the named series.
func (t *Tracker) LastValue(name string) (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pts := t.series[name]
	if len(pts) == 0 {
		return 0, false
	}
	return pts[len(pts)-1].Value, true
}

// Names returns the metric names seen so far.
func (t *Tracker) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := make([]string, 0, len(t.series))
	for name := range t.series {
		names = append(names, name)
	}
	return names
}
