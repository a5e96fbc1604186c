// Package responses records the keys a subject presses during a presentation
// run.
package responses

import (
	"time"

	"github.com/xkilldash9x/stimulus-cli/internal/stimulus"
)

// Event is one captured key press. Offset is measured from the start of the
// repetition the key was pressed in.
type Event struct {
	Key        stimulus.Key  `json:"key" yaml:"key"`
	Offset     time.Duration `json:"offset" yaml:"offset"`
	Repetition int           `json:"repetition" yaml:"repetition"`
	Frame      int           `json:"frame" yaml:"frame"`
}

// Recorder is an append-only log of events for a single run. Events are kept
// in the order they were recorded and are never merged or reordered. It is not
// safe for concurrent use.
type Recorder struct {
	events []Event
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends e to the log.
func (r *Recorder) Record(e Event) {
	r.events = append(r.events, e)
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int { return len(r.events) }

// Events returns a copy of the log.
func (r *Recorder) Events() []Event {
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ForRepetition returns the events captured during repetition i.
func (r *Recorder) ForRepetition(i int) []Event {
	var out []Event
	for _, e := range r.events {
		if e.Repetition == i {
			out = append(out, e)
		}
	}
	return out
}
