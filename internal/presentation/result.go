package presentation

import (
	"time"

	"github.com/xkilldash9x/stimulus-cli/internal/responses"
	"github.com/xkilldash9x/stimulus-cli/internal/stimulus"
)

// State is the lifecycle state of a scheduler.
type State string

const (
	StateIdle       State = "idle"
	StatePresenting State = "presenting"
	StateCompleted  State = "completed"
	StateCancelled  State = "cancelled"
)

// RepetitionStats describes one pass over the spec.
type RepetitionStats struct {
	Index  int `json:"index" yaml:"index"`
	Frames int `json:"frames" yaml:"frames"`
}

// Result is the outcome of one Run.
type Result struct {
	Kind        stimulus.Kind
	State       State
	Seed        int
	FrameRate   int
	StartedAt   time.Time
	FinishedAt  time.Time
	Repetitions []RepetitionStats
	Responses   []responses.Event
}

// FramesPresented is the total number of frames over all repetitions.
func (r *Result) FramesPresented() int {
	total := 0
	for _, rep := range r.Repetitions {
		total += rep.Frames
	}
	return total
}
