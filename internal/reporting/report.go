// File: internal/reporting/report.go
package reporting

import (
	"time"

	"github.com/google/uuid"

	"github.com/xkilldash9x/stimulus-cli/internal/presentation"
	"github.com/xkilldash9x/stimulus-cli/internal/stimulus"
)

// Response is one captured key press as it appears in a report.
type Response struct {
	Key           int     `json:"key" yaml:"key"`
	KeyName       string  `json:"key_name" yaml:"key_name"`
	OffsetSeconds float64 `json:"offset_seconds" yaml:"offset_seconds"`
	Repetition    int     `json:"repetition" yaml:"repetition"`
	Frame         int     `json:"frame" yaml:"frame"`
}

// Report is the record of one presentation run. It carries the seed and the
// spec address so the run can be replayed.
type Report struct {
	RunID           string                         `json:"run_id" yaml:"run_id"`
	SpecType        stimulus.Kind                  `json:"spec_type" yaml:"spec_type"`
	SpecAddress     string                         `json:"spec_address,omitempty" yaml:"spec_address,omitempty"`
	SpecSummary     string                         `json:"spec_summary" yaml:"spec_summary"`
	Seed            int                            `json:"seed" yaml:"seed"`
	FrameRate       int                            `json:"frame_rate" yaml:"frame_rate"`
	DurationSeconds int                            `json:"duration_seconds" yaml:"duration_seconds"`
	RepetitionCount int                            `json:"repetition_count" yaml:"repetition_count"`
	State           presentation.State             `json:"state" yaml:"state"`
	StartedAt       time.Time                      `json:"started_at" yaml:"started_at"`
	FinishedAt      time.Time                      `json:"finished_at" yaml:"finished_at"`
	FramesPresented int                            `json:"frames_presented" yaml:"frames_presented"`
	Repetitions     []presentation.RepetitionStats `json:"repetitions" yaml:"repetitions"`
	Responses       []Response                     `json:"responses" yaml:"responses"`
}

// Elapsed is the wall time of the run as measured by the surface clock.
func (r *Report) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// FromResult builds a report for a finished run under a fresh run ID.
func FromResult(spec stimulus.Spec, address string, res *presentation.Result) *Report {
	params := spec.Params()
	report := &Report{
		RunID:           uuid.NewString(),
		SpecType:        spec.Kind(),
		SpecAddress:     address,
		SpecSummary:     spec.Describe(),
		Seed:            res.Seed,
		FrameRate:       res.FrameRate,
		DurationSeconds: params.DurationSeconds,
		RepetitionCount: params.RepetitionCount,
		State:           res.State,
		StartedAt:       res.StartedAt,
		FinishedAt:      res.FinishedAt,
		FramesPresented: res.FramesPresented(),
		Repetitions:     append([]presentation.RepetitionStats(nil), res.Repetitions...),
		Responses:       make([]Response, 0, len(res.Responses)),
	}
	for _, ev := range res.Responses {
		report.Responses = append(report.Responses, Response{
			Key:           int(ev.Key),
			KeyName:       ev.Key.String(),
			OffsetSeconds: ev.Offset.Seconds(),
			Repetition:    ev.Repetition,
			Frame:         ev.Frame,
		})
	}
	return report
}
