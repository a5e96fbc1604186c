package presentation

import (
	"time"

	"github.com/xkilldash9x/stimulus-cli/internal/stimulus"
)

// Surface is the rendering and input collaborator the scheduler drives. All
// calls are made from the goroutine running Scheduler.Run.
type Surface interface {
	stimulus.Canvas

	// Clear fills the whole canvas with c.
	Clear(c stimulus.Color)
	// PollKey returns the key pressed since the previous poll, if any. At most
	// one key is reported per frame.
	PollKey() (stimulus.Key, bool)
	// Now returns the surface clock.
	Now() time.Time
	// SetFrameRate sets the pacing target in frames per second.
	SetFrameRate(fps int)
	// EndFrame presents the frame and blocks until the next paced tick.
	EndFrame()
}

// Observer receives presentation events, typically for metrics.
type Observer interface {
	FramePresented(kind stimulus.Kind, interval time.Duration)
	ResponseRecorded(kind stimulus.Kind, key stimulus.Key)
	RepetitionFinished(kind stimulus.Kind, frames int)
	RunFinished(kind stimulus.Kind, state State)
}

type nopObserver struct{}

func (nopObserver) FramePresented(stimulus.Kind, time.Duration) {}
func (nopObserver) ResponseRecorded(stimulus.Kind, stimulus.Key) {}
func (nopObserver) RepetitionFinished(stimulus.Kind, int)        {}
func (nopObserver) RunFinished(stimulus.Kind, State)             {}
