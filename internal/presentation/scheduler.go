// File: internal/presentation/scheduler.go
// Package presentation drives the frame loop that presents a stimulus spec to a
// subject over one or more repetitions while capturing key responses.
package presentation

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/stimulus-cli/internal/responses"
	"github.com/xkilldash9x/stimulus-cli/internal/stimulus"
)

// Scheduler presents specs on a surface. A scheduler may be reused for any
// number of runs, but runs must not overlap.
type Scheduler struct {
	surface  Surface
	logger   *zap.Logger
	observer Observer

	state atomic.Value // State
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithObserver attaches an observer that receives frame and response events.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.observer = o
		}
	}
}

// New creates a scheduler bound to surface.
func New(surface Surface, logger *zap.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		surface:  surface,
		logger:   logger.Named("scheduler"),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state.Store(StateIdle)
	return s
}

// State returns the current lifecycle state. It is safe to call from any
// goroutine.
func (s *Scheduler) State() State {
	return s.state.Load().(State)
}

// Run presents spec for RepetitionCount+1 repetitions of
// DurationSeconds*FrameRate frames each.
//
// The PRNG stream is seeded from the spec's RandomSeed, so two runs of the same
// spec with the same key presses draw the same stimuli. Pressing the spec's
// skip key, or cancelling ctx, ends the current repetition at the current frame
// and leaves every later repetition with zero frames. The cancellation state
// belongs to this call only.
func (s *Scheduler) Run(ctx context.Context, spec stimulus.Spec) *Result {
	params := spec.Params()
	kind := spec.Kind()
	log := s.logger.With(zap.String("spec", string(kind)), zap.Int("seed", params.RandomSeed))

	s.state.Store(StatePresenting)
	rng := rand.New(rand.NewSource(int64(params.RandomSeed)))
	recorder := responses.NewRecorder()
	cancelled := false

	s.surface.SetFrameRate(params.FrameRate)
	frameEnd := params.FramesPerRepetition()

	result := &Result{
		Kind:      kind,
		Seed:      params.RandomSeed,
		FrameRate: params.FrameRate,
		StartedAt: s.surface.Now(),
	}
	log.Info("Presentation started",
		zap.Int("repetitions", params.Repetitions()),
		zap.Int("frames_per_repetition", frameEnd))

	for rep := 0; rep <= params.RepetitionCount; rep++ {
		frame := 0
		t0 := s.surface.Now()
		last := t0

		spec.Regenerate(rng, s.surface)
		for !cancelled && frame < frameEnd {
			if ctx.Err() != nil {
				log.Warn("Presentation interrupted", zap.Int("repetition", rep), zap.Int("frame", frame))
				cancelled = true
				break
			}

			frame++
			s.surface.Clear(params.Background)
			if params.RegenerateEveryFrame {
				spec.Regenerate(rng, s.surface)
			}
			spec.Render(s.surface)

			if key, ok := s.surface.PollKey(); ok {
				offset := s.surface.Now().Sub(t0)
				recorder.Record(responses.Event{
					Key:        key,
					Offset:     offset,
					Repetition: rep,
					Frame:      frame,
				})
				s.observer.ResponseRecorded(kind, key)
				log.Info("Response captured",
					zap.Int("repetition", rep),
					zap.Int("frame", frame),
					zap.Stringer("key", key),
					zap.Duration("offset", offset))

				if key == params.SkipKey {
					cancelled = true
				}
			}

			s.surface.EndFrame()
			now := s.surface.Now()
			s.observer.FramePresented(kind, now.Sub(last))
			last = now
		}
		s.surface.Clear(params.Background)

		result.Repetitions = append(result.Repetitions, RepetitionStats{Index: rep, Frames: frame})
		s.observer.RepetitionFinished(kind, frame)
		log.Debug("Repetition finished",
			zap.Int("repetition", rep),
			zap.Int("frames", frame),
			zap.Int("responses", len(recorder.ForRepetition(rep))))
	}

	result.State = StateCompleted
	if cancelled {
		result.State = StateCancelled
	}
	result.Responses = recorder.Events()
	result.FinishedAt = s.surface.Now()
	s.state.Store(result.State)
	s.observer.RunFinished(kind, result.State)

	log.Info("Presentation finished",
		zap.String("state", string(result.State)),
		zap.Int("frames", result.FramesPresented()),
		zap.Int("responses", len(result.Responses)),
		zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond)))
	return result
}
