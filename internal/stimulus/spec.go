// File: internal/stimulus/spec.go
// Package stimulus defines the stimulus specs that can be presented
// to a subject: a closed set of variants (Fixing, RandomCircles, ColoredWords)
// sharing a common set of trial parameters.
//
// Each variant owns its random state. Regenerate recomputes that state from
// the run's PRNG stream, Render turns the current state into draw commands and
// never touches the random state, and Document returns the canonical field
// set used for persistence.
package stimulus

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrInvalidSpec is returned by Validate when a spec cannot be presented.
var ErrInvalidSpec = errors.New("invalid stimulus spec")

// Kind is the discriminator of a spec variant. Its string value is the
// "type" field of the persisted document.
type Kind string

const (
	KindFixing        Kind = "Fixing"
	KindRandomCircles Kind = "RandomCircles"
	KindColoredWords  Kind = "ColoredWords"
)

// Kinds lists every variant in a stable order.
func Kinds() []Kind {
	return []Kind{KindFixing, KindRandomCircles, KindColoredWords}
}

// Canvas is the drawing side of a rendering surface.
type Canvas interface {
	// Size returns the logical canvas size in pixels.
	Size() (width, height int)
	DrawText(text string, x, y, size int, c Color)
	DrawCircle(x, y float64, radius int, c Color)
}

// Center returns the middle of the canvas.
func Center(c Canvas) (x, y float64) {
	w, h := c.Size()
	return float64(w) / 2, float64(h) / 2
}

// Spec is a stimulus definition. The set of implementations is closed.
type Spec interface {
	Kind() Kind
	// Params exposes the trial parameters shared by every variant.
	Params() *Common
	// Regenerate recomputes the random state from rng.
	Regenerate(rng *rand.Rand, canvas Canvas)
	// Render emits draw commands for the current state.
	Render(canvas Canvas)
	// Document returns the canonical, serializable form of the spec.
	Document() Document
	// Describe returns a one-line summary for list displays.
	Describe() string
	Validate() error

	sealed()
}

// Common holds the trial parameters shared by all variants.
type Common struct {
	FrameRate       int
	DurationSeconds int
	// RepetitionCount is the number of extra passes after the first one: a run
	// presents RepetitionCount+1 repetitions.
	RepetitionCount      int
	RandomSeed           int
	SkipKey              Key
	Background           Color
	RegenerateEveryFrame bool
}

// DefaultCommon returns the parameters every new spec starts from.
func DefaultCommon() Common {
	return Common{
		FrameRate:       60,
		DurationSeconds: 10,
		RepetitionCount: 1,
		RandomSeed:      0,
		SkipKey:         KeyEnter,
		Background:      RayWhite,
	}
}

// FramesPerRepetition is the number of frames one full repetition presents.
func (c *Common) FramesPerRepetition() int {
	if c.FrameRate <= 0 || c.DurationSeconds <= 0 {
		return 0
	}
	return c.DurationSeconds * c.FrameRate
}

// Repetitions is the total number of passes a run makes.
func (c *Common) Repetitions() int {
	if c.RepetitionCount < 0 {
		return 0
	}
	return c.RepetitionCount + 1
}

func (c *Common) validate() error {
	if c.FrameRate <= 0 {
		return fmt.Errorf("%w: frame rate must be positive, got %d", ErrInvalidSpec, c.FrameRate)
	}
	if c.DurationSeconds <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %d", ErrInvalidSpec, c.DurationSeconds)
	}
	if c.RepetitionCount < 0 {
		return fmt.Errorf("%w: repetition count must not be negative, got %d", ErrInvalidSpec, c.RepetitionCount)
	}
	return nil
}

func (c *Common) document() CommonDocument {
	return CommonDocument{
		FPS:                  c.FrameRate,
		Duration:             c.DurationSeconds,
		Repetitions:          c.RepetitionCount,
		RandomSeed:           c.RandomSeed,
		SkipKey:              int(c.SkipKey),
		Background:           c.Background.Hex(),
		RegenerateEveryFrame: c.RegenerateEveryFrame,
	}
}

// trailing summary fields shared by every Describe output.
func (c *Common) describe() string {
	return fmt.Sprintf("%d,%d,%d,%d", c.FrameRate, c.DurationSeconds, c.RepetitionCount, c.RandomSeed)
}
