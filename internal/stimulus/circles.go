package stimulus

import (
	"fmt"
	"math"
	"math/rand"
)

// Point is a position on the canvas.
type Point struct {
	X, Y float64
}

// RandomCircles scatters Count dots over a ring centered on the canvas. The
// dot positions are redrawn on every regeneration.
type RandomCircles struct {
	Common
	Count       int
	DotSize     int
	InnerRadius int
	OuterRadius int
	Color       Color

	points []Point
}

// NewRandomCircles returns a RandomCircles spec with the editor defaults. It
// regenerates every frame.
func NewRandomCircles() *RandomCircles {
	c := DefaultCommon()
	c.RegenerateEveryFrame = true
	return &RandomCircles{
		Common:      c,
		Count:       100,
		DotSize:     5,
		InnerRadius: 100,
		OuterRadius: 200,
		Color:       Black,
	}
}

func (s *RandomCircles) Kind() Kind      { return KindRandomCircles }
func (s *RandomCircles) Params() *Common { return &s.Common }
func (s *RandomCircles) sealed()         {}

// Regenerate draws Count new points. Each point gets an angle uniform over
// [0, 360) degrees and a radius uniform over [InnerRadius, OuterRadius). When
// OuterRadius <= InnerRadius the ring collapses to a circle of InnerRadius.
//
// The point buffer is reused in place while Count is unchanged.
func (s *RandomCircles) Regenerate(rng *rand.Rand, canvas Canvas) {
	n := max(s.Count, 0)
	if len(s.points) != n {
		s.points = make([]Point, n)
	}

	cx, cy := Center(canvas)
	spread := s.OuterRadius - s.InnerRadius
	for i := range s.points {
		theta := rng.Float64() * 360
		r := float64(s.InnerRadius)
		if spread > 0 {
			r += rng.Float64() * float64(spread)
		}
		rad := theta * math.Pi / 180
		s.points[i] = Point{
			X: cx + r*math.Cos(rad),
			Y: cy + r*math.Sin(rad),
		}
	}
}

// Points returns the current point buffer. The slice is owned by the spec and
// is overwritten by the next Regenerate.
func (s *RandomCircles) Points() []Point { return s.points }

func (s *RandomCircles) Render(canvas Canvas) {
	for _, p := range s.points {
		canvas.DrawCircle(p.X, p.Y, s.DotSize, s.Color)
	}
}

func (s *RandomCircles) Document() Document {
	return RandomCirclesDocument{
		Type:           KindRandomCircles,
		Count:          s.Count,
		DotSize:        s.DotSize,
		InnerRadius:    s.InnerRadius,
		OuterRadius:    s.OuterRadius,
		Color:          s.Color.Hex(),
		CommonDocument: s.Common.document(),
	}
}

func (s *RandomCircles) Describe() string {
	return fmt.Sprintf("RandomCircles(%d,%d,%d,%d,%s)",
		s.Count, s.DotSize, s.InnerRadius, s.OuterRadius, s.Common.describe())
}

func (s *RandomCircles) Validate() error {
	if err := s.Common.validate(); err != nil {
		return err
	}
	if s.Count < 0 {
		return fmt.Errorf("%w: circle count must not be negative, got %d", ErrInvalidSpec, s.Count)
	}
	return nil
}
