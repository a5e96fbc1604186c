package stimulus

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Test Helpers --

type drawCall struct {
	op    string
	text  string
	x, y  float64
	size  int
	color Color
}

// recordingCanvas captures draw commands on an 800x800 canvas.
type recordingCanvas struct {
	calls []drawCall
}

func (c *recordingCanvas) Size() (int, int) { return 800, 800 }

func (c *recordingCanvas) DrawText(text string, x, y, size int, col Color) {
	c.calls = append(c.calls, drawCall{op: "text", text: text, x: float64(x), y: float64(y), size: size, color: col})
}

func (c *recordingCanvas) DrawCircle(x, y float64, radius int, col Color) {
	c.calls = append(c.calls, drawCall{op: "circle", x: x, y: y, size: radius, color: col})
}

// -- Test Cases --

func TestConstructorDefaults(t *testing.T) {
	t.Run("fixing holds its state once per repetition", func(t *testing.T) {
		s := NewFixing()
		assert.Equal(t, "+", s.Sign)
		assert.Equal(t, 70, s.FontSize)
		assert.Equal(t, 400, s.CenterX)
		assert.Equal(t, 400, s.CenterY)
		assert.Equal(t, 60, s.FrameRate)
		assert.Equal(t, KeyEnter, s.SkipKey)
		assert.False(t, s.RegenerateEveryFrame)
	})

	t.Run("random circles regenerate every frame", func(t *testing.T) {
		s := NewRandomCircles()
		assert.Equal(t, 100, s.Count)
		assert.Equal(t, 200, s.OuterRadius)
		assert.True(t, s.RegenerateEveryFrame)
	})

	t.Run("colored words pick once", func(t *testing.T) {
		s := NewColoredWords()
		assert.Equal(t, 20, s.FontSize)
		assert.False(t, s.RegenerateEveryFrame)
		assert.Equal(t, RayWhite, s.Background)
	})
}

func TestRandomCirclesRegenerate(t *testing.T) {
	t.Run("degenerate ring collapses to the inner radius", func(t *testing.T) {
		s := NewRandomCircles()
		s.Count, s.InnerRadius, s.OuterRadius = 3, 10, 10
		canvas := &recordingCanvas{}
		s.Regenerate(rand.New(rand.NewSource(42)), canvas)

		require.Len(t, s.Points(), 3)
		for _, p := range s.Points() {
			assert.InDelta(t, 10.0, math.Hypot(p.X-400, p.Y-400), 1e-9)
		}
	})

	t.Run("outer radius below inner radius is not an error", func(t *testing.T) {
		s := NewRandomCircles()
		s.Count, s.InnerRadius, s.OuterRadius = 5, 50, 20
		s.Regenerate(rand.New(rand.NewSource(1)), &recordingCanvas{})
		for _, p := range s.Points() {
			assert.InDelta(t, 50.0, math.Hypot(p.X-400, p.Y-400), 1e-9)
		}
	})

	t.Run("radius stays within the ring", func(t *testing.T) {
		s := NewRandomCircles()
		s.Regenerate(rand.New(rand.NewSource(7)), &recordingCanvas{})
		for _, p := range s.Points() {
			r := math.Hypot(p.X-400, p.Y-400)
			assert.GreaterOrEqual(t, r, 100.0-1e-9)
			assert.Less(t, r, 200.0)
		}
	})

	t.Run("buffer is reused while the count is unchanged", func(t *testing.T) {
		s := NewRandomCircles()
		rng := rand.New(rand.NewSource(3))
		s.Regenerate(rng, &recordingCanvas{})
		first := &s.Points()[0]
		before := s.Points()[0]

		s.Regenerate(rng, &recordingCanvas{})
		assert.Same(t, first, &s.Points()[0])
		assert.NotEqual(t, before, s.Points()[0], "positions should be redrawn")

		s.Count = 10
		s.Regenerate(rng, &recordingCanvas{})
		assert.Len(t, s.Points(), 10)
	})

	t.Run("same seed gives the same points", func(t *testing.T) {
		a, b := NewRandomCircles(), NewRandomCircles()
		a.Regenerate(rand.New(rand.NewSource(99)), &recordingCanvas{})
		b.Regenerate(rand.New(rand.NewSource(99)), &recordingCanvas{})
		assert.Equal(t, a.Points(), b.Points())
	})

	t.Run("render draws one circle per point without touching state", func(t *testing.T) {
		s := NewRandomCircles()
		s.Count = 4
		s.Regenerate(rand.New(rand.NewSource(5)), &recordingCanvas{})
		snapshot := append([]Point(nil), s.Points()...)

		canvas := &recordingCanvas{}
		s.Render(canvas)
		s.Render(canvas)
		assert.Len(t, canvas.calls, 8)
		assert.Equal(t, snapshot, s.Points())
		assert.Equal(t, "circle", canvas.calls[0].op)
		assert.Equal(t, 5, canvas.calls[0].size)
	})
}

func TestColoredWordsRegenerate(t *testing.T) {
	s := NewColoredWords()
	rng := rand.New(rand.NewSource(11))
	seenClash, seenMatch := false, false
	for i := 0; i < 2000; i++ {
		s.Regenerate(rng, nil)
		require.GreaterOrEqual(t, s.WordIndex, 0)
		require.Less(t, s.WordIndex, len(Palette()))
		require.Less(t, s.ColorIndex, len(Palette()))
		if s.WordIndex == s.ColorIndex {
			seenMatch = true
		} else {
			seenClash = true
		}
	}
	assert.True(t, seenClash, "word and color are drawn independently")
	assert.True(t, seenMatch, "word and color may coincide")

	canvas := &recordingCanvas{}
	s.WordIndex, s.ColorIndex = 5, 9
	s.Render(canvas)
	require.Len(t, canvas.calls, 1)
	assert.Equal(t, "Red", canvas.calls[0].text)
	assert.Equal(t, Blue, canvas.calls[0].color)
	assert.Equal(t, 400.0, canvas.calls[0].x)
}

func TestFixingRender(t *testing.T) {
	s := NewFixing()
	s.Regenerate(rand.New(rand.NewSource(0)), nil)
	canvas := &recordingCanvas{}
	s.Render(canvas)
	require.Len(t, canvas.calls, 1)
	assert.Equal(t, drawCall{op: "text", text: "+", x: 400, y: 400, size: 70, color: LightGray}, canvas.calls[0])
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Fixing(70,400,400,60,10,1,0)", NewFixing().Describe())
	assert.Equal(t, "RandomCircles(100,5,100,200,60,10,1,0)", NewRandomCircles().Describe())
	assert.Equal(t, "ColoredWords(20,60,10,1,0)", NewColoredWords().Describe())
}

func TestDocument(t *testing.T) {
	s := NewFixing()
	s.RandomSeed = 9
	doc, ok := s.Document().(FixingDocument)
	require.True(t, ok)
	assert.Equal(t, KindFixing, doc.Type)
	assert.Equal(t, KindFixing, doc.Discriminator())
	assert.Equal(t, "#c8c8c8ff", doc.Color)
	assert.Equal(t, "#f5f5f5ff", doc.Background)
	assert.Equal(t, 257, doc.SkipKey)
	assert.Equal(t, 9, doc.RandomSeed)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(s *RandomCircles)
		errMsg string
	}{
		{"valid defaults", func(s *RandomCircles) {}, ""},
		{"zero frame rate", func(s *RandomCircles) { s.FrameRate = 0 }, "frame rate must be positive"},
		{"zero duration", func(s *RandomCircles) { s.DurationSeconds = 0 }, "duration must be positive"},
		{"negative repetitions", func(s *RandomCircles) { s.RepetitionCount = -1 }, "repetition count must not be negative"},
		{"negative count", func(s *RandomCircles) { s.Count = -3 }, "circle count must not be negative"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewRandomCircles()
			tc.mutate(s)
			err := s.Validate()
			if tc.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidSpec)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestCommonCounts(t *testing.T) {
	c := DefaultCommon()
	c.DurationSeconds, c.FrameRate, c.RepetitionCount = 2, 30, 2
	assert.Equal(t, 60, c.FramesPerRepetition())
	assert.Equal(t, 3, c.Repetitions())
}

func TestBounds(t *testing.T) {
	assert.NoError(t, CheckBound(KindFixing, FieldFontSize, 1000))
	assert.Error(t, CheckBound(KindColoredWords, FieldFontSize, 101))
	assert.Error(t, CheckBound(KindRandomCircles, FieldFPS, 5))
	assert.NoError(t, CheckBound(KindRandomCircles, FieldSkipKey, 99999), "unbounded fields pass")
	assert.Len(t, Bounds(KindRandomCircles), 7)
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#ff000080")
	require.NoError(t, err)
	assert.Equal(t, Color{255, 0, 0, 128}, c)

	c, err = ParseColor("#00ff00")
	require.NoError(t, err)
	assert.Equal(t, Color{0, 255, 0, 255}, c)

	c, err = ParseColor("LightGray")
	require.NoError(t, err)
	assert.Equal(t, LightGray, c)

	_, err = ParseColor("ff0000")
	assert.Error(t, err)
	_, err = ParseColor("#zzzzzz")
	assert.Error(t, err)

	assert.Equal(t, "#e62937ff", Red.Hex())
}

func TestParseKey(t *testing.T) {
	testCases := map[string]Key{
		"enter":  KeyEnter,
		"Space":  KeySpace,
		"esc":    KeyEscape,
		"a":      Key('A'),
		"257":    KeyEnter,
		"return": KeyEnter,
	}
	for in, want := range testCases {
		got, err := ParseKey(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseKey("")
	assert.Error(t, err)
	_, err = ParseKey("nope")
	assert.Error(t, err)

	assert.Equal(t, "enter", KeyEnter.String())
	assert.Equal(t, "A", Key('A').String())
}
