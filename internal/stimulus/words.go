package stimulus

import (
	"fmt"
	"math/rand"
)

// WordColor pairs a color word with the color it names.
type WordColor struct {
	Word  string
	Color Color
}

var palette = []WordColor{
	{"Gray", Gray},
	{"Yellow", Yellow},
	{"Gold", Gold},
	{"Orange", Orange},
	{"Pink", Pink},
	{"Red", Red},
	{"Maroon", Maroon},
	{"Green", Green},
	{"Lime", Lime},
	{"Blue", Blue},
	{"Purple", Purple},
	{"Violet", Violet},
	{"Beige", Beige},
	{"Brown", Brown},
	{"White", White},
	{"Black", Black},
	{"Magenta", Magenta},
}

// Palette returns a copy of the fixed word/color palette.
func Palette() []WordColor {
	out := make([]WordColor, len(palette))
	copy(out, palette)
	return out
}

// ColoredWords shows one color word drawn in a color picked independently of
// the word, so the two may match or clash.
type ColoredWords struct {
	Common
	FontSize int

	WordIndex  int
	ColorIndex int
}

// NewColoredWords returns a ColoredWords spec with the editor defaults. The
// word is picked once per repetition.
func NewColoredWords() *ColoredWords {
	return &ColoredWords{
		Common:   DefaultCommon(),
		FontSize: 20,
	}
}

func (s *ColoredWords) Kind() Kind      { return KindColoredWords }
func (s *ColoredWords) Params() *Common { return &s.Common }
func (s *ColoredWords) sealed()         {}

func (s *ColoredWords) Regenerate(rng *rand.Rand, _ Canvas) {
	s.WordIndex = rng.Intn(len(palette))
	s.ColorIndex = rng.Intn(len(palette))
}

// Current returns the word and the color it is displayed in.
func (s *ColoredWords) Current() (word string, c Color) {
	return palette[s.WordIndex%len(palette)].Word, palette[s.ColorIndex%len(palette)].Color
}

func (s *ColoredWords) Render(canvas Canvas) {
	word, c := s.Current()
	w, h := canvas.Size()
	canvas.DrawText(word, w/2, h/2, s.FontSize, c)
}

func (s *ColoredWords) Document() Document {
	return ColoredWordsDocument{
		Type:           KindColoredWords,
		FontSize:       s.FontSize,
		CommonDocument: s.Common.document(),
	}
}

func (s *ColoredWords) Describe() string {
	return fmt.Sprintf("ColoredWords(%d,%s)", s.FontSize, s.Common.describe())
}

func (s *ColoredWords) Validate() error {
	if err := s.Common.validate(); err != nil {
		return err
	}
	if s.FontSize <= 0 {
		return fmt.Errorf("%w: font size must be positive, got %d", ErrInvalidSpec, s.FontSize)
	}
	return nil
}
