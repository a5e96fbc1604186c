package stimulus

import (
	"fmt"
	"math/rand"
)

// Fixing is a fixation sign drawn at a fixed position. It has no random state.
type Fixing struct {
	Common
	Sign     string
	FontSize int
	CenterX  int
	CenterY  int
	Color    Color
}

// NewFixing returns a Fixing spec with the editor defaults: a "+" in the
// middle of an 800x800 canvas.
func NewFixing() *Fixing {
	return &Fixing{
		Common:   DefaultCommon(),
		Sign:     "+",
		FontSize: 70,
		CenterX:  400,
		CenterY:  400,
		Color:    LightGray,
	}
}

func (s *Fixing) Kind() Kind      { return KindFixing }
func (s *Fixing) Params() *Common { return &s.Common }
func (s *Fixing) sealed()         {}

// Regenerate is a no-op: a fixation sign has nothing to randomize.
func (s *Fixing) Regenerate(*rand.Rand, Canvas) {}

func (s *Fixing) Render(canvas Canvas) {
	canvas.DrawText(s.Sign, s.CenterX, s.CenterY, s.FontSize, s.Color)
}

func (s *Fixing) Document() Document {
	return FixingDocument{
		Type:           KindFixing,
		Sign:           s.Sign,
		FontSize:       s.FontSize,
		CenterX:        s.CenterX,
		CenterY:        s.CenterY,
		Color:          s.Color.Hex(),
		CommonDocument: s.Common.document(),
	}
}

func (s *Fixing) Describe() string {
	return fmt.Sprintf("Fixing(%d,%d,%d,%s)", s.FontSize, s.CenterX, s.CenterY, s.Common.describe())
}

func (s *Fixing) Validate() error {
	if err := s.Common.validate(); err != nil {
		return err
	}
	if s.FontSize <= 0 {
		return fmt.Errorf("%w: font size must be positive, got %d", ErrInvalidSpec, s.FontSize)
	}
	return nil
}
