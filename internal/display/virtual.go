// Package display provides rendering surfaces for the presentation scheduler:
// a headless virtual surface with a deterministic clock and a terminal surface
// that paints the canvas onto the controlling TTY.
package display

import (
	"time"

	"github.com/xkilldash9x/stimulus-cli/internal/stimulus"
)

// Epoch is the virtual clock's start time.
var Epoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Command is one recorded draw call.
type Command struct {
	Op    string // "text" or "circle"
	Text  string
	X, Y  float64
	Size  int
	Color stimulus.Color
}

// Frame is the content of one presented frame.
type Frame struct {
	Number     int
	Background stimulus.Color
	Commands   []Command
}

// Virtual is a headless surface. Its clock advances by exactly one frame
// interval per EndFrame and key presses are scripted by frame number.
type Virtual struct {
	width, height int
	interval      time.Duration
	clock         time.Time
	presented     int
	keys          map[int]stimulus.Key
	record        bool

	pending Frame
	frames  []Frame
}

// VirtualOption configures a Virtual surface.
type VirtualOption func(*Virtual)

// WithKeys scripts key presses. Keys are indexed by absolute frame number,
// counting from 1 across every repetition of every run on the surface.
func WithKeys(keys map[int]stimulus.Key) VirtualOption {
	return func(v *Virtual) {
		for frame, key := range keys {
			v.keys[frame] = key
		}
	}
}

// WithoutRecording stops the surface from keeping draw commands.
func WithoutRecording() VirtualOption {
	return func(v *Virtual) { v.record = false }
}

// NewVirtual returns a virtual surface of the given logical size.
func NewVirtual(width, height int, opts ...VirtualOption) *Virtual {
	v := &Virtual{
		width:    width,
		height:   height,
		interval: time.Second / 60,
		clock:    Epoch,
		keys:     make(map[int]stimulus.Key),
		record:   true,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// PressAt scripts key to be reported while frame is being drawn.
func (v *Virtual) PressAt(frame int, key stimulus.Key) *Virtual {
	v.keys[frame] = key
	return v
}

func (v *Virtual) Size() (int, int) { return v.width, v.height }

func (v *Virtual) Clear(c stimulus.Color) {
	v.pending = Frame{Number: v.presented + 1, Background: c}
}

func (v *Virtual) DrawText(text string, x, y, size int, c stimulus.Color) {
	if !v.record {
		return
	}
	v.pending.Commands = append(v.pending.Commands, Command{
		Op: "text", Text: text, X: float64(x), Y: float64(y), Size: size, Color: c,
	})
}

func (v *Virtual) DrawCircle(x, y float64, radius int, c stimulus.Color) {
	if !v.record {
		return
	}
	v.pending.Commands = append(v.pending.Commands, Command{
		Op: "circle", X: x, Y: y, Size: radius, Color: c,
	})
}

func (v *Virtual) PollKey() (stimulus.Key, bool) {
	frame := v.presented + 1
	key, ok := v.keys[frame]
	if ok {
		delete(v.keys, frame)
	}
	return key, ok
}

func (v *Virtual) Now() time.Time { return v.clock }

func (v *Virtual) SetFrameRate(fps int) {
	if fps > 0 {
		v.interval = time.Second / time.Duration(fps)
	}
}

func (v *Virtual) EndFrame() {
	v.presented++
	if v.record {
		v.frames = append(v.frames, v.pending)
	}
	v.pending = Frame{Number: v.presented + 1}
	v.clock = v.clock.Add(v.interval)
}

// Presented returns the number of frames presented so far.
func (v *Virtual) Presented() int { return v.presented }

// Frames returns the recorded frames in presentation order.
func (v *Virtual) Frames() []Frame { return v.frames }
