package display

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/stimulus-cli/internal/stimulus"
)

const (
	defaultCols = 80
	defaultRows = 24

	ansiHome       = "\x1b[H"
	ansiClear      = "\x1b[2J"
	ansiHideCursor = "\x1b[?25l"
	ansiShowCursor = "\x1b[?25h"

	dotGlyph = '●'
)

type cell struct {
	r  rune
	fg stimulus.Color
}

// Terminal paints the logical canvas onto a character grid. The logical
// coordinate space is scaled to the grid, so a canvas of width x height maps
// onto cols x rows cells.
type Terminal struct {
	in     io.Reader
	out    io.Writer
	logger *zap.Logger

	width, height int
	cols, rows    int
	bg            stimulus.Color
	grid          [][]cell

	renderer *lipgloss.Renderer
	styles   map[[2]stimulus.Color]lipgloss.Style

	limiter     *rate.Limiter
	keys        chan stimulus.Key
	onInterrupt func()

	ctx     context.Context
	cancel  context.CancelFunc
	group   *errgroup.Group
	restore func()
	once    sync.Once
}

// TerminalOption configures a Terminal.
type TerminalOption func(*Terminal)

// WithGrid fixes the character grid size instead of querying the terminal.
func WithGrid(cols, rows int) TerminalOption {
	return func(t *Terminal) {
		if cols > 0 && rows > 0 {
			t.cols, t.rows = cols, rows
		}
	}
}

// WithInterrupt sets the callback invoked when Ctrl-C is read. Raw mode stops
// the terminal from raising SIGINT, so this is the only interrupt path while
// the surface is open.
func WithInterrupt(fn func()) TerminalOption {
	return func(t *Terminal) { t.onInterrupt = fn }
}

// WithLogger sets the logger used by the key pump.
func WithLogger(logger *zap.Logger) TerminalOption {
	return func(t *Terminal) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// OpenTerminal prepares the terminal for presentation and starts reading keys
// from in. When in is a TTY it is switched to raw mode until Close.
func OpenTerminal(ctx context.Context, in io.Reader, out io.Writer, width, height int, opts ...TerminalOption) (*Terminal, error) {
	t := &Terminal{
		in:          in,
		out:         out,
		logger:      zap.NewNop(),
		width:       width,
		height:      height,
		bg:          stimulus.RayWhite,
		renderer:    lipgloss.NewRenderer(out),
		styles:      make(map[[2]stimulus.Color]lipgloss.Style),
		limiter:     rate.NewLimiter(rate.Limit(60), 1),
		keys:        make(chan stimulus.Key, 1),
		onInterrupt: func() {},
		restore:     func() {},
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.cols == 0 {
		t.cols, t.rows = defaultCols, defaultRows
		if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			if w, h, err := term.GetSize(int(f.Fd())); err == nil && w > 0 && h > 1 {
				t.cols, t.rows = w, h-1
			}
		}
	}
	t.grid = make([][]cell, t.rows)
	for i := range t.grid {
		t.grid[i] = make([]cell, t.cols)
	}

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		state, err := term.MakeRaw(int(f.Fd()))
		if err != nil {
			return nil, err
		}
		fd := int(f.Fd())
		t.restore = func() { _ = term.Restore(fd, state) }
	}

	t.ctx, t.cancel = context.WithCancel(ctx)
	t.group, t.ctx = errgroup.WithContext(t.ctx)
	t.group.Go(t.pump)

	_, _ = io.WriteString(t.out, ansiClear+ansiHideCursor)
	return t, nil
}

func (t *Terminal) pump() error {
	buf := make([]byte, 32)
	for {
		n, err := t.in.Read(buf)
		for _, key := range decodeKeys(buf[:n]) {
			if key == keyInterrupt {
				t.logger.Info("Interrupt received from terminal")
				t.onInterrupt()
				continue
			}
			select {
			case t.keys <- key:
			default:
				t.logger.Debug("Dropping key, previous key not yet polled", zap.Stringer("key", key))
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return err
		}
		if t.ctx.Err() != nil {
			return nil
		}
	}
}

// keyInterrupt is a sentinel for Ctrl-C. It is never delivered through PollKey.
const keyInterrupt stimulus.Key = -1

// decodeKeys maps raw terminal input to key codes. Escape sequences for the
// arrow keys are recognised, and a lone ESC byte is the Escape key.
func decodeKeys(b []byte) []stimulus.Key {
	var keys []stimulus.Key
	for i := 0; i < len(b); i++ {
		c := b[i]
		switch {
		case c == 0x03:
			keys = append(keys, keyInterrupt)
		case c == 0x1b:
			if i+2 < len(b) && b[i+1] == '[' {
				switch b[i+2] {
				case 'A':
					keys = append(keys, stimulus.KeyUp)
				case 'B':
					keys = append(keys, stimulus.KeyDown)
				case 'C':
					keys = append(keys, stimulus.KeyRight)
				case 'D':
					keys = append(keys, stimulus.KeyLeft)
				}
				i += 2
				continue
			}
			keys = append(keys, stimulus.KeyEscape)
		case c == '\r' || c == '\n':
			keys = append(keys, stimulus.KeyEnter)
		case c == '\t':
			keys = append(keys, stimulus.KeyTab)
		case c == 0x7f || c == 0x08:
			keys = append(keys, stimulus.KeyBackspace)
		case c >= 'a' && c <= 'z':
			keys = append(keys, stimulus.Key(c-'a'+'A'))
		case c >= 0x20 && c < 0x7f:
			keys = append(keys, stimulus.Key(c))
		}
	}
	return keys
}

func (t *Terminal) Size() (int, int) { return t.width, t.height }

func (t *Terminal) toCell(x, y float64) (col, row int, ok bool) {
	if t.width <= 0 || t.height <= 0 || x < 0 || y < 0 {
		return 0, 0, false
	}
	col = int(x * float64(t.cols) / float64(t.width))
	row = int(y * float64(t.rows) / float64(t.height))
	ok = col >= 0 && col < t.cols && row >= 0 && row < t.rows
	return col, row, ok
}

func (t *Terminal) Clear(c stimulus.Color) {
	t.bg = c
	for _, row := range t.grid {
		for i := range row {
			row[i] = cell{}
		}
	}
}

// DrawText writes text starting at the cell that contains (x, y). The font
// size has no effect on a character grid.
func (t *Terminal) DrawText(text string, x, y, _ int, c stimulus.Color) {
	col, row, ok := t.toCell(float64(x), float64(y))
	if !ok {
		return
	}
	for _, r := range text {
		if col >= t.cols {
			break
		}
		t.grid[row][col] = cell{r: r, fg: c}
		col++
	}
}

func (t *Terminal) DrawCircle(x, y float64, _ int, c stimulus.Color) {
	col, row, ok := t.toCell(x, y)
	if !ok {
		return
	}
	t.grid[row][col] = cell{r: dotGlyph, fg: c}
}

func (t *Terminal) PollKey() (stimulus.Key, bool) {
	select {
	case k := <-t.keys:
		return k, true
	default:
		return 0, false
	}
}

func (t *Terminal) Now() time.Time { return time.Now() }

func (t *Terminal) SetFrameRate(fps int) {
	if fps > 0 {
		t.limiter.SetLimit(rate.Limit(fps))
	}
}

// EndFrame paints the grid and waits for the next frame slot.
func (t *Terminal) EndFrame() {
	_, _ = io.WriteString(t.out, t.frame())
	_ = t.limiter.Wait(t.ctx)
}

func (t *Terminal) style(fg stimulus.Color) lipgloss.Style {
	key := [2]stimulus.Color{fg, t.bg}
	if s, ok := t.styles[key]; ok {
		return s
	}
	s := t.renderer.NewStyle().
		Foreground(lipgloss.Color(fg.Hex()[:7])).
		Background(lipgloss.Color(t.bg.Hex()[:7]))
	t.styles[key] = s
	return s
}

// frame renders the grid, grouping runs of cells that share a style.
func (t *Terminal) frame() string {
	var sb strings.Builder
	sb.WriteString(ansiHome)
	for i, row := range t.grid {
		if i > 0 {
			sb.WriteString("\r\n")
		}
		var run strings.Builder
		runFg := stimulus.Color{}
		flush := func() {
			if run.Len() > 0 {
				sb.WriteString(t.style(runFg).Render(run.String()))
				run.Reset()
			}
		}
		for _, c := range row {
			r, fg := c.r, c.fg
			if r == 0 {
				r, fg = ' ', t.bg
			}
			if fg != runFg {
				flush()
				runFg = fg
			}
			run.WriteRune(r)
		}
		flush()
	}
	return sb.String()
}

// Close stops the key pump and restores the terminal. It does not wait for the
// pump, which may be blocked in Read until the input is closed. Use Wait for
// that.
func (t *Terminal) Close() error {
	t.once.Do(func() {
		t.cancel()
		t.restore()
		_, _ = io.WriteString(t.out, ansiShowCursor+"\r\n")
	})
	return nil
}

// Wait blocks until the key pump has exited.
func (t *Terminal) Wait() error {
	return t.group.Wait()
}
