package render

import (
	"sync"

	"github.com/gdamore/tcell/v2"
)

// TouchResolution is the full-scale raw coordinate reported by the touch
// controller on both axes.
const TouchResolution = 1024

// Touch is one raw touch sample in controller coordinates.
type Touch struct {
	X, Y int
}

// Terminal draws the panel on a character terminal, scaling the 800x480
// logical panel onto the screen's cells. Mouse clicks stand in for the
// touch controller.
type Terminal struct {
	screen tcell.Screen

	mu        sync.Mutex
	backlight uint8

	touches  chan Touch
	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}
}

// NewTerminal prepares an initialised screen and starts reading its input
// events.
func NewTerminal(screen tcell.Screen) *Terminal {
	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorWhite).Foreground(tcell.ColorBlack))
	screen.EnableMouse()
	screen.HideCursor()

	t := &Terminal{
		screen:  screen,
		touches: make(chan Touch, 8),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go t.handleEvents()
	return t
}

// OpenTerminal creates and initialises the process terminal screen.
func OpenTerminal() (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	return NewTerminal(screen), nil
}

func (t *Terminal) handleEvents() {
	defer close(t.done)
	for {
		ev := t.screen.PollEvent()
		switch ev := ev.(type) {
		case nil:
			return
		case *tcell.EventResize:
			t.screen.Sync()
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
				(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
				t.quitOnce.Do(func() { close(t.quit) })
			}
		case *tcell.EventMouse:
			// Button1 is Left Mouse Button
			if ev.Buttons() == tcell.Button1 {
				x, y := ev.Position()
				px, py := t.toPixel(x, y)
				select {
				case t.touches <- Touch{X: px * TouchResolution / ScreenWidth, Y: py * TouchResolution / ScreenHeight}:
				default:
				}
			}
		}
	}
}

// Poll returns the oldest pending touch, if any.
func (t *Terminal) Poll() (Touch, bool) {
	select {
	case tc := <-t.touches:
		return tc, true
	default:
		return Touch{}, false
	}
}

// Quit is closed when the user asks to leave (q, Esc or Ctrl-C).
func (t *Terminal) Quit() <-chan struct{} {
	return t.quit
}

// Close restores the terminal.
func (t *Terminal) Close() error {
	t.screen.Fini()
	<-t.done
	return nil
}

func (t *Terminal) toCell(px, py int) (int, int) {
	w, h := t.screen.Size()
	return px * w / ScreenWidth, py * h / ScreenHeight
}

func (t *Terminal) toPixel(cx, cy int) (int, int) {
	w, h := t.screen.Size()
	if w == 0 || h == 0 {
		return 0, 0
	}
	return cx * ScreenWidth / w, cy * ScreenHeight / h
}

func tcellColor(c Color) tcell.Color {
	r, g, b := c.RGB()
	return tcell.NewRGBColor(r, g, b)
}

func (t *Terminal) paint(cx, cy int, c Color) {
	w, h := t.screen.Size()
	if cx < 0 || cy < 0 || cx >= w || cy >= h {
		return
	}
	t.screen.SetContent(cx, cy, ' ', nil, tcell.StyleDefault.Background(tcellColor(c)))
}

// SetMode implements Renderer. A terminal has no separate text mode.
func (t *Terminal) SetMode(Mode) {}

// FillScreen implements Renderer.
func (t *Terminal) FillScreen(c Color) {
	t.screen.Fill(' ', tcell.StyleDefault.Background(tcellColor(c)))
}

// FillRect implements Renderer.
func (t *Terminal) FillRect(x, y, w, h int, c Color) {
	if w <= 0 || h <= 0 {
		return
	}
	x0, y0 := t.toCell(x, y)
	x1, y1 := t.toCell(x+w-1, y+h-1)
	for cy := y0; cy <= y1; cy++ {
		for cx := x0; cx <= x1; cx++ {
			t.paint(cx, cy, c)
		}
	}
}

// DrawRect implements Renderer.
func (t *Terminal) DrawRect(x, y, w, h int, c Color) {
	t.DrawLine(x, y, x+w-1, y, c)
	t.DrawLine(x, y+h-1, x+w-1, y+h-1, c)
	t.DrawLine(x, y, x, y+h-1, c)
	t.DrawLine(x+w-1, y, x+w-1, y+h-1, c)
}

// DrawLine implements Renderer using Bresenham's algorithm in cell space.
func (t *Terminal) DrawLine(x0, y0, x1, y1 int, c Color) {
	cx0, cy0 := t.toCell(x0, y0)
	cx1, cy1 := t.toCell(x1, y1)

	dx, sx := abs(cx1-cx0), 1
	if cx0 > cx1 {
		sx = -1
	}
	dy, sy := -abs(cy1-cy0), 1
	if cy0 > cy1 {
		sy = -1
	}
	err := dx + dy
	for {
		t.paint(cx0, cy0, c)
		if cx0 == cx1 && cy0 == cy1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			cx0 += sx
		}
		if e2 <= dx {
			err += dx
			cy0 += sy
		}
	}
}

// FillTriangle implements Renderer. Cells whose centre lies inside the
// triangle are painted.
func (t *Terminal) FillTriangle(x0, y0, x1, y1, x2, y2 int, c Color) {
	minX, maxX := min(x0, x1, x2), max(x0, x1, x2)
	minY, maxY := min(y0, y1, y2), max(y0, y1, y2)
	cx0, cy0 := t.toCell(minX, minY)
	cx1, cy1 := t.toCell(maxX, maxY)

	for cy := cy0; cy <= cy1; cy++ {
		for cx := cx0; cx <= cx1; cx++ {
			px, py := t.cellCentre(cx, cy)
			if inTriangle(px, py, x0, y0, x1, y1, x2, y2) {
				t.paint(cx, cy, c)
			}
		}
	}
	// Trace the edges too; small shapes may miss every cell centre.
	t.DrawLine(x0, y0, x1, y1, c)
	t.DrawLine(x1, y1, x2, y2, c)
	t.DrawLine(x2, y2, x0, y0, c)
}

// FillCurve implements Renderer for one quadrant of an ellipse.
func (t *Terminal) FillCurve(cx, cy, rx, ry int, q Quadrant, c Color) {
	if rx <= 0 || ry <= 0 {
		return
	}
	x0, x1 := cx-rx, cx
	if q == UpperRight || q == LowerRight {
		x0, x1 = cx, cx+rx
	}
	y0, y1 := cy, cy+ry
	if q == UpperLeft || q == UpperRight {
		y0, y1 = cy-ry, cy
	}
	ccx0, ccy0 := t.toCell(x0, y0)
	ccx1, ccy1 := t.toCell(x1, y1)
	for ccy := ccy0; ccy <= ccy1; ccy++ {
		for ccx := ccx0; ccx <= ccx1; ccx++ {
			px, py := t.cellCentre(ccx, ccy)
			px, py = clamp(px, x0, x1), clamp(py, y0, y1)
			dx, dy := px-cx, py-cy
			if dx*dx*ry*ry+dy*dy*rx*rx <= rx*rx*ry*ry {
				t.paint(ccx, ccy, c)
			}
		}
	}
}

func (t *Terminal) cellCentre(cx, cy int) (int, int) {
	w, h := t.screen.Size()
	if w == 0 || h == 0 {
		return 0, 0
	}
	return (2*cx + 1) * ScreenWidth / (2 * w), (2*cy + 1) * ScreenHeight / (2 * h)
}

// WriteText implements Renderer. Text is drawn over the existing
// background; enlarged text is bold.
func (t *Terminal) WriteText(x, y int, text string, enlarge int, c Color) {
	cx, cy := t.toCell(x, y)
	w, h := t.screen.Size()
	if cy < 0 || cy >= h {
		return
	}
	for _, r := range text {
		if cx >= w {
			return
		}
		_, _, st, _ := t.screen.GetContent(cx, cy)
		_, bg, _ := st.Decompose()
		t.screen.SetContent(cx, cy, r, nil,
			tcell.StyleDefault.Background(bg).Foreground(tcellColor(c)).Bold(enlarge > 0))
		cx++
	}
}

// SetBacklight implements Renderer. The level is only remembered.
func (t *Terminal) SetBacklight(level uint8) {
	t.mu.Lock()
	t.backlight = level
	t.mu.Unlock()
}

// Backlight returns the last level set.
func (t *Terminal) Backlight() uint8 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.backlight
}

// Flush implements Flusher.
func (t *Terminal) Flush() {
	t.screen.Show()
}

func inTriangle(px, py, x0, y0, x1, y1, x2, y2 int) bool {
	d1 := edge(px, py, x0, y0, x1, y1)
	d2 := edge(px, py, x1, y1, x2, y2)
	d3 := edge(px, py, x2, y2, x0, y0)
	neg := d1 < 0 || d2 < 0 || d3 < 0
	pos := d1 > 0 || d2 > 0 || d3 > 0
	return !(neg && pos)
}

func edge(px, py, ax, ay, bx, by int) int {
	return (px-bx)*(ay-by) - (ax-bx)*(py-by)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
