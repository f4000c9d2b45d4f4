package render

import (
	"fmt"
	"sync"
)

// Op is one recorded drawing call.
type Op struct {
	Name    string
	Args    []int
	Text    string
	Enlarge int
	Color   Color
}

func (o Op) String() string {
	if o.Text != "" {
		return fmt.Sprintf("%s%v %q x%d #%04x", o.Name, o.Args, o.Text, o.Enlarge, uint16(o.Color))
	}
	return fmt.Sprintf("%s%v #%04x", o.Name, o.Args, uint16(o.Color))
}

// Recorder is a Renderer that records calls instead of drawing. It backs the
// headless display and the tests.
type Recorder struct {
	mu        sync.Mutex
	limit     int
	ops       []Op
	mode      Mode
	backlight uint8
	flushes   int
}

// NewRecorder creates a recorder that keeps the most recent limit calls.
// A limit of 0 keeps everything.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

func (r *Recorder) add(op Op) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
	if r.limit > 0 && len(r.ops) > r.limit {
		r.ops = append(r.ops[:0], r.ops[len(r.ops)-r.limit:]...)
	}
}

// SetMode implements Renderer.
func (r *Recorder) SetMode(m Mode) {
	r.mu.Lock()
	r.mode = m
	r.mu.Unlock()
}

// FillScreen implements Renderer.
func (r *Recorder) FillScreen(c Color) {
	r.add(Op{Name: "FillScreen", Color: c})
}

// FillRect implements Renderer.
func (r *Recorder) FillRect(x, y, w, h int, c Color) {
	r.add(Op{Name: "FillRect", Args: []int{x, y, w, h}, Color: c})
}

// DrawRect implements Renderer.
func (r *Recorder) DrawRect(x, y, w, h int, c Color) {
	r.add(Op{Name: "DrawRect", Args: []int{x, y, w, h}, Color: c})
}

// DrawLine implements Renderer.
func (r *Recorder) DrawLine(x0, y0, x1, y1 int, c Color) {
	r.add(Op{Name: "DrawLine", Args: []int{x0, y0, x1, y1}, Color: c})
}

// FillTriangle implements Renderer.
func (r *Recorder) FillTriangle(x0, y0, x1, y1, x2, y2 int, c Color) {
	r.add(Op{Name: "FillTriangle", Args: []int{x0, y0, x1, y1, x2, y2}, Color: c})
}

// FillCurve implements Renderer.
func (r *Recorder) FillCurve(cx, cy, rx, ry int, q Quadrant, c Color) {
	r.add(Op{Name: "FillCurve", Args: []int{cx, cy, rx, ry, int(q)}, Color: c})
}

// WriteText implements Renderer. Text written outside text mode is recorded
// with the name "WriteText!" so tests can catch it.
func (r *Recorder) WriteText(x, y int, text string, enlarge int, c Color) {
	r.mu.Lock()
	name := "WriteText"
	if r.mode != ModeText {
		name = "WriteText!"
	}
	r.mu.Unlock()
	r.add(Op{Name: name, Args: []int{x, y}, Text: text, Enlarge: enlarge, Color: c})
}

// SetBacklight implements Renderer.
func (r *Recorder) SetBacklight(level uint8) {
	r.mu.Lock()
	r.backlight = level
	r.mu.Unlock()
}

// Flush implements Flusher.
func (r *Recorder) Flush() {
	r.mu.Lock()
	r.flushes++
	r.mu.Unlock()
}

// Ops returns a copy of the recorded calls.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Op, len(r.ops))
	copy(out, r.ops)
	return out
}

// Reset forgets recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.ops = nil
	r.mu.Unlock()
}

// Texts returns every string written, in order.
func (r *Recorder) Texts() []string {
	var out []string
	for _, op := range r.Ops() {
		if op.Text != "" {
			out = append(out, op.Text)
		}
	}
	return out
}

// Count returns the number of recorded calls with the given name.
func (r *Recorder) Count(name string) int {
	n := 0
	for _, op := range r.Ops() {
		if op.Name == name {
			n++
		}
	}
	return n
}

// Backlight returns the last backlight level set.
func (r *Recorder) Backlight() uint8 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backlight
}

// Flushes returns the number of Flush calls.
func (r *Recorder) Flushes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushes
}
