// Package render decides what parts of the cluster display need redrawing
// and issues the drawing calls. Pixel work belongs to a Renderer backend.
package render

// Color is a 16-bit RGB565 colour as used by the panel controller.
type Color uint16

const (
	Black  Color = 0x0000
	Blue   Color = 0x001F
	Red    Color = 0xF800
	Green  Color = 0x07E0
	Cyan   Color = 0x07FF
	Yellow Color = 0xFFE0
	White  Color = 0xFFFF
)

// RGB expands the colour to 8 bits per channel.
func (c Color) RGB() (r, g, b int32) {
	r = int32(c>>11&0x1f) * 255 / 31
	g = int32(c>>5&0x3f) * 255 / 63
	b = int32(c&0x1f) * 255 / 31
	return r, g, b
}

// Mode is the panel controller's drawing mode. Shapes need graphics mode and
// text needs text mode.
type Mode int

const (
	ModeGraphics Mode = iota
	ModeText
)

// Quadrant selects one quarter of an ellipse for FillCurve.
type Quadrant int

const (
	LowerLeft Quadrant = iota
	UpperLeft
	UpperRight
	LowerRight
)

// Renderer is the drawing surface. Coordinates are logical pixels on an
// 800x480 panel with the origin at the top left.
type Renderer interface {
	SetMode(m Mode)
	FillScreen(c Color)
	FillRect(x, y, w, h int, c Color)
	DrawRect(x, y, w, h int, c Color)
	DrawLine(x0, y0, x1, y1 int, c Color)
	FillTriangle(x0, y0, x1, y1, x2, y2 int, c Color)
	FillCurve(cx, cy, rx, ry int, q Quadrant, c Color)
	WriteText(x, y int, text string, enlarge int, c Color)
	SetBacklight(level uint8)
}

// Flusher is implemented by renderers that buffer drawing until told to
// present it.
type Flusher interface {
	Flush()
}
