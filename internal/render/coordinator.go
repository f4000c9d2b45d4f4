package render

import (
	"strings"

	"github.com/sweeney/ev-dashboard/internal/logic"
)

// Redraw is the amount of static layout a frame must rebuild before diffing.
type Redraw int

const (
	// RedrawNone draws only values that changed.
	RedrawNone Redraw = iota
	// RedrawContent clears and rebuilds the content region after a view toggle.
	RedrawContent
	// RedrawFull clears the screen and rebuilds every region after a mode change.
	RedrawFull
)

func (r Redraw) String() string {
	switch r {
	case RedrawContent:
		return "content"
	case RedrawFull:
		return "full"
	default:
		return "none"
	}
}

// Region is a bit set of display regions touched by one Render.
type Region uint16

const (
	RegionLayout Region = 1 << iota
	RegionContent
	RegionBattery
	RegionSpeed
	RegionVoltage
	RegionTemperature
	RegionCurrent
	RegionLights
	RegionWarnings
)

var regionNames = []struct {
	r    Region
	name string
}{
	{RegionLayout, "layout"},
	{RegionContent, "content"},
	{RegionBattery, "battery"},
	{RegionSpeed, "speed"},
	{RegionVoltage, "voltage"},
	{RegionTemperature, "temperature"},
	{RegionCurrent, "current"},
	{RegionLights, "lights"},
	{RegionWarnings, "warnings"},
}

// Has reports whether every bit of x is set.
func (r Region) Has(x Region) bool {
	return r&x == x
}

// Names lists the set regions in a fixed order.
func (r Region) Names() []string {
	var out []string
	for _, n := range regionNames {
		if r.Has(n.r) {
			out = append(out, n.name)
		}
	}
	return out
}

func (r Region) String() string {
	if r == 0 {
		return "none"
	}
	return strings.Join(r.Names(), ",")
}

// Frame is everything the coordinator needs for one cycle. Store must
// already hold this cycle's samples.
type Frame struct {
	State    logic.State
	Store    *logic.Store
	Warnings logic.Warnings
	Redraw   Redraw
}

// Coordinator turns store diffs into draw calls.
type Coordinator struct {
	r          Renderer
	thresholds logic.Thresholds
	limits     logic.Limits

	mode    Mode
	modeSet bool
	shown   logic.Warnings // warning lines currently on screen
	buf     numBuf
}

// NewCoordinator creates a coordinator drawing on r.
func NewCoordinator(r Renderer, th logic.Thresholds, lim logic.Limits) *Coordinator {
	return &Coordinator{r: r, thresholds: th, limits: lim}
}

// Begin turns the backlight fully on.
func (c *Coordinator) Begin() {
	c.r.SetBacklight(255)
}

// Render draws one frame and returns the regions it touched.
func (c *Coordinator) Render(f Frame) Region {
	var drawn Region
	s := f.Store

	switch f.Redraw {
	case RedrawFull:
		c.drawLayout(f.State)
		c.shown = logic.Warnings{}
		drawn |= RegionLayout | RegionContent
	case RedrawContent:
		c.fill(contentArea, Background)
		c.drawContentLayout(f.State)
		drawn |= RegionContent
	}
	relaidContent := f.Redraw != RedrawNone
	relaidAll := f.Redraw == RedrawFull

	if f.State.ShowsBatteryDetail() {
		if relaidContent || s.VoltageMV.Changed() {
			c.drawVoltage(s.VoltageMV.Current)
			drawn |= RegionVoltage
		}
		if relaidContent || s.TemperatureC.Changed() {
			c.drawTemperature(s.TemperatureC.Current)
			drawn |= RegionTemperature
		}
		if relaidContent || s.CurrentA.Changed() {
			c.drawCurrent(s.CurrentA.Current)
			drawn |= RegionCurrent
		}
	} else if relaidContent || s.SpeedMPH.Changed() {
		c.drawSpeed(s.SpeedMPH.Current)
		drawn |= RegionSpeed
	}

	if relaidAll || s.Percent.Changed() {
		c.drawBattery(s.Percent.Current, f.State.Charging())
		drawn |= RegionBattery
	}

	if c.drawLights(s, relaidAll) {
		drawn |= RegionLights
	}
	if c.drawWarnings(f.Warnings, f.State) {
		drawn |= RegionWarnings
	}

	if fl, ok := c.r.(Flusher); ok && drawn != 0 {
		fl.Flush()
	}
	return drawn
}

func (c *Coordinator) setMode(m Mode) {
	if c.modeSet && c.mode == m {
		return
	}
	c.r.SetMode(m)
	c.mode = m
	c.modeSet = true
}

func (c *Coordinator) fill(r rect, col Color) {
	c.setMode(ModeGraphics)
	c.r.FillRect(r.x, r.y, r.w, r.h, col)
}

func (c *Coordinator) outline(r rect, col Color) {
	c.setMode(ModeGraphics)
	c.r.DrawRect(r.x, r.y, r.w, r.h, col)
}

func (c *Coordinator) text(p point, s string, enlarge int, col Color) {
	c.setMode(ModeText)
	c.r.WriteText(p.x, p.y, s, enlarge, col)
}

func (c *Coordinator) drawLayout(state logic.State) {
	c.setMode(ModeGraphics)
	c.r.FillScreen(Background)

	c.outline(batteryOutline, Black)
	c.fill(batteryNub, Black)

	c.outline(warningBox, Black)
	c.text(warningCaption, "Warnings", 1, Red)

	if !state.Charging() {
		c.fill(toggleButton, Black)
	}
	c.drawContentLayout(state)
}

func (c *Coordinator) drawContentLayout(state logic.State) {
	if !state.ShowsBatteryDetail() {
		c.text(speedUnit, "mph", 3, Black)
		return
	}
	for _, b := range []bar{voltageBar, temperatureBar, currentBar} {
		c.text(b.labelAt, b.label, 1, Black)
		c.text(b.unitAt, b.unit, 1, Black)
		c.outline(b.outline, Black)
	}
}

func (c *Coordinator) drawSpeed(mph uint8) {
	if mph > c.limits.MaxSpeedMPH {
		mph = c.limits.MaxSpeedMPH
	}
	c.fill(speedErase, Background)
	c.text(speedText, c.buf.uint(uint64(mph)), 3, Black)
}

// VoltagePercent maps pack voltage onto the voltage bar, 0..100.
func VoltagePercent(mV uint16, lim logic.Limits) int {
	v := int(mV)
	if v <= lim.MinVoltageMV {
		return 0
	}
	if v >= lim.MaxVoltageMV {
		return 100
	}
	return (v - lim.MinVoltageMV) * 100 / (lim.MaxVoltageMV - lim.MinVoltageMV)
}

func (c *Coordinator) drawVoltage(mV uint16) {
	b := voltageBar
	c.fill(b.valueErase(), Background)
	c.text(b.valueAt, c.buf.uint(uint64(mV)), 1, Black)

	in := b.inner()
	w := VoltagePercent(mV, c.limits) * in.w / 100
	if w > 0 {
		c.fill(rect{in.x, in.y, w, in.h}, Green)
	}
	if w < in.w {
		c.fill(rect{in.x + w, in.y, in.w - w, in.h}, Background)
	}
}

// BarExtent scales a clamped value to signed pixels from the zero column.
func BarExtent(v, lo, hi, width int) int {
	return clamp(v, lo, hi) * width / (hi - lo)
}

func (c *Coordinator) drawCentered(b bar, value, extent int, col Color) {
	c.fill(b.valueErase(), Background)
	c.text(b.valueAt, c.buf.int(int64(value)), 1, Black)

	in := b.inner()
	c.fill(in, Background)
	extent = clamp(extent, in.x-zeroX, in.x+in.w-zeroX-1)
	switch {
	case extent < 0:
		c.fill(rect{zeroX + extent, in.y, -extent, in.h}, col)
	case extent > 0:
		c.fill(rect{zeroX + 1, in.y, extent, in.h}, col)
	}
	c.setMode(ModeGraphics)
	c.r.DrawLine(zeroX, in.y, zeroX, in.y+in.h, Black)
}

func (c *Coordinator) drawTemperature(t int16) {
	lim := c.limits
	v := clamp(int(t), lim.MinTempC, lim.MaxTempC)

	col := Green
	switch {
	case v > c.thresholds.OverheatC || v < c.thresholds.LowTemperatureC:
		col = Red
	case v < 0:
		col = Cyan
	}
	c.drawCentered(temperatureBar, v, BarExtent(v, lim.MinTempC, lim.MaxTempC, temperatureBar.inner().w), col)
}

func (c *Coordinator) drawCurrent(a int16) {
	lim := c.limits
	v := clamp(int(a), lim.MinCurrentA, lim.MaxCurrentA)
	col := Green
	if v == lim.MinCurrentA || v == lim.MaxCurrentA {
		col = Red
	}
	c.drawCentered(currentBar, v, BarExtent(v, lim.MinCurrentA, lim.MaxCurrentA, currentBar.inner().w), col)
}

func (c *Coordinator) drawBattery(pct uint8, charging bool) {
	if pct > 100 {
		pct = 100
	}
	p := int(pct)
	f := batteryFill

	if p > 0 {
		col := Green
		if !charging && pct <= c.thresholds.LowBatteryPercent {
			col = Red
		}
		c.fill(rect{f.x, f.y, p, f.h}, col)
	}
	if p < f.w {
		c.fill(rect{f.x + p, f.y, f.w - p, f.h}, Background)
	}
	if charging {
		c.setMode(ModeGraphics)
		for i := 1; i < len(chargeBolt); i++ {
			a, b := chargeBolt[i-1], chargeBolt[i]
			c.r.DrawLine(a.x, a.y, b.x, b.y, Black)
		}
	}

	c.fill(percentErase, Background)
	c.text(percentText, c.buf.percent(pct), 2, Black)
}

// drawLights repaints every indicator whose state changed, or all of them
// when force is set.
func (c *Coordinator) drawLights(s *logic.Store, force bool) bool {
	lights := []struct {
		m    logic.Measurement[bool]
		box  rect
		icon func()
	}{
		{s.Left, leftLightBox, c.drawLeftIcon},
		{s.Right, rightLightBox, c.drawRightIcon},
		{s.LowBeam, lowBeamBox, c.drawLowBeamIcon},
		{s.HighBeam, highBeamBox, c.drawHighBeamIcon},
	}

	drew := false
	for _, l := range lights {
		if !force && !l.m.Changed() {
			continue
		}
		col := Background
		if l.m.Current {
			col = Yellow
		}
		c.fill(rect{l.box.x + 1, l.box.y + 1, l.box.w - 2, l.box.h - 2}, col)
		c.outline(l.box, Black)
		l.icon()
		drew = true
	}
	return drew
}

func (c *Coordinator) drawLeftIcon() {
	c.setMode(ModeGraphics)
	c.r.FillTriangle(280, 405, 320, 385, 320, 425, Green)
}

func (c *Coordinator) drawRightIcon() {
	c.setMode(ModeGraphics)
	c.r.FillTriangle(400, 385, 400, 425, 440, 405, Green)
}

// drawLowBeamIcon draws a lamp dome with three dipped beams.
func (c *Coordinator) drawLowBeamIcon() {
	c.setMode(ModeGraphics)
	c.r.FillCurve(195, 405, 25, 20, UpperRight, Blue)
	c.r.FillCurve(195, 405, 25, 20, LowerRight, Blue)
	for _, y := range []int{385, 402, 420} {
		for i := 0; i < 5; i++ {
			c.r.DrawLine(190, y+i, 170, y+10+i, Blue)
		}
	}
}

// drawHighBeamIcon draws a lamp dome with three level beams.
func (c *Coordinator) drawHighBeamIcon() {
	c.setMode(ModeGraphics)
	c.r.FillCurve(85, 405, 25, 20, UpperRight, Blue)
	c.r.FillCurve(85, 405, 25, 20, LowerRight, Blue)
	for _, y := range []int{385, 402, 420} {
		c.r.FillRect(60, y, 20, 5, Blue)
	}
}

// drawWarnings brings the warning panel in line with the latches. Low
// battery is only shown while discharging.
func (c *Coordinator) drawWarnings(latches logic.Warnings, state logic.State) bool {
	want := latches
	if state.Charging() {
		want[logic.WarnLowBattery] = false
	}

	drew := false
	for _, k := range logic.AllWarnings {
		if want[k] == c.shown[k] {
			continue
		}
		line := warningLines[k]
		if want[k] {
			c.text(line.at, line.text, 0, Red)
		} else {
			c.fill(rect{line.at.x, line.at.y, line.erase, 20}, Background)
		}
		c.shown[k] = want[k]
		drew = true
	}
	return drew
}

// Shown returns the warning lines currently displayed.
func (c *Coordinator) Shown() logic.Warnings {
	return c.shown
}
