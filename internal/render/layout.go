package render

import "github.com/sweeney/ev-dashboard/internal/logic"

// Panel size in logical pixels.
const (
	ScreenWidth  = 800
	ScreenHeight = 480
)

// Background is the fill used to erase.
const Background = White

type rect struct{ x, y, w, h int }

type point struct{ x, y int }

// Content region: speed readout or the battery detail trio.
var contentArea = rect{0, 75, 570, 250}

// Battery gauge, top right.
var (
	batteryOutline = rect{578, 10, 102, 50}
	batteryNub     = rect{680, 20, 10, 30}
	batteryFill    = rect{579, 11, 100, 48}
	percentErase   = rect{700, 10, 100, 50}
	percentText    = point{700, 10}
	chargeBolt     = [...]point{{629, 15}, {624, 35}, {634, 35}, {629, 55}}
)

// Mode toggle button, shown while discharging.
var toggleButton = rect{0, 0, 50, 50}

// Speed readout.
var (
	speedErase = rect{300, 200, 120, 60}
	speedText  = point{300, 200}
	speedUnit  = point{420, 200}
)

// bar is one horizontal bar gauge with its numeric readout.
type bar struct {
	label     string
	labelAt   point
	unit      string
	unitAt    point
	outline   rect
	valueAt   point
	valueWide int // width of the value erase box
}

func (b bar) inner() rect {
	return rect{b.outline.x + 1, b.outline.y + 1, b.outline.w - 2, b.outline.h - 2}
}

func (b bar) valueErase() rect {
	return rect{b.valueAt.x, b.valueAt.y, b.valueWide, 30}
}

// zeroX is the pixel column of zero on the bidirectional gauges.
const zeroX = 150

var (
	voltageBar = bar{
		label: "Battery Voltage: ", labelAt: point{50, 75},
		unit: "mV", unitAt: point{355, 116},
		outline: rect{50, 120, 202, 25},
		valueAt: point{270, 116}, valueWide: 85,
	}
	temperatureBar = bar{
		label: "Battery Temperature: ", labelAt: point{50, 150},
		unit: "C", unitAt: point{335, 191},
		outline: rect{50, 195, 202, 25},
		valueAt: point{270, 191}, valueWide: 65,
	}
	currentBar = bar{
		label: "Battery Current: ", labelAt: point{50, 225},
		unit: "A", unitAt: point{335, 266},
		outline: rect{50, 270, 202, 25},
		valueAt: point{270, 266}, valueWide: 65,
	}
)

// Light indicator boxes along the bottom.
var (
	leftLightBox  = rect{270, 370, 70, 70}
	rightLightBox = rect{380, 370, 70, 70}
	lowBeamBox    = rect{160, 370, 70, 70}
	highBeamBox   = rect{50, 370, 70, 70}
)

// Warnings panel.
var (
	warningBox     = rect{578, 150, 200, 300}
	warningCaption = point{608, 100}
)

type warningLine struct {
	text  string
	at    point
	erase int
}

var warningLines = [logic.NumWarnings]warningLine{
	logic.WarnLowBattery:     {"Low Battery", point{590, 160}, 150},
	logic.WarnOverheat:       {"Battery Overheat", point{590, 185}, 160},
	logic.WarnLowTemperature: {"Low Battery Temperature", point{590, 210}, 185},
	logic.WarnImbalance:      {"Battery Imbalance", point{590, 235}, 185},
}
