// Package logic contains the pure state of the instrument cluster: measurement
// snapshots, warning latches and the display mode machine.
// This package has NO external dependencies (no GPIO, display, MQTT or clock).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// State is the display state of the cluster.
type State string

const (
	StateDischargingSpeed   State = "DISCHARGING_SPEED"
	StateDischargingBattery State = "DISCHARGING_BATTERY"
	StateCharging           State = "CHARGING"
)

// Charging reports whether the state belongs to the charging mode.
func (s State) Charging() bool {
	return s == StateCharging
}

// ShowsBatteryDetail reports whether the content region holds the
// voltage/temperature/current trio rather than the speed readout.
func (s State) ShowsBatteryDetail() bool {
	return s != StateDischargingSpeed
}

// WarningKind identifies one warning latch.
type WarningKind int

const (
	WarnLowBattery WarningKind = iota
	WarnOverheat
	WarnLowTemperature
	WarnImbalance

	NumWarnings = 4
)

// AllWarnings lists the warning kinds in display order.
var AllWarnings = [NumWarnings]WarningKind{WarnLowBattery, WarnOverheat, WarnLowTemperature, WarnImbalance}

func (k WarningKind) String() string {
	switch k {
	case WarnLowBattery:
		return "LOW_BATTERY"
	case WarnOverheat:
		return "BATTERY_OVERHEAT"
	case WarnLowTemperature:
		return "BATTERY_LOW_TEMPERATURE"
	case WarnImbalance:
		return "BATTERY_IMBALANCE"
	default:
		return "UNKNOWN"
	}
}

// Warnings holds one latch per WarningKind.
type Warnings [NumWarnings]bool

// Any reports whether at least one latch is set.
func (w Warnings) Any() bool {
	for _, on := range w {
		if on {
			return true
		}
	}
	return false
}

// EventType is a notable change produced by the engine.
type EventType string

const (
	EventWarningOn  EventType = "WARNING_ON"
	EventWarningOff EventType = "WARNING_OFF"
	EventCharging   EventType = "CHARGING"
	EventDischarge  EventType = "DISCHARGING"
	EventViewSpeed  EventType = "VIEW_SPEED"
	EventViewDetail EventType = "VIEW_BATTERY"
)

// Event is a transition to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	State     State
	Warning   WarningKind // only meaningful for warning events
}

// Thresholds are the warning trigger levels.
type Thresholds struct {
	LowBatteryPercent uint8 // LowBattery while percentage <= this
	OverheatC         int   // Overheat while temperature > this
	LowTemperatureC   int   // LowTemperature while temperature < this
}

// DefaultThresholds returns the stock trigger levels.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LowBatteryPercent: 20,
		OverheatC:         60,
		LowTemperatureC:   -20,
	}
}

// Limits are the displayable range of each gauge.
type Limits struct {
	MinVoltageMV int
	MaxVoltageMV int
	MinTempC     int
	MaxTempC     int
	MinCurrentA  int
	MaxCurrentA  int
	MaxSpeedMPH  uint8
}

// DefaultLimits returns the stock gauge ranges.
func DefaultLimits() Limits {
	return Limits{
		MinVoltageMV: 9000,
		MaxVoltageMV: 12000,
		MinTempC:     -100,
		MaxTempC:     100,
		MinCurrentA:  -50,
		MaxCurrentA:  50,
		MaxSpeedMPH:  120,
	}
}
