// Package adc samples the battery pack's analog inputs: pack voltage through
// a resistor divider, a temperature sensor and a current shunt.
package adc

// Resolution is the full-scale count of a 10-bit converter.
const Resolution = 1024

// Battery is one sample of the pack quantities, already scaled.
type Battery struct {
	VoltageMV    uint16
	CurrentA     int16
	TemperatureC int16
}

// Reader samples the pack.
type Reader interface {
	ReadBattery() (Battery, error)
	Close() error
}

// Scale describes how raw counts map to engineering units.
type Scale struct {
	Resolution int     // full-scale count, e.g. 1024
	RefMV      int     // converter reference voltage in millivolts
	Divider    float64 // voltage divider ratio in front of the voltage pin
	MinTempC   int
	MaxTempC   int
	MinCurrent int
	MaxCurrent int
}

// DefaultScale matches a 10-bit converter with a 5V reference behind a 4:1
// divider, and sensors spanning -100..100 C and -50..50 A.
func DefaultScale() Scale {
	return Scale{
		Resolution: Resolution,
		RefMV:      5000,
		Divider:    4.0,
		MinTempC:   -100,
		MaxTempC:   100,
		MinCurrent: -50,
		MaxCurrent: 50,
	}
}

// VoltageMV converts a raw voltage count to pack millivolts.
func (s Scale) VoltageMV(raw int) uint16 {
	mv := float64(raw*s.RefMV/s.Resolution) * s.Divider
	if mv <= 0 {
		return 0
	}
	if mv >= 65535 {
		return 65535
	}
	return uint16(mv)
}

// TemperatureC converts a raw temperature count to degrees Celsius.
func (s Scale) TemperatureC(raw int) int16 {
	return linear(raw, s.Resolution, s.MinTempC, s.MaxTempC)
}

// CurrentA converts a raw current count to amperes.
func (s Scale) CurrentA(raw int) int16 {
	return linear(raw, s.Resolution, s.MinCurrent, s.MaxCurrent)
}

func linear(raw, resolution, lo, hi int) int16 {
	return int16(raw*(hi-lo)/resolution + lo)
}
