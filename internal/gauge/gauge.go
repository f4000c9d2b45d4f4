// Package gauge maps pack voltage to a state-of-charge percentage.
package gauge

import (
	"fmt"
	"math"
)

// FuelGauge converts a pack voltage in millivolts to a percentage in [0, 100].
type FuelGauge interface {
	Percentage(mV uint16) uint8
}

// Linear is a straight-line gauge between MinMV (0%) and MaxMV (100%).
type Linear struct {
	MinMV uint16
	MaxMV uint16
}

// Percentage implements FuelGauge.
func (g Linear) Percentage(mV uint16) uint8 {
	if mV <= g.MinMV {
		return 0
	}
	if mV >= g.MaxMV {
		return 100
	}
	return uint8(uint32(mV-g.MinMV) * 100 / uint32(g.MaxMV-g.MinMV))
}

// Sigmoidal follows the flat middle and steep ends of a lead-acid or
// lithium discharge curve.
type Sigmoidal struct {
	MinMV uint16
	MaxMV uint16
}

// Percentage implements FuelGauge.
func (g Sigmoidal) Percentage(mV uint16) uint8 {
	if mV <= g.MinMV {
		return 0
	}
	if mV >= g.MaxMV {
		return 100
	}
	x := float64(mV-g.MinMV) / float64(g.MaxMV-g.MinMV)
	p := 105 - 105/(1+math.Pow(1.724*x, 5.5))
	if p >= 100 {
		return 100
	}
	return uint8(p)
}

// New returns the gauge for the named curve ("linear" or "sigmoidal").
func New(curve string, minMV, maxMV uint16) (FuelGauge, error) {
	if minMV >= maxMV {
		return nil, fmt.Errorf("gauge range %d..%d mV is empty", minMV, maxMV)
	}
	switch curve {
	case "linear", "":
		return Linear{MinMV: minMV, MaxMV: maxMV}, nil
	case "sigmoidal":
		return Sigmoidal{MinMV: minMV, MaxMV: maxMV}, nil
	default:
		return nil, fmt.Errorf("unknown gauge curve %q", curve)
	}
}
