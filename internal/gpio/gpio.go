// Package gpio provides the cluster's digital inputs with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "github.com/sweeney/ev-dashboard/internal/logic"

// Reader reads the level-sensed digital inputs.
type Reader interface {
	// ReadLights returns the four indicator inputs. Active high = ON.
	ReadLights() (logic.Lights, error)

	// ReadCharging returns the charge-detect input. Active high = charging.
	ReadCharging() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Pins are line offsets on the GPIO chip (BCM numbering on a Pi).
type Pins struct {
	Left     int
	Right    int
	LowBeam  int
	HighBeam int
	Charge   int
	Speed    int
}

// DefaultPins returns the stock wiring.
func DefaultPins() Pins {
	return Pins{
		Left:     5,
		Right:    6,
		LowBeam:  13,
		HighBeam: 19,
		Charge:   22,
		Speed:    17,
	}
}
