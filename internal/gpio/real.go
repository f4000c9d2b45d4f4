//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"io"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/ev-dashboard/internal/logic"
)

// RealReader reads inputs from actual hardware using the Linux GPIO character device.
type RealReader struct {
	chip   *gpiocdev.Chip
	lights *gpiocdev.Lines
	charge *gpiocdev.Line
}

// NewRealReader requests the indicator and charge-detect lines as inputs.
func NewRealReader(chipName string, pins Pins) (*RealReader, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	// Indicator inputs are driven by the lamp circuits; pull down so a
	// disconnected lamp reads OFF.
	lights, err := chip.RequestLines(
		[]int{pins.Left, pins.Right, pins.LowBeam, pins.HighBeam},
		gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request light pins: %w", err)
	}

	charge, err := chip.RequestLine(pins.Charge, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		lights.Close()
		chip.Close()
		return nil, fmt.Errorf("request charge pin %d: %w", pins.Charge, err)
	}

	return &RealReader{chip: chip, lights: lights, charge: charge}, nil
}

// ReadLights returns the indicator states.
func (r *RealReader) ReadLights() (logic.Lights, error) {
	vals := make([]int, 4)
	if err := r.lights.Values(vals); err != nil {
		return logic.Lights{}, fmt.Errorf("read light pins: %w", err)
	}
	return logic.Lights{
		Left:     vals[0] == 1,
		Right:    vals[1] == 1,
		LowBeam:  vals[2] == 1,
		HighBeam: vals[3] == 1,
	}, nil
}

// ReadCharging returns true while the charger holds the sense line high.
func (r *RealReader) ReadCharging() (bool, error) {
	v, err := r.charge.Value()
	if err != nil {
		return false, fmt.Errorf("read charge pin: %w", err)
	}
	return v == 1, nil
}

// Close reconfigures the lines to plain pulled-down inputs and releases them.
func (r *RealReader) Close() error {
	var errs []error
	if r.lights != nil {
		if err := r.lights.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure light pins: %w", err))
		}
		if err := r.lights.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close light pins: %w", err))
		}
	}
	if r.charge != nil {
		if err := r.charge.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure charge pin: %w", err))
		}
		if err := r.charge.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close charge pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	return errors.Join(errs...)
}

// WatchEdges calls onEdge from the gpiocdev event goroutine on every rising
// edge of the given line. Closing the result stops the watch.
func WatchEdges(chipName string, offset int, onEdge func()) (io.Closer, error) {
	l, err := gpiocdev.RequestLine(chipName, offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) { onEdge() }))
	if err != nil {
		return nil, fmt.Errorf("watch speed pin %d: %w", offset, err)
	}
	return l, nil
}
