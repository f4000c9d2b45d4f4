package adc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultSysfsRoot is where the kernel IIO subsystem exposes converters.
const DefaultSysfsRoot = "/sys/bus/iio/devices"

// Channels are the IIO channel numbers of each input.
type Channels struct {
	Voltage     int
	Current     int
	Temperature int
}

// DefaultChannels returns the stock wiring.
func DefaultChannels() Channels {
	return Channels{Voltage: 0, Current: 1, Temperature: 2}
}

// SysfsReader reads raw counts from an IIO device's sysfs files.
type SysfsReader struct {
	root     string
	device   string
	channels Channels
	scale    Scale
}

// NewSysfsReader checks that every channel file exists and returns a reader.
// An empty root means DefaultSysfsRoot.
func NewSysfsReader(root, device string, ch Channels, scale Scale) (*SysfsReader, error) {
	if root == "" {
		root = DefaultSysfsRoot
	}
	r := &SysfsReader{root: root, device: device, channels: ch, scale: scale}
	for _, c := range []int{ch.Voltage, ch.Current, ch.Temperature} {
		if _, err := os.Stat(r.path(c)); err != nil {
			return nil, fmt.Errorf("ADC sysfs not found: %w", err)
		}
	}
	return r, nil
}

func (r *SysfsReader) path(channel int) string {
	return filepath.Join(r.root, r.device, fmt.Sprintf("in_voltage%d_raw", channel))
}

// ReadRaw returns the raw count of one channel.
func (r *SysfsReader) ReadRaw(channel int) (int, error) {
	p := r.path(channel)
	data, err := os.ReadFile(p)
	if err != nil {
		return 0, fmt.Errorf("failed reading %s: %w", p, err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("failed parsing ADC value from %s: %w", p, err)
	}
	if v < 0 || v >= r.scale.Resolution {
		return 0, fmt.Errorf("ADC value %d from %s outside 0..%d", v, p, r.scale.Resolution-1)
	}
	return v, nil
}

// ReadBattery samples all three channels. Channels that fail read as zero and
// their errors are joined.
func (r *SysfsReader) ReadBattery() (Battery, error) {
	var b Battery
	var errs []error

	if raw, err := r.ReadRaw(r.channels.Voltage); err != nil {
		errs = append(errs, err)
	} else {
		b.VoltageMV = r.scale.VoltageMV(raw)
	}
	if raw, err := r.ReadRaw(r.channels.Current); err != nil {
		errs = append(errs, err)
	} else {
		b.CurrentA = r.scale.CurrentA(raw)
	}
	if raw, err := r.ReadRaw(r.channels.Temperature); err != nil {
		errs = append(errs, err)
	} else {
		b.TemperatureC = r.scale.TemperatureC(raw)
	}
	return b, errors.Join(errs...)
}

// Close is a no-op; each read opens and closes its file.
func (r *SysfsReader) Close() error {
	return nil
}
