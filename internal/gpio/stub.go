//go:build !linux

package gpio

import (
	"errors"
	"io"

	"github.com/sweeney/ev-dashboard/internal/logic"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealReader is not available on non-Linux platforms.
type RealReader struct{}

// NewRealReader returns an error on non-Linux platforms.
func NewRealReader(string, Pins) (*RealReader, error) {
	return nil, errUnsupported
}

// ReadLights is not implemented on non-Linux platforms.
func (r *RealReader) ReadLights() (logic.Lights, error) {
	return logic.Lights{}, errUnsupported
}

// ReadCharging is not implemented on non-Linux platforms.
func (r *RealReader) ReadCharging() (bool, error) {
	return false, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (r *RealReader) Close() error {
	return nil
}

// WatchEdges returns an error on non-Linux platforms.
func WatchEdges(string, int, func()) (io.Closer, error) {
	return nil, errUnsupported
}
