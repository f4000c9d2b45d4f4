package gpio

import (
	"errors"
	"sync"

	"github.com/sweeney/ev-dashboard/internal/logic"
)

// FakeReader is a test double that returns scripted input values.
// Lights and Charging are consumed independently; once a script runs out its
// last value repeats.
type FakeReader struct {
	mu sync.Mutex

	lights   []logic.Lights
	charging []bool
	li, ci   int

	// ReadError, if set, is returned by both reads.
	ReadError error

	closed bool
}

// NewFakeReader creates a FakeReader with the given scripts.
func NewFakeReader(lights []logic.Lights, charging []bool) *FakeReader {
	return &FakeReader{lights: lights, charging: charging}
}

// ReadLights returns the next scripted indicator sample.
func (f *FakeReader) ReadLights() (logic.Lights, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return logic.Lights{}, f.ReadError
	}
	if len(f.lights) == 0 {
		return logic.Lights{}, nil
	}
	l := f.lights[f.li]
	if f.li < len(f.lights)-1 {
		f.li++
	}
	return l, nil
}

// ReadCharging returns the next scripted charge-detect sample.
func (f *FakeReader) ReadCharging() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return false, f.ReadError
	}
	if len(f.charging) == 0 {
		return false, errors.New("no charging samples configured")
	}
	c := f.charging[f.ci]
	if f.ci < len(f.charging)-1 {
		f.ci++
	}
	return c, nil
}

// SetError sets or clears the read error.
func (f *FakeReader) SetError(err error) {
	f.mu.Lock()
	f.ReadError = err
	f.mu.Unlock()
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (f *FakeReader) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Reset rewinds both scripts.
func (f *FakeReader) Reset() {
	f.mu.Lock()
	f.li, f.ci = 0, 0
	f.closed = false
	f.mu.Unlock()
}
