package adc

import "sync"

// FakeReader returns scripted battery samples for testing.
type FakeReader struct {
	mu      sync.Mutex
	samples []Battery
	errs    []error
	index   int
	closed  bool
}

// NewFakeReader creates a FakeReader that returns the given samples in order.
// After the last sample, it keeps returning the last one.
func NewFakeReader(samples ...Battery) *FakeReader {
	return &FakeReader{samples: samples}
}

// FailAt makes the read at index (0-based) return err alongside its sample.
func (f *FakeReader) FailAt(index int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.errs) <= index {
		f.errs = append(f.errs, nil)
	}
	f.errs[index] = err
}

// ReadBattery returns the next scripted sample.
func (f *FakeReader) ReadBattery() (Battery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var err error
	if f.index < len(f.errs) {
		err = f.errs[f.index]
	}
	if len(f.samples) == 0 {
		f.index++
		return Battery{}, err
	}
	i := f.index
	if i >= len(f.samples) {
		i = len(f.samples) - 1
	}
	f.index++
	return f.samples[i], err
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *FakeReader) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
