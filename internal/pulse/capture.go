// Package pulse counts wheel-sensor edges between samples of the main loop.
//
// OnEdge runs in the edge-event context (an interrupt handler on the
// original hardware, the gpiocdev watcher goroutine here). Sample runs on the
// main loop. The two share one 64-bit word updated with compare-and-swap, so
// a reader never sees a count from one edge paired with the timestamp of
// another.
package pulse

import (
	"sync/atomic"
	"time"
)

const (
	stampBits = 48
	stampMask = 1<<stampBits - 1

	// MaxCount is the largest count held between two samples. Further edges
	// still move the timestamp but the count saturates.
	MaxCount = 1<<(64-stampBits) - 1
)

// Window is the result of one Sample: the pulses seen since the previous
// sample, from the previous sample instant to the last pulse, in microseconds
// since the capture epoch.
type Window struct {
	Count uint32
	Start int64
	End   int64
}

// Elapsed returns the window length in microseconds.
func (w Window) Elapsed() int64 {
	return w.End - w.Start
}

// Capture is the shared pulse counter.
type Capture struct {
	word  atomic.Uint64
	epoch time.Time
	now   func() time.Time

	// lastSample is only touched by Sample.
	lastSample int64
}

// NewCapture creates a capture whose timestamps count from now().
// If now is nil, time.Now is used.
func NewCapture(now func() time.Time) *Capture {
	if now == nil {
		now = time.Now
	}
	return &Capture{epoch: now(), now: now}
}

func (c *Capture) micros() int64 {
	us := c.now().Sub(c.epoch).Microseconds()
	if us < 0 {
		return 0
	}
	return us & stampMask
}

// OnEdge records one pulse. Safe to call from any goroutine.
func (c *Capture) OnEdge() {
	stamp := uint64(c.micros())
	for {
		old := c.word.Load()
		count := old >> stampBits
		if count < MaxCount {
			count++
		}
		if c.word.CompareAndSwap(old, count<<stampBits|stamp) {
			return
		}
	}
}

// Sample atomically takes the pulse count and resets it to zero.
// The window starts at the previous sample instant (the capture epoch for
// the first call) and ends at the last recorded pulse, or at the sample
// instant when no pulse arrived.
// Sample must only be called from one goroutine.
func (c *Capture) Sample() Window {
	now := c.micros()
	var old uint64
	for {
		old = c.word.Load()
		if c.word.CompareAndSwap(old, old&stampMask) {
			break
		}
	}

	w := Window{
		Count: uint32(old >> stampBits),
		Start: c.lastSample,
		End:   now,
	}
	if stamp := int64(old & stampMask); w.Count > 0 && stamp >= w.Start {
		w.End = stamp
	}
	c.lastSample = now
	return w
}

// Pending returns the count accumulated since the last Sample without
// resetting it.
func (c *Capture) Pending() uint32 {
	return uint32(c.word.Load() >> stampBits)
}
