package render

import "strconv"

// Widest rendering of each quantity after clamping.
const (
	speedDigits       = 3 // "120"
	percentDigits     = 4 // "100%"
	voltageDigits     = 5 // "65535"
	temperatureDigits = 4 // "-100"
	currentDigits     = 3 // "-50"
)

// numBuf is scratch space for one numeric readout. Values are clamped
// before formatting so they always fit the fixed array.
type numBuf [8]byte

func (b *numBuf) uint(v uint64) string {
	return string(strconv.AppendUint(b[:0], v, 10))
}

func (b *numBuf) int(v int64) string {
	return string(strconv.AppendInt(b[:0], v, 10))
}

func (b *numBuf) percent(v uint8) string {
	out := strconv.AppendUint(b[:0], uint64(v), 10)
	return string(append(out, '%'))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
