package logic

import "math"

// InchPerMicroToMPH converts inches per microsecond to miles per hour.
const InchPerMicroToMPH = 56818

// Speed converts count wheel pulses observed over elapsedMicros into whole
// miles per hour. The distance is truncated to whole inches before the
// conversion and the result truncates toward zero. No pulses, or a window of
// zero length, is speed 0. The result saturates at maxMPH.
func Speed(count uint32, elapsedMicros int64, wheelDiameterInches float64, maxMPH uint8) uint8 {
	if count == 0 || elapsedMicros <= 0 {
		return 0
	}

	distance := wheelDiameterInches * math.Pi * float64(count)
	if distance >= float64(math.MaxInt64/InchPerMicroToMPH) {
		return maxMPH
	}

	mph := int64(distance) * InchPerMicroToMPH / elapsedMicros
	if mph > int64(maxMPH) {
		return maxMPH
	}
	if mph < 0 {
		return 0
	}
	return uint8(mph)
}
