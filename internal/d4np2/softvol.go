package d4np2

import "time"

// SoftVolumeStep is the time the device takes for one soft-volume step.
const SoftVolumeStep = 250 * time.Microsecond

// RampDelay returns how long a soft-volume ramp from start to end takes.
// The device is not polled; callers wait this long before the next step.
func RampDelay(start, end uint8) time.Duration {
	if start > end {
		start, end = end, start
	}
	return time.Duration(end-start) * SoftVolumeStep
}
