// Package gpio provides ultrasonic range reading with hardware abstraction.
// The real implementation drives an HC-SR04 over the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "errors"

// Ranger reads distances from a range sensor.
type Ranger interface {
	// ReadDistanceMM blocks for one measurement and returns millimetres.
	// ErrNoEcho means the sensor saw nothing in range; any other error is a
	// hardware fault.
	ReadDistanceMM() (uint32, error)

	// Close releases GPIO resources.
	Close() error
}

// ErrNoEcho is returned when no echo pulse arrives within the timeout.
var ErrNoEcho = errors.New("no echo")

// Pin definitions (BCM numbering)
const (
	DefaultPinTrigger = 23
	DefaultPinEcho    = 24
)

// SpeedOfSoundMMPerSec at roughly 20°C.
const SpeedOfSoundMMPerSec = 343_000

// EchoToMM converts a round-trip echo pulse width in nanoseconds to millimetres.
func EchoToMM(pulseNs int64) uint32 {
	if pulseNs <= 0 {
		return 0
	}
	return uint32(pulseNs * SpeedOfSoundMMPerSec / 2 / 1_000_000_000)
}
