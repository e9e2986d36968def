//go:build !linux

package gpio

import (
	"errors"
	"time"
)

// RealRanger is not available on non-Linux platforms.
type RealRanger struct{}

// NewRealRanger returns an error on non-Linux platforms.
func NewRealRanger(chip string, pinTrigger, pinEcho int, timeout time.Duration) (*RealRanger, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// ReadDistanceMM is not implemented on non-Linux platforms.
func (r *RealRanger) ReadDistanceMM() (uint32, error) {
	return 0, errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealRanger) Close() error {
	return nil
}
