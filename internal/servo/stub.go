//go:build !linux

package servo

import "errors"

// Open returns an error on non-Linux platforms.
func Open(cfg Config, lightPin, fanPin uint8) (*PWM, error) {
	return nil, errors.New("servo: not supported on this platform (requires Linux)")
}
