//go:build linux

package servo

import (
	"fmt"

	"github.com/hjkoskel/govattu"
)

// Open maps the Pi's peripheral registers and routes lightPin and fanPin to
// the PWM block. Both pins must be ones where ALT5 selects PWM (GPIO 18 and 19).
func Open(cfg Config, lightPin, fanPin uint8) (*PWM, error) {
	hw, err := govattu.Open()
	if err != nil {
		return nil, fmt.Errorf("open pwm registers: %w", err)
	}

	hw.PinMode(lightPin, govattu.ALT5)
	hw.PinMode(fanPin, govattu.ALT5)

	p, err := New(hw, cfg)
	if err != nil {
		hw.Close()
		return nil, err
	}
	return p, nil
}
