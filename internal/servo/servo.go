// Package servo drives hobby servos from the Raspberry Pi's two hardware PWM
// channels through govattu.
package servo

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Pulse timing for a standard 50Hz hobby servo.
const (
	DefaultMinPulse = 500 * time.Microsecond  // 0 degrees
	DefaultMaxPulse = 2500 * time.Microsecond // 180 degrees
	MaxAngle        = 180
)

// GPIO pins whose ALT5 function is PWM0 and PWM1.
const (
	DefaultLightPin = 18
	DefaultFanPin   = 19
)

// PWM clock setup. The 19.2MHz oscillator divided by 19 ticks at roughly
// 1µs, so a range of 20000 gives a 20ms period and a duty value is the pulse
// width in microseconds.
const (
	ClockDivisor = 19
	Range        = 20000
	tick         = time.Microsecond
)

// Hardware is the subset of govattu.Vattu the drive uses.
type Hardware interface {
	PwmSetMode(en0, ms0, en1, ms1 bool)
	PwmSetClock(divisor uint32)
	Pwm0SetRange(r uint32)
	Pwm1SetRange(r uint32)
	Pwm0Set(value uint32)
	Pwm1Set(value uint32)
	Close() error
}

// Config describes the pulse range of the attached servos.
type Config struct {
	MinPulse time.Duration
	MaxPulse time.Duration
}

// PWM positions servos on PWM channel 0 and 1.
type PWM struct {
	hw  Hardware
	cfg Config
}

var (
	// ErrAngleRange is returned for angles outside 0..MaxAngle.
	ErrAngleRange = errors.New("angle out of range")

	// ErrChannel is returned for channels other than 0 and 1.
	ErrChannel = errors.New("no such pwm channel")
)

// New puts both channels in mark-space mode with a 20ms period. Pins must
// already be routed to the PWM block.
func New(hw Hardware, cfg Config) (*PWM, error) {
	if cfg.MinPulse == 0 {
		cfg.MinPulse = DefaultMinPulse
	}
	if cfg.MaxPulse == 0 {
		cfg.MaxPulse = DefaultMaxPulse
	}
	if cfg.MaxPulse <= cfg.MinPulse || cfg.MaxPulse > Range*tick {
		return nil, fmt.Errorf("invalid pulse range %v..%v", cfg.MinPulse, cfg.MaxPulse)
	}

	hw.PwmSetMode(true, true, true, true)
	hw.PwmSetClock(ClockDivisor)
	hw.Pwm0SetRange(Range)
	hw.Pwm1SetRange(Range)
	hw.Pwm0Set(0)
	hw.Pwm1Set(0)

	log.Debug().Dur("min_pulse", cfg.MinPulse).Dur("max_pulse", cfg.MaxPulse).Msg("PWM ready")
	return &PWM{hw: hw, cfg: cfg}, nil
}

// PulseWidth maps an angle to its pulse width.
func (p *PWM) PulseWidth(angle int) (time.Duration, error) {
	if angle < 0 || angle > MaxAngle {
		return 0, fmt.Errorf("%d: %w", angle, ErrAngleRange)
	}
	span := p.cfg.MaxPulse - p.cfg.MinPulse
	return p.cfg.MinPulse + span*time.Duration(angle)/MaxAngle, nil
}

// Duty maps an angle to the value written to the PWM data register.
func (p *PWM) Duty(angle int) (uint32, error) {
	pulse, err := p.PulseWidth(angle)
	if err != nil {
		return 0, err
	}
	return uint32(pulse / tick), nil
}

// SetPosition moves the servo on channel to angle.
func (p *PWM) SetPosition(channel, angle int) error {
	duty, err := p.Duty(angle)
	if err != nil {
		return err
	}
	return p.set(channel, duty)
}

// Release stops the pulse train so the servo no longer holds position.
func (p *PWM) Release(channel int) error {
	return p.set(channel, 0)
}

// Close stops both channels and unmaps the hardware.
func (p *PWM) Close() error {
	p.hw.Pwm0Set(0)
	p.hw.Pwm1Set(0)
	return p.hw.Close()
}

func (p *PWM) set(channel int, duty uint32) error {
	switch channel {
	case 0:
		p.hw.Pwm0Set(duty)
	case 1:
		p.hw.Pwm1Set(duty)
	default:
		return fmt.Errorf("%d: %w", channel, ErrChannel)
	}
	return nil
}
