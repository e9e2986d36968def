// Package actuator owns the on/off state of the switched outputs and the
// physical toggle sequence that changes them.
package actuator

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/proximity-switch/internal/logic"
)

// Drive positions and releases a servo channel.
type Drive interface {
	// SetPosition moves the servo on channel to angle degrees.
	SetPosition(channel, angle int) error

	// Release stops driving the channel so the servo holds no torque.
	Release(channel int) error

	// Close releases drive resources.
	Close() error
}

// Profile describes how one actuator maps logical state to servo angles.
type Profile struct {
	ID               logic.Actuator
	Channel          int
	ActivePosition   int
	InactivePosition int
	HomePosition     int
}

// ErrUnknownActuator is returned for an actuator with no profile.
var ErrUnknownActuator = errors.New("unknown actuator")

// Controller executes toggle sequences. Not safe for concurrent use: it is
// owned by the control loop.
type Controller struct {
	drive    Drive
	profiles map[logic.Actuator]Profile
	active   map[logic.Actuator]bool
	settle   time.Duration
	sleep    func(time.Duration)
}

// Option configures a Controller.
type Option func(*Controller)

// WithSleep replaces time.Sleep for the settle waits.
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Controller) {
		c.sleep = sleep
	}
}

// NewController creates a controller with every actuator inactive.
func NewController(drive Drive, settle time.Duration, profiles []Profile, opts ...Option) *Controller {
	c := &Controller{
		drive:    drive,
		profiles: make(map[logic.Actuator]Profile, len(profiles)),
		active:   make(map[logic.Actuator]bool, len(profiles)),
		settle:   settle,
		sleep:    time.Sleep,
	}
	for _, p := range profiles {
		c.profiles[p.ID] = p
		c.active[p.ID] = false
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Toggle drives the actuator to its on or off extreme, dwells, returns it
// home, dwells again and releases the servo. The whole sequence blocks for
// two settle periods and always runs to completion unless the drive fails.
func (c *Controller) Toggle(id logic.Actuator, requested bool) error {
	p, ok := c.profiles[id]
	if !ok {
		return fmt.Errorf("toggle %s: %w", id, ErrUnknownActuator)
	}

	target := p.InactivePosition
	if requested {
		target = p.ActivePosition
	}

	if err := c.drive.SetPosition(p.Channel, target); err != nil {
		c.releaseAfterFault(p)
		return fmt.Errorf("move %s to %d: %w", id, target, err)
	}
	c.active[id] = requested
	if requested {
		log.Info().Str("actuator", string(id)).Int("angle", target).Msg("Turning on")
	} else {
		log.Info().Str("actuator", string(id)).Int("angle", target).Msg("Turning off")
	}
	c.sleep(c.settle)

	if err := c.drive.SetPosition(p.Channel, p.HomePosition); err != nil {
		c.releaseAfterFault(p)
		return fmt.Errorf("return %s home: %w", id, err)
	}
	c.sleep(c.settle)

	if err := c.drive.Release(p.Channel); err != nil {
		return fmt.Errorf("release %s: %w", id, err)
	}
	return nil
}

func (c *Controller) releaseAfterFault(p Profile) {
	if err := c.drive.Release(p.Channel); err != nil {
		log.Error().Err(err).Str("actuator", string(p.ID)).Msg("Failed to release servo after fault")
	}
}

// Home parks every actuator at its home position and releases it.
// Logical state is left untouched.
func (c *Controller) Home() error {
	for _, id := range []logic.Actuator{logic.Light, logic.Fan} {
		p, ok := c.profiles[id]
		if !ok {
			continue
		}
		if err := c.drive.SetPosition(p.Channel, p.HomePosition); err != nil {
			return fmt.Errorf("home %s: %w", id, err)
		}
		c.sleep(c.settle)
		if err := c.drive.Release(p.Channel); err != nil {
			return fmt.Errorf("release %s: %w", id, err)
		}
	}
	return nil
}

// Active returns the logical state of the actuator.
func (c *Controller) Active(id logic.Actuator) bool {
	return c.active[id]
}

// States returns the logical state of light and fan.
func (c *Controller) States() (light, fan bool) {
	return c.active[logic.Light], c.active[logic.Fan]
}

// Positions are the three servo angles shared by both actuators.
type Positions struct {
	Home int
	High int
	Low  int
}

// DefaultPositions match the switch linkage: neutral at 90 degrees with
// 40 degrees of throw either way.
var DefaultPositions = Positions{Home: 90, High: 130, Low: 50}

// StandardProfiles builds the light and fan profiles. The light is on at the
// high extreme; the fan is wired the other way round and is on at the low one.
func StandardProfiles(pos Positions, lightChannel, fanChannel int) []Profile {
	return []Profile{
		{
			ID:               logic.Light,
			Channel:          lightChannel,
			ActivePosition:   pos.High,
			InactivePosition: pos.Low,
			HomePosition:     pos.Home,
		},
		{
			ID:               logic.Fan,
			Channel:          fanChannel,
			ActivePosition:   pos.Low,
			InactivePosition: pos.High,
			HomePosition:     pos.Home,
		},
	}
}
