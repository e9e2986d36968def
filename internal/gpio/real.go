//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// triggerPulse is the minimum HC-SR04 trigger width.
const triggerPulse = 10 * time.Microsecond

// RealRanger measures distance with an HC-SR04 using the Linux GPIO
// character device. Echo edges are timestamped by the kernel.
type RealRanger struct {
	chip    *gpiocdev.Chip
	trigger *gpiocdev.Line
	echo    *gpiocdev.Line
	events  chan gpiocdev.LineEvent
	timeout time.Duration
}

// NewRealRanger requests the trigger line as output and the echo line as an
// edge-detecting input.
func NewRealRanger(chipName string, pinTrigger, pinEcho int, timeout time.Duration) (*RealRanger, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	trigger, err := chip.RequestLine(pinTrigger, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request trigger pin %d: %w", pinTrigger, err)
	}

	r := &RealRanger{
		chip:    chip,
		trigger: trigger,
		events:  make(chan gpiocdev.LineEvent, 8),
		timeout: timeout,
	}

	echo, err := chip.RequestLine(pinEcho,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(r.handleEdge))
	if err != nil {
		trigger.Close()
		chip.Close()
		return nil, fmt.Errorf("request echo pin %d: %w", pinEcho, err)
	}
	r.echo = echo

	return r, nil
}

func (r *RealRanger) handleEdge(evt gpiocdev.LineEvent) {
	select {
	case r.events <- evt:
	default:
		// Reader is not waiting; stale edges are dropped.
	}
}

// ReadDistanceMM fires one trigger pulse and times the echo.
func (r *RealRanger) ReadDistanceMM() (uint32, error) {
	r.drain()

	if err := r.trigger.SetValue(1); err != nil {
		return 0, fmt.Errorf("set trigger: %w", err)
	}
	time.Sleep(triggerPulse)
	if err := r.trigger.SetValue(0); err != nil {
		return 0, fmt.Errorf("clear trigger: %w", err)
	}

	deadline := time.NewTimer(r.timeout)
	defer deadline.Stop()

	var rise time.Duration
	haveRise := false
	for {
		select {
		case evt := <-r.events:
			switch evt.Type {
			case gpiocdev.LineEventRisingEdge:
				rise = evt.Timestamp
				haveRise = true
			case gpiocdev.LineEventFallingEdge:
				if !haveRise {
					continue
				}
				return EchoToMM(int64(evt.Timestamp - rise)), nil
			}
		case <-deadline.C:
			return 0, ErrNoEcho
		}
	}
}

func (r *RealRanger) drain() {
	for {
		select {
		case <-r.events:
		default:
			return
		}
	}
}

// Close releases GPIO resources.
// Reconfigures the trigger as input with pull-down (matching Pi boot
// defaults) before closing.
func (r *RealRanger) Close() error {
	var errs []error

	if r.trigger != nil {
		if err := r.trigger.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure trigger pin: %w", err))
		}
		if err := r.trigger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close trigger pin: %w", err))
		}
	}
	if r.echo != nil {
		if err := r.echo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close echo pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	return errors.Join(errs...)
}
