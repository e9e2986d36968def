package control

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/proximity-switch/internal/actuator"
	"github.com/sweeney/proximity-switch/internal/gpio"
	"github.com/sweeney/proximity-switch/internal/logic"
	"github.com/sweeney/proximity-switch/internal/mqtt"
	"github.com/sweeney/proximity-switch/internal/status"
)

// System event names published on the system topic.
const (
	EventStartup   = "STARTUP"
	EventHeartbeat = "HEARTBEAT"
	EventShutdown  = "SHUTDOWN"
)

// Stop is a cancellation cause carrying the shutdown reason, e.g. "SIGTERM".
type Stop struct {
	Reason string
}

func (s Stop) Error() string {
	return "stopped: " + s.Reason
}

// Config holds the loop's tunables.
type Config struct {
	Thresholds logic.Thresholds
	ReadCount  int
	// Heartbeat is the system heartbeat interval; 0 disables it.
	Heartbeat time.Duration
	Binding   Binding
}

// Deps are the collaborators the loop drives.
type Deps struct {
	Ranger     gpio.Ranger
	Session    mqtt.Session
	Controller *actuator.Controller
	Network    Network         // optional
	Tracker    *status.Tracker // optional
}

// Loop owns the sensor window, evaluator, controller and router and runs
// one sense-decide-act iteration per tick.
type Loop struct {
	window     *logic.Window
	evaluator  *logic.Evaluator
	controller *actuator.Controller
	router     *Router
	session    mqtt.Session
	ranger     gpio.Ranger
	network    Network
	tracker    *status.Tracker

	heartbeat     time.Duration
	lastHeartbeat time.Time
	now           func() time.Time

	counts  status.Counts
	outcome logic.Outcome
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithClock replaces time.Now for event timestamps and the heartbeat start.
func WithClock(now func() time.Time) LoopOption {
	return func(l *Loop) {
		l.now = now
	}
}

// NewLoop wires a loop from its config and collaborators.
func NewLoop(cfg Config, deps Deps, opts ...LoopOption) *Loop {
	binding := cfg.Binding
	if binding == nil {
		binding = DefaultBinding()
	}

	l := &Loop{
		window:     logic.NewWindow(cfg.ReadCount, cfg.Thresholds.RejectAboveMM()),
		evaluator:  logic.NewEvaluator(cfg.Thresholds),
		controller: deps.Controller,
		session:    deps.Session,
		ranger:     deps.Ranger,
		network:    deps.Network,
		tracker:    deps.Tracker,
		heartbeat:  cfg.Heartbeat,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.tracker == nil {
		l.tracker = status.NewTracker(l.now(), status.Config{})
	}
	l.lastHeartbeat = l.now()

	l.router = NewRouter(binding, deps.Session, deps.Controller, deps.Network)
	l.router.OnManualToggle(func(id logic.Actuator, active bool) {
		l.counts.Manual++
		l.countToggle(id, active)
	})
	return l
}

// Router returns the loop's command router.
func (l *Loop) Router() *Router {
	return l.router
}

// Run publishes STARTUP, then runs one Step per tick until ctx is cancelled,
// when it publishes SHUTDOWN and returns nil. A hardware fault stops the
// loop and is returned.
func (l *Loop) Run(ctx context.Context, tick <-chan time.Time) error {
	l.publishEvent(EventStartup, "", true)

	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
		case t, ok := <-tick:
			if !ok {
				l.shutdown("TICKER_STOPPED")
				return nil
			}
			if err := l.Step(t); err != nil {
				return err
			}
		}
	}

	l.shutdown(stopReason(context.Cause(ctx)))
	return nil
}

func (l *Loop) shutdown(reason string) {
	log.Info().Str("reason", reason).Msg("Shutting down")
	l.publishEvent(EventShutdown, reason, true)
}

// Step runs exactly one iteration: service inbound commands, take a sample,
// evaluate, act, then refresh status and the heartbeat.
func (l *Loop) Step(now time.Time) error {
	if err := l.service(); err != nil {
		return err
	}

	raw, err := l.ranger.ReadDistanceMM()
	if err != nil {
		if !errors.Is(err, gpio.ErrNoEcho) {
			return fmt.Errorf("read distance: %w", err)
		}
		raw = 0
	}
	if !l.window.Sample(raw) {
		l.counts.Rejected++
		log.Debug().Uint32("raw_mm", raw).Msg("Rejected sample, window cleared")
	}

	d := l.evaluator.Evaluate(l.window, l.controller.Active)
	l.outcome = d.Outcome
	switch d.Outcome {
	case logic.OutcomeCooldown:
		log.Debug().Int("cooldown", d.Cooldown).Msg("Timed out")
	case logic.OutcomeTrigger:
		t := d.Trigger
		log.Info().
			Str("actuator", string(t.Actuator)).
			Bool("active", t.Active).
			Uint32("avg_mm", t.SonicAvg).
			Str("zone", string(t.Zone)).
			Msg("Triggered")
		l.router.Announce(t)
		if err := l.controller.Toggle(t.Actuator, t.Active); err != nil {
			return fmt.Errorf("toggle %s: %w", t.Actuator, err)
		}
		l.counts.Auto++
		l.countToggle(t.Actuator, t.Active)
	}

	l.updateStatus()

	if l.heartbeat > 0 && now.Sub(l.lastHeartbeat) >= l.heartbeat {
		l.lastHeartbeat = now
		if info := l.networkInfo(); info != nil {
			l.tracker.SetNetwork(info)
		}
		light, fan := l.controller.States()
		log.Info().
			Bool("light", light).
			Bool("fan", fan).
			Int("auto", l.counts.Auto).
			Int("manual", l.counts.Manual).
			Msg("Heartbeat")
		l.publishEvent(EventHeartbeat, "", false)
	}
	return nil
}

func (l *Loop) service() error {
	var fault error
	l.session.Service(func(in mqtt.Inbound) {
		if fault != nil {
			return
		}
		fault = l.router.HandleInbound(in)
	})
	if fault != nil {
		return fmt.Errorf("remote command: %w", fault)
	}
	return nil
}

func (l *Loop) countToggle(id logic.Actuator, active bool) {
	switch {
	case id == logic.Light && active:
		l.counts.LightOn++
	case id == logic.Light:
		l.counts.LightOff++
	case active:
		l.counts.FanOn++
	default:
		l.counts.FanOff++
	}
}

func (l *Loop) updateStatus() {
	light, fan := l.controller.States()
	avg, hasAvg := l.router.LastAverage()
	core := status.Core{
		Light:     light,
		Fan:       fan,
		LastAvgMM: avg,
		HasAvg:    hasAvg,
		Cooldown:  l.evaluator.Cooldown(),
		WindowLen: l.window.Len(),
		Outcome:   l.outcome.String(),
		Counts:    l.counts,
	}
	l.tracker.Update(core)
	l.tracker.SetMQTTConnected(l.session.IsConnected())
}

func (l *Loop) networkInfo() *status.NetworkInfo {
	if l.network == nil {
		return nil
	}
	return l.network.Info()
}

func (l *Loop) publishEvent(event, reason string, retained bool) {
	l.tracker.SetMQTTConnected(l.session.IsConnected())
	if info := l.networkInfo(); info != nil {
		l.tracker.SetNetwork(info)
	}
	snap := l.tracker.Snapshot()
	ev := mqtt.SystemEvent{
		Timestamp:  l.now(),
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := l.session.PublishSystem(ev); err != nil {
		log.Warn().Err(err).Str("event", event).Msg("Failed to publish system event")
		return
	}
	log.Debug().Str("event", event).Msg("Published system event")
}

func stopReason(cause error) string {
	var s Stop
	if errors.As(cause, &s) {
		return s.Reason
	}
	if errors.Is(cause, context.DeadlineExceeded) {
		return "DEADLINE"
	}
	return "CANCELED"
}
