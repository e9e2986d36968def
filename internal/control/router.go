// Package control ties the sensor, decision logic, actuators and remote
// session together. Everything in here runs on the control loop goroutine.
package control

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/proximity-switch/internal/actuator"
	"github.com/sweeney/proximity-switch/internal/logic"
	"github.com/sweeney/proximity-switch/internal/mqtt"
	"github.com/sweeney/proximity-switch/internal/status"
)

// Channel is a logical telemetry channel.
type Channel string

const (
	ChannelLight    Channel = "LIGHT"
	ChannelFan      Channel = "FAN"
	ChannelSignal   Channel = "SIGSTR"
	ChannelAddress  Channel = "IPADDR"
	ChannelSonicAvg Channel = "SONICAVG"
)

// Channels lists every logical channel in pin order of the default binding.
var Channels = []Channel{ChannelLight, ChannelFan, ChannelSignal, ChannelAddress, ChannelSonicAvg}

// Binding maps logical channels to virtual pins.
type Binding map[Channel]uint8

// DefaultBinding returns the stock pin layout.
func DefaultBinding() Binding {
	return Binding{
		ChannelLight:    0,
		ChannelFan:      1,
		ChannelSignal:   2,
		ChannelAddress:  3,
		ChannelSonicAvg: 4,
	}
}

// Validate checks that every channel is bound and no two share a pin.
func (b Binding) Validate() error {
	seen := make(map[uint8]Channel, len(b))
	for _, ch := range Channels {
		pin, ok := b[ch]
		if !ok {
			return fmt.Errorf("channel %s has no pin", ch)
		}
		if other, dup := seen[pin]; dup {
			return fmt.Errorf("channels %s and %s share pin %d", other, ch, pin)
		}
		seen[pin] = ch
	}
	return nil
}

func (b Binding) channelFor(pin uint8) (Channel, bool) {
	for ch, p := range b {
		if p == pin {
			return ch, true
		}
	}
	return "", false
}

// CommandKind is the closed set of remote commands.
type CommandKind int

const (
	SetLight CommandKind = iota
	SetFan
	ReadSignal
	ReadAddress
	ReadSonicAvg
)

func (k CommandKind) String() string {
	switch k {
	case SetLight:
		return "SetLight"
	case SetFan:
		return "SetFan"
	case ReadSignal:
		return "ReadSignal"
	case ReadAddress:
		return "ReadAddress"
	case ReadSonicAvg:
		return "ReadSonicAvg"
	}
	return "Unknown"
}

// Command is a decoded remote command. Value is only used by SetLight and SetFan.
type Command struct {
	Kind  CommandKind
	Value bool
}

var (
	// ErrMalformedValue is returned for a write whose payload is not 0 or 1.
	ErrMalformedValue = errors.New("malformed value")

	// ErrUnsupportedCommand is returned for a read of a write-only channel or
	// a write to a read-only one.
	ErrUnsupportedCommand = errors.New("unsupported command")

	// ErrUnknownPin is returned for a pin with no channel bound.
	ErrUnknownPin = errors.New("unknown pin")
)

// Network answers the remote read requests.
type Network interface {
	// SignalStrength returns the link level in dBm.
	SignalStrength() (int, error)

	// LocalAddress returns the device's address.
	LocalAddress() (string, error)

	// Info returns the network summary for status, or nil.
	Info() *status.NetworkInfo
}

// Router decodes inbound commands, dispatches them and publishes telemetry.
type Router struct {
	binding    Binding
	session    mqtt.Session
	controller *actuator.Controller
	network    Network

	lastAvg uint32
	hasAvg  bool

	onManual func(id logic.Actuator, active bool)
}

// NewRouter creates a router. network may be nil, in which case signal and
// address reads are ignored.
func NewRouter(binding Binding, session mqtt.Session, controller *actuator.Controller, network Network) *Router {
	return &Router{
		binding:    binding,
		session:    session,
		controller: controller,
		network:    network,
	}
}

// OnManualToggle registers a callback run after each successful remote toggle.
func (r *Router) OnManualToggle(fn func(id logic.Actuator, active bool)) {
	r.onManual = fn
}

// Decode maps an inbound message to a command.
func (r *Router) Decode(in mqtt.Inbound) (Command, error) {
	ch, ok := r.binding.channelFor(in.Pin)
	if !ok {
		return Command{}, fmt.Errorf("pin %d: %w", in.Pin, ErrUnknownPin)
	}

	switch in.Kind {
	case mqtt.InboundWrite:
		var kind CommandKind
		switch ch {
		case ChannelLight:
			kind = SetLight
		case ChannelFan:
			kind = SetFan
		default:
			return Command{}, fmt.Errorf("write %s: %w", ch, ErrUnsupportedCommand)
		}
		switch strings.TrimSpace(in.Value) {
		case "1":
			return Command{Kind: kind, Value: true}, nil
		case "0":
			return Command{Kind: kind, Value: false}, nil
		}
		return Command{}, fmt.Errorf("write %s %q: %w", ch, in.Value, ErrMalformedValue)

	case mqtt.InboundRead:
		switch ch {
		case ChannelSignal:
			return Command{Kind: ReadSignal}, nil
		case ChannelAddress:
			return Command{Kind: ReadAddress}, nil
		case ChannelSonicAvg:
			return Command{Kind: ReadSonicAvg}, nil
		}
		return Command{}, fmt.Errorf("read %s: %w", ch, ErrUnsupportedCommand)
	}
	return Command{}, fmt.Errorf("%s on %s: %w", in.Kind, ch, ErrUnsupportedCommand)
}

// Dispatch executes a command. Only actuator drive faults are returned;
// failed reads and publishes are logged.
func (r *Router) Dispatch(cmd Command) error {
	switch cmd.Kind {
	case SetLight:
		return r.toggle(logic.Light, cmd.Value)
	case SetFan:
		return r.toggle(logic.Fan, cmd.Value)
	case ReadSignal:
		r.readSignal()
	case ReadAddress:
		r.readAddress()
	case ReadSonicAvg:
		if !r.hasAvg {
			log.Debug().Msg("No sonic average yet")
			return nil
		}
		r.publish(ChannelSonicAvg, strconv.FormatUint(uint64(r.lastAvg), 10))
	}
	return nil
}

// HandleInbound decodes and dispatches one inbound message. Malformed
// commands are logged and dropped.
func (r *Router) HandleInbound(in mqtt.Inbound) error {
	cmd, err := r.Decode(in)
	if err != nil {
		log.Warn().Err(err).Uint8("pin", in.Pin).Str("kind", string(in.Kind)).Msg("Rejected command")
		return nil
	}
	log.Debug().Str("command", cmd.Kind.String()).Bool("value", cmd.Value).Msg("Command received")
	return r.Dispatch(cmd)
}

// Announce publishes an automatic trigger before it is carried out: the new
// actuator state on its channel and the smoothed distance on SONICAVG.
func (r *Router) Announce(t logic.Trigger) {
	r.lastAvg = t.SonicAvg
	r.hasAvg = true

	if !r.session.IsConnected() {
		log.Debug().Str("actuator", string(t.Actuator)).Msg("Not connected, telemetry skipped")
		return
	}

	ch := ChannelLight
	if t.Actuator == logic.Fan {
		ch = ChannelFan
	}
	value := "0"
	if t.Active {
		value = "1"
	}
	r.publish(ch, value)
	r.publish(ChannelSonicAvg, strconv.FormatUint(uint64(t.SonicAvg), 10))
}

// LastAverage returns the average carried by the most recent trigger.
func (r *Router) LastAverage() (uint32, bool) {
	return r.lastAvg, r.hasAvg
}

func (r *Router) toggle(id logic.Actuator, active bool) error {
	if err := r.controller.Toggle(id, active); err != nil {
		return err
	}
	if r.onManual != nil {
		r.onManual(id, active)
	}
	return nil
}

func (r *Router) readSignal() {
	if r.network == nil {
		return
	}
	rssi, err := r.network.SignalStrength()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read signal strength")
		return
	}
	if rssi < 0 {
		rssi = -rssi
	}
	r.publish(ChannelSignal, strconv.Itoa(rssi))
}

func (r *Router) readAddress() {
	if r.network == nil {
		return
	}
	addr, err := r.network.LocalAddress()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read local address")
		return
	}
	r.publish(ChannelAddress, addr)
}

func (r *Router) publish(ch Channel, value string) {
	pin := r.binding[ch]
	if err := r.session.Publish(pin, value); err != nil {
		log.Warn().Err(err).Str("channel", string(ch)).Uint8("pin", pin).Msg("Publish failed")
	}
}
