package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// Options configures a RealSession.
type Options struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	InboxSize   int
	// ConnectTimeout bounds the initial connect; paho keeps retrying after it.
	ConnectTimeout time.Duration
}

// RealSession is a Session backed by an MQTT broker.
type RealSession struct {
	client paho.Client
	prefix string
	inbox  *inbox
}

// NewRealSession connects to the broker. If the broker is unreachable within
// ConnectTimeout the session is still returned and keeps retrying in the
// background, so local control is never blocked on the remote link.
func NewRealSession(o Options) (*RealSession, error) {
	if o.TopicPrefix == "" {
		o.TopicPrefix = DefaultTopicPrefix
	}
	if o.InboxSize == 0 {
		o.InboxSize = 32
	}
	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = 10 * time.Second
	}

	s := &RealSession{
		prefix: o.TopicPrefix,
		inbox:  newInbox(o.InboxSize),
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetUsername(o.Username).
		SetPassword(o.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(SystemTopic(o.TopicPrefix), WillPayload(), 1, true).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn().Err(err).Msg("MQTT connection lost")
		})

	s.client = paho.NewClient(opts)
	token := s.client.Connect()
	if !token.WaitTimeout(o.ConnectTimeout) {
		log.Warn().Str("broker", o.Broker).Msg("MQTT connect timed out, retrying in background")
		return s, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return s, nil
}

// onConnect subscribes on every (re)connect since sessions are clean.
func (s *RealSession) onConnect(c paho.Client) {
	filters := make(map[string]byte)
	for _, f := range commandFilters(s.prefix) {
		filters[f] = 1
	}
	token := c.SubscribeMultiple(filters, s.onMessage)
	if !token.WaitTimeout(5 * time.Second) {
		log.Error().Msg("MQTT subscribe timed out")
		return
	}
	if err := token.Error(); err != nil {
		log.Error().Err(err).Msg("MQTT subscribe failed")
		return
	}
	log.Info().Str("prefix", s.prefix).Msg("MQTT connected, listening for commands")
}

func (s *RealSession) onMessage(_ paho.Client, msg paho.Message) {
	in, ok := ParseInbound(s.prefix, msg.Topic(), msg.Payload())
	if !ok {
		log.Debug().Str("topic", msg.Topic()).Msg("Ignoring message on unknown topic")
		return
	}
	s.inbox.push(in)
}

// IsConnected reports whether the broker connection is currently open.
func (s *RealSession) IsConnected() bool {
	return s.client.IsConnectionOpen()
}

// Service hands queued commands to handle on the caller's goroutine.
func (s *RealSession) Service(handle func(Inbound)) int {
	pending := s.inbox.drainAll()
	for _, in := range pending {
		handle(in)
	}
	return len(pending)
}

// Publish sends a telemetry value on a virtual pin.
func (s *RealSession) Publish(pin uint8, value string) error {
	if !s.IsConnected() {
		return ErrNotConnected
	}

	// QoS 0 (at-most-once), not retained
	token := s.client.Publish(TelemetryTopic(s.prefix, pin), 0, false, value)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (s *RealSession) PublishSystem(event SystemEvent) error {
	if !s.IsConnected() {
		return ErrNotConnected
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events
	token := s.client.Publish(SystemTopic(s.prefix), 1, event.Retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish system timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (s *RealSession) Close() error {
	s.client.Disconnect(1000) // 1 second timeout
	return nil
}
