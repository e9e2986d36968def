// Package broker runs an optional in-process MQTT broker so a single device
// can be driven from a phone app on the LAN without external infrastructure.
package broker

import (
	"fmt"
	"log/slog"

	mqttbroker "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/mochi-mqtt/server/v2/packets"
	"github.com/rs/zerolog/log"
)

// Embedded wraps a mochi MQTT server listening on one TCP address.
type Embedded struct {
	server *mqttbroker.Server
	tcp    *listeners.TCP
}

// New creates a broker that accepts any client on addr. It does not listen
// until Start is called.
func New(addr string) (*Embedded, error) {
	server := mqttbroker.New(&mqttbroker.Options{
		InlineClient: true,
		Logger:       slog.New(slog.NewTextHandler(log.Logger, &slog.HandlerOptions{Level: slog.LevelWarn})),
	})

	tcp := listeners.NewTCP(listeners.Config{ID: "tcp", Address: addr})
	if err := server.AddListener(tcp); err != nil {
		return nil, fmt.Errorf("add listener: %w", err)
	}

	if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("add auth hook: %w", err)
	}

	return &Embedded{server: server, tcp: tcp}, nil
}

// Start begins serving. Listeners run in the background.
func (e *Embedded) Start() error {
	if err := e.server.Serve(); err != nil {
		return fmt.Errorf("serve mqtt: %w", err)
	}
	log.Info().Str("addr", e.Addr()).Msg("Embedded MQTT broker listening")
	return nil
}

// Addr returns the bound listen address, useful when configured with port 0.
func (e *Embedded) Addr() string {
	return e.tcp.Address()
}

// URL returns a tcp:// broker URL for clients on this host.
func (e *Embedded) URL() string {
	return "tcp://" + e.Addr()
}

// Publish injects a message as if a client had sent it. Useful for tests.
func (e *Embedded) Publish(topic string, payload []byte, retain bool) error {
	return e.server.Publish(topic, payload, retain, 0)
}

// Subscribe registers an inline handler for a topic filter. Useful for tests.
func (e *Embedded) Subscribe(filter string, id int, handler func(topic string, payload []byte)) error {
	return e.server.Subscribe(filter, id, func(_ *mqttbroker.Client, _ packets.Subscription, pk packets.Packet) {
		handler(pk.TopicName, pk.Payload)
	})
}

// Close stops the broker and disconnects all clients.
func (e *Embedded) Close() error {
	return e.server.Close()
}
