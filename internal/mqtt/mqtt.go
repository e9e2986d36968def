// Package mqtt provides the remote session: telemetry publishing and inbound
// command delivery, with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTopicPrefix is the root of every topic the session uses.
const DefaultTopicPrefix = "proximity-switch"

// Session is the remote link the control loop talks to.
type Session interface {
	// IsConnected reports whether the broker connection is up.
	IsConnected() bool

	// Service drains pending inbound messages and calls handle for each,
	// synchronously, on the caller's goroutine. Returns the number handled.
	Service(handle func(Inbound)) int

	// Publish sends a telemetry value on a virtual pin.
	Publish(pin uint8, value string) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ErrNotConnected is returned when publishing without a broker connection.
var ErrNotConnected = errors.New("mqtt: not connected")

// InboundKind distinguishes writes from read requests.
type InboundKind string

const (
	InboundWrite InboundKind = "set"
	InboundRead  InboundKind = "get"
)

// Inbound is one command received from the remote application.
type Inbound struct {
	Pin   uint8
	Kind  InboundKind
	Value string // raw payload, empty for reads
}

// TelemetryTopic returns the topic a virtual pin publishes on.
func TelemetryTopic(prefix string, pin uint8) string {
	return fmt.Sprintf("%s/v%d", prefix, pin)
}

// CommandTopic returns the topic the remote application uses to write or read a pin.
func CommandTopic(prefix string, pin uint8, kind InboundKind) string {
	return fmt.Sprintf("%s/v%d/%s", prefix, pin, kind)
}

// SystemTopic returns the topic for lifecycle events.
func SystemTopic(prefix string) string {
	return prefix + "/system"
}

// commandFilters are the subscriptions covering every command topic.
func commandFilters(prefix string) []string {
	return []string{
		prefix + "/+/" + string(InboundWrite),
		prefix + "/+/" + string(InboundRead),
	}
}

// ParseInbound decodes a command topic and payload. ok is false for topics
// that are not command topics under prefix.
func ParseInbound(prefix, topic string, payload []byte) (Inbound, bool) {
	rest, found := strings.CutPrefix(topic, prefix+"/v")
	if !found {
		return Inbound{}, false
	}
	pinStr, kindStr, found := strings.Cut(rest, "/")
	if !found {
		return Inbound{}, false
	}
	pin, err := strconv.ParseUint(pinStr, 10, 8)
	if err != nil {
		return Inbound{}, false
	}

	kind := InboundKind(kindStr)
	switch kind {
	case InboundWrite:
		return Inbound{Pin: uint8(pin), Kind: kind, Value: string(payload)}, true
	case InboundRead:
		return Inbound{Pin: uint8(pin), Kind: kind}, true
	}
	return Inbound{}, false
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "OFFLINE"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}

// WillPayload is published by the broker when the session drops uncleanly.
func WillPayload() []byte {
	payload, _ := FormatSystemPayload(SystemEvent{Event: "OFFLINE", Reason: "MQTT_DISCONNECT"})
	return payload
}
