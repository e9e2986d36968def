package mqtt

import (
	"errors"
	"testing"
	"time"

	"github.com/sweeney/proximity-switch/internal/broker"
)

func startBroker(t *testing.T) *broker.Embedded {
	t.Helper()
	b, err := broker.New("127.0.0.1:0")
	if err != nil {
		t.Fatalf("broker: %v", err)
	}
	if err := b.Start(); err != nil {
		t.Fatalf("broker start: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestRealSessionRoundTrip(t *testing.T) {
	b := startBroker(t)

	s, err := NewRealSession(Options{
		Broker:         b.URL(),
		ClientID:       "session-test",
		TopicPrefix:    "ps",
		ConnectTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	if !s.IsConnected() {
		t.Fatal("expected session connected")
	}

	// Subscription happens asynchronously after connect, so keep sending
	// until a command makes it through.
	var got []Inbound
	deadline := time.Now().Add(5 * time.Second)
	for len(got) == 0 && time.Now().Before(deadline) {
		if err := b.Publish(CommandTopic("ps", 1, InboundWrite), []byte("1"), false); err != nil {
			t.Fatalf("inline publish: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
		s.Service(func(in Inbound) { got = append(got, in) })
	}
	if len(got) == 0 {
		t.Fatal("no inbound command received")
	}
	if got[0] != (Inbound{Pin: 1, Kind: InboundWrite, Value: "1"}) {
		t.Errorf("unexpected inbound: %+v", got[0])
	}

	telemetry := make(chan string, 1)
	if err := b.Subscribe(TelemetryTopic("ps", 4), 7, func(_ string, payload []byte) {
		telemetry <- string(payload)
	}); err != nil {
		t.Fatalf("inline subscribe: %v", err)
	}
	if err := s.Publish(4, "150"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case v := <-telemetry:
		if v != "150" {
			t.Errorf("expected 150, got %s", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for telemetry")
	}
}

func TestRealSessionPublishSystem(t *testing.T) {
	b := startBroker(t)

	s, err := NewRealSession(Options{Broker: b.URL(), ClientID: "system-test", TopicPrefix: "ps"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	events := make(chan string, 1)
	if err := b.Subscribe(SystemTopic("ps"), 3, func(_ string, payload []byte) {
		events <- string(payload)
	}); err != nil {
		t.Fatalf("inline subscribe: %v", err)
	}

	if err := s.PublishSystem(SystemEvent{Event: "HEARTBEAT"}); err != nil {
		t.Fatalf("publish system: %v", err)
	}

	select {
	case v := <-events:
		if v != `{"system":{"event":"HEARTBEAT"}}` {
			t.Errorf("unexpected payload: %s", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for system event")
	}
}

func TestRealSessionOfflineFailsFast(t *testing.T) {
	// Nothing listens on port 1; paho keeps retrying in the background.
	s, err := NewRealSession(Options{
		Broker:         "tcp://127.0.0.1:1",
		ClientID:       "offline-test",
		TopicPrefix:    "ps",
		ConnectTimeout: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	if s.IsConnected() {
		t.Fatal("expected session disconnected")
	}

	start := time.Now()
	if err := s.PublishSystem(SystemEvent{Event: "HEARTBEAT"}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishSystem: got %v, want ErrNotConnected", err)
	}
	if err := s.Publish(2, "61"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish: got %v, want ErrNotConnected", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("publishing while offline blocked for %v", elapsed)
	}
}
