package mqtt

// Published is one recorded telemetry publish.
type Published struct {
	Pin   uint8
	Value string
}

// FakeSession records published telemetry and serves scripted inbound
// commands for test assertions.
type FakeSession struct {
	// Pending contains inbound commands delivered on the next Service call.
	Pending []Inbound

	// Published contains all telemetry values that were published.
	Published []Published

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool

	// ServiceCalls counts Service invocations.
	ServiceCalls int

	// OnPublish, if set, is called after each recorded telemetry publish.
	OnPublish func(Published)
}

// NewFakeSession creates a connected FakeSession for testing.
func NewFakeSession() *FakeSession {
	return &FakeSession{Connected: true}
}

// Queue adds inbound commands for the next Service call.
func (f *FakeSession) Queue(in ...Inbound) {
	f.Pending = append(f.Pending, in...)
}

// IsConnected reports whether the fake session is "connected".
func (f *FakeSession) IsConnected() bool {
	return f.Connected
}

// Service delivers queued commands.
func (f *FakeSession) Service(handle func(Inbound)) int {
	f.ServiceCalls++
	pending := f.Pending
	f.Pending = nil
	for _, in := range pending {
		handle(in)
	}
	return len(pending)
}

// Publish records the telemetry value.
func (f *FakeSession) Publish(pin uint8, value string) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	if !f.Connected {
		return ErrNotConnected
	}
	p := Published{Pin: pin, Value: value}
	f.Published = append(f.Published, p)
	if f.OnPublish != nil {
		f.OnPublish(p)
	}
	return nil
}

// PublishSystem records the system event.
func (f *FakeSession) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	f.SystemEvents = append(f.SystemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, payload)

	return nil
}

// Close marks the session as closed.
func (f *FakeSession) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded events.
func (f *FakeSession) Reset() {
	f.Pending = nil
	f.Published = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = true
	f.ServiceCalls = 0
}
