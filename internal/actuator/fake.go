package actuator

import "fmt"

// Op is one recorded drive call.
type Op struct {
	Kind    string // "set" or "release"
	Channel int
	Angle   int
}

func (o Op) String() string {
	if o.Kind == "release" {
		return fmt.Sprintf("release(%d)", o.Channel)
	}
	return fmt.Sprintf("set(%d,%d)", o.Channel, o.Angle)
}

// FakeDrive records drive calls for test assertions.
type FakeDrive struct {
	// Ops contains every call in order.
	Ops []Op

	// SetError, if set, will be returned by SetPosition.
	SetError error

	// ReleaseError, if set, will be returned by Release.
	ReleaseError error

	// Closed tracks if Close was called.
	Closed bool

	// OnCall, if set, is invoked after each recorded call.
	OnCall func(Op)
}

// NewFakeDrive creates a FakeDrive for testing.
func NewFakeDrive() *FakeDrive {
	return &FakeDrive{}
}

// SetPosition records the move.
func (f *FakeDrive) SetPosition(channel, angle int) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.record(Op{Kind: "set", Channel: channel, Angle: angle})
	return nil
}

// Release records the release.
func (f *FakeDrive) Release(channel int) error {
	if f.ReleaseError != nil {
		return f.ReleaseError
	}
	f.record(Op{Kind: "release", Channel: channel})
	return nil
}

// Close marks the drive as closed.
func (f *FakeDrive) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded calls.
func (f *FakeDrive) Reset() {
	f.Ops = nil
	f.SetError = nil
	f.ReleaseError = nil
	f.Closed = false
}

func (f *FakeDrive) record(op Op) {
	f.Ops = append(f.Ops, op)
	if f.OnCall != nil {
		f.OnCall(op)
	}
}
