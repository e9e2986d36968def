package actuator

import (
	"errors"
	"testing"
	"time"

	"github.com/sweeney/proximity-switch/internal/logic"
)

// recorder captures drive calls and sleeps in one ordered trace.
type recorder struct {
	trace []string
}

func (r *recorder) sleep(d time.Duration) {
	r.trace = append(r.trace, "sleep("+d.String()+")")
}

func newTestController(t *testing.T) (*Controller, *FakeDrive, *recorder) {
	t.Helper()
	rec := &recorder{}
	drive := NewFakeDrive()
	drive.OnCall = func(op Op) { rec.trace = append(rec.trace, op.String()) }
	c := NewController(drive, 250*time.Millisecond, StandardProfiles(DefaultPositions, 0, 1), WithSleep(rec.sleep))
	return c, drive, rec
}

func assertTrace(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("trace length: got %d %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("trace[%d]: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestStandardProfiles(t *testing.T) {
	profiles := StandardProfiles(DefaultPositions, 3, 4)
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}

	light, fan := profiles[0], profiles[1]
	if light.ID != logic.Light || light.Channel != 3 {
		t.Errorf("unexpected light profile: %+v", light)
	}
	if light.ActivePosition != 130 || light.InactivePosition != 50 {
		t.Errorf("light should be on at high: %+v", light)
	}
	if fan.ID != logic.Fan || fan.Channel != 4 {
		t.Errorf("unexpected fan profile: %+v", fan)
	}
	if fan.ActivePosition != 50 || fan.InactivePosition != 130 {
		t.Errorf("fan should be on at low: %+v", fan)
	}
	if light.HomePosition != 90 || fan.HomePosition != 90 {
		t.Error("both actuators should share home 90")
	}
}

func TestToggleLightOnSequence(t *testing.T) {
	c, _, rec := newTestController(t)

	if c.Active(logic.Light) {
		t.Fatal("light should start inactive")
	}

	if err := c.Toggle(logic.Light, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !c.Active(logic.Light) {
		t.Error("light should be active after toggle on")
	}
	assertTrace(t, rec.trace, []string{
		"set(0,130)",
		"sleep(250ms)",
		"set(0,90)",
		"sleep(250ms)",
		"release(0)",
	})
}

func TestToggleLightOff(t *testing.T) {
	c, _, rec := newTestController(t)
	c.Toggle(logic.Light, true)
	rec.trace = nil

	if err := c.Toggle(logic.Light, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Active(logic.Light) {
		t.Error("light should be inactive after toggle off")
	}
	if rec.trace[0] != "set(0,50)" {
		t.Errorf("expected move to low position, got %s", rec.trace[0])
	}
}

func TestToggleFanInvertedMapping(t *testing.T) {
	c, _, rec := newTestController(t)

	if err := c.Toggle(logic.Fan, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertTrace(t, rec.trace, []string{
		"set(1,50)",
		"sleep(250ms)",
		"set(1,90)",
		"sleep(250ms)",
		"release(1)",
	})
	if !c.Active(logic.Fan) {
		t.Error("fan should be active")
	}
	if c.Active(logic.Light) {
		t.Error("toggling fan must not change light")
	}
}

func TestToggleSameStateStillActuates(t *testing.T) {
	c, drive, _ := newTestController(t)

	c.Toggle(logic.Light, false)
	if len(drive.Ops) != 3 {
		t.Errorf("expected full sequence even when already off, got %d ops", len(drive.Ops))
	}
}

func TestToggleUnknownActuator(t *testing.T) {
	c, drive, _ := newTestController(t)

	err := c.Toggle(logic.Actuator("DOOR"), true)
	if !errors.Is(err, ErrUnknownActuator) {
		t.Errorf("expected ErrUnknownActuator, got %v", err)
	}
	if len(drive.Ops) != 0 {
		t.Errorf("expected no drive calls, got %v", drive.Ops)
	}
}

func TestToggleDriveError(t *testing.T) {
	c, drive, _ := newTestController(t)
	drive.SetError = errors.New("pwm write failed")

	err := c.Toggle(logic.Light, true)
	if err == nil {
		t.Fatal("expected error")
	}
	if c.Active(logic.Light) {
		t.Error("state must not change when the move fails")
	}
	// Release is still attempted after the fault.
	if len(drive.Ops) != 1 || drive.Ops[0].Kind != "release" {
		t.Errorf("expected a release after fault, got %v", drive.Ops)
	}
}

func TestToggleReleaseError(t *testing.T) {
	c, drive, _ := newTestController(t)
	drive.ReleaseError = errors.New("unexport failed")

	if err := c.Toggle(logic.Fan, true); err == nil {
		t.Fatal("expected release error")
	}
	if !c.Active(logic.Fan) {
		t.Error("state changes once the move succeeded")
	}
}

func TestHome(t *testing.T) {
	c, _, rec := newTestController(t)

	if err := c.Home(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertTrace(t, rec.trace, []string{
		"set(0,90)",
		"sleep(250ms)",
		"release(0)",
		"set(1,90)",
		"sleep(250ms)",
		"release(1)",
	})
	light, fan := c.States()
	if light || fan {
		t.Error("homing must not change logical state")
	}
}

func TestStates(t *testing.T) {
	c, _, _ := newTestController(t)
	c.Toggle(logic.Fan, true)

	light, fan := c.States()
	if light {
		t.Error("expected light off")
	}
	if !fan {
		t.Error("expected fan on")
	}
}

func TestFakeDriveReset(t *testing.T) {
	d := NewFakeDrive()
	d.SetPosition(0, 10)
	d.Close()
	d.Reset()
	if d.Ops != nil || d.Closed {
		t.Error("expected cleared fake after Reset")
	}
}
