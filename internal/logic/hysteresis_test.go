package logic

import "testing"

func testThresholds() Thresholds {
	return Thresholds{
		HighTriggerMM:  200,
		LowTriggerMM:   75,
		RejectMarginMM: 100,
		CooldownCycles: 2,
	}
}

// allOff reports every actuator as inactive.
func allOff(Actuator) bool { return false }

func fill(w *Window, mm uint32, n int) {
	for i := 0; i < n; i++ {
		w.Sample(mm)
	}
}

func TestRejectAboveMM(t *testing.T) {
	if got := testThresholds().RejectAboveMM(); got != 300 {
		t.Errorf("expected 300, got %d", got)
	}
}

func TestClassify(t *testing.T) {
	e := NewEvaluator(testThresholds())

	tests := []struct {
		avg  uint32
		want Zone
	}{
		{0, ZoneFar},
		{1, ZoneNear},
		{50, ZoneNear},
		{75, ZoneNear},
		{76, ZoneMid},
		{150, ZoneMid},
		{200, ZoneMid},
		{201, ZoneFar},
		{299, ZoneFar},
	}

	for _, tt := range tests {
		if got := e.Classify(tt.avg); got != tt.want {
			t.Errorf("Classify(%d): got %s, want %s", tt.avg, got, tt.want)
		}
	}
}

func TestEvaluateMidZoneTriggersLight(t *testing.T) {
	th := testThresholds()
	e := NewEvaluator(th)
	w := NewWindow(10, th.RejectAboveMM())
	fill(w, 150, 10)

	d := e.Evaluate(w, allOff)
	if !d.Fired() {
		t.Fatalf("expected trigger, got %s", d.Outcome)
	}
	if d.Trigger.Actuator != Light {
		t.Errorf("expected LIGHT trigger, got %s", d.Trigger.Actuator)
	}
	if !d.Trigger.Active {
		t.Error("expected trigger to turn light on")
	}
	if d.Trigger.SonicAvg != 150 {
		t.Errorf("expected sonic avg 150, got %d", d.Trigger.SonicAvg)
	}
	if d.Trigger.Zone != ZoneMid {
		t.Errorf("expected MID zone, got %s", d.Trigger.Zone)
	}
	if e.Cooldown() != 2 {
		t.Errorf("expected cooldown 2, got %d", e.Cooldown())
	}
	if w.Len() != 0 {
		t.Errorf("expected window cleared after trigger, got %d", w.Len())
	}
}

func TestEvaluateNearZoneTriggersFan(t *testing.T) {
	th := testThresholds()
	e := NewEvaluator(th)
	w := NewWindow(10, th.RejectAboveMM())
	fill(w, 50, 10)

	d := e.Evaluate(w, allOff)
	if !d.Fired() {
		t.Fatalf("expected trigger, got %s", d.Outcome)
	}
	if d.Trigger.Actuator != Fan {
		t.Errorf("expected FAN trigger, got %s", d.Trigger.Actuator)
	}
	if d.Trigger.SonicAvg != 50 {
		t.Errorf("expected sonic avg 50, got %d", d.Trigger.SonicAvg)
	}
}

func TestEvaluateBoundaries(t *testing.T) {
	tests := []struct {
		name string
		mm   uint32
		want Actuator
	}{
		{"high boundary inclusive for mid", 200, Light},
		{"low boundary belongs to near only", 75, Fan},
		{"just above low boundary", 76, Light},
		{"minimum valid reading", 1, Fan},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := testThresholds()
			e := NewEvaluator(th)
			w := NewWindow(10, th.RejectAboveMM())
			fill(w, tt.mm, 10)

			d := e.Evaluate(w, allOff)
			if !d.Fired() {
				t.Fatalf("expected trigger at %dmm, got %s", tt.mm, d.Outcome)
			}
			if d.Trigger.Actuator != tt.want {
				t.Errorf("at %dmm: got %s, want %s", tt.mm, d.Trigger.Actuator, tt.want)
			}
		})
	}
}

func TestEvaluateFarZoneNoSideEffects(t *testing.T) {
	th := testThresholds()
	e := NewEvaluator(th)
	w := NewWindow(10, th.RejectAboveMM())
	fill(w, 250, 10)

	d := e.Evaluate(w, allOff)
	if d.Outcome != OutcomeIdle {
		t.Fatalf("expected idle outcome, got %s", d.Outcome)
	}
	if d.Average != 250 {
		t.Errorf("expected average 250, got %d", d.Average)
	}
	if e.Cooldown() != 0 {
		t.Errorf("expected no cooldown, got %d", e.Cooldown())
	}
	if w.Len() != 10 {
		t.Errorf("expected window untouched, got %d samples", w.Len())
	}
}

func TestEvaluateWindowNotReady(t *testing.T) {
	th := testThresholds()
	e := NewEvaluator(th)
	w := NewWindow(10, th.RejectAboveMM())
	fill(w, 150, 9)

	d := e.Evaluate(w, allOff)
	if d.Outcome != OutcomeFilling {
		t.Errorf("expected filling outcome, got %s", d.Outcome)
	}
	if w.Len() != 9 {
		t.Errorf("expected window untouched, got %d", w.Len())
	}
}

func TestEvaluateFlipsCurrentState(t *testing.T) {
	th := testThresholds()
	e := NewEvaluator(th)
	w := NewWindow(10, th.RejectAboveMM())
	fill(w, 150, 10)

	lightOn := func(a Actuator) bool { return a == Light }
	d := e.Evaluate(w, lightOn)
	if !d.Fired() {
		t.Fatalf("expected trigger, got %s", d.Outcome)
	}
	if d.Trigger.Active {
		t.Error("light is on, trigger should turn it off")
	}
}

func TestEvaluateCooldownSuppresses(t *testing.T) {
	th := testThresholds()
	e := NewEvaluator(th)
	w := NewWindow(10, th.RejectAboveMM())

	fill(w, 150, 10)
	if d := e.Evaluate(w, allOff); !d.Fired() {
		t.Fatal("expected first trigger")
	}

	// Window refilled and in a trigger zone, but cooldown must block.
	for cycle := 0; cycle < 2; cycle++ {
		fill(w, 150, 10)
		d := e.Evaluate(w, allOff)
		if d.Outcome != OutcomeCooldown {
			t.Fatalf("cycle %d: expected cooldown outcome, got %s", cycle, d.Outcome)
		}
		if d.Cooldown != 1-cycle {
			t.Errorf("cycle %d: expected remaining cooldown %d, got %d", cycle, 1-cycle, d.Cooldown)
		}
		if w.Len() != 10 {
			t.Errorf("cycle %d: cooldown must not touch the window, got %d samples", cycle, w.Len())
		}
	}

	if e.Cooldown() != 0 {
		t.Fatalf("expected cooldown expired, got %d", e.Cooldown())
	}

	d := e.Evaluate(w, allOff)
	if !d.Fired() {
		t.Errorf("expected trigger after cooldown expired, got %s", d.Outcome)
	}
}

func TestEvaluateCooldownDecrementsOncePerCycle(t *testing.T) {
	th := testThresholds()
	th.CooldownCycles = 5
	e := NewEvaluator(th)
	w := NewWindow(1, th.RejectAboveMM())
	w.Sample(150)
	e.Evaluate(w, allOff)

	for want := 4; want >= 0; want-- {
		e.Evaluate(w, allOff)
		if e.Cooldown() != want {
			t.Fatalf("expected cooldown %d, got %d", want, e.Cooldown())
		}
	}
}

func TestEvaluateWindowFillsDuringCooldown(t *testing.T) {
	th := testThresholds()
	e := NewEvaluator(th)
	w := NewWindow(3, th.RejectAboveMM())

	fill(w, 150, 3)
	e.Evaluate(w, allOff) // trigger, cooldown 2

	w.Sample(50)
	e.Evaluate(w, allOff) // cooldown 1
	w.Sample(50)
	e.Evaluate(w, allOff) // cooldown 0
	w.Sample(50)

	d := e.Evaluate(w, allOff)
	if !d.Fired() {
		t.Fatalf("samples taken during cooldown should count, got %s", d.Outcome)
	}
	if d.Trigger.Actuator != Fan {
		t.Errorf("expected FAN, got %s", d.Trigger.Actuator)
	}
}

func TestOutcomeString(t *testing.T) {
	tests := map[Outcome]string{
		OutcomeCooldown: "cooldown",
		OutcomeFilling:  "filling",
		OutcomeIdle:     "idle",
		OutcomeTrigger:  "trigger",
		Outcome(99):     "unknown",
	}
	for o, want := range tests {
		if o.String() != want {
			t.Errorf("Outcome(%d): got %q, want %q", int(o), o.String(), want)
		}
	}
}
