// Package logic contains the pure decision logic for the proximity switch.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Callers feed it samples and act on the decisions it returns.
package logic

// Actuator identifies one of the two switched outputs.
type Actuator string

const (
	Light Actuator = "LIGHT"
	Fan   Actuator = "FAN"
)

// Zone is the band a smoothed distance falls into.
type Zone string

const (
	ZoneFar  Zone = "FAR"
	ZoneMid  Zone = "MID"  // light zone
	ZoneNear Zone = "NEAR" // fan zone
)

// Thresholds partition distances into zones. LowTriggerMM < HighTriggerMM.
type Thresholds struct {
	HighTriggerMM uint32
	LowTriggerMM  uint32
	// RejectMarginMM is added to HighTriggerMM to get the invalid-sample cutoff.
	RejectMarginMM uint32
	// CooldownCycles is the number of evaluations suppressed after a trigger.
	CooldownCycles int
}

// RejectAboveMM returns the raw reading at or above which a sample is invalid.
func (t Thresholds) RejectAboveMM() uint32 {
	return t.HighTriggerMM + t.RejectMarginMM
}

// Trigger is a one-shot decision to flip one actuator.
type Trigger struct {
	Actuator Actuator
	Active   bool // the new logical state
	SonicAvg uint32
	Zone     Zone
}

// Outcome describes what an evaluation cycle did.
type Outcome int

const (
	OutcomeCooldown Outcome = iota // cooldown still running, evaluation skipped
	OutcomeFilling                 // window not full yet
	OutcomeIdle                    // window full, average in the far zone
	OutcomeTrigger                 // a trigger fired
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCooldown:
		return "cooldown"
	case OutcomeFilling:
		return "filling"
	case OutcomeIdle:
		return "idle"
	case OutcomeTrigger:
		return "trigger"
	}
	return "unknown"
}

// Decision is the result of one evaluation cycle.
type Decision struct {
	Outcome Outcome
	// Trigger is only meaningful when Outcome == OutcomeTrigger.
	Trigger Trigger
	// Average is the window mean for OutcomeIdle and OutcomeTrigger.
	Average uint32
	// Cooldown is the remaining cooldown after this cycle.
	Cooldown int
}

// Fired reports whether the decision carries a trigger.
func (d Decision) Fired() bool {
	return d.Outcome == OutcomeTrigger
}
